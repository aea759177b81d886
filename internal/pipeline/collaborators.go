package pipeline

import (
	"context"
	"fmt"

	"github.com/cuongbtq/signup-harvester/internal/results"
)

// AddressGenerator produces a fresh address for every job
type AddressGenerator interface {
	Generate() string
}

// Registrar performs the external registration for an address
type Registrar interface {
	Register(ctx context.Context, address string) error
}

// CodeFinder makes a single lookup for the verification code sent to address.
// An empty code and an error both count as a miss.
type CodeFinder interface {
	FindCode(ctx context.Context, address string) (string, error)
}

// ResultStore persists terminal outcomes
type ResultStore interface {
	Init(ctx context.Context) error
	Append(ctx context.Context, rec results.Record) error
}

// RegistrarFunc adapts a function to Registrar
type RegistrarFunc func(ctx context.Context, address string) error

// Register calls f
func (f RegistrarFunc) Register(ctx context.Context, address string) error {
	return f(ctx, address)
}

// CodeFinderFunc adapts a function to CodeFinder
type CodeFinderFunc func(ctx context.Context, address string) (string, error)

// FindCode calls f
func (f CodeFinderFunc) FindCode(ctx context.Context, address string) (string, error) {
	return f(ctx, address)
}

// guard runs a collaborator call and converts a panic into an error
func guard(call func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("collaborator panic: %v", r)
		}
	}()
	return call()
}
