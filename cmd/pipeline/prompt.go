package main

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/cuongbtq/signup-harvester/internal/pipeline"
)

const (
	promptWorkers   = "Enter number of signup threads: "
	promptPerWorker = "Enter number of signups per thread: "
)

// readCounts returns the registration worker count and the signups per
// worker, taken from two positional arguments or prompted for on in
func readCounts(args []string, in io.Reader, out io.Writer) (int, int, error) {
	switch len(args) {
	case 2:
		workers, err := parseCount("signup threads", args[0])
		if err != nil {
			return 0, 0, err
		}
		perWorker, err := parseCount("signups per thread", args[1])
		if err != nil {
			return 0, 0, err
		}
		return workers, perWorker, nil
	case 0:
	default:
		return 0, 0, fmt.Errorf("expected 2 arguments (threads, signups per thread), got %d", len(args))
	}

	scanner := bufio.NewScanner(in)
	ask := func(prompt, name string) (int, error) {
		fmt.Fprint(out, prompt)
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return 0, fmt.Errorf("failed to read %s: %w", name, err)
			}
			return 0, fmt.Errorf("failed to read %s: %w", name, io.ErrUnexpectedEOF)
		}
		return parseCount(name, scanner.Text())
	}

	workers, err := ask(promptWorkers, "signup threads")
	if err != nil {
		return 0, 0, err
	}
	perWorker, err := ask(promptPerWorker, "signups per thread")
	if err != nil {
		return 0, 0, err
	}
	return workers, perWorker, nil
}

func parseCount(name, raw string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("invalid number of %s: %q", name, raw)
	}
	if n <= 0 {
		return 0, fmt.Errorf("number of %s must be greater than 0, got %d", name, n)
	}
	return n, nil
}

// printSummary writes the end-of-run report
func printSummary(out io.Writer, s *pipeline.Summary) {
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Run\t%s\n", s.RunID)
	fmt.Fprintf(tw, "Submitted\t%d\n", s.Submitted)
	fmt.Fprintf(tw, "Registered\t%d\n", s.Registered)
	fmt.Fprintf(tw, "Registration failures\t%d\n", s.RegistrationFailures)
	fmt.Fprintf(tw, "Verified\t%d\n", s.Verified)
	fmt.Fprintf(tw, "Failed\t%d\n", s.Failed)
	fmt.Fprintf(tw, "Retries\t%d\n", s.Retries)
	fmt.Fprintf(tw, "Recorded\t%d\n", s.Persisted)
	if s.Dropped > 0 {
		fmt.Fprintf(tw, "Dropped\t%d\n", s.Dropped)
	}
	if s.PersistErrors > 0 {
		fmt.Fprintf(tw, "Not recorded\t%d\n", s.PersistErrors)
	}
	if s.Abandoned > 0 {
		fmt.Fprintf(tw, "Abandoned\t%d\n", s.Abandoned)
	}
	fmt.Fprintf(tw, "Duration\t%s\n", s.Duration.Round(time.Millisecond))
	tw.Flush()
}
