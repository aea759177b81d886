package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/cuongbtq/signup-harvester/internal/pipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadCounts(t *testing.T) {
	tests := []struct {
		name          string
		args          []string
		input         string
		wantWorkers   int
		wantPerWorker int
		wantPrompt    bool
		wantErr       string
	}{
		{name: "positional", args: []string{"3", "2"}, wantWorkers: 3, wantPerWorker: 2},
		{name: "prompted", input: "4\n5\n", wantWorkers: 4, wantPerWorker: 5, wantPrompt: true},
		{name: "prompted with spaces", input: " 1 \r\n 1\n", wantWorkers: 1, wantPerWorker: 1, wantPrompt: true},
		{name: "one argument", args: []string{"3"}, wantErr: "expected 2 arguments"},
		{name: "not a number", args: []string{"three", "2"}, wantErr: "invalid number of signup threads"},
		{name: "zero", args: []string{"3", "0"}, wantErr: "must be greater than 0"},
		{name: "negative prompted", input: "-1\n", wantErr: "must be greater than 0"},
		{name: "input ends early", input: "2\n", wantErr: "failed to read signups per thread"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := &bytes.Buffer{}
			workers, perWorker, err := readCounts(tt.args, strings.NewReader(tt.input), out)

			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantWorkers, workers)
			assert.Equal(t, tt.wantPerWorker, perWorker)

			if tt.wantPrompt {
				assert.Equal(t, promptWorkers+promptPerWorker, out.String())
			} else {
				assert.Empty(t, out.String())
			}
		})
	}
}

func TestPrintSummary(t *testing.T) {
	out := &bytes.Buffer{}
	printSummary(out, &pipeline.Summary{
		RunID:     "run-1",
		Submitted: 6,
		Verified:  5,
		Failed:    1,
		Persisted: 6,
		Duration:  1500 * time.Millisecond,
	})

	text := out.String()
	assert.Contains(t, text, "run-1")
	assert.Regexp(t, `Submitted\s+6`, text)
	assert.Regexp(t, `Recorded\s+6`, text)
	assert.NotContains(t, text, "Abandoned")
	assert.Contains(t, text, "1.5s")
}
