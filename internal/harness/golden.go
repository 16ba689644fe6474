package harness

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/sebdah/goldie/v2"
)

// TraceSnapshot captures the trace of one scenario execution.
type TraceSnapshot struct {
	Scenario string
	RunID    string
	Trace    []TraceEvent
	Stop     string
	Cycles   int
	Reward   int64
}

type snapshotHeader struct {
	Scenario string `json:"scenario"`
	RunID    string `json:"run_id"`
}

type snapshotFooter struct {
	Stop   string `json:"stop"`
	Cycles int    `json:"cycles"`
	Reward int64  `json:"reward"`
}

// NewSnapshot builds the snapshot of a scenario result.
func NewSnapshot(s *Scenario, r *Result) TraceSnapshot {
	return TraceSnapshot{
		Scenario: s.Name,
		RunID:    r.Summary.RunID,
		Trace:    r.Trace,
		Stop:     r.Summary.StopReason,
		Cycles:   r.Summary.Cycles,
		Reward:   r.Summary.RewardGained,
	}
}

// Marshal renders the snapshot one JSON object per line: a header, each
// cycle in order, then a footer. Struct field order fixes key order, so
// the output is byte-stable.
func (s TraceSnapshot) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	if err := enc.Encode(snapshotHeader{Scenario: s.Scenario, RunID: s.RunID}); err != nil {
		return nil, err
	}
	for _, ev := range s.Trace {
		if err := enc.Encode(ev); err != nil {
			return nil, err
		}
	}
	if err := enc.Encode(snapshotFooter{Stop: s.Stop, Cycles: s.Cycles, Reward: s.Reward}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// RunWithGolden executes a scenario and compares the trace against a golden
// file stored in testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns the result so callers can check assertions too.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an already computed result against its golden file.
func AssertGolden(t *testing.T, scenario *Scenario, result *Result) error {
	t.Helper()

	data, err := NewSnapshot(scenario, result).Marshal()
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenario.Name, data)
	return nil
}
