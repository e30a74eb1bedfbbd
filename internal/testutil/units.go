package testutil

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/specialistvlad/paramgrid/internal/registry"
	"github.com/specialistvlad/paramgrid/internal/unit"
)

// ErrBoom is returned by Failing units.
var ErrBoom = errors.New("boom")

func meta(id string) unit.Metadata {
	return unit.Metadata{ID: id, Version: "1.0.0", Domain: "test"}
}

// Sum builds a unit whose single output is the sum of its numeric inputs.
func Sum(id string, inputs []string, output string) unit.Unit {
	return unit.Func(unit.Spec{
		Metadata:       meta(id),
		RequiredInputs: inputs,
		OutputParams:   []string{output},
	}, func(_ context.Context, in registry.Reader) (unit.Outputs, error) {
		var total float64
		for _, p := range inputs {
			v, err := in.Float(p)
			if err != nil {
				return nil, err
			}
			total += v
		}
		return unit.Outputs{output: registry.Number(total)}, nil
	})
}

// Const builds a unit with no inputs that emits fixed values.
func Const(id string, values map[string]float64) unit.Unit {
	outputs := make([]string, 0, len(values))
	for k := range values {
		outputs = append(outputs, k)
	}
	return unit.Func(unit.Spec{
		Metadata:     meta(id),
		OutputParams: outputs,
	}, func(context.Context, registry.Reader) (unit.Outputs, error) {
		out := make(unit.Outputs, len(values))
		for k, v := range values {
			out[k] = registry.Number(v)
		}
		return out, nil
	})
}

// Failing builds a unit that always returns ErrBoom.
func Failing(id string, inputs, outputs []string) unit.Unit {
	return unit.Func(unit.Spec{
		Metadata:       meta(id),
		RequiredInputs: inputs,
		OutputParams:   outputs,
	}, func(context.Context, registry.Reader) (unit.Outputs, error) {
		return nil, ErrBoom
	})
}

// Returning builds a unit that returns out verbatim, whatever it declared.
func Returning(id string, inputs, outputs []string, out unit.Outputs) unit.Unit {
	return unit.Func(unit.Spec{
		Metadata:       meta(id),
		RequiredInputs: inputs,
		OutputParams:   outputs,
	}, func(context.Context, registry.Reader) (unit.Outputs, error) {
		return out, nil
	})
}

// ExecutionRecord holds the start and end times of one unit run.
type ExecutionRecord struct {
	Start time.Time
	End   time.Time
}

// Recorder wraps units to record when each of them ran.
type Recorder struct {
	mu    sync.Mutex
	Times map[string]ExecutionRecord
	Sleep time.Duration
}

// NewRecorder creates a Recorder whose units sleep for d while running.
func NewRecorder(d time.Duration) *Recorder {
	return &Recorder{Times: make(map[string]ExecutionRecord), Sleep: d}
}

// Sum is like the package-level Sum but records its execution window.
func (r *Recorder) Sum(id string, inputs []string, output string) unit.Unit {
	inner := Sum(id, inputs, output)
	return unit.Func(unit.Spec{
		Metadata:       inner.Metadata(),
		RequiredInputs: inputs,
		OutputParams:   []string{output},
	}, func(ctx context.Context, in registry.Reader) (unit.Outputs, error) {
		start := time.Now()
		select {
		case <-time.After(r.Sleep):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		out, err := inner.Run(ctx, in)
		r.mu.Lock()
		r.Times[id] = ExecutionRecord{Start: start, End: time.Now()}
		r.mu.Unlock()
		return out, err
	})
}

// Get returns the record for id.
func (r *Recorder) Get(id string) (ExecutionRecord, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.Times[id]
	return rec, ok
}
