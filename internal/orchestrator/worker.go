package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/specialistvlad/paramgrid/internal/ctxlog"
	"github.com/specialistvlad/paramgrid/internal/failure"
	"github.com/specialistvlad/paramgrid/internal/registry"
	"github.com/specialistvlad/paramgrid/internal/unit"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// job is one unit dispatched with the snapshot it must read.
type job struct {
	u    unit.Unit
	snap *registry.Snapshot
}

// jobResult travels back to the coordinator; workers never commit.
type jobResult struct {
	id       string
	out      unit.Outputs
	err      error
	duration time.Duration
}

// worker is the processing loop for a single concurrent worker. It drains
// readyChan until the coordinator closes it and reports whether the run was
// canceled underneath it.
func (o *Orchestrator) worker(ctx context.Context, readyChan <-chan job, results chan<- jobResult, workerID int) error {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Worker started.", "workerID", workerID)

	for j := range readyChan {
		id := j.u.Metadata().ID
		workerLogger := logger.With("workerID", workerID, "unit", id)
		workerLogger.Debug("Worker picked up unit for execution.")

		start := time.Now()
		out, err := o.runUnit(ctx, j)
		if err != nil {
			workerLogger.Error("Unit execution failed.", "error", err)
		} else {
			workerLogger.Debug("Unit execution succeeded.", "outputs", len(out))
		}
		results <- jobResult{id: id, out: out, err: err, duration: time.Since(start)}
	}
	logger.Debug("Worker finished.", "workerID", workerID)
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("worker %d: %w", workerID, err)
	}
	return nil
}

// runUnit invokes the unit inside its own span and turns panics and errors
// into UNIT_ERROR failures.
func (o *Orchestrator) runUnit(ctx context.Context, j job) (out unit.Outputs, err error) {
	meta := j.u.Metadata()
	ctx, span := o.tracer.Start(ctx, "unit "+meta.ID, trace.WithAttributes(
		attribute.String("unit.id", meta.ID),
		attribute.String("unit.version", meta.Version),
		attribute.String("unit.domain", meta.Domain),
	))
	defer func() {
		if r := recover(); r != nil {
			out = nil
			err = &failure.Error{Code: failure.CodeUnitError, Unit: meta.ID, Msg: fmt.Sprintf("panic: %v", r)}
		}
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	out, err = j.u.Run(ctxlog.With(ctx, "unit", meta.ID), j.snap)
	if err != nil {
		return nil, &failure.Error{Code: failure.CodeUnitError, Unit: meta.ID, Err: err}
	}
	return out, nil
}
