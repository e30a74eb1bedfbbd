package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/specialistvlad/paramgrid/internal/ctxlog"
	"github.com/specialistvlad/paramgrid/internal/failure"
	"github.com/specialistvlad/paramgrid/internal/formula"
	"github.com/specialistvlad/paramgrid/internal/registry"
	"github.com/specialistvlad/paramgrid/internal/unit"
	"github.com/specialistvlad/paramgrid/internal/validation"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

// Execute plans and runs every registered unit once.
//
// Cycles abort before anything runs. Per-unit failures are recorded in the
// Result and never abort the run. The returned error is non-nil only for
// cycles, cancellation, or writes that bypassed the commit phase; in the last
// two cases the partial Result is returned alongside it.
func (o *Orchestrator) Execute(ctx context.Context) (*Result, error) {
	logger := ctxlog.FromContext(ctx)

	plan, err := o.Plan()
	if err != nil {
		logger.Error("Planning failed.", "error", err)
		return nil, err
	}
	logger.Info("Execution plan ready.", "units", len(plan.Order), "workers", o.numWorkers)

	ctx, span := o.tracer.Start(ctx, "orchestrator.Execute", trace.WithAttributes(
		attribute.Int("units", len(plan.Order)),
		attribute.Int("workers", o.numWorkers),
	))
	defer span.End()

	writer, err := o.reg.Seal()
	if err != nil {
		return nil, fmt.Errorf("cannot execute: %w", err)
	}
	defer writer.Release()
	violationsBefore := len(o.reg.Violations())

	r := newRun(o, plan, writer)
	r.execute(ctx)

	res, err := r.result()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	logger.Info("Execution finished.",
		"executed", len(res.InState(Executed)),
		"failed", len(res.InState(Failed)),
		"skipped", len(res.InState(Skipped)),
	)

	if violations := o.reg.Violations()[violationsBefore:]; len(violations) > 0 {
		err := fmt.Errorf("registry was written outside the commit phase: %w", errors.Join(violations...))
		logger.Error("Direct registry mutation detected.", "count", len(violations))
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return res, err
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		logger.Warn("Execution canceled.", "error", ctxErr)
		return res, fmt.Errorf("execution canceled: %w", ctxErr)
	}
	return res, nil
}

// run is the coordinator state for one Execute call. Only the coordinator
// goroutine touches it.
type run struct {
	o       *Orchestrator
	plan    *Plan
	writer  *registry.Writer
	outcome map[string]*UnitOutcome
	pending map[string]int
	checks  map[string][]validation.Check

	readyChan chan job
	results   chan jobResult
	inflight  int
}

func newRun(o *Orchestrator, plan *Plan, writer *registry.Writer) *run {
	n := len(plan.Order)
	r := &run{
		o:         o,
		plan:      plan,
		writer:    writer,
		outcome:   make(map[string]*UnitOutcome, n),
		pending:   make(map[string]int, n),
		checks:    make(map[string][]validation.Check),
		readyChan: make(chan job, n),
		results:   make(chan jobResult, n),
	}
	for _, id := range plan.Order {
		deps, _ := plan.Dependencies(id)
		r.pending[id] = len(deps)
		r.outcome[id] = &UnitOutcome{ID: id, State: Pending}
	}
	return r
}

func (r *run) execute(ctx context.Context) {
	logger := ctxlog.FromContext(ctx)

	var g errgroup.Group
	workers := min(r.o.numWorkers, max(1, len(r.plan.Order)))
	logger.Debug("Starting worker pool.", "workers", workers)
	for i := 0; i < workers; i++ {
		g.Go(func() error {
			return r.o.worker(ctx, r.readyChan, r.results, i)
		})
	}

	for _, id := range r.plan.Order {
		if r.pending[id] == 0 {
			r.dispatch(ctx, id)
		}
	}

	for r.inflight > 0 {
		res := <-r.results
		r.inflight--
		r.complete(ctx, res)
	}

	close(r.readyChan)
	if err := g.Wait(); err != nil {
		logger.Warn("Worker pool stopped by cancellation.", "error", err)
	}

	for _, id := range r.plan.Order {
		if r.outcome[id].State == Pending {
			r.mark(id, Skipped, &failure.Error{Code: failure.CodeCanceled, Unit: id, Msg: "not dispatched"})
		}
	}
}

// dispatch hands a ready unit to the pool, or records why it cannot run.
func (r *run) dispatch(ctx context.Context, id string) {
	if r.outcome[id].State != Pending {
		return
	}
	logger := ctxlog.FromContext(ctx)

	if err := ctx.Err(); err != nil {
		r.skip(ctx, id, &failure.Error{Code: failure.CodeCanceled, Unit: id, Err: err})
		return
	}

	u := r.plan.units[id]
	var missing []string
	for _, in := range u.RequiredInputs() {
		if !r.o.reg.Has(in) {
			missing = append(missing, in)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		r.fail(ctx, id, failure.MissingInput(id, missing))
		return
	}

	logger.Debug("Dispatching unit.", "unit", id)
	r.outcome[id].State = Running
	r.inflight++
	r.readyChan <- job{u: u, snap: r.o.reg.Snapshot()}
}

// complete validates and commits a finished unit, then unlocks its dependents.
func (r *run) complete(ctx context.Context, res jobResult) {
	logger := ctxlog.FromContext(ctx).With("unit", res.id)
	r.outcome[res.id].Duration = res.duration

	if err := ctx.Err(); err != nil {
		logger.Warn("Discarding result of unit finished after cancellation.")
		r.skip(ctx, res.id, &failure.Error{Code: failure.CodeCanceled, Unit: res.id, Err: err})
		return
	}
	if res.err != nil {
		r.fail(ctx, res.id, res.err)
		return
	}

	u := r.plan.units[res.id]
	if err := unit.CheckOutputs(u, res.out); err != nil {
		r.fail(ctx, res.id, err)
		return
	}

	meta := u.Metadata()
	keys := res.out.Keys()
	entries := make([]registry.Entry, 0, len(keys))
	for _, k := range keys {
		entries = append(entries, registry.Entry{
			Path:   k,
			Value:  res.out[k],
			Source: meta.ID,
			Status: meta.StatusFor(k),
		})
	}
	if err := r.writer.Commit(entries); err != nil {
		r.fail(ctx, res.id, withUnit(err, res.id))
		return
	}

	r.mark(res.id, Executed, nil)
	r.outcome[res.id].Outputs = keys
	r.checks[res.id] = selfValidate(u, r.o.reg.Snapshot())
	logger.Info("Unit executed.", "outputs", keys, "duration", res.duration)

	dependents, _ := r.plan.Dependents(res.id)
	for _, dep := range dependents {
		r.pending[dep]--
		if r.pending[dep] == 0 {
			logger.Debug("Unlocking dependent unit.", "dependent", dep)
			r.dispatch(ctx, dep)
		}
	}
}

func (r *run) fail(ctx context.Context, id string, err error) {
	ctxlog.FromContext(ctx).Warn("Unit failed.", "unit", id, "error", err)
	r.mark(id, Failed, err)
	r.skipDependents(ctx, id, func(dep string) error {
		return failure.UpstreamFailure(dep, id)
	})
}

func (r *run) skip(ctx context.Context, id string, err error) {
	r.mark(id, Skipped, err)
	r.skipDependents(ctx, id, func(dep string) error {
		return &failure.Error{Code: failure.CodeCanceled, Unit: dep, Msg: fmt.Sprintf("upstream unit %q was canceled", id)}
	})
}

// skipDependents marks every pending unit downstream of id as skipped.
func (r *run) skipDependents(ctx context.Context, id string, reason func(dep string) error) {
	logger := ctxlog.FromContext(ctx)
	descendants, _ := r.plan.graph.Descendants(id)
	for _, dep := range descendants {
		if r.outcome[dep].State != Pending {
			continue
		}
		logger.Warn("Skipping dependent unit.", "unit", dep, "upstream", id)
		r.mark(dep, Skipped, reason(dep))
	}
}

func (r *run) mark(id string, s State, err error) {
	oc := r.outcome[id]
	oc.State = s
	oc.Err = err
	if err != nil {
		oc.Reason = failure.CodeOf(err)
	}
}

// result assembles the audit trail once no unit is in flight.
func (r *run) result() (*Result, error) {
	res := &Result{
		Order:  append([]string(nil), r.plan.Order...),
		Units:  make([]UnitOutcome, 0, len(r.plan.Order)),
		Checks: r.checks,
	}

	var records []formula.Record
	for _, id := range r.plan.Order {
		oc := *r.outcome[id]
		res.Units = append(res.Units, oc)
		u := r.plan.units[id]
		if oc.State == Executed {
			records = append(records, publishedFormulas(u)...)
		}
		if cp, ok := u.(unit.CertificateProvider); ok {
			res.Certificates = append(res.Certificates, cp.Certificates()...)
		}
	}
	sort.SliceStable(res.Certificates, func(i, j int) bool {
		return res.Certificates[i].ID < res.Certificates[j].ID
	})

	fg, err := formula.Build(records)
	if err != nil {
		return nil, err
	}
	res.Formulas = fg
	return res, nil
}

// selfValidate runs the unit's own checks. A panicking check is reported as
// a failed check.
func selfValidate(u unit.Unit, in registry.Reader) (checks []validation.Check) {
	sv, ok := u.(unit.SelfValidator)
	if !ok {
		return nil
	}
	defer func() {
		if rec := recover(); rec != nil {
			checks = []validation.Check{{Name: "self-validation", Message: fmt.Sprintf("panic: %v", rec)}}
		}
	}()
	return sv.SelfValidate(in)
}

func withUnit(err error, id string) error {
	var fe *failure.Error
	if errors.As(err, &fe) && fe.Unit == "" {
		c := *fe
		c.Unit = id
		return &c
	}
	return err
}
