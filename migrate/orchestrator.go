package migrate

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/teranos/ngmigrate/cg"
	"github.com/teranos/ngmigrate/errors"
	"github.com/teranos/ngmigrate/logger"
	"github.com/teranos/ngmigrate/ng"
)

// DefaultTimeout bounds one remote call.
const DefaultTimeout = 30 * time.Second

// ReasonAborted is the skip reason of entities left unscheduled by an abort.
const ReasonAborted = "run aborted before processing"

// Request describes one migration run.
type Request struct {
	Root   cg.EntityRef
	AppID  string
	Params Params
	// DryRun renders and allocates identifiers without calling the target.
	DryRun bool
}

// Prepared is a discovered and planned run.
type Prepared struct {
	Context   *Context
	Discovery *Discovery
	Plan      *Plan
}

// Orchestrator runs migrations: discovery, planning, dispatch, aggregation.
type Orchestrator struct {
	registry   *Registry
	store      cg.Store
	client     ng.Client
	discoverer *Discoverer
	planner    *Planner
	ledger     *Ledger
	metrics    *Metrics
	timeout    time.Duration
	newRunID   func() string
	now        func() time.Time
	log        *zap.SugaredLogger
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLedger persists mappings and reports, and seeds runs from prior mappings.
func WithLedger(l *Ledger) Option {
	return func(o *Orchestrator) { o.ledger = l }
}

// WithMetrics counts outcomes into m.
func WithMetrics(m *Metrics) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

// WithTimeout bounds each remote call. Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(o *Orchestrator) { o.timeout = d }
}

// WithRunIDs replaces the run id generator.
func WithRunIDs(gen func() string) Option {
	return func(o *Orchestrator) { o.newRunID = gen }
}

// NewOrchestrator wires the run components. client may be nil for dry runs.
func NewOrchestrator(registry *Registry, store cg.Store, client ng.Client, log *zap.SugaredLogger, opts ...Option) *Orchestrator {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	o := &Orchestrator{
		registry:   registry,
		store:      store,
		client:     client,
		discoverer: NewDiscoverer(registry, store, log),
		planner:    NewPlanner(registry, log),
		timeout:    DefaultTimeout,
		newRunID:   func() string { return uuid.NewString() },
		now:        time.Now,
		log:        log.Named("migrate.orchestrator"),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Prepare discovers the graph below the root, seeds prior mappings and plans
// the order. Errors here abort the run.
func (o *Orchestrator) Prepare(ctx context.Context, req Request) (*Prepared, error) {
	appID := req.AppID
	if appID == "" && req.Root.Type == cg.Application {
		appID = req.Root.ID
	}
	disc, err := o.discoverer.Discover(ctx, req.Root, appID)
	if err != nil {
		return nil, err
	}
	mc := NewContext(o.store, req.Params, disc)

	if o.ledger != nil {
		records, err := o.ledger.Mappings(ctx, req.Params.Scope.AccountID)
		if err != nil {
			return nil, NewFailure(CategoryContext, req.Root, errors.Wrap(err, "load prior mappings"))
		}
		if err := mc.Seed(records); err != nil {
			return nil, err
		}
	}

	return &Prepared{Context: mc, Discovery: disc, Plan: o.planner.Plan(mc, req.Params.MigrateAll)}, nil
}

// Run executes one migration. Entity failures end up in the report; only a
// failure to build the run context is returned as an error. Cancelling ctx
// stops scheduling: the in-flight call finishes or times out, and the rest
// of the plan is reported as skipped.
func (o *Orchestrator) Run(ctx context.Context, req Request) (*Report, error) {
	if o.client == nil && !req.DryRun {
		return nil, errors.NewInvalidRequestError("a target client is required unless dry run is set")
	}
	report := &Report{RunID: o.newRunID(), Root: req.Root, DryRun: req.DryRun, StartedAt: o.now()}
	ctx = logger.WithRunID(ctx, report.RunID)
	log := logger.FromContext(ctx, o.log)

	prep, err := o.Prepare(ctx, req)
	if err != nil {
		log.Errorw("Run aborted while building context",
			logger.FieldEntityType, req.Root.Type,
			logger.FieldEntityID, req.Root.ID,
			logger.FieldError, err)
		return nil, err
	}
	persist := o.ledger != nil && !req.DryRun
	if persist {
		if err := o.ledger.StartRun(ctx, report, req.Params.Scope.AccountID); err != nil {
			return nil, NewFailure(CategoryContext, req.Root, err)
		}
	}

	mc, plan := prep.Context, prep.Plan
	agg := NewAggregator()
	for _, e := range prep.Discovery.Errors {
		agg.Error(e)
		o.metrics.Entity(e.Origin.Type, OutcomeFailed)
	}
	for _, ref := range plan.Ineligible {
		o.metrics.Entity(ref.Type, OutcomeIneligible)
	}
	for _, ref := range plan.Existing {
		o.metrics.Entity(ref.Type, OutcomeExisting)
	}

	log.Infow("Run started",
		logger.FieldEntityType, req.Root.Type,
		logger.FieldEntityID, req.Root.ID,
		logger.FieldScope, req.Params.Scope.String(),
		logger.FieldTotalCount, len(plan.Order),
		"dry_run", req.DryRun)

	for i, ref := range plan.Order {
		if ctx.Err() != nil {
			report.Aborted = true
			for _, rest := range plan.Order[i:] {
				agg.Skip(ReasonAborted, rest)
				o.metrics.Entity(rest.Type, OutcomeAborted)
			}
			log.Warnw("Run aborted", logger.FieldCount, len(plan.Order)-i)
			break
		}
		entry, sum := o.process(ctx, mc, report.RunID, ref, req.DryRun, persist)
		agg.Add(sum)
		if entry != nil {
			report.Migrated = append(report.Migrated, *entry)
		}
	}

	s := agg.Summary()
	report.Success = s.Success
	report.Errors = s.Errors
	report.Skips = s.Skips
	if report.Migrated == nil {
		report.Migrated = []MigratedEntity{}
	}
	report.FinishedAt = o.now()
	o.metrics.Run(report)

	log.Infow("Run finished",
		"success", report.Success,
		"aborted", report.Aborted,
		logger.FieldCount, len(report.Migrated),
		"errors", len(report.Errors),
		"skips", len(report.Skips),
		logger.FieldDurationMS, report.FinishedAt.Sub(report.StartedAt).Milliseconds())

	if persist {
		if err := o.ledger.FinishRun(context.WithoutCancel(ctx), report); err != nil {
			return report, errors.Wrap(err, "store run report")
		}
	}
	return report, nil
}

// process handles one planned entity. The artifact is recorded in the
// context only when every document of the entity was imported.
func (o *Orchestrator) process(ctx context.Context, mc *Context, runID string, ref cg.EntityRef, dryRun, persist bool) (*MigratedEntity, Summary) {
	log := logger.FromContext(ctx, o.log).With(logger.FieldEntityType, ref.Type, logger.FieldEntityID, ref.ID)
	s, _ := o.registry.Get(ref.Type)

	gen, err := s.Generate(mc, ref)
	if err != nil {
		f := asFailure(ref, err)
		log.Warnw("Generate failed", logger.FieldError, err, "category", f.Category)
		o.metrics.Entity(ref.Type, OutcomeFailed)
		return nil, Failed(f.ImportError())
	}
	if gen == nil || (len(gen.Artifacts) == 0 && len(gen.Skips) == 0) {
		log.Debugw("Nothing to migrate")
		return nil, Succeeded()
	}
	if len(gen.Skips) > 0 {
		for _, sk := range gen.Skips {
			log.Infow("Entity skipped", logger.FieldReason, sk.Reason)
		}
		o.metrics.Entity(ref.Type, OutcomeSkipped)
		return nil, Summary{Success: true, Skips: gen.Skips}
	}

	primary := gen.Artifacts[0]
	existed := true
	in := Inputs{RunID: runID, Scope: mc.Params.Scope}
	for _, art := range gen.Artifacts {
		if len(art.Unresolved) > 0 {
			log.Debugw("Expressions left for runtime input", "tokens", art.Unresolved)
		}
		sum := o.importOne(ctx, mc, s, in, art, dryRun)
		if !sum.Success {
			o.metrics.Entity(ref.Type, OutcomeFailed)
			for _, e := range sum.Errors {
				log.Warnw("Import failed",
					logger.FieldNGType, art.Type,
					logger.FieldIdentifier, art.Identifier,
					logger.FieldError, e.Message)
			}
			return nil, sum
		}
		existed = existed && art.AlreadyExisted
	}
	primary.AlreadyExisted = existed

	stored, _ := mc.InsertIfAbsent(ref, primary)
	rec := s.Mapping(stored)
	entry := &MigratedEntity{MappingRecord: rec, AlreadyExisted: stored.AlreadyExisted}
	if existed {
		o.metrics.Entity(ref.Type, OutcomeExisting)
	} else {
		o.metrics.Entity(ref.Type, OutcomeMigrated)
	}
	log.Infow("Entity migrated",
		logger.FieldNGType, stored.Type,
		logger.FieldIdentifier, stored.Identifier,
		logger.FieldScope, stored.Scope.String(),
		"already_existed", stored.AlreadyExisted)

	if persist {
		if _, err := o.ledger.Record(context.WithoutCancel(ctx), runID, rec); err != nil {
			log.Errorw("Mapping not persisted", logger.FieldError, err)
			return entry, Failed(NewFailure(CategoryLedger, ref, err).ImportError())
		}
	}
	return entry, Succeeded()
}

// importOne looks up an existing document and imports it when absent. An
// identifier assigned by the target is adopted into the run's namespace.
// Remote calls are detached from run cancellation and bounded by the timeout.
func (o *Orchestrator) importOne(ctx context.Context, mc *Context, s Strategy, in Inputs, art *Artifact, dryRun bool) Summary {
	if dryRun {
		return Succeeded()
	}

	lookupCtx, cancel := o.remoteContext(ctx)
	existing, err := s.GetExisting(lookupCtx, o.client, mc, art)
	cancel()
	if err != nil {
		logger.FromContext(ctx, o.log).Debugw("Existence check failed, importing",
			logger.FieldIdentifier, art.Identifier, logger.FieldError, err)
	} else if existing != nil {
		art.AlreadyExisted = true
		return Succeeded()
	}

	callCtx, cancel := o.remoteContext(ctx)
	defer cancel()
	allocated := art.Identifier
	start := time.Now()
	sum := s.Migrate(callCtx, o.client, in, art)
	o.metrics.Import(art.Origin.Type, time.Since(start))
	if sum.Success && art.Identifier != allocated {
		if err := mc.Adopt(art); err != nil {
			return Failed(asFailure(art.Origin, err).ImportError())
		}
	}
	return sum
}

func (o *Orchestrator) remoteContext(ctx context.Context) (context.Context, context.CancelFunc) {
	detached := context.WithoutCancel(ctx)
	if o.timeout <= 0 {
		return context.WithCancel(detached)
	}
	return context.WithTimeout(detached, o.timeout)
}

func asFailure(ref cg.EntityRef, err error) *Failure {
	var f *Failure
	if errors.As(err, &f) {
		return f
	}
	cat := CategoryOf(err)
	if cat == CategoryRemoteImport {
		cat = CategoryGenerate
	}
	return NewFailure(cat, ref, err)
}
