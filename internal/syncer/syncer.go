// Package syncer implements the idempotent policy synchronization procedure.
package syncer

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/ppiankov/cissync/internal/bundle"
	"github.com/ppiankov/cissync/internal/central"
)

// PolicyStore is the remote-store surface the syncer needs. *central.Client
// satisfies it; tests substitute fakes.
type PolicyStore interface {
	ListPolicies(ctx context.Context) ([]central.PolicySummary, error)
	CreatePolicy(ctx context.Context, policy json.RawMessage) (string, error)
}

// Syncer creates missing policies in a remote store.
type Syncer struct {
	store        PolicyStore
	tracer       trace.Tracer
	skipExisting bool
	dryRun       bool
}

// Option configures a Syncer.
type Option func(*Syncer)

// WithSkipExisting controls whether policies whose name already exists
// remotely are skipped (default true).
func WithSkipExisting(skip bool) Option {
	return func(s *Syncer) { s.skipExisting = skip }
}

// WithDryRun plans creations without calling the store.
func WithDryRun(dry bool) Option {
	return func(s *Syncer) { s.dryRun = dry }
}

// WithTracer records a span per run and per create attempt. A nil tracer
// keeps the noop default.
func WithTracer(t trace.Tracer) Option {
	return func(s *Syncer) {
		if t != nil {
			s.tracer = t
		}
	}
}

// New creates a Syncer against the given store.
func New(store PolicyStore, opts ...Option) *Syncer {
	s := &Syncer{
		store:        store,
		skipExisting: true,
		tracer:       noop.NewTracerProvider().Tracer("cissync"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run synchronizes the given policies, in order, into the store.
//
// Existing policy names are fetched once up front; a listing failure is
// downgraded to "assume nothing exists yet" rather than aborting. Each
// create is independent and at-most-once: failures are logged, counted,
// and never abort the batch.
func (s *Syncer) Run(ctx context.Context, policies []bundle.Policy) Result {
	ctx, span := s.tracer.Start(ctx, "sync.run",
		trace.WithAttributes(
			attribute.Int("policies.count", len(policies)),
			attribute.Bool("dry_run", s.dryRun),
		))
	defer span.End()

	start := time.Now()
	existing := s.existingNames(ctx)

	res := Result{
		StartedAt: start,
		DryRun:    s.dryRun,
		Outcomes:  make([]Outcome, 0, len(policies)),
	}

	for i := range policies {
		p := &policies[i]
		res.Processed++

		if s.skipExisting && existing[p.Name] {
			slog.Info("policy already exists, skipping", "policy", p.Name)
			res.Skipped++
			res.Outcomes = append(res.Outcomes, Outcome{
				Name:     p.Name,
				Category: p.Category,
				Action:   ActionSkipped,
			})
			continue
		}

		if s.dryRun {
			slog.Info("would create policy", "policy", p.Name, "category", p.Category)
			res.Created++
			res.Outcomes = append(res.Outcomes, Outcome{
				Name:     p.Name,
				Category: p.Category,
				Action:   ActionCreated,
			})
			continue
		}

		id, err := s.createOne(ctx, p)
		if err != nil {
			slog.Error("failed to create policy", "policy", p.Name, "err", err)
			res.Failed++
			res.Outcomes = append(res.Outcomes, Outcome{
				Name:     p.Name,
				Category: p.Category,
				Action:   ActionFailed,
				Error:    err.Error(),
			})
			continue
		}

		slog.Info("created policy", "policy", p.Name, "id", id)
		res.Created++
		res.Outcomes = append(res.Outcomes, Outcome{
			Name:     p.Name,
			Category: p.Category,
			Action:   ActionCreated,
			PolicyID: id,
		})
	}

	res.Duration = time.Since(start)
	span.SetAttributes(
		attribute.Int("policies.created", res.Created),
		attribute.Int("policies.skipped", res.Skipped),
		attribute.Int("policies.failed", res.Failed),
	)
	if res.Failed > 0 {
		span.SetStatus(codes.Error, "some policies failed to create")
	}
	return res
}

// existingNames fetches the remote policy names once. Failure yields an
// empty set: with skip-existing on, every policy is then attempted, and
// genuine duplicates surface as per-item create errors.
func (s *Syncer) existingNames(ctx context.Context) map[string]bool {
	summaries, err := s.store.ListPolicies(ctx)
	if err != nil {
		slog.Warn("fetching existing policies failed, assuming none exist", "err", err)
		return map[string]bool{}
	}
	names := make(map[string]bool, len(summaries))
	for i := range summaries {
		names[summaries[i].Name] = true
	}
	return names
}

func (s *Syncer) createOne(ctx context.Context, p *bundle.Policy) (string, error) {
	ctx, span := s.tracer.Start(ctx, "sync.create",
		trace.WithAttributes(
			attribute.String("policy.name", p.Name),
			attribute.String("policy.category", string(p.Category)),
		))
	defer span.End()

	id, err := s.store.CreatePolicy(ctx, p.Raw)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "create failed")
		return "", err
	}
	return id, nil
}
