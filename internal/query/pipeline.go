// Package query turns untrusted request parameters into bounded, validated
// reads against a record collection.
//
// A request such as
//
//	GET /api/v1/posts?author=user-1&likeCount[gte]=3&sort=-createdAt,title&fields=title,likeCount&page=2&limit=5
//
// is planned as filter (author = user-1 AND likeCount >= 3), sort (createdAt
// descending, title ascending, id ascending), projection (id, title, likeCount)
// and pagination (skip 5, limit 5). Every field is checked against the
// collection's Schema before anything reaches the store.
package query

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	domainerrors "github.com/murmurapp/murmur-server/internal/errors"
)

// Page size defaults.
const (
	DefaultLimit = 10
	MaxLimit     = 100
)

const tracerName = "github.com/murmurapp/murmur-server/internal/query"

// Source is a collection that can execute plans.
type Source interface {
	// Find returns the projected page of records selected by plan.
	Find(ctx context.Context, plan *Plan) ([]Document, error)
	// Count returns how many records satisfy filter, ignoring pagination.
	Count(ctx context.Context, filter Predicate) (int, error)
	// FindWithCount returns the page and the unpaginated count of plan.Filter,
	// both read from the same snapshot.
	FindWithCount(ctx context.Context, plan *Plan) ([]Document, int, error)
}

// Result is one page of a list read.
type Result struct {
	Items []Document
	// Total is the unpaginated filtered count. Only set when Counted is true.
	Total   int
	Counted bool
	Page    int
	Limit   int
	Skip    int
	HasMore bool
}

// Pipeline plans and runs reads for one collection. It holds no mutable
// state and is safe for concurrent use.
type Pipeline struct {
	planner planner
	tracer  trace.Tracer
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLimits sets the default and maximum page size. Non-positive values keep
// the package defaults.
func WithLimits(defaultLimit, maxLimit int) Option {
	return func(p *Pipeline) {
		if defaultLimit > 0 {
			p.planner.defaultLimit = defaultLimit
		}
		if maxLimit > 0 {
			p.planner.maxLimit = maxLimit
		}
	}
}

// WithTracer overrides the tracer used for pipeline spans.
func WithTracer(t trace.Tracer) Option {
	return func(p *Pipeline) { p.tracer = t }
}

// New creates a pipeline for schema.
func New(schema *Schema, opts ...Option) *Pipeline {
	p := &Pipeline{
		planner: planner{schema: schema, defaultLimit: DefaultLimit, maxLimit: MaxLimit},
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.planner.maxLimit < p.planner.defaultLimit {
		p.planner.maxLimit = p.planner.defaultLimit
	}
	if p.tracer == nil {
		p.tracer = otel.Tracer(tracerName)
	}
	return p
}

// Schema returns the collection schema.
func (p *Pipeline) Schema() *Schema { return p.planner.schema }

// Plan validates params against the schema and combines them with base.
func (p *Pipeline) Plan(base Predicate, params Params) (*Plan, error) {
	return p.planner.plan(base, params)
}

// Run plans the read and executes it against src. When withCount is set the
// unpaginated count is taken with the same filter and snapshot as the page.
func (p *Pipeline) Run(ctx context.Context, src Source, base Predicate, params Params, withCount bool) (*Result, error) {
	ctx, span := p.tracer.Start(ctx, "query.Run", trace.WithAttributes(
		attribute.String("query.collection", p.planner.schema.Name()),
	))
	defer span.End()

	plan, err := p.Plan(base, params)
	if err != nil {
		return nil, fail(span, err)
	}
	span.SetAttributes(
		attribute.Int("query.page", plan.Page),
		attribute.Int("query.limit", plan.Limit),
		attribute.Int("query.conditions", len(plan.Filter)),
	)

	if !withCount {
		items, err := src.Find(ctx, plan)
		if err != nil {
			return nil, fail(span, sourceError(err))
		}
		return &Result{Items: orEmpty(items), Page: plan.Page, Limit: plan.Limit, Skip: plan.Skip}, nil
	}

	items, total, err := src.FindWithCount(ctx, plan)
	if err != nil {
		return nil, fail(span, sourceError(err))
	}
	items = orEmpty(items)
	span.SetAttributes(attribute.Int("query.total", total))

	return &Result{
		Items:   items,
		Total:   total,
		Counted: true,
		Page:    plan.Page,
		Limit:   plan.Limit,
		Skip:    plan.Skip,
		HasMore: plan.Skip+len(items) < total,
	}, nil
}

func orEmpty(items []Document) []Document {
	if items == nil {
		return []Document{}
	}
	return items
}

// sourceError passes context and domain errors through and reports anything
// else from the store as a query failure.
func sourceError(err error) error {
	if domainerrors.IsContextError(err) || domainerrors.CodeOf(err) != "" {
		return err
	}
	return domainerrors.Wrap(err, domainerrors.CodeQuery, "query failed")
}

func fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
