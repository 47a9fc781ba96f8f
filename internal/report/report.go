package report

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/owtf/exporter/internal/model"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/owtf/exporter/internal/report"

type Outputs interface {
	// PluginOutputs returns outputs of a target matching the filter, in a
	// stable order. withOutput controls whether raw plugin output is loaded.
	PluginOutputs(ctx context.Context, targetID int64, filter model.Filter, withOutput bool) ([]model.PluginOutput, error)
}

type Mappings interface {
	Mapping(ctx context.Context, name string) (model.Mapping, error)
}

type TestGroups interface {
	TestGroups(ctx context.Context) ([]model.TestGroup, error)
}

type Targets interface {
	TargetConfig(ctx context.Context, targetID int64) (model.TargetConfig, error)
}

// Sources are the collaborators an Aggregator reads from.
type Sources struct {
	Outputs    Outputs
	Mappings   Mappings
	TestGroups TestGroups
	Targets    Targets
}

type Aggregator struct {
	src    Sources
	ranks  model.Ranks
	now    func() time.Time
	tracer trace.Tracer
}

type Option func(*Aggregator)

// WithClock replaces time.Now as a source of the report time.
func WithClock(now func() time.Time) Option {
	return func(a *Aggregator) {
		a.now = now
	}
}

func WithTracer(tracer trace.Tracer) Option {
	return func(a *Aggregator) {
		a.tracer = tracer
	}
}

func New(src Sources, ranks model.Ranks, opts ...Option) *Aggregator {
	a := &Aggregator{
		src:    src,
		ranks:  ranks,
		now:    time.Now,
		tracer: otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Build returns the report of target identified by targetID. Empty
// mappingName means no relabeling.
func (a *Aggregator) Build(ctx context.Context, targetID int64, filter model.Filter, mappingName string) (model.Report, error) {
	if targetID <= 0 {
		return model.Report{}, model.ErrMissingTarget
	}

	ctx, span := a.tracer.Start(ctx, "report.Build", trace.WithAttributes(
		attribute.Int64("target.id", targetID),
		attribute.String("mapping", mappingName),
	))
	defer span.End()

	rep, err := a.build(ctx, targetID, filter, mappingName)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return model.Report{}, err
	}
	span.SetAttributes(attribute.Int("vulnerabilities", len(rep.Vulnerabilities)))
	return rep, nil
}

func (a *Aggregator) build(ctx context.Context, targetID int64, filter model.Filter, mappingName string) (model.Report, error) {
	outputs, err := traced(ctx, a.tracer, "report.PluginOutputs", func(ctx context.Context) ([]model.PluginOutput, error) {
		return a.src.Outputs.PluginOutputs(ctx, targetID, filter, true)
	})
	if err != nil {
		return model.Report{}, fmt.Errorf("fetching plugin outputs: %w", err)
	}

	grouped, err := groupByCode(outputs, a.ranks)
	if err != nil {
		return model.Report{}, err
	}

	var mapping model.Mapping
	if mappingName != "" {
		mapping, err = traced(ctx, a.tracer, "report.Mapping", func(ctx context.Context) (model.Mapping, error) {
			return a.src.Mappings.Mapping(ctx, mappingName)
		})
		if err != nil {
			return model.Report{}, fmt.Errorf("resolving mapping %q: %w", mappingName, err)
		}
	}

	testGroups, err := traced(ctx, a.tracer, "report.TestGroups", a.src.TestGroups.TestGroups)
	if err != nil {
		return model.Report{}, fmt.Errorf("listing test groups: %w", err)
	}

	vulns, err := vulnerabilities(grouped, testGroups, mapping)
	if err != nil {
		return model.Report{}, err
	}

	target, err := traced(ctx, a.tracer, "report.TargetConfig", func(ctx context.Context) (model.TargetConfig, error) {
		return a.src.Targets.TargetConfig(ctx, targetID)
	})
	if err != nil {
		return model.Report{}, fmt.Errorf("fetching target %d: %w", targetID, err)
	}
	if target.ID == 0 {
		return model.Report{}, fmt.Errorf("fetching target %d: %w", targetID, model.ErrTargetNotFound)
	}

	return model.Report{
		TargetConfig:    target,
		Vulnerabilities: vulns,
		Time:            a.now().UTC().Format(model.TimeLayout),
	}, nil
}

// group is a plugin code with its ranked outputs in fetch order.
type group struct {
	code    string
	outputs []model.PluginOutput
}

// groupByCode ranks outputs and groups them by plugin code. Groups are
// sorted by code.
func groupByCode(outputs []model.PluginOutput, ranks model.Ranks) ([]group, error) {
	byCode := make(map[string][]model.PluginOutput)
	for _, output := range outputs {
		rank, err := ranks.Name(output.EffectiveRank())
		if err != nil {
			return nil, fmt.Errorf("plugin output %d: %w", output.ID, err)
		}
		output.Rank = rank
		byCode[output.PluginCode] = append(byCode[output.PluginCode], output)
	}

	ret := make([]group, 0, len(byCode))
	for code, outs := range byCode {
		ret = append(ret, group{code: code, outputs: outs})
	}
	slices.SortFunc(ret, func(a, b group) int {
		return strings.Compare(a.code, b.code)
	})
	return ret, nil
}

func vulnerabilities(grouped []group, testGroups []model.TestGroup, mapping model.Mapping) ([]model.TestGroup, error) {
	index := make(map[string]model.TestGroup, len(testGroups))
	for _, tg := range testGroups {
		index[tg.Code] = tg
	}

	ret := make([]model.TestGroup, 0, len(grouped))
	for _, g := range grouped {
		tg, ok := index[g.code]
		if !ok {
			return nil, fmt.Errorf("%w: %q", model.ErrUnknownTestGroup, g.code)
		}
		tg = mapping.Apply(tg)
		tg.Data = g.outputs
		ret = append(ret, tg)
	}
	return ret, nil
}

func traced[T any](ctx context.Context, tracer trace.Tracer, name string, f func(context.Context) (T, error)) (T, error) {
	ctx, span := tracer.Start(ctx, name)
	defer span.End()
	v, err := f(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return v, err
}
