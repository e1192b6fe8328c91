package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/getmockd/mockharness/pkg/harness"
	"github.com/getmockd/mockharness/pkg/logging"
	"github.com/getmockd/mockharness/pkg/requestlog"
)

// BuildOptions adjusts a scenario when it is built.
type BuildOptions struct {
	// Address overrides the scenario address when set.
	Address string

	// Logger receives adapter and expression logs.
	Logger *slog.Logger
}

// Runner runs a built scenario.
type Runner interface {
	// Protocol names the adapter.
	Protocol() string

	// Slots is the number of requests the run waits for.
	Slots() int

	// Run serves the scenario until every slot is consumed and returns the
	// request journal. Options are applied after the scenario's own, so a
	// WithMaxRunTime passed here overrides maxRunTime.
	Run(ctx context.Context, opts ...harness.Option) (*requestlog.Journal, error)
}

type loggableContext[K comparable] interface {
	harness.RequestContext[K]
	requestlog.Loggable
}

type runner[K comparable, C loggableContext[K], R any] struct {
	adapter harness.Adapter[K, C, R]
	routes  []harness.Route[K, C, R]
	opts    []harness.Option
}

func (r *runner[K, C, R]) Protocol() string {
	return r.adapter.Protocol()
}

func (r *runner[K, C, R]) Slots() int {
	n := 0
	for _, route := range r.routes {
		n += route.Slots()
	}
	return n
}

func (r *runner[K, C, R]) Run(ctx context.Context, opts ...harness.Option) (*requestlog.Journal, error) {
	all := append(append([]harness.Option{}, r.opts...), opts...)
	return harness.Run[K, C, R, *requestlog.Journal](ctx, r.adapter, r.routes, requestlog.NewCollector[C](), all...)
}

func newRunner[K comparable, C loggableContext[K], R any](adapter harness.Adapter[K, C, R], routes []harness.Route[K, C, R], maxRunTime time.Duration, log *slog.Logger) *runner[K, C, R] {
	opts := []harness.Option{harness.WithLogger(log)}
	if maxRunTime > 0 {
		opts = append(opts, harness.WithMaxRunTime(maxRunTime))
	}
	return &runner[K, C, R]{adapter: adapter, routes: routes, opts: opts}
}

// Build creates the adapter and routes described by the scenario. File
// references (schemas, proto files, WSDL) are read here.
func (s *Scenario) Build(opts BuildOptions) (Runner, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	log := opts.Logger
	if log == nil {
		log = logging.Nop()
	}
	b := &builder{
		scenario: s,
		address:  s.Address,
		log:      log,
		programs: newProgramCache(),
	}
	if opts.Address != "" {
		b.address = opts.Address
	}
	b.shutdownTimeout, _ = parseDuration(s.ShutdownTimeout)
	b.maxRunTime, _ = parseDuration(s.MaxRunTime)

	switch s.Protocol {
	case ProtocolHTTP:
		return b.http()
	case ProtocolGraphQL:
		return b.graphql()
	case ProtocolGRPC:
		return b.grpc()
	case ProtocolSOAP:
		return b.soap()
	default:
		return nil, fmt.Errorf("%w: unsupported protocol %q", ErrInvalidScenario, s.Protocol)
	}
}

type builder struct {
	scenario        *Scenario
	address         string
	shutdownTimeout time.Duration
	maxRunTime      time.Duration
	log             *slog.Logger
	programs        *programCache
}

// resolve makes path relative to the scenario file.
func (b *builder) resolve(path string) string {
	if path == "" || filepath.IsAbs(path) || b.scenario.baseDir == "" {
		return path
	}
	return filepath.Join(b.scenario.baseDir, path)
}

func (b *builder) readFile(path string) (string, error) {
	data, err := os.ReadFile(b.resolve(path))
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	return string(data), nil
}

// dynamic evaluates an expression response and checks the result like a
// static response.
func (b *builder) dynamic(field string, expression string) (func(map[string]any) (ResponseSpec, error), error) {
	program, err := b.programs.compile(expression)
	if err != nil {
		return nil, fmt.Errorf("%s.expr: %w", field, err)
	}
	return func(request map[string]any) (ResponseSpec, error) {
		spec, err := evaluate(program, request)
		if err != nil {
			return ResponseSpec{}, err
		}
		var p problems
		b.scenario.checkResponse("result", spec, &p)
		if err := p.err(); err != nil {
			return ResponseSpec{}, err
		}
		return spec, nil
	}, nil
}

func (b *builder) exprFailed(route string, err error) {
	b.log.Warn("response expression failed", "route", route, "error", err)
}
