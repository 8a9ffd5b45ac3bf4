package toolkit

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/santhosh-tekuri/jsonschema/v6"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/semaphore"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/adliye/lexgate/legal"
	"github.com/adliye/lexgate/runtime/telemetry"
)

type (
	// DispatcherConfig sizes the worker pool. Tool calls execute
	// concurrently; the pool is independent of any backend pool.
	DispatcherConfig struct {
		// MaxWorkers caps concurrently executing tool calls. Zero means
		// DefaultMaxWorkers.
		MaxWorkers int64
		// MaxQueue bounds callers waiting for a worker slot.
		MaxQueue int64
	}

	// Dispatcher resolves tool names against the registry, validates
	// arguments before any network work and wraps results in envelopes.
	// It is reentrant.
	Dispatcher struct {
		reg     *Registry
		cfg     DispatcherConfig
		logger  telemetry.Logger
		metrics telemetry.Metrics
		tracer  telemetry.Tracer

		workers *semaphore.Weighted
		waiters atomic.Int64
	}
)

const (
	DefaultMaxWorkers = 16
	DefaultQueueDepth = 64
)

// NewDispatcher wires a dispatcher over reg. Nil telemetry arguments fall
// back to noops.
func NewDispatcher(reg *Registry, cfg DispatcherConfig, logger telemetry.Logger, metrics telemetry.Metrics, tracer telemetry.Tracer) *Dispatcher {
	if cfg.MaxWorkers <= 0 {
		cfg.MaxWorkers = DefaultMaxWorkers
	}
	if cfg.MaxQueue <= 0 {
		cfg.MaxQueue = DefaultQueueDepth
	}
	if logger == nil {
		logger = telemetry.NewNoopLogger()
	}
	if metrics == nil {
		metrics = telemetry.NewNoopMetrics()
	}
	if tracer == nil {
		tracer = telemetry.NewNoopTracer()
	}
	return &Dispatcher{
		reg:     reg,
		cfg:     cfg,
		logger:  logger,
		metrics: metrics,
		tracer:  tracer,
		workers: semaphore.NewWeighted(cfg.MaxWorkers),
	}
}

// Registry exposes the underlying tool table for server export.
func (d *Dispatcher) Registry() *Registry { return d.reg }

// Call executes one tool invocation end to end and always returns an
// envelope; transport-level callers never see a bare error.
func (d *Dispatcher) Call(ctx context.Context, name string, args json.RawMessage) Envelope {
	start := time.Now()
	diag := Diagnostics{
		CorrelationID: uuid.NewString(),
		Tool:          name,
		InputTokens:   telemetry.EstimateTokens(args),
	}

	env := d.call(ctx, name, args, &diag)
	diag.DurationMS = time.Since(start).Milliseconds()
	env.Diagnostics = diag

	status := "ok"
	if !env.OK {
		status = string(env.Error.Kind)
	}
	d.metrics.IncCounter("lexgate.tool.calls", 1, "tool", name, "status", status)
	d.metrics.RecordTimer("lexgate.tool.duration", time.Since(start), "tool", name)
	d.logger.Info(ctx, "tool call",
		"tool", name,
		"correlation_id", diag.CorrelationID,
		"status", status,
		"duration_ms", diag.DurationMS,
		"input_tokens", diag.InputTokens,
		"output_tokens", diag.OutputTokens,
	)
	return env
}

func (d *Dispatcher) call(ctx context.Context, name string, args json.RawMessage, diag *Diagnostics) Envelope {
	e, ok := d.reg.lookup(name)
	if !ok {
		return errEnvelope(legal.NotFoundf("unknown tool %q", name), *diag)
	}

	// Schema closure: invalid arguments are rejected before any worker
	// slot, session or browser context is touched.
	if err := validateArgs(e.schema, args); err != nil {
		return errEnvelope(err, *diag)
	}

	if d.waiters.Add(1) > d.cfg.MaxQueue {
		d.waiters.Add(-1)
		return errEnvelope(legal.Exhaustedf("tool worker queue is full"), *diag)
	}
	err := d.workers.Acquire(ctx, 1)
	d.waiters.Add(-1)
	if err != nil {
		return errEnvelope(legal.Timeoutf("waiting for a tool worker: %v", err), *diag)
	}
	defer d.workers.Release(1)

	callCtx, cancel := context.WithTimeout(ctx, e.desc.Timeout)
	defer cancel()

	callCtx, span := d.tracer.Start(callCtx, "tool."+name)
	defer span.End()

	payload, err := e.desc.Handler(callCtx, args)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, legal.AsFault(err).Message)
		return errEnvelope(err, *diag)
	}
	span.SetStatus(codes.Ok, "")

	if out, merr := json.Marshal(payload); merr == nil {
		diag.OutputTokens = telemetry.EstimateTokens(out)
	}
	return okEnvelope(payload, *diag)
}

// validateArgs runs the compiled schema over args and converts the deepest
// validation cause into an InvalidArgument fault with a field path.
func validateArgs(schema *jsonschema.Schema, args json.RawMessage) error {
	if len(args) == 0 {
		args = json.RawMessage(`{}`)
	}
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(args))
	if err != nil {
		return legal.Invalidf("", "arguments are not valid JSON: %v", err)
	}
	if err := schema.Validate(doc); err != nil {
		var ve *jsonschema.ValidationError
		if errors.As(err, &ve) {
			leaf := deepestCause(ve)
			return legal.Invalidf(strings.Join(leaf.InstanceLocation, "."),
				"%s", leaf.ErrorKind.LocalizedString(schemaMessages))
		}
		return legal.Invalidf("", "%v", err)
	}
	return nil
}

var schemaMessages = message.NewPrinter(language.English)

func deepestCause(ve *jsonschema.ValidationError) *jsonschema.ValidationError {
	for len(ve.Causes) > 0 {
		ve = ve.Causes[0]
	}
	return ve
}
