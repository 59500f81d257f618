package harness

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/roach88/cadbridge/internal/actions"
	"github.com/roach88/cadbridge/internal/bridge"
	"github.com/roach88/cadbridge/internal/docmodel"
	"github.com/roach88/cadbridge/internal/docstore"
	"github.com/roach88/cadbridge/internal/seed"
	"github.com/roach88/cadbridge/internal/wire"
)

// StepTimeout bounds how long one step waits for its job.
const StepTimeout = 10 * time.Second

// Harness holds the per-run state of one scenario.
type Harness struct {
	doc    *docstore.Store
	bridge *bridge.Bridge
	keys   map[string]docmodel.ElementID
	logger *slog.Logger
}

// jobIDs names jobs job-1, job-2, ... so traces are reproducible.
type jobIDs struct {
	clock *bridge.Clock
}

func (g jobIDs) Generate() string {
	return fmt.Sprintf("job-%d", g.clock.Next())
}

// Run executes a scenario and returns its result.
//
// Each run gets a fresh in-memory document and its own serializer, so
// scenarios never share state. A non-nil error means the scenario could
// not be set up; failed expectations and assertions are reported in the
// result instead.
func Run(ctx context.Context, scenario *Scenario) (*Result, error) {
	doc, err := docstore.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory document: %w", err)
	}
	defer doc.Close()

	keys, err := applyFixture(ctx, doc, scenario)
	if err != nil {
		return nil, err
	}

	reg, err := actions.NewRegistry()
	if err != nil {
		return nil, fmt.Errorf("failed to build registry: %w", err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ser := bridge.NewSerializer(doc,
		bridge.WithLogger(logger),
		bridge.WithIDGenerator(jobIDs{clock: bridge.NewClock()}),
	)

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		ser.Run(runCtx)
	}()
	defer func() {
		cancel()
		<-done
	}()

	h := &Harness{
		doc:    doc,
		bridge: bridge.New(reg, ser, logger),
		keys:   keys,
		logger: logger,
	}

	result := NewResult()
	for i, step := range scenario.Steps {
		if err := h.executeStep(ctx, i, step, result); err != nil {
			return nil, fmt.Errorf("steps[%d] %s: %w", i, step.Action, err)
		}
	}

	actx := &AssertionContext{Ctx: ctx, Doc: doc, Keys: keys}
	for _, msg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(msg)
	}
	return result, nil
}

func applyFixture(ctx context.Context, doc docmodel.Document, scenario *Scenario) (map[string]docmodel.ElementID, error) {
	var fixture *seed.Seed
	switch {
	case scenario.Demo:
		fixture = seed.Demo()
	case scenario.Seed != "":
		s, err := seed.Load(scenario.Seed)
		if err != nil {
			return nil, fmt.Errorf("failed to load seed: %w", err)
		}
		fixture = s
	default:
		return map[string]docmodel.ElementID{}, nil
	}

	keys, err := seed.Apply(ctx, doc, fixture)
	if err != nil {
		return nil, fmt.Errorf("failed to apply seed: %w", err)
	}
	return keys, nil
}

// executeStep sends one envelope, records it in the trace and checks the
// step's expectation.
func (h *Harness) executeStep(ctx context.Context, i int, step Step, result *Result) error {
	env := wire.Envelope{Action: step.Action}
	if step.Args != nil {
		raw, err := json.Marshal(step.Args)
		if err != nil {
			return fmt.Errorf("encode args: %w", err)
		}
		env.Args = raw
	}

	stepCtx, cancel := context.WithTimeout(ctx, StepTimeout)
	out := h.bridge.Do(stepCtx, env)
	cancel()

	data, err := normalize(out.Response.Data)
	if err != nil {
		return fmt.Errorf("encode response data: %w", err)
	}

	ev := TraceEvent{
		Seq:     out.Seq,
		JobID:   out.JobID,
		Action:  step.Action,
		OK:      out.Response.OK,
		Message: out.Response.Message,
		Data:    data,
	}
	result.AddTrace(ev)
	h.logger.Debug("step executed", "index", i, "action", step.Action, "ok", ev.OK, "seq", ev.Seq)

	for _, msg := range checkExpect(step.Expect, ev) {
		result.AddError(fmt.Sprintf("steps[%d] %s: %s", i, step.Action, msg))
	}
	return nil
}

// checkExpect compares a trace event against an expectation.
func checkExpect(exp *Expect, ev TraceEvent) []string {
	if exp == nil {
		return nil
	}

	var errs []string
	if exp.OK != nil && *exp.OK != ev.OK {
		errs = append(errs, fmt.Sprintf("expected ok=%t, got ok=%t (%s)", *exp.OK, ev.OK, ev.Message))
	}
	if exp.Message != "" && exp.Message != ev.Message {
		errs = append(errs, fmt.Sprintf("expected message %q, got %q", exp.Message, ev.Message))
	}
	if exp.MessageContains != "" && !containsFold(ev.Message, exp.MessageContains) {
		errs = append(errs, fmt.Sprintf("expected message containing %q, got %q", exp.MessageContains, ev.Message))
	}
	if len(exp.Data) > 0 {
		want, err := normalize(exp.Data)
		if err != nil {
			return append(errs, fmt.Sprintf("expected data: %v", err))
		}
		if !matchSubset(ev.Data, want) {
			errs = append(errs, fmt.Sprintf("data mismatch: expected subset %s, got %s", compact(want), compact(ev.Data)))
		}
	}
	return errs
}

// normalize round-trips v through JSON so Go values and YAML values
// compare the same way a client would see them.
func normalize(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func compact(v any) string {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(raw)
}
