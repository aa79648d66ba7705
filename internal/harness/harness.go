package harness

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/roach88/contactstore/internal/backend"
	"github.com/roach88/contactstore/internal/contact"
	"github.com/roach88/contactstore/internal/contacts"
	"github.com/roach88/contactstore/internal/request"
	"github.com/roach88/contactstore/internal/testutil"
)

// stepTimeout bounds how long a single step may take to complete.
const stepTimeout = 5 * time.Second

// Harness is the scenario execution engine.
// It drives one store over a fault-injecting in-memory backend.
type Harness struct {
	mem    *backend.Memory
	faulty *testutil.FaultyBackend
	store  *contacts.Store
	logger *slog.Logger
}

// Run executes a scenario and returns the result.
//
// Each scenario runs against a fresh in-memory backend for isolation.
// Sequential op ids keep store logs reproducible.
//
// Execution flow:
// 1. Create a fresh backend and start the store
// 2. Execute flow steps with expect validation
// 3. Capture the call log, dirty flag and both indexes
// 4. Return result with pass/fail, trace, and errors
func Run(scenario *Scenario) (*Result, error) {
	mem := backend.NewMemory()
	faulty := testutil.NewFaultyBackend(mem)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil)) // Suppress logs in tests

	h := &Harness{
		mem:    mem,
		faulty: faulty,
		logger: logger,
		store: contacts.New(faulty,
			contacts.WithLogger(logger),
			contacts.WithIDGenerator(testutil.NewSequentialIDs()),
		),
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- h.store.Run(ctx)
	}()
	defer func() {
		h.store.Stop()
		<-done
	}()

	result := NewResult()
	if err := h.executeFlow(scenario.Flow, result); err != nil {
		return nil, fmt.Errorf("failed to execute flow: %w", err)
	}

	if err := h.captureState(result); err != nil {
		return nil, fmt.Errorf("failed to capture final state: %w", err)
	}

	for _, errMsg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(errMsg)
	}

	return result, nil
}

// executeFlow runs each step to completion before submitting the next.
func (h *Harness) executeFlow(flow []Step, result *Result) error {
	for i, step := range flow {
		if step.Heal {
			h.faulty.Heal()
		}
		if step.Fail != nil {
			h.faulty.Fail(testutil.Fault{
				Op:    backend.Op(step.Fail.Op),
				Key:   backend.Key(step.Fail.Key),
				Err:   errors.New(step.Fail.Error),
				Times: step.Fail.Times,
			})
		}

		before := len(h.faulty.Calls())
		value, err := h.invoke(step)
		if errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("flow[%d]: %s did not complete within %s", i, step.Op, stepTimeout)
		}

		event := TraceEvent{
			Seq:     int64(i + 1),
			Op:      step.Op,
			Target:  stepTarget(step),
			Outcome: OutcomeOK,
			Calls:   callStrings(h.faulty.Calls()[before:]),
		}
		if err != nil {
			event.Outcome = OutcomeError
			event.Code = errorCode(err)
		} else {
			event.Value = value
		}

		h.logger.Debug("step executed", "seq", event.Seq, "op", event.Op, "outcome", event.Outcome)
		result.AddTrace(event)

		if step.Expect != nil {
			checkExpect(i, step.Expect, event, result)
		}
	}
	return nil
}

// invoke submits step to the store and waits for its result. Values are
// normalised to what YAML expect clauses decode to: keys and counts as
// int64, records as their uid.
func (h *Harness) invoke(step Step) (any, error) {
	ctx, cancel := context.WithTimeout(context.Background(), stepTimeout)
	defer cancel()

	switch step.Op {
	case OpInitialize:
		return wait(ctx, h.store.Initialize(), none)
	case OpSave:
		return wait(ctx, h.store.Save(*step.Record), func(k backend.Key) any { return int64(k) })
	case OpUpdate:
		return wait(ctx, h.store.Update(*step.Record), none)
	case OpRemove:
		return wait(ctx, h.store.Remove(step.UID, step.Flush), func(ok bool) any { return ok })
	case OpClear:
		return wait(ctx, h.store.Clear(), none)
	case OpFlush:
		return wait(ctx, h.store.Flush(), none)
	case OpGet:
		return wait(ctx, h.store.Get(step.UID), recordUID)
	case OpFind:
		return wait(ctx, h.store.GetByPhone(step.Number), recordUID)
	case OpCount:
		return wait(ctx, h.store.Length(), func(n int) any { return int64(n) })
	case OpRefresh:
		return wait(ctx, h.store.Refresh(), none)
	default:
		return nil, fmt.Errorf("unknown op %q", step.Op)
	}
}

func wait[T any](ctx context.Context, req *request.Request[T], convert func(T) any) (any, error) {
	v, err := req.Wait(ctx)
	if err != nil {
		return nil, err
	}
	return convert(v), nil
}

func none(struct{}) any { return nil }

func recordUID(r contact.Record) any { return r.UID }

// captureState records the flow's calls, then reads back the store's state.
// The reads that follow are not part of the call log.
func (h *Harness) captureState(result *Result) error {
	result.Calls = callStrings(h.faulty.Calls())

	ctx, cancel := context.WithTimeout(context.Background(), stepTimeout)
	defer cancel()

	dirty, err := h.store.Dirty().Wait(ctx)
	if err != nil {
		return fmt.Errorf("read dirty flag: %w", err)
	}
	result.Dirty = dirty

	// Read the stored index straight from memory so installed faults do not apply.
	data, err := h.mem.Get(ctx, backend.IndexKey)
	switch {
	case errors.Is(err, backend.ErrNotFound):
	case err != nil:
		return fmt.Errorf("read persisted index: %w", err)
	default:
		persisted := contacts.NewIndex()
		if err := json.Unmarshal(data, persisted); err != nil {
			return fmt.Errorf("decode persisted index: %w", err)
		}
		result.Persisted = persisted
	}

	// Snapshot goes through the gate; a store that cannot load its index
	// leaves Index nil.
	if snap, err := h.store.Snapshot().Wait(ctx); err == nil {
		result.Index = &snap
	}
	return nil
}

func stepTarget(step Step) string {
	switch step.Op {
	case OpSave, OpUpdate:
		return step.Record.UID
	case OpRemove, OpGet:
		return step.UID
	case OpFind:
		return step.Number
	default:
		return ""
	}
}

func errorCode(err error) string {
	var se *contacts.Error
	if errors.As(err, &se) {
		return string(se.Code)
	}
	return CodeBackend
}

func callStrings(calls []backend.Call) []string {
	out := make([]string, len(calls))
	for i, c := range calls {
		out[i] = c.String()
	}
	return out
}

// checkExpect compares a step's outcome against its expect clause.
func checkExpect(index int, expect *ExpectClause, event TraceEvent, result *Result) {
	if event.Outcome != expect.Outcome {
		result.AddError(fmt.Sprintf("flow[%d] %s: expected outcome %s, got %s (code %q)",
			index, event.Op, expect.Outcome, event.Outcome, event.Code))
		return
	}
	if expect.Code != "" && event.Code != expect.Code {
		result.AddError(fmt.Sprintf("flow[%d] %s: expected code %s, got %s",
			index, event.Op, expect.Code, event.Code))
	}
	if expect.Value != nil && !valuesEqual(expect.Value, event.Value) {
		result.AddError(fmt.Sprintf("flow[%d] %s: expected value %v, got %v",
			index, event.Op, expect.Value, event.Value))
	}
}

// valuesEqual compares a YAML-decoded expected value with a step value.
// yaml.v3 decodes integers as int, step values carry int64.
func valuesEqual(expected, actual any) bool {
	if n, ok := expected.(int); ok {
		expected = int64(n)
	}
	return expected == actual
}
