// Real-time tool execution for streaming turns. Tool-call fragments arrive
// interleaved and argument JSON is split across deltas, so calls are
// accumulated per turn and executed only once their buffer parses.
package flow

import (
	"context"
	"encoding/json"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Chronis77/aluuna-monorepo-sub002/internal/models"
)

// CallStatus is the lifecycle state of one accumulated tool call.
type CallStatus string

const (
	CallStatusPending   CallStatus = "pending"
	CallStatusExecuting CallStatus = "executing"
	CallStatusCompleted CallStatus = "completed"
	CallStatusFailed    CallStatus = "failed"
)

// minUserIDLength is the shortest argument value accepted as a real user
// id. Anything shorter is treated as a model placeholder.
const minUserIDLength = 8

// PendingToolCall is one tool call being accumulated from stream deltas.
type PendingToolCall struct {
	ID     string
	Name   string
	Index  int64
	Args   strings.Builder
	Status CallStatus
}

// RealtimeToolExecutor accumulates streaming tool-call fragments for a
// single turn and executes complete calls. It implements
// genai.StreamHandler so it can be handed directly to a streaming
// completion. One executor per turn; it is not reused.
type RealtimeToolExecutor struct {
	mu       sync.Mutex
	registry *ToolRegistry
	pending  map[string]*PendingToolCall
	byIndex  map[int64]*PendingToolCall
	content  strings.Builder
	results  []models.ToolExecutionResult
}

// NewRealtimeToolExecutor creates an empty per-turn executor.
func NewRealtimeToolExecutor(registry *ToolRegistry) *RealtimeToolExecutor {
	return &RealtimeToolExecutor{
		registry: registry,
		pending:  make(map[string]*PendingToolCall),
		byIndex:  make(map[int64]*PendingToolCall),
	}
}

// OnContentDelta accumulates assistant text arriving alongside tool calls.
func (e *RealtimeToolExecutor) OnContentDelta(delta string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.content.WriteString(delta)
}

// OnToolCallDelta routes one stream fragment. The first fragment for an
// index carries the id and name; later fragments carry only argument text
// and are matched by index.
func (e *RealtimeToolExecutor) OnToolCallDelta(index int64, id, name, argsFragment string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	call, known := e.byIndex[index]
	if !known {
		call = e.addPendingCallLocked(index, id, name)
	} else {
		// Some providers repeat the id or name on later fragments.
		if call.Name == "" && name != "" {
			call.Name = name
		}
	}
	if argsFragment != "" {
		call.Args.WriteString(argsFragment)
	}
}

// AddPendingCall registers a tool call explicitly (non-delta callers).
func (e *RealtimeToolExecutor) AddPendingCall(index int64, id, name string) string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.addPendingCallLocked(index, id, name).ID
}

func (e *RealtimeToolExecutor) addPendingCallLocked(index int64, id, name string) *PendingToolCall {
	if id == "" {
		// The first delta occasionally arrives without an id.
		id = "call_" + uuid.NewString()
		slog.Debug("RealtimeToolExecutor.addPendingCall: synthesized call id", "id", id, "index", index)
	}
	call := &PendingToolCall{ID: id, Name: name, Index: index, Status: CallStatusPending}
	e.pending[id] = call
	e.byIndex[index] = call
	slog.Debug("RealtimeToolExecutor.addPendingCall: registered", "id", id, "tool", name, "index", index)
	return call
}

// AppendArguments adds an argument fragment to a known call. Fragments are
// accumulated, never parsed, until completeness is checked.
func (e *RealtimeToolExecutor) AppendArguments(id, chunk string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if call, ok := e.pending[id]; ok {
		call.Args.WriteString(chunk)
	} else {
		slog.Warn("RealtimeToolExecutor.AppendArguments: unknown call id", "id", id)
	}
}

// IsComplete reports whether a call's argument buffer is an executable JSON
// object: brace-bounded and valid JSON. A buffer that is valid JSON but not
// an object (a bare string or number) is not complete.
func (e *RealtimeToolExecutor) IsComplete(id string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	call, ok := e.pending[id]
	if !ok {
		return false
	}
	return bufferComplete(call.Args.String())
}

func bufferComplete(buf string) bool {
	trimmed := strings.TrimSpace(buf)
	if !strings.HasPrefix(trimmed, "{") || !strings.HasSuffix(trimmed, "}") {
		return false
	}
	return json.Valid([]byte(trimmed))
}

// Content returns the assistant text accumulated so far.
func (e *RealtimeToolExecutor) Content() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.content.String()
}

// Results returns the terminal records for all executed calls this turn.
func (e *RealtimeToolExecutor) Results() []models.ToolExecutionResult {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]models.ToolExecutionResult, len(e.results))
	copy(out, e.results)
	return out
}

// Calls returns a snapshot of every accumulated call in stream order,
// regardless of status.
func (e *RealtimeToolExecutor) Calls() []models.ToolCall {
	e.mu.Lock()
	defer e.mu.Unlock()
	calls := make([]*PendingToolCall, 0, len(e.pending))
	for _, c := range e.pending {
		calls = append(calls, c)
	}
	sort.Slice(calls, func(i, j int) bool { return calls[i].Index < calls[j].Index })
	out := make([]models.ToolCall, 0, len(calls))
	for _, c := range calls {
		out = append(out, models.ToolCall{
			ID:   c.ID,
			Type: "function",
			Function: models.FunctionCall{
				Name:      c.Name,
				Arguments: json.RawMessage(c.Args.String()),
			},
		})
	}
	return out
}

// ExecuteReady executes every complete pending call sequentially in stream
// order and returns their terminal records. Placeholder userId arguments
// are overwritten with the effective user id before dispatch. Incomplete
// buffers are left pending untouched.
func (e *RealtimeToolExecutor) ExecuteReady(ctx context.Context, effectiveUserID string) []models.ToolExecutionResult {
	e.mu.Lock()
	var ready []*PendingToolCall
	for _, call := range e.pending {
		if call.Status == CallStatusPending && bufferComplete(call.Args.String()) {
			call.Status = CallStatusExecuting
			ready = append(ready, call)
		}
	}
	sort.Slice(ready, func(i, j int) bool { return ready[i].Index < ready[j].Index })
	e.mu.Unlock()

	var executed []models.ToolExecutionResult
	for _, call := range ready {
		args := normalizeUserID(call.ID, call.Name, call.Args.String(), effectiveUserID)

		start := time.Now()
		result, err := e.registry.Dispatch(ctx, call.Name, effectiveUserID, json.RawMessage(args))
		elapsed := time.Since(start).Milliseconds()

		record := models.ToolExecutionResult{
			CallID:          call.ID,
			ToolName:        call.Name,
			ExecutionTimeMs: elapsed,
		}
		e.mu.Lock()
		if err != nil {
			call.Status = CallStatusFailed
			record.Success = false
			record.Error = err.Error()
			slog.Error("RealtimeToolExecutor.ExecuteReady: tool failed", "tool", call.Name, "id", call.ID, "error", err, "elapsed_ms", elapsed)
		} else {
			call.Status = CallStatusCompleted
			record.Success = true
			record.Result = result
			slog.Debug("RealtimeToolExecutor.ExecuteReady: tool completed", "tool", call.Name, "id", call.ID, "elapsed_ms", elapsed)
		}
		e.results = append(e.results, record)
		e.mu.Unlock()
		executed = append(executed, record)
	}
	return executed
}

// normalizeUserID replaces a placeholder or missing userId argument with
// the effective id from the authenticated request. Models routinely emit
// "uuid", "user", truncated ids, or nothing at all here.
func normalizeUserID(callID, toolName, args, effectiveUserID string) string {
	var parsed map[string]interface{}
	if err := json.Unmarshal([]byte(args), &parsed); err != nil {
		// Completeness was checked before execution; leave it to the
		// handler to reject.
		return args
	}

	raw, present := parsed["userId"]
	needsCorrection := false
	if !present {
		needsCorrection = true
	} else if s, ok := raw.(string); !ok {
		needsCorrection = true
	} else {
		switch strings.ToLower(strings.TrimSpace(s)) {
		case "", "uuid", "user":
			needsCorrection = true
		default:
			if len(s) < minUserIDLength {
				needsCorrection = true
			}
		}
	}
	if !needsCorrection {
		return args
	}

	slog.Info("RealtimeToolExecutor: overwrote placeholder userId", "call_id", callID, "tool", toolName, "had_value", present)
	parsed["userId"] = effectiveUserID
	fixed, err := json.Marshal(parsed)
	if err != nil {
		return args
	}
	return string(fixed)
}
