package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"sysnerd/internal/executor"
	"sysnerd/internal/gateway"
	"sysnerd/internal/safety"
)

// =============================================================================
// FAKES
// =============================================================================

type genCall struct {
	messages []gateway.Message
	tools    []gateway.ToolDefinition
}

// scriptedGen replays a queue of canned gateway behaviors and records every
// call. When the queue is drained, fallback (if set) handles the rest.
type scriptedGen struct {
	script   []func() (*gateway.Response, error)
	fallback func() (*gateway.Response, error)
	calls    []genCall
}

func (g *scriptedGen) Generate(_ context.Context, messages []gateway.Message, tools []gateway.ToolDefinition) (*gateway.Response, error) {
	g.calls = append(g.calls, genCall{messages: messages, tools: tools})
	if len(g.script) > 0 {
		fn := g.script[0]
		g.script = g.script[1:]
		return fn()
	}
	if g.fallback != nil {
		return g.fallback()
	}
	return nil, fmt.Errorf("unexpected gateway call %d", len(g.calls))
}

func toolCallResp(commands ...string) func() (*gateway.Response, error) {
	return func() (*gateway.Response, error) {
		resp := &gateway.Response{}
		for i, cmd := range commands {
			resp.ToolCalls = append(resp.ToolCalls, gateway.ToolCall{
				ID: fmt.Sprintf("call_%d", i),
				Function: gateway.FunctionCall{
					Name:      "run_shell_command",
					Arguments: map[string]any{"command": cmd},
				},
			})
		}
		return resp, nil
	}
}

func textResp(text string) func() (*gateway.Response, error) {
	return func() (*gateway.Response, error) {
		return &gateway.Response{Content: text}, nil
	}
}

func errResp(err error) func() (*gateway.Response, error) {
	return func() (*gateway.Response, error) { return nil, err }
}

// fakeRunner records executed commands and returns canned results.
type fakeRunner struct {
	executed []string
	result   func(command string) executor.Result
}

func (r *fakeRunner) Execute(_ context.Context, command string) executor.Result {
	r.executed = append(r.executed, command)
	if r.result != nil {
		return r.result(command)
	}
	return executor.Result{Succeeded: true, Stdout: "ok\n", ExitCode: 0, Duration: 10 * time.Millisecond}
}

func newAssistant(t *testing.T, gen Generator, runner Runner, opts Options) *Assistant {
	t.Helper()
	return New(gen, runner, opts, zap.NewNop())
}

// =============================================================================
// LOOP BEHAVIOR
// =============================================================================

func TestProcessQuery_IterationCapEnforced(t *testing.T) {
	// The model always wants one more command and never emits the sentinel.
	gen := &scriptedGen{}
	gen.fallback = func() (*gateway.Response, error) {
		if len(gen.calls)%2 == 1 {
			return toolCallResp("echo probe")()
		}
		return textResp("I still need to check more things.")()
	}
	runner := &fakeRunner{}

	a := newAssistant(t, gen, runner, Options{MaxIterations: 3, MaxHistory: 100})
	// Exhaust the cap, then the summary call (odd position) gets text.
	out, err := a.ProcessQuery(context.Background(), "why is my system slow")
	require.NoError(t, err)

	// Exactly MaxIterations command executions, then summarization.
	assert.Len(t, runner.executed, 3)

	// Final gateway call is the summary: tools disabled.
	last := gen.calls[len(gen.calls)-1]
	assert.Empty(t, last.tools)
	assert.NotEqual(t, fallbackNoCommands, out)
}

func TestProcessQuery_SentinelStopsEarly(t *testing.T) {
	gen := &scriptedGen{script: []func() (*gateway.Response, error){
		toolCallResp("df -h"),
		textResp("I have what I need. " + sentinel),
		textResp("The disk is 40% full."),
	}}
	runner := &fakeRunner{}

	a := newAssistant(t, gen, runner, Options{MaxIterations: 4, MaxHistory: 100})
	out, err := a.ProcessQuery(context.Background(), "check disk")
	require.NoError(t, err)

	assert.Len(t, runner.executed, 1)
	assert.Equal(t, "The disk is 40% full.", out)
	// iteration call + continuation call + summary call
	assert.Len(t, gen.calls, 3)
}

func TestProcessQuery_NoToolCallsSkipsSummaryGateway(t *testing.T) {
	gen := &scriptedGen{script: []func() (*gateway.Response, error){
		textResp("I do not know what to run."),
	}}
	runner := &fakeRunner{}

	a := newAssistant(t, gen, runner, Options{MaxIterations: 4, MaxHistory: 100})
	out, err := a.ProcessQuery(context.Background(), "mumble")
	require.NoError(t, err)

	assert.Equal(t, fallbackNoCommands, out)
	assert.Empty(t, runner.executed)
	// Only the single iteration call; no gateway call for summarization.
	assert.Len(t, gen.calls, 1)
}

func TestProcessQuery_GatewayErrorFallsThroughToSummary(t *testing.T) {
	gen := &scriptedGen{script: []func() (*gateway.Response, error){
		toolCallResp("uptime"),
		textResp("keep going"),
		errResp(errors.New("backend timeout")),
		textResp("Load average is 0.1."),
	}}
	runner := &fakeRunner{}

	a := newAssistant(t, gen, runner, Options{MaxIterations: 4, MaxHistory: 100})
	out, err := a.ProcessQuery(context.Background(), "load?")
	require.NoError(t, err)

	// One command ran before the error; summary still grounded on it.
	assert.Len(t, runner.executed, 1)
	assert.Equal(t, "Load average is 0.1.", out)
}

func TestProcessQuery_SummaryErrorYieldsFallback(t *testing.T) {
	gen := &scriptedGen{script: []func() (*gateway.Response, error){
		toolCallResp("df -h"),
		textResp(sentinel),
		errResp(errors.New("backend gone")),
	}}
	runner := &fakeRunner{}

	a := newAssistant(t, gen, runner, Options{MaxIterations: 4, MaxHistory: 100})
	out, err := a.ProcessQuery(context.Background(), "disk?")
	require.NoError(t, err)

	assert.Equal(t, summaryFallback(1), out)
	assert.Contains(t, out, "1 commands")
}

func TestProcessQuery_ContinuationRationaleAppended(t *testing.T) {
	gen := &scriptedGen{script: []func() (*gateway.Response, error){
		toolCallResp("df -h"),
		textResp("I should also look at inodes."),
		toolCallResp("df -i"),
		textResp(sentinel),
		textResp("Disk and inodes look fine."),
	}}
	runner := &fakeRunner{}

	a := newAssistant(t, gen, runner, Options{MaxIterations: 4, MaxHistory: 100})
	_, err := a.ProcessQuery(context.Background(), "disk?")
	require.NoError(t, err)

	assert.Equal(t, []string{"df -h", "df -i"}, runner.executed)

	var rationaleFound bool
	for _, m := range a.History() {
		if m.Role == "assistant" && m.Content == "I should also look at inodes." {
			rationaleFound = true
		}
	}
	assert.True(t, rationaleFound, "continuation rationale should be in history")
}

// =============================================================================
// CONVERSATION LOG INVARIANTS
// =============================================================================

func TestProcessQuery_ToolEntryReferencesPrecedingCall(t *testing.T) {
	gen := &scriptedGen{script: []func() (*gateway.Response, error){
		toolCallResp("df -h", "ps aux"),
		textResp(sentinel),
		textResp("done"),
	}}
	runner := &fakeRunner{}

	a := newAssistant(t, gen, runner, Options{MaxIterations: 4, MaxHistory: 100})
	_, err := a.ProcessQuery(context.Background(), "check")
	require.NoError(t, err)

	history := a.History()
	for i, m := range history {
		if m.Role != "tool" {
			continue
		}
		require.Greater(t, i, 0)
		prev := history[i-1]
		require.Equal(t, "assistant", prev.Role)
		require.Len(t, prev.ToolCalls, 1)
		assert.Equal(t, prev.ToolCalls[0].ID, m.ToolCallID)
	}
}

func TestProcessQuery_HistoryTrimmedToWindow(t *testing.T) {
	gen := &scriptedGen{}
	gen.fallback = func() (*gateway.Response, error) {
		if len(gen.calls)%2 == 1 {
			return toolCallResp("echo x")()
		}
		return textResp("more")()
	}
	runner := &fakeRunner{}

	a := newAssistant(t, gen, runner, Options{MaxIterations: 4, MaxHistory: 6})
	_, err := a.ProcessQuery(context.Background(), "spam history")
	require.NoError(t, err)

	assert.LessOrEqual(t, len(a.History()), 6)
}

func TestClearHistory(t *testing.T) {
	gen := &scriptedGen{script: []func() (*gateway.Response, error){
		textResp("nothing to do"),
	}}
	a := newAssistant(t, gen, &fakeRunner{}, Options{})

	_, err := a.ProcessQuery(context.Background(), "hi")
	require.NoError(t, err)
	require.NotEmpty(t, a.History())

	a.ClearHistory()
	assert.Empty(t, a.History())
}

func TestSessionID(t *testing.T) {
	a := newAssistant(t, &scriptedGen{}, &fakeRunner{}, Options{})
	b := newAssistant(t, &scriptedGen{}, &fakeRunner{}, Options{})

	assert.NotEmpty(t, a.SessionID())
	assert.NotEqual(t, a.SessionID(), b.SessionID())
}

// =============================================================================
// COMMAND HANDLING
// =============================================================================

func TestProcessQuery_AdaptsCommandsBeforeDispatch(t *testing.T) {
	gen := &scriptedGen{script: []func() (*gateway.Response, error){
		toolCallResp("top -bn1"),
		textResp(sentinel),
		textResp("done"),
	}}
	runner := &fakeRunner{}

	a := newAssistant(t, gen, runner, Options{MaxIterations: 4, MaxHistory: 100})
	_, err := a.ProcessQuery(context.Background(), "cpu?")
	require.NoError(t, err)

	require.Len(t, runner.executed, 1)
	assert.Equal(t, "ps aux --sort=-%cpu", runner.executed[0])
}

func TestProcessQuery_EmptyCommandArgumentSkipped(t *testing.T) {
	gen := &scriptedGen{script: []func() (*gateway.Response, error){
		func() (*gateway.Response, error) {
			return &gateway.Response{ToolCalls: []gateway.ToolCall{{
				ID:       "call_0",
				Function: gateway.FunctionCall{Name: "run_shell_command", Arguments: map[string]any{}},
			}}}, nil
		},
	}}
	runner := &fakeRunner{}

	a := newAssistant(t, gen, runner, Options{MaxIterations: 4, MaxHistory: 100})
	out, err := a.ProcessQuery(context.Background(), "hm")
	require.NoError(t, err)

	assert.Empty(t, runner.executed)
	assert.Equal(t, fallbackNoCommands, out)
}

func TestFormatResult_FailureIncludesAlternatives(t *testing.T) {
	res := executor.Result{Succeeded: false, Stderr: "iostat: not found", ExitCode: 127, Duration: time.Millisecond}

	text := formatResult("iostat -x", res)

	assert.Contains(t, text, "Command failed (exit code: 127")
	assert.Contains(t, text, "Alternative commands to try:")
	assert.Contains(t, text, "cat /proc/diskstats")
}

func TestFormatResult_Success(t *testing.T) {
	res := executor.Result{Succeeded: true, Stdout: "mem ok\n", ExitCode: 0, Duration: 1500 * time.Millisecond}

	text := formatResult("cat /proc/meminfo", res)

	assert.Contains(t, text, "Command executed successfully (exit code: 0, time: 1.50s)")
	assert.Contains(t, text, "STDOUT:\nmem ok")
	assert.NotContains(t, text, "Alternative commands")
}

// =============================================================================
// END TO END AGAINST THE REAL EXECUTOR
// =============================================================================

func realExecutor(t *testing.T, dryRun bool) *executor.Executor {
	t.Helper()
	return executor.New(safety.NewFilter(safety.DefaultPolicy()), 5*time.Second, dryRun, zap.NewNop())
}

func TestEndToEnd_DryRun(t *testing.T) {
	gen := &scriptedGen{script: []func() (*gateway.Response, error){
		toolCallResp("ls -la"),
		textResp(sentinel),
		textResp("Listed the files."),
	}}

	var results []executor.Result
	a := newAssistant(t, gen, realExecutor(t, true), Options{
		MaxIterations: 4,
		MaxHistory:    100,
		OnCommand: func(_ string, r executor.Result) {
			results = append(results, r)
		},
	})

	out, err := a.ProcessQuery(context.Background(), "list files in the current directory")
	require.NoError(t, err)
	assert.Equal(t, "Listed the files.", out)

	require.NotEmpty(t, results)
	for _, r := range results {
		assert.True(t, r.Succeeded)
		assert.True(t, strings.HasPrefix(r.Stdout, "[DRY RUN] Would execute:"), r.Stdout)
	}
}

func TestEndToEnd_DangerousCommandBlocked(t *testing.T) {
	gen := &scriptedGen{script: []func() (*gateway.Response, error){
		toolCallResp("rm -rf /"),
		textResp(sentinel),
		textResp("That command was blocked."),
	}}

	var results []executor.Result
	a := newAssistant(t, gen, realExecutor(t, false), Options{
		MaxIterations: 4,
		MaxHistory:    100,
		OnCommand: func(_ string, r executor.Result) {
			results = append(results, r)
		},
	})

	_, err := a.ProcessQuery(context.Background(), "clean up my disk")
	require.NoError(t, err)

	require.Len(t, results, 1)
	assert.False(t, results[0].Succeeded)
	assert.Equal(t, -1, results[0].ExitCode)
	assert.Contains(t, results[0].Stderr, "Command blocked for safety")

	var toolEntry *gateway.Message
	history := a.History()
	for i := range history {
		if history[i].Role == "tool" {
			toolEntry = &history[i]
			break
		}
	}
	require.NotNil(t, toolEntry)
	assert.Contains(t, toolEntry.Content, "Command failed")
	assert.Contains(t, toolEntry.Content, "Command blocked for safety")
}
