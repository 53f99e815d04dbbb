// Package agent owns the investigation loop: it drives the bounded
// iterate/call/observe cycle against the model gateway, dispatches tool
// calls to the executor, and produces a final summary grounded strictly in
// observed command output.
package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"sysnerd/internal/executor"
	"sysnerd/internal/gateway"
	"sysnerd/internal/osadapt"
)

// Generator is the model gateway capability the loop depends on. An empty
// tools slice disables tool calling for that request.
type Generator interface {
	Generate(ctx context.Context, messages []gateway.Message, tools []gateway.ToolDefinition) (*gateway.Response, error)
}

// Runner executes one shell command and reports a structured result.
type Runner interface {
	Execute(ctx context.Context, command string) executor.Result
}

// Record is the logged outcome of one executed command within a query.
// Discarded after the final summary; nothing persists across queries beyond
// the capped conversation log.
type Record struct {
	Iteration int
	Command   string
	Result    string // formatted result block fed back to the model
	Output    string // raw stdout used for summary grounding
}

// Options bounds the loop and hooks progress reporting.
type Options struct {
	// MaxIterations is the hard cap on model/execute cycles per query.
	MaxIterations int

	// MaxHistory caps retained conversation entries.
	MaxHistory int

	// OnCommandStart, when set, is called just before a command is
	// dispatched so the caller can render progress. Never called
	// concurrently.
	OnCommandStart func(command string)

	// OnCommand, when set, is called after every command execution with
	// its result. Never called concurrently.
	OnCommand func(command string, result executor.Result)
}

// Assistant drives investigations. It is not safe for concurrent use; the
// loop is strictly sequential and so is the conversation log.
type Assistant struct {
	gen       Generator
	runner    Runner
	opts      Options
	tools     []gateway.ToolDefinition
	sessionID string
	logger    *zap.Logger

	conversation []gateway.Message
}

// New creates an assistant session. The session lives for the process or
// until ClearHistory.
func New(gen Generator, runner Runner, opts Options, logger *zap.Logger) *Assistant {
	if opts.MaxIterations < 1 {
		opts.MaxIterations = 4
	}
	if opts.MaxHistory < 1 {
		opts.MaxHistory = 50
	}
	return &Assistant{
		gen:       gen,
		runner:    runner,
		opts:      opts,
		tools:     []gateway.ToolDefinition{shellToolDefinition()},
		sessionID: uuid.NewString(),
		logger:    logger,
	}
}

// SessionID identifies this session in logs.
func (a *Assistant) SessionID() string { return a.sessionID }

// History returns a copy of the retained conversation log.
func (a *Assistant) History() []gateway.Message {
	out := make([]gateway.Message, len(a.conversation))
	copy(out, a.conversation)
	return out
}

// ClearHistory empties the conversation log.
func (a *Assistant) ClearHistory() {
	a.conversation = nil
}

// ProcessQuery runs one bounded investigation for the user input and
// returns the final summary text. Every failure mode yields readable text;
// the only returned error is context cancellation.
func (a *Assistant) ProcessQuery(ctx context.Context, input string) (string, error) {
	a.logger.Info("processing query",
		zap.String("session", a.sessionID),
		zap.String("query", input))

	a.append(gateway.Message{Role: "user", Content: input})

	var records []Record

	for iteration := 1; iteration <= a.opts.MaxIterations; iteration++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		resp, err := a.gen.Generate(ctx, a.contextMessages(), a.tools)
		if err != nil {
			// Stop iterating; summarize with what we have.
			a.logger.Error("gateway error during iteration",
				zap.Int("iteration", iteration), zap.Error(err))
			break
		}

		if len(resp.ToolCalls) == 0 {
			a.logger.Debug("no further commands requested", zap.Int("iteration", iteration))
			break
		}

		executed := 0
		for _, call := range resp.ToolCalls {
			command := call.Function.Command()
			if command == "" {
				a.logger.Warn("tool call without command argument", zap.String("id", call.ID))
				continue
			}

			command = a.adapt(command)
			if a.opts.OnCommandStart != nil {
				a.opts.OnCommandStart(command)
			}
			result := a.runner.Execute(ctx, command)
			formatted := formatResult(command, result)

			records = append(records, Record{
				Iteration: iteration,
				Command:   command,
				Result:    formatted,
				Output:    groundingOutput(result),
			})

			a.append(gateway.Message{
				Role:      "assistant",
				Content:   fmt.Sprintf("I executed: %s", command),
				ToolCalls: []gateway.ToolCall{call},
			})
			a.append(gateway.Message{
				Role:       "tool",
				Content:    formatted,
				ToolCallID: call.ID,
			})

			if a.opts.OnCommand != nil {
				a.opts.OnCommand(command, result)
			}
			executed++
		}

		if executed == 0 {
			break
		}

		if done, err := a.shouldStop(ctx, input, len(records)); err != nil {
			break
		} else if done {
			a.logger.Debug("investigation complete", zap.Int("iterations", iteration))
			break
		}
	}

	return a.summarize(ctx, input, records)
}

// shouldStop makes the internal continuation call. The sentinel phrase in
// the reply ends the loop; any other reply is appended as the model's
// rationale for continuing.
func (a *Assistant) shouldStop(ctx context.Context, query string, executed int) (bool, error) {
	a.append(gateway.Message{Role: "user", Content: continuationPrompt(query, executed)})

	resp, err := a.gen.Generate(ctx, a.contextMessages(), a.tools)
	if err != nil {
		a.logger.Error("gateway error during continuation check", zap.Error(err))
		return true, err
	}

	if strings.Contains(resp.Content, sentinel) {
		return true, nil
	}

	a.append(gateway.Message{Role: "assistant", Content: resp.Content})
	return false, nil
}

// summarize issues the grounding-constrained summary request, with tools
// disabled. Zero records skip the gateway entirely.
func (a *Assistant) summarize(ctx context.Context, query string, records []Record) (string, error) {
	if len(records) == 0 {
		return fallbackNoCommands, nil
	}

	a.append(gateway.Message{Role: "user", Content: groundingPrompt(query, records)})

	resp, err := a.gen.Generate(ctx, a.contextMessages(), nil)
	if err != nil {
		a.logger.Warn("failed to get final analysis", zap.Error(err))
		return summaryFallback(len(records)), nil
	}

	a.append(gateway.Message{Role: "assistant", Content: resp.Content})
	return resp.Content, nil
}

// adapt consults the OS adaptation table before dispatch.
func (a *Assistant) adapt(command string) string {
	adapted := osadapt.Adapt(command)
	if adapted != command {
		a.logger.Debug("adapted command",
			zap.String("requested", command),
			zap.String("adapted", adapted))
	}
	return adapted
}

// append adds an entry and trims the log to the retention window.
func (a *Assistant) append(msg gateway.Message) {
	a.conversation = append(a.conversation, msg)
	if over := len(a.conversation) - a.opts.MaxHistory; over > 0 {
		a.conversation = a.conversation[over:]
	}
}

// contextMessages is the system prompt plus the retained conversation, in
// context order.
func (a *Assistant) contextMessages() []gateway.Message {
	msgs := make([]gateway.Message, 0, len(a.conversation)+1)
	msgs = append(msgs, gateway.Message{Role: "system", Content: systemPrompt})
	return append(msgs, a.conversation...)
}

// formatResult builds the human-readable result block fed back into the
// conversation. Failed commands carry alternative suggestions from the
// adaptation table.
func formatResult(command string, r executor.Result) string {
	status := "Command failed"
	if r.Succeeded {
		status = "Command executed successfully"
	}

	text := fmt.Sprintf("%s (exit code: %d, time: %.2fs):\n\nSTDOUT:\n%s\n\nSTDERR:\n%s",
		status, r.ExitCode, r.Duration.Seconds(), r.Stdout, r.Stderr)

	if !r.Succeeded {
		if alts := osadapt.Alternatives(command); len(alts) > 0 {
			text += "\n\nAlternative commands to try:\n"
			for _, alt := range alts {
				text += "- " + alt + "\n"
			}
		}
	}
	return text
}

// groundingOutput reduces a result to the literal text quoted in the
// summary prompt.
func groundingOutput(r executor.Result) string {
	if !r.Succeeded && r.Stdout == "" {
		return "Command failed"
	}
	if strings.TrimSpace(r.Stdout) == "" {
		return "No output"
	}
	return strings.TrimSpace(r.Stdout)
}
