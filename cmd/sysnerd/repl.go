package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"

	"sysnerd/internal/agent"
	"sysnerd/internal/executor"
)

// previewLines caps the per-command output preview shown in the terminal.
const previewLines = 4

// session renders the interactive surface: banner, progress lines and the
// glamour-formatted summary.
type session struct {
	st       styles
	renderer *glamour.TermRenderer
}

func newSession(st styles) *session {
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		renderer = nil
	}
	return &session{st: st, renderer: renderer}
}

// commandStarted is wired as the assistant's pre-dispatch hook.
func (s *session) commandStarted(command string) {
	fmt.Printf("Running: %s\n", s.st.Command.Render("`"+command+"`"))
}

// commandFinished renders a brief preview of one execution result.
func (s *session) commandFinished(_ string, r executor.Result) {
	if !r.Succeeded {
		fmt.Println(s.st.Error.Render("Command failed"))
		return
	}
	out := strings.TrimSpace(r.Stdout)
	if out == "" {
		fmt.Println(s.st.Muted.Render("No output"))
		return
	}
	fmt.Println(s.st.Muted.Render("Output:"))
	fmt.Println(s.st.Muted.Render(preview(out)))
}

// preview keeps the first few lines of output and notes what was elided.
func preview(out string) string {
	lines := strings.Split(out, "\n")
	if len(lines) <= previewLines+1 {
		return out
	}
	kept := strings.Join(lines[:previewLines], "\n")
	return fmt.Sprintf("%s\n... (%d more lines)", kept, len(lines)-previewLines)
}

// renderSummary prints the final answer, markdown-rendered when possible.
func (s *session) renderSummary(text string) {
	fmt.Println()
	fmt.Println(s.st.Header.Render("Summary:"))
	if s.renderer != nil {
		if rendered, err := s.renderer.Render(text); err == nil {
			fmt.Print(rendered)
			return
		}
	}
	fmt.Println(text)
}

// runSingleQuery handles --query mode.
func (s *session) runSingleQuery(ctx context.Context, assistant *agent.Assistant, query string) error {
	fmt.Printf("%s %s\n", s.st.Header.Render("Investigating:"), query)

	answer, err := assistant.ProcessQuery(ctx, query)
	if err != nil {
		return err
	}
	s.renderSummary(answer)
	return nil
}

// runInteractive is the read-eval-print loop.
func (s *session) runInteractive(ctx context.Context, assistant *agent.Assistant) error {
	fmt.Println(s.st.Banner.Render("sysNERD - Linux AI Assistant"))
	fmt.Println("Type 'exit', 'quit', or Ctrl+C to end the session")
	fmt.Println("Type 'clear' to clear conversation history")
	fmt.Println("Type 'help' for usage information")
	fmt.Println(strings.Repeat("-", 50))

	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for {
		fmt.Printf("\n%s ", s.st.Prompt.Render("You:"))
		if !scanner.Scan() {
			fmt.Println("\nGoodbye!")
			return nil
		}

		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}

		switch strings.ToLower(input) {
		case "exit", "quit":
			fmt.Println("Goodbye!")
			return nil
		case "clear":
			assistant.ClearHistory()
			fmt.Println(s.st.Muted.Render("Conversation history cleared"))
			continue
		case "help":
			s.printHelp()
			continue
		}

		fmt.Printf("\n%s %s\n", s.st.Header.Render("Investigating:"), input)

		answer, err := assistant.ProcessQuery(ctx, input)
		if err != nil {
			fmt.Println(s.st.Error.Render(fmt.Sprintf("Session error: %v", err)))
			continue
		}
		s.renderSummary(answer)
	}
}

func (s *session) printHelp() {
	fmt.Println(s.st.Header.Render("\nsysNERD Help"))
	fmt.Print(`
This assistant helps with Linux tasks by executing shell commands.

Examples of what you can ask:
  - "Why is my CPU slow?"
  - "Show me disk usage"
  - "What processes are using the most memory?"
  - "Check if nginx is running"
  - "Find large files in my home directory"
  - "What's causing high load on my system?"

Commands:
  exit, quit - End the session
  clear      - Clear conversation history
  help       - Show this help message

Safety: built-in denylisting blocks obviously destructive commands. It is
advisory, not a sandbox; review commands before trusting the results.
`)
}
