package agent

import (
	"fmt"
	"strings"
)

// sentinel is the fixed phrase the model emits to signal that no further
// investigation is needed.
const sentinel = "INVESTIGATION_COMPLETE"

// summaryOutputCap bounds the literal output quoted per command in the
// grounding prompt.
const summaryOutputCap = 300

// systemPrompt steers the model toward portable diagnostics and grounded
// answers.
const systemPrompt = `You are a helpful Linux system administrator assistant that can diagnose and solve problems by executing shell commands.

When a user asks for help, think step by step about what commands might be needed to analyze their problem.
Use the run_shell_command function to execute diagnostic commands and analyze their output.

COMMAND SELECTION GUIDELINES:
1. Use universal Unix/Linux commands that work across distributions
2. For CPU usage: use 'ps aux' instead of 'top -bn1' for better compatibility
3. For memory: use 'ps aux' and 'cat /proc/meminfo' (if available)
4. For disk: use 'df -h', 'du -sh'
5. For processes: use 'ps aux --sort=-%cpu' or 'ps aux --sort=-%mem'

ERROR HANDLING:
- If a command fails, ALWAYS try a simpler alternative using run_shell_command
- If /proc files don't exist, use basic commands like 'ps aux'
- When a command fails, suggest and execute a fallback command immediately

FUNCTION CALLING FORMAT:
- ALWAYS use the [TOOL_CALLS] format for function calls
- When suggesting next commands, IMMEDIATELY execute them with run_shell_command
- Never suggest commands without executing them

CRITICAL: Only analyze actual command outputs. Never invent data, percentages, or process names.

You have access to the run_shell_command function to execute shell commands.`

// fallbackNoCommands is returned when the model never requested a command.
const fallbackNoCommands = "No diagnostic commands were executed. Please try rephrasing your question."

// continuationPrompt asks the model whether more commands are needed.
// Presence of the sentinel in the reply ends the loop.
func continuationPrompt(query string, executed int) string {
	return fmt.Sprintf(`Based on the command results so far, do you need to run more diagnostic commands to fully answer the user's question: %q?

If you have enough information to provide a complete answer, respond with %q.
If you need more information, suggest the next command to run and explain why.

Current findings summary: %d commands executed so far.`, query, sentinel, executed)
}

// groundingPrompt constrains the final summary to the literal outputs of
// the executed commands.
func groundingPrompt(query string, records []Record) string {
	var outputs strings.Builder
	for _, r := range records {
		out := r.Output
		if len(out) > summaryOutputCap {
			out = out[:summaryOutputCap] + "..."
		}
		fmt.Fprintf(&outputs, "Command: %s\nOutput: %s\n", r.Command, out)
	}

	return fmt.Sprintf(`You are analyzing command outputs to answer: %q

ACTUAL COMMAND OUTPUTS (DO NOT MAKE UP ANY DATA):
%s
CRITICAL INSTRUCTIONS:
- ONLY use the actual data shown above
- DO NOT invent numbers, percentages, or process names
- If output is empty or unclear, say so
- If commands failed, mention that
- Be specific about what the actual output shows

Provide a brief summary (2-3 sentences) based ONLY on what you can see in the actual outputs above.`, query, outputs.String())
}

// summaryFallback is returned when the summary request itself fails.
func summaryFallback(executed int) string {
	return fmt.Sprintf("Completed diagnostic with %d commands. Check the command outputs above for details.", executed)
}
