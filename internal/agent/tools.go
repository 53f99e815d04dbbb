package agent

import "sysnerd/internal/gateway"

// shellToolDefinition declares the single capability the model may invoke.
// Passed on every iteration call; omitted from the final summary call.
func shellToolDefinition() gateway.ToolDefinition {
	return gateway.ToolDefinition{
		Type: "function",
		Function: gateway.Function{
			Name:        "run_shell_command",
			Description: "Run a shell command on the Linux system to diagnose issues or gather information",
			Parameters: gateway.Parameters{
				Type: "object",
				Properties: map[string]gateway.Property{
					"command": {
						Type:        "string",
						Description: "The shell command to run (e.g., 'top -bn1', 'ps aux', 'df -h')",
					},
				},
				Required: []string{"command"},
			},
		},
	}
}
