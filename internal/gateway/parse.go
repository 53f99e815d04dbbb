package gateway

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"
)

// toolCallPattern locates [TOOL_CALLS] blocks. Tolerant of surrounding
// whitespace; the lazy array match mirrors the backend convention of one
// flat JSON array per block.
var toolCallPattern = regexp.MustCompile(`(?s)\[TOOL_CALLS\]\s*(\[.*?\])`)

// rawToolCall is one element of a [TOOL_CALLS] JSON array.
type rawToolCall struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

// parseToolCalls recovers tool calls from the model's free text. Malformed
// blocks are logged and dropped; surviving calls from the same response are
// still returned. IDs are positional and unique within the turn.
func (c *Client) parseToolCalls(text string) []ToolCall {
	matches := toolCallPattern.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		c.logger.Debug("no TOOL_CALLS pattern found in response")
		return nil
	}

	var calls []ToolCall
	for _, m := range matches {
		var raw []rawToolCall
		if err := json.Unmarshal([]byte(m[1]), &raw); err != nil {
			c.logger.Warn("failed to parse tool call block",
				zap.String("block", m[1]),
				zap.Error(err))
			continue
		}
		for _, rc := range raw {
			if rc.Name == "" || rc.Arguments == nil {
				continue
			}
			calls = append(calls, ToolCall{
				ID: fmt.Sprintf("call_%d", len(calls)),
				Function: FunctionCall{
					Name:      rc.Name,
					Arguments: rc.Arguments,
				},
			})
		}
	}

	c.logger.Debug("parsed tool calls", zap.Int("count", len(calls)))
	return calls
}

// visibleContent strips the tool-call convention from the text shown to the
// caller. When a [TOOL_CALLS] delimiter is present, everything from the
// delimiter onward is machine payload, not prose for the user.
func visibleContent(text string) string {
	if idx := strings.Index(text, "[TOOL_CALLS]"); idx >= 0 {
		return strings.TrimSpace(text[:idx])
	}
	return strings.TrimSpace(text)
}
