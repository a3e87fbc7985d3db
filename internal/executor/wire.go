package executor

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/synapsenet/cir/internal/tools"
)

// toolCallWire is one entry of the Executor LLM response's tool_calls
// array.
type toolCallWire struct {
	Tool string         `json:"tool"`
	Args map[string]any `json:"args"`
}

// executorResponseWire is the wire shape an Executor LLM response is
// parsed from: `{"reasoning":"...","tool_calls":[{"tool":...,"args":{...}}]}`.
type executorResponseWire struct {
	Reasoning string         `json:"reasoning"`
	ToolCalls []toolCallWire `json:"tool_calls"`
}

// parseToolCalls strips any fenced code block markers (same as
// parseRootCause) and scans to the first '{' to tolerate a prose
// preamble, then decodes the tool-calls wire format.
func parseToolCalls(raw string) ([]tools.ToolCallPlan, error) {
	stripped := strings.ReplaceAll(raw, "```json", "")
	stripped = strings.ReplaceAll(stripped, "```", "")

	idx := strings.IndexByte(stripped, '{')
	if idx < 0 {
		return nil, fmt.Errorf("executor response contains no JSON object")
	}
	var wire executorResponseWire
	if err := json.Unmarshal([]byte(stripped[idx:]), &wire); err != nil {
		return nil, err
	}
	calls := make([]tools.ToolCallPlan, 0, len(wire.ToolCalls))
	for _, c := range wire.ToolCalls {
		if c.Tool == "" {
			continue
		}
		calls = append(calls, tools.ToolCallPlan{Tool: c.Tool, Args: c.Args})
	}
	return calls, nil
}

// enforcementReminder is appended to the prompt on the single re-prompt
// attempt after a structurally unparseable Executor response.
const enforcementReminder = "\n\nYour previous response could not be parsed. " +
	"Respond with a single JSON object of the exact form " +
	`{"reasoning": "...", "tool_calls": [{"tool": "...", "args": {...}}]}. ` +
	"No prose outside the object is required."
