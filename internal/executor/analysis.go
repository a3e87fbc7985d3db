package executor

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/synapsenet/cir/internal/state"
)

// rootCauseWire is the wire shape a REPAIR_ANALYZE LLM response is parsed
// from. state.RootCauseAnalysis itself carries no JSON tags since it is
// produced only through this deterministic parse-then-validate path, never
// round-tripped generically.
type rootCauseWire struct {
	ArtifactPath              string `json:"artifactPath"`
	ArtifactLine              int    `json:"artifactLine"`
	RootCauseSummary          string `json:"rootCauseSummary"`
	CausalExplanation         string `json:"causalExplanation"`
	MinimalFixStrategy        string `json:"minimalFixStrategy"`
	ProposedSearchBlock       string `json:"proposedSearchBlock"`
	WhyPreviousAttemptsFailed string `json:"whyPreviousAttemptsFailed"`
}

// parseRootCause scans to the first '{' and decodes the RootCauseAnalysis
// wire format, stripping any fenced code block markers the LLM wrapped it
// in first.
func parseRootCause(raw string) (state.RootCauseAnalysis, error) {
	stripped := strings.ReplaceAll(raw, "```json", "")
	stripped = strings.ReplaceAll(stripped, "```", "")

	idx := strings.IndexByte(stripped, '{')
	if idx < 0 {
		return state.RootCauseAnalysis{}, fmt.Errorf("analysis response contains no JSON object")
	}

	var wire rootCauseWire
	if err := json.Unmarshal([]byte(stripped[idx:]), &wire); err != nil {
		return state.RootCauseAnalysis{}, err
	}

	return state.RootCauseAnalysis{
		ArtifactPath:              wire.ArtifactPath,
		ArtifactLine:              wire.ArtifactLine,
		RootCauseSummary:          wire.RootCauseSummary,
		CausalExplanation:         wire.CausalExplanation,
		MinimalFixStrategy:        wire.MinimalFixStrategy,
		ProposedSearchBlock:       wire.ProposedSearchBlock,
		WhyPreviousAttemptsFailed: wire.WhyPreviousAttemptsFailed,
	}, nil
}
