// Package knowledge resolves factual caller questions through a
// cost-ranked waterfall: keyword triage, semantic match, then LLM
// synthesis as a last resort.
package knowledge

// Result is one tier's answer to a knowledge query.
type Result struct {
	// Tier is 1 (keyword), 2 (semantic), or 3 (LLM synthesis).
	Tier       int     `json:"tier"`
	Confidence float64 `json:"confidence"`
	// FactualText is the verified answer text before reshaping.
	FactualText string `json:"factual_text"`
	// Cost is the relative cost unit of the tier that produced the result.
	Cost     float64 `json:"cost"`
	SourceID string  `json:"source_id,omitempty"`
	// Reshaped is true when a follow-up model call rephrased the fact.
	Reshaped bool `json:"reshaped,omitempty"`
}

// Relative cost units per tier, recorded for cost accounting.
const (
	costTier1 = 0.0
	costTier2 = 0.1
	costTier3 = 1.0
)
