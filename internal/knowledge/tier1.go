package knowledge

import (
	"strings"

	"github.com/wolfman30/tradeline-ai-platform/internal/company"
)

// matchScenario runs the Tier-1 deterministic triage match against the
// company's preconfigured scenario catalog. Free and fast: a scenario hits
// when at least two of its keywords appear in the query (one keyword is
// enough when the scenario only has one).
func matchScenario(cfg *company.Config, query string) *Result {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" || cfg == nil {
		return nil
	}

	for _, sc := range cfg.Scenarios {
		if len(sc.Keywords) == 0 || sc.Answer == "" {
			continue
		}

		required := 2
		if len(sc.Keywords) < 2 {
			required = len(sc.Keywords)
		}

		matched := 0
		for _, kw := range sc.Keywords {
			kw = strings.ToLower(strings.TrimSpace(kw))
			if kw == "" {
				continue
			}
			if strings.Contains(query, kw) || strings.Contains(query, strings.ToLower(cfg.ExpandSynonyms(kw))) {
				matched++
			}
		}

		if matched >= required {
			return &Result{
				Tier:        1,
				Confidence:  sc.Confidence,
				FactualText: sc.Answer,
				Cost:        costTier1,
				SourceID:    sc.ID,
			}
		}
	}

	return nil
}
