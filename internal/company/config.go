// Package company provides per-company runtime configuration for the
// call engine. Configuration documents are edited elsewhere; this package
// only loads them and resolves every default up front so downstream code
// never branches on missing fields.
package company

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
)

// Scenario is one entry in the preconfigured triage catalog used by the
// Tier-1 knowledge match.
type Scenario struct {
	ID       string   `json:"id"`
	Keywords []string `json:"keywords"`
	Answer   string   `json:"answer"`
	// Confidence assigned when the scenario matches. Defaults to 0.9.
	Confidence float64 `json:"confidence,omitempty"`
}

// QAPair is a curated question/answer used by the Tier-2 semantic match.
type QAPair struct {
	ID       string `json:"id"`
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// TierThresholds are the per-tier minimum confidences for a knowledge
// result to be treated as authoritative. Values below the floor (0.5)
// are raised to the floor at load time.
type TierThresholds struct {
	Tier1 float64 `json:"tier1"`
	Tier2 float64 `json:"tier2"`
	Tier3 float64 `json:"tier3"`
}

// FeatureFlags gate engine behavior per company.
type FeatureFlags struct {
	// OrchestratorEnabled stays false unless the company document sets it:
	// a missing or unreadable config gets deterministic replies only, never
	// an unconfigured LLM persona.
	OrchestratorEnabled bool `json:"orchestrator_enabled"`
	DebugOrchestrator   bool `json:"debug_orchestrator"`
}

// Capabilities describe what the company has actually configured. The
// guardrail strips claims the configuration does not back.
type Capabilities struct {
	EmergencyService bool `json:"emergency_service"`
	Open24x7         bool `json:"open_24x7"`
	WeekendService   bool `json:"weekend_service"`
}

// Config is the resolved runtime configuration for one company.
type Config struct {
	CompanyID string `json:"company_id"`
	Name      string `json:"name"`
	// Trade is the primary trade category: hvac, plumbing, electrical.
	Trade    string `json:"trade"`
	Greeting string `json:"greeting,omitempty"`

	// Variables are company-supplied template values (service area, hours
	// text, dispatch fee, ...). Price-like variables gate the pricing
	// guardrail.
	Variables map[string]string `json:"variables,omitempty"`

	FillerWords []string            `json:"filler_words,omitempty"`
	Synonyms    map[string][]string `json:"synonyms,omitempty"`

	Scenarios []Scenario `json:"scenarios,omitempty"`
	QAPairs   []QAPair   `json:"qa_pairs,omitempty"`

	Thresholds   TierThresholds `json:"thresholds"`
	Flags        FeatureFlags   `json:"flags"`
	Capabilities Capabilities   `json:"capabilities"`

	BookingRules []BookingRule `json:"booking_rules,omitempty"`

	// ConfigVersion is stamped into each CallContext so archived calls can
	// be replayed against the configuration that produced them.
	ConfigVersion string `json:"config_version"`
}

// BookingRule is an advisory scheduling constraint supplied by configuration.
// Blank Trade/ServiceType match any value.
type BookingRule struct {
	ID             string   `json:"id"`
	Trade          string   `json:"trade,omitempty"`
	ServiceType    string   `json:"service_type,omitempty"`
	Priority       string   `json:"priority"` // emergency, high, normal
	DaysOfWeek     []string `json:"days_of_week,omitempty"`
	WeekendAllowed bool     `json:"weekend_allowed"`
	SameDayAllowed bool     `json:"same_day_allowed"`
	TimeWindow     string   `json:"time_window,omitempty"`
	Label          string   `json:"label,omitempty"`
	Notes          string   `json:"notes,omitempty"`
}

const (
	configKeyPrefix     = "company:config:"
	confidenceFloor     = 0.5
	defaultGreetingTmpl = "Thanks for calling %s. How can I help you today?"
)

var defaultFillerWords = []string{"um", "uh", "like", "you know", "basically"}

// priceVariableHints are substrings that mark a variable as price-like.
var priceVariableHints = []string{"price", "cost", "fee", "rate", "charge", "estimate"}

// Store loads company configuration documents from Redis.
type Store struct {
	rdb *redis.Client
}

// NewStore creates a config store backed by Redis.
func NewStore(rdb *redis.Client) *Store {
	if rdb == nil {
		panic("company: redis client required")
	}
	return &Store{rdb: rdb}
}

func configKey(companyID string) string {
	return configKeyPrefix + companyID
}

// Load fetches and resolves the configuration for a company. A missing
// document yields a fully-defaulted config rather than an error, so a
// misprovisioned company still gets a working (if generic) receptionist.
func (s *Store) Load(ctx context.Context, companyID string) (*Config, error) {
	data, err := s.rdb.Get(ctx, configKey(companyID)).Bytes()
	if err == redis.Nil {
		return Defaulted(companyID), nil
	}
	if err != nil {
		return nil, fmt.Errorf("company: config get: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("company: config unmarshal: %w", err)
	}
	if cfg.CompanyID == "" {
		cfg.CompanyID = companyID
	}
	applyDefaults(&cfg)
	return &cfg, nil
}

// Save persists a configuration document. Provided for seeding and the
// test console; the admin surface that edits configs lives elsewhere.
func (s *Store) Save(ctx context.Context, cfg *Config) error {
	if cfg == nil || cfg.CompanyID == "" {
		return fmt.Errorf("company: config requires company_id")
	}
	applyDefaults(cfg)
	data, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("company: config marshal: %w", err)
	}
	if err := s.rdb.Set(ctx, configKey(cfg.CompanyID), data, 0).Err(); err != nil {
		return fmt.Errorf("company: config set: %w", err)
	}
	return nil
}

// Defaulted returns the fully-resolved configuration for a company with
// no stored document. Also used when the config store is unreachable.
func Defaulted(companyID string) *Config {
	cfg := &Config{CompanyID: companyID}
	applyDefaults(cfg)
	return cfg
}

// applyDefaults resolves every optional field so the engine never has to
// check for absence.
func applyDefaults(cfg *Config) {
	if cfg.Name == "" {
		cfg.Name = "our office"
	}
	if cfg.Trade == "" {
		cfg.Trade = "general"
	}
	if cfg.Greeting == "" {
		cfg.Greeting = fmt.Sprintf(defaultGreetingTmpl, cfg.Name)
	}
	if cfg.Variables == nil {
		cfg.Variables = map[string]string{}
	}
	if len(cfg.FillerWords) == 0 {
		cfg.FillerWords = append([]string(nil), defaultFillerWords...)
	}
	if cfg.Synonyms == nil {
		cfg.Synonyms = map[string][]string{}
	}
	if cfg.Thresholds.Tier1 < confidenceFloor {
		cfg.Thresholds.Tier1 = confidenceFloor
	}
	if cfg.Thresholds.Tier2 < confidenceFloor {
		cfg.Thresholds.Tier2 = confidenceFloor
	}
	if cfg.Thresholds.Tier3 < confidenceFloor {
		cfg.Thresholds.Tier3 = confidenceFloor
	}
	for i := range cfg.Scenarios {
		if cfg.Scenarios[i].Confidence <= 0 {
			cfg.Scenarios[i].Confidence = 0.9
		}
	}
	if cfg.ConfigVersion == "" {
		cfg.ConfigVersion = "v1"
	}
}

// HasPriceVariable reports whether any configured variable looks like a
// price. The pricing guardrail only lets price talk through when this is
// true.
func (c *Config) HasPriceVariable() bool {
	for name, value := range c.Variables {
		if strings.TrimSpace(value) == "" {
			continue
		}
		lower := strings.ToLower(name)
		for _, hint := range priceVariableHints {
			if strings.Contains(lower, hint) {
				return true
			}
		}
	}
	return false
}

// CleanUtterance lowercases, trims, and strips configured filler words
// from a caller utterance before classification.
func (c *Config) CleanUtterance(text string) string {
	cleaned := strings.ToLower(strings.TrimSpace(text))
	if cleaned == "" {
		return ""
	}
	// Multi-word fillers ("you know") are stripped as phrases first; the
	// token pass below cannot see across word boundaries.
	for _, f := range c.FillerWords {
		if strings.Contains(f, " ") {
			cleaned = strings.ReplaceAll(cleaned, f, " ")
		}
	}
	words := strings.Fields(cleaned)
	out := words[:0]
	for _, w := range words {
		trimmed := strings.Trim(w, ",.!?")
		if trimmed == "" || isFiller(c.FillerWords, trimmed) {
			continue
		}
		out = append(out, w)
	}
	return strings.Join(out, " ")
}

func isFiller(fillers []string, word string) bool {
	for _, f := range fillers {
		if word == f {
			return true
		}
	}
	return false
}

// ExpandSynonyms returns the canonical term for a word if the synonym
// table maps it, otherwise the word itself.
func (c *Config) ExpandSynonyms(word string) string {
	lower := strings.ToLower(word)
	for canonical, alts := range c.Synonyms {
		for _, alt := range alts {
			if strings.EqualFold(alt, lower) {
				return canonical
			}
		}
	}
	return word
}
