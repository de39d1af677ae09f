// Package rules holds the versioned behavioral configuration for the engine:
// commit thresholds, memory layer capacities, the archetype keyword/weight
// table, and the value-equivalence data used by contradiction detection.
// Behavior must be reproducible across deployments, so all of this is data,
// not code. A YAML file can override the compiled-in defaults.
package rules

import (
	"fmt"
	"os"

	"github.com/SJPMusic/soloheart-sub001/internal/domain"
	"gopkg.in/yaml.v3"
)

// CurrentVersion is the rules document version this build understands.
const CurrentVersion = 1

// ArchetypeRule maps trigger vocabulary to one archetype tag and its tension
// weight. Positive weights push toward chaos, negative toward order.
type ArchetypeRule struct {
	Tag      domain.ArchetypeTag `yaml:"tag"`
	Keywords []string            `yaml:"keywords"`
	Weight   float64             `yaml:"weight"`
}

type Config struct {
	Version int `yaml:"version"`

	// Commitment ledger
	AutoCommitThreshold float64 `yaml:"auto_commit_threshold"`

	// Symbolic tagger
	TensionMin            float64         `yaml:"tension_min"`
	TensionMax            float64         `yaml:"tension_max"`
	Archetypes            []ArchetypeRule `yaml:"archetypes"`
	RestatementSimilarity float64         `yaml:"restatement_similarity"`
	// ExclusiveFields hold exactly one true value; differing committed
	// values for them are contradictions unless equivalent.
	ExclusiveFields []string `yaml:"exclusive_fields"`
	// Synonyms lists value spellings treated as equivalent, keyed by the
	// canonical form (all normalized lower-case).
	Synonyms map[string][]string `yaml:"synonyms"`

	// Memory layers
	ShortCapacity          int     `yaml:"short_capacity"`
	MidCapacity            int     `yaml:"mid_capacity"`
	PromotionThreshold     float64 `yaml:"promotion_threshold"`
	LongPromotionThreshold float64 `yaml:"long_promotion_threshold"`
	// DecayLambda is the per-hour exponential recency decay applied to
	// significance at promotion time only.
	DecayLambda float64 `yaml:"decay_lambda"`
}

// Default returns the compiled-in version-1 rules document.
func Default() *Config {
	return &Config{
		Version:             CurrentVersion,
		AutoCommitThreshold: 0.75,

		TensionMin:            -1.0,
		TensionMax:            1.0,
		RestatementSimilarity: 0.88,
		ExclusiveFields: []string{
			domain.FieldName, domain.FieldGender, domain.FieldRace,
			domain.FieldClass, domain.FieldBackground, domain.FieldAlignment,
		},
		Synonyms: map[string][]string{
			"rogue":    {"thief"},
			"wizard":   {"mage", "sorcerer"},
			"fighter":  {"warrior"},
			"female":   {"woman", "girl"},
			"male":     {"man", "boy"},
			"half-elf": {"half elf"},
			"half-orc": {"half orc"},
		},

		ShortCapacity:          30,
		MidCapacity:            200,
		PromotionThreshold:     0.5,
		LongPromotionThreshold: 0.7,
		DecayLambda:            0.01,

		Archetypes: []ArchetypeRule{
			{Tag: domain.ArchetypeShadow, Weight: 0.15, Keywords: []string{
				"loss", "lost", "trauma", "tragic", "death", "died", "dead",
				"murdered", "raiders", "betrayed", "orphan", "revenge", "haunted",
			}},
			{Tag: domain.ArchetypeMentor, Weight: -0.10, Keywords: []string{
				"mentor", "teacher", "trained", "master", "apprentice", "guide", "taught",
			}},
			{Tag: domain.ArchetypeFather, Weight: -0.08, Keywords: []string{
				"father", "patriarch", "paternal",
			}},
			{Tag: domain.ArchetypeMother, Weight: -0.08, Keywords: []string{
				"mother", "matriarch", "maternal",
			}},
			{Tag: domain.ArchetypeJourney, Weight: 0.05, Keywords: []string{
				"journey", "quest", "travel", "wander", "pilgrimage", "road", "voyage",
			}},
			{Tag: domain.ArchetypeThreshold, Weight: 0.08, Keywords: []string{
				"threshold", "gate", "crossing", "left home", "set out", "departure",
			}},
			{Tag: domain.ArchetypeRebirth, Weight: -0.12, Keywords: []string{
				"rebirth", "reborn", "redemption", "second chance", "renewed", "awakening",
			}},
			{Tag: domain.ArchetypeTrickster, Weight: 0.12, Keywords: []string{
				"trickster", "con", "swindler", "gambler", "liar", "prankster", "cunning",
			}},
			{Tag: domain.ArchetypeSacrifice, Weight: 0.10, Keywords: []string{
				"sacrifice", "gave up", "surrendered", "martyr", "forsook",
			}},
			{Tag: domain.ArchetypeAbyss, Weight: 0.18, Keywords: []string{
				"abyss", "despair", "darkest", "rock bottom", "hopeless", "void",
			}},
			{Tag: domain.ArchetypeReturn, Weight: -0.10, Keywords: []string{
				"return", "homecoming", "came back", "restored",
			}},
			{Tag: domain.ArchetypeInnocent, Weight: -0.06, Keywords: []string{
				"innocent", "naive", "sheltered", "pure", "childlike",
			}},
			{Tag: domain.ArchetypeWarrior, Weight: 0.06, Keywords: []string{
				"warrior", "soldier", "fighter", "battle", "war", "veteran", "mercenary",
			}},
			{Tag: domain.ArchetypeSage, Weight: -0.09, Keywords: []string{
				"sage", "scholar", "wisdom", "library", "lore", "studied",
			}},
			{Tag: domain.ArchetypeRuler, Weight: -0.07, Keywords: []string{
				"ruler", "king", "queen", "noble", "lord", "lady", "throne", "heir",
			}},
			{Tag: domain.ArchetypeOutlaw, Weight: 0.14, Keywords: []string{
				"outlaw", "criminal", "bandit", "smuggler", "exile", "fugitive", "wanted",
			}},
			{Tag: domain.ArchetypeLover, Weight: 0.04, Keywords: []string{
				"lover", "beloved", "romance", "married", "betrothed", "heartbroken",
			}},
			{Tag: domain.ArchetypeCreator, Weight: -0.05, Keywords: []string{
				"creator", "artisan", "builder", "smith", "crafted", "invented",
			}},
			{Tag: domain.ArchetypeCaregiver, Weight: -0.08, Keywords: []string{
				"caregiver", "healer", "nurse", "protected", "tended", "shepherd",
			}},
			{Tag: domain.ArchetypeHero, Weight: 0.03, Keywords: []string{
				"hero", "champion", "savior", "rescued", "defended",
			}},
		},
	}
}

// Load reads a rules document from path. An empty path returns the defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse rules file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Version != CurrentVersion {
		return fmt.Errorf("unsupported rules version %d (expected %d)", c.Version, CurrentVersion)
	}
	if c.AutoCommitThreshold <= 0 || c.AutoCommitThreshold > 1 {
		return fmt.Errorf("auto_commit_threshold must be in (0,1], got %v", c.AutoCommitThreshold)
	}
	if c.TensionMin >= c.TensionMax {
		return fmt.Errorf("tension bounds inverted: [%v, %v]", c.TensionMin, c.TensionMax)
	}
	if c.ShortCapacity <= 0 || c.MidCapacity <= 0 {
		return fmt.Errorf("layer capacities must be positive")
	}
	for _, ar := range c.Archetypes {
		if !domain.ValidArchetype(string(ar.Tag)) {
			return fmt.Errorf("unknown archetype tag %q in rules", ar.Tag)
		}
		if len(ar.Keywords) == 0 {
			return fmt.Errorf("archetype %q has no keywords", ar.Tag)
		}
	}
	return nil
}

// Equivalent reports whether two normalized values are the same under the
// synonym table.
func (c *Config) Equivalent(a, b string) bool {
	if a == b {
		return true
	}
	return c.canonical(a) == c.canonical(b)
}

func (c *Config) canonical(v string) string {
	for canon, alts := range c.Synonyms {
		if v == canon {
			return canon
		}
		for _, alt := range alts {
			if v == alt {
				return canon
			}
		}
	}
	return v
}

// Exclusive reports whether a field admits only one true value.
func (c *Config) Exclusive(field string) bool {
	for _, f := range c.ExclusiveFields {
		if f == field {
			return true
		}
	}
	return false
}
