package extract

import "regexp"

// Rule is one entry in the ordered extraction table. A rule either carries a
// canonical Value or captures it from the first regexp group. Patterns use
// word boundaries so "elf" never fires inside "self".
type Rule struct {
	Field      string
	Pattern    *regexp.Regexp
	Value      string
	Confidence float64
}

// ruleTable is the full extraction vocabulary, most specific entries first
// within each field. Priority between overlapping matches is decided by
// matched span length, so "Half-Elf" always beats "Elf" on the same text.
var ruleTable = []Rule{
	// Gender
	{Field: "gender", Pattern: reWord(`female|woman|girl`), Value: "Female", Confidence: 0.85},
	{Field: "gender", Pattern: reWord(`male|man|boy`), Value: "Male", Confidence: 0.85},
	{Field: "gender", Pattern: reWord(`she|her|hers|herself`), Value: "Female", Confidence: 0.6},
	{Field: "gender", Pattern: reWord(`he|him|his|himself`), Value: "Male", Confidence: 0.6},
	{Field: "gender", Pattern: reWord(`they|them|nonbinary|non-binary`), Value: "Nonbinary", Confidence: 0.55},

	// Race: multi-word names listed before their substrings.
	{Field: "race", Pattern: reWord(`half[- ]elf`), Value: "Half-Elf", Confidence: 0.9},
	{Field: "race", Pattern: reWord(`half[- ]orc`), Value: "Half-Orc", Confidence: 0.9},
	{Field: "race", Pattern: reWord(`high elf`), Value: "High Elf", Confidence: 0.9},
	{Field: "race", Pattern: reWord(`wood elf`), Value: "Wood Elf", Confidence: 0.9},
	{Field: "race", Pattern: reWord(`dark elf|drow`), Value: "Dark Elf", Confidence: 0.9},
	{Field: "race", Pattern: reWord(`hill dwarf`), Value: "Hill Dwarf", Confidence: 0.9},
	{Field: "race", Pattern: reWord(`mountain dwarf`), Value: "Mountain Dwarf", Confidence: 0.9},
	{Field: "race", Pattern: reWord(`elf|elven|elvish`), Value: "Elf", Confidence: 0.85},
	{Field: "race", Pattern: reWord(`dwarf|dwarven`), Value: "Dwarf", Confidence: 0.85},
	{Field: "race", Pattern: reWord(`human`), Value: "Human", Confidence: 0.85},
	{Field: "race", Pattern: reWord(`halfling`), Value: "Halfling", Confidence: 0.85},
	{Field: "race", Pattern: reWord(`gnome`), Value: "Gnome", Confidence: 0.85},
	{Field: "race", Pattern: reWord(`tiefling`), Value: "Tiefling", Confidence: 0.85},
	{Field: "race", Pattern: reWord(`dragonborn`), Value: "Dragonborn", Confidence: 0.85},
	{Field: "race", Pattern: reWord(`orc|orcish`), Value: "Orc", Confidence: 0.8},

	// Class
	{Field: "class", Pattern: reWord(`barbarian`), Value: "Barbarian", Confidence: 0.85},
	{Field: "class", Pattern: reWord(`bard`), Value: "Bard", Confidence: 0.85},
	{Field: "class", Pattern: reWord(`cleric|priest|priestess`), Value: "Cleric", Confidence: 0.85},
	{Field: "class", Pattern: reWord(`druid`), Value: "Druid", Confidence: 0.85},
	{Field: "class", Pattern: reWord(`fighter`), Value: "Fighter", Confidence: 0.85},
	{Field: "class", Pattern: reWord(`monk`), Value: "Monk", Confidence: 0.85},
	{Field: "class", Pattern: reWord(`paladin`), Value: "Paladin", Confidence: 0.85},
	{Field: "class", Pattern: reWord(`ranger`), Value: "Ranger", Confidence: 0.85},
	{Field: "class", Pattern: reWord(`rogue|thief`), Value: "Rogue", Confidence: 0.85},
	{Field: "class", Pattern: reWord(`sorcerer|sorceress`), Value: "Sorcerer", Confidence: 0.85},
	{Field: "class", Pattern: reWord(`warlock`), Value: "Warlock", Confidence: 0.85},
	{Field: "class", Pattern: reWord(`wizard|mage`), Value: "Wizard", Confidence: 0.85},

	// Name: captured from an explicit naming phrase.
	{Field: "name", Pattern: regexp.MustCompile(`(?i)\b(?:named|called|name is|name's)\s+([A-Z][A-Za-z'-]+)`), Confidence: 0.8},

	// Age: captured number with an age marker.
	{Field: "age", Pattern: regexp.MustCompile(`(?i)\b(\d{1,3})[- ]?(?:years?[- ]old|winters|summers)\b`), Confidence: 0.8},

	// Alignment: two-word forms only; a bare "neutral" is too noisy.
	{Field: "alignment", Pattern: reWord(`lawful good`), Value: "Lawful Good", Confidence: 0.9},
	{Field: "alignment", Pattern: reWord(`lawful neutral`), Value: "Lawful Neutral", Confidence: 0.9},
	{Field: "alignment", Pattern: reWord(`lawful evil`), Value: "Lawful Evil", Confidence: 0.9},
	{Field: "alignment", Pattern: reWord(`neutral good`), Value: "Neutral Good", Confidence: 0.9},
	{Field: "alignment", Pattern: reWord(`true neutral`), Value: "True Neutral", Confidence: 0.9},
	{Field: "alignment", Pattern: reWord(`neutral evil`), Value: "Neutral Evil", Confidence: 0.9},
	{Field: "alignment", Pattern: reWord(`chaotic good`), Value: "Chaotic Good", Confidence: 0.9},
	{Field: "alignment", Pattern: reWord(`chaotic neutral`), Value: "Chaotic Neutral", Confidence: 0.9},
	{Field: "alignment", Pattern: reWord(`chaotic evil`), Value: "Chaotic Evil", Confidence: 0.9},

	// Background: trauma and origin phrases mapped to canonical values.
	{Field: "background", Pattern: regexp.MustCompile(`(?i)\blost\s+(?:his\s+|her\s+|their\s+|my\s+)?(?:family|parents|mother|father|home|village|everything)\b`), Value: "Tragic Loss", Confidence: 0.7},
	{Field: "background", Pattern: reWord(`orphan|orphaned`), Value: "Orphan", Confidence: 0.7},
	{Field: "background", Pattern: reWord(`soldier|veteran|served in the (?:army|war|legion)`), Value: "Soldier", Confidence: 0.65},
	{Field: "background", Pattern: reWord(`noble birth|noble family|nobility|aristocrat`), Value: "Noble", Confidence: 0.65},
	{Field: "background", Pattern: reWord(`street urchin|urchin|grew up on the streets`), Value: "Urchin", Confidence: 0.65},
	{Field: "background", Pattern: reWord(`criminal past|smuggler|outlaw|bandit`), Value: "Criminal", Confidence: 0.6},
	{Field: "background", Pattern: reWord(`sailor|seafarer|ship's crew`), Value: "Sailor", Confidence: 0.6},
	{Field: "background", Pattern: reWord(`hermit|recluse`), Value: "Hermit", Confidence: 0.6},
	{Field: "background", Pattern: reWord(`acolyte|raised in a temple|monastery`), Value: "Acolyte", Confidence: 0.6},
	{Field: "background", Pattern: reWord(`folk hero`), Value: "Folk Hero", Confidence: 0.65},

	// Trait: loose personality markers, kept at low confidence.
	{Field: "trait", Pattern: reWord(`brave|fearless`), Value: "Brave", Confidence: 0.55},
	{Field: "trait", Pattern: reWord(`cautious|careful|wary`), Value: "Cautious", Confidence: 0.55},
	{Field: "trait", Pattern: reWord(`cunning|sly|clever`), Value: "Cunning", Confidence: 0.55},
	{Field: "trait", Pattern: reWord(`kind|gentle|compassionate`), Value: "Kind", Confidence: 0.55},
	{Field: "trait", Pattern: reWord(`vengeful|bitter`), Value: "Vengeful", Confidence: 0.55},
}

func reWord(alts string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)\b(?:` + alts + `)\b`)
}
