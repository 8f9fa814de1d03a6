package domain

import (
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// RuleMode says what a matching rule rewrites.
type RuleMode int

const (
	// ReplaceMatch substitutes every match of the pattern in place.
	ReplaceMatch RuleMode = iota
	// ReplaceWhole discards the input and returns the replacement as the
	// entire location.
	ReplaceWhole
)

// Rule is one entry of a rewrite table. Patterns are matched case-insensitively.
type Rule struct {
	Pattern     string
	Replacement string
	Mode        RuleMode
}

// NormalizerConfig holds the rule tables for LocationNormalizer.
type NormalizerConfig struct {
	// NoiseTokens are whole words removed outright.
	NoiseTokens []string
	// Overrides resolve highly ambiguous fragments. Evaluated before
	// Expansions; the first matching override is applied and the rest skipped.
	Overrides []Rule
	// Expansions are applied top to bottom, each to the output of the previous.
	Expansions []Rule
	// IslandGroups are extracted into their own trailing component.
	IslandGroups []string
	// Country is stripped wherever it appears and re-appended once.
	Country string
}

// DefaultNormalizerConfig returns the Philippine rule tables.
func DefaultNormalizerConfig() NormalizerConfig {
	return NormalizerConfig{
		NoiseTokens: []string{"tia", "ptpa", "sdo"},
		Overrides: []Rule{
			{Pattern: `\bnaval\b`, Replacement: "Naval, Santa Rosa, Laguna", Mode: ReplaceWhole},
			{Pattern: `\bcamp\s?1\b`, Replacement: "Camp 1, Tuba, Benguet", Mode: ReplaceWhole},
			{Pattern: `\bpio\s?v\s?corpu[sz]\b`, Replacement: "Pio V Corpuz", Mode: ReplaceWhole},
		},
		Expansions: []Rule{
			// Cities and places.
			{Pattern: `\bppc\b`, Replacement: "Puerto Princesa City"},
			{Pattern: `\bsjdm\b`, Replacement: "San Jose Del Monte"},
			{Pattern: `\bcdo\b`, Replacement: "Cagayan De Oro"},
			{Pattern: `\bcmu\b`, Replacement: "Central Mindanao University"},

			// Provinces and regions.
			{Pattern: `\bne\b`, Replacement: "Nueva Ecija"},
			{Pattern: `\bddo\b`, Replacement: "Davao de Oro"},
			{Pattern: `\bdav\s?sur\b`, Replacement: "Davao Del Sur"},
			{Pattern: `\bdavao\s?or\b`, Replacement: "Davao Oriental"},
			{Pattern: `\bzambo\s?norte\b`, Replacement: "Zamboanga Del Norte"},
			{Pattern: `\bzambo\b`, Replacement: "Zamboanga"},
			{Pattern: `\bzsp\b`, Replacement: "Zamboanga Sibugay"},
			{Pattern: `\bcam\s?sur\b`, Replacement: "Camarines Sur"},
			{Pattern: `\bcam\s?norte\b`, Replacement: "Camarines Norte"},
			{Pattern: `\bmp\b`, Replacement: "Mountain Province"},
			{Pattern: `\b(?:nueva\s+)?vi[sz]caya\b`, Replacement: "Nueva Vizcaya"},

			// Abbreviations.
			{Pattern: `\bmt\b`, Replacement: "Mountain"},
			{Pattern: `\bprov\b`, Replacement: "Province"},
			{Pattern: `\bsta\b`, Replacement: "Santa"},
			{Pattern: `\bsto\b`, Replacement: "Santo"},
			{Pattern: `\bst\b`, Replacement: "Saint"},
			{Pattern: `\bbrg[ya]\b`, Replacement: "Barangay"},
			{Pattern: `\bdrt\b`, Replacement: "Dona Remedios Trinidad"},
			{Pattern: `\brnsat\b`, Replacement: "Rizal National School of Arts and Trades"},

			// "gen" expansions, most specific first.
			{Pattern: `\bgov\s*gen(?:eral)?\b`, Replacement: "Governor Generoso"},
			{Pattern: `\bgen\s?tri\b`, Replacement: "General Trias"},
			{Pattern: `\bgensan\s+conel\b`, Replacement: "Barangay Conel, General Santos"},
			{Pattern: `\bgensan\b`, Replacement: "General Santos"},
			{Pattern: `\bgen\b`, Replacement: "General"},
		},
		IslandGroups: []string{"Luzon", "Visayas", "Mindanao"},
		Country:      "Philippines",
	}
}

var (
	// placeholderRe matches inputs made only of whitespace and punctuation ("-", ".", "").
	placeholderRe = regexp.MustCompile(`^[\s\-.,/;]*$`)

	// acronymRe matches dotted initialisms such as "N.E." so they collapse to "NE".
	acronymRe = regexp.MustCompile(`\b(?:\pL\.){2,}`)

	spaceRe = regexp.MustCompile(`\s+`)

	provinceOfRe = regexp.MustCompile(`(?i)\bprovince\s+of\s+([\pL\s]+)`)

	zipRe = regexp.MustCompile(`\b\d{4}\b`)

	cityInfixRe  = regexp.MustCompile(`(?i)\b(?:city|cty)\s+`)
	citySuffixRe = regexp.MustCompile(`(?i)\b(?:city|cty)\b`)
)

type compiledRule struct {
	re   *regexp.Regexp
	repl string
	mode RuleMode
}

type islandMatcher struct {
	name    string
	segment *regexp.Regexp // the whole comma-separated component
	suffix  *regexp.Regexp // trailing word of the final component
}

// LocationNormalizer canonicalizes free-text Philippine locations into
// geocoder-friendly addresses. Output depends only on the input and the rule
// tables; an empty result means the input is unusable.
type LocationNormalizer struct {
	country    string
	countryRe  *regexp.Regexp
	noise      *regexp.Regexp
	overrides  []compiledRule
	expansions []compiledRule
	islands    []islandMatcher
}

// NewLocationNormalizer compiles the rule tables. It fails if any pattern is invalid.
func NewLocationNormalizer(cfg NormalizerConfig) (*LocationNormalizer, error) {
	n := &LocationNormalizer{country: cfg.Country}

	if cfg.Country != "" {
		n.countryRe = regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(cfg.Country) + `\b`)
	}
	if len(cfg.NoiseTokens) > 0 {
		quoted := make([]string, len(cfg.NoiseTokens))
		for i, t := range cfg.NoiseTokens {
			quoted[i] = regexp.QuoteMeta(t)
		}
		n.noise = regexp.MustCompile(`(?i)\b(?:` + strings.Join(quoted, "|") + `)\b`)
	}

	var err error
	if n.overrides, err = compileRules(cfg.Overrides); err != nil {
		return nil, fmt.Errorf("compile overrides: %w", err)
	}
	if n.expansions, err = compileRules(cfg.Expansions); err != nil {
		return nil, fmt.Errorf("compile expansions: %w", err)
	}

	for _, ig := range cfg.IslandGroups {
		q := regexp.QuoteMeta(ig)
		n.islands = append(n.islands, islandMatcher{
			name:    ig,
			segment: regexp.MustCompile(`(?i)^` + q + `$`),
			suffix:  regexp.MustCompile(`(?i)\s+` + q + `$`),
		})
	}
	return n, nil
}

// MustLocationNormalizer is NewLocationNormalizer for static tables.
func MustLocationNormalizer(cfg NormalizerConfig) *LocationNormalizer {
	n, err := NewLocationNormalizer(cfg)
	if err != nil {
		panic(err)
	}
	return n
}

func compileRules(rules []Rule) ([]compiledRule, error) {
	out := make([]compiledRule, 0, len(rules))
	for _, r := range rules {
		re, err := regexp.Compile(`(?i)` + r.Pattern)
		if err != nil {
			return nil, fmt.Errorf("pattern %q: %w", r.Pattern, err)
		}
		out = append(out, compiledRule{re: re, repl: r.Replacement, mode: r.Mode})
	}
	return out, nil
}

func (r compiledRule) apply(s string) (string, bool) {
	if !r.re.MatchString(s) {
		return s, false
	}
	if r.mode == ReplaceWhole {
		return r.repl, true
	}
	return r.re.ReplaceAllLiteralString(s, r.repl), true
}

// Normalize returns the canonical form of raw, or "" when raw is unusable.
func (n *LocationNormalizer) Normalize(raw string) string {
	loc := strings.TrimSpace(norm.NFC.String(raw))
	if placeholderRe.MatchString(loc) {
		return ""
	}

	// Abbreviation periods: "N.E." -> "NE", "Sta." -> "Sta".
	loc = acronymRe.ReplaceAllStringFunc(loc, func(m string) string {
		return strings.ReplaceAll(m, ".", "")
	})
	loc = strings.ReplaceAll(loc, ".", " ")
	loc = spaceRe.ReplaceAllString(loc, " ")

	if n.noise != nil {
		loc = n.noise.ReplaceAllString(loc, "")
	}
	if n.countryRe != nil {
		loc = n.countryRe.ReplaceAllString(loc, "")
	}
	loc = provinceOfRe.ReplaceAllString(loc, "${1} Province")

	for _, r := range n.overrides {
		var ok bool
		if loc, ok = r.apply(loc); ok {
			break
		}
	}
	for _, r := range n.expansions {
		loc, _ = r.apply(loc)
	}

	zip := zipRe.FindString(loc)
	if zip != "" {
		loc = zipRe.ReplaceAllString(loc, "")
	}

	loc = cityInfixRe.ReplaceAllString(loc, ", ")
	loc = citySuffixRe.ReplaceAllString(loc, "")

	segments, island := n.extractIsland(splitSegments(loc))
	if len(segments) == 0 {
		return ""
	}

	parts := segments
	if island != "" {
		parts = append(parts, island)
	}
	if n.country != "" {
		parts = append(parts, n.country)
	}
	out := strings.Join(parts, ", ")
	if zip != "" {
		out += " " + zip
	}
	return out
}

// splitSegments splits on commas, trims stray punctuation and whitespace, and
// drops empty components.
func splitSegments(loc string) []string {
	raw := strings.Split(loc, ",")
	out := make([]string, 0, len(raw))
	for _, seg := range raw {
		seg = spaceRe.ReplaceAllString(seg, " ")
		seg = strings.Trim(seg, " -;/")
		if seg != "" {
			out = append(out, seg)
		}
	}
	return out
}

// extractIsland removes island-group tokens that stand as their own
// component or end the final component, repeating until the final component
// no longer ends in one. When several are present the one nearest the end of
// the text wins. Tokens embedded in longer names ("Central Mindanao
// University") are left alone.
func (n *LocationNormalizer) extractIsland(segments []string) ([]string, string) {
	var island string
	bestSeg, bestPos := -1, -1
	found := func(name string, seg, pos int) {
		if seg > bestSeg || (seg == bestSeg && pos > bestPos) {
			island, bestSeg, bestPos = name, seg, pos
		}
	}

	type segment struct {
		text  string
		index int
	}
	kept := make([]segment, 0, len(segments))
	for i, seg := range segments {
		if m, ok := n.wholeIsland(seg); ok {
			found(m.name, i, 0)
			continue
		}
		kept = append(kept, segment{seg, i})
	}

	for len(kept) > 0 {
		last := &kept[len(kept)-1]
		if m, ok := n.wholeIsland(last.text); ok {
			found(m.name, last.index, 0)
			kept = kept[:len(kept)-1]
			continue
		}
		stripped := false
		for _, m := range n.islands {
			if loc := m.suffix.FindStringIndex(last.text); loc != nil {
				found(m.name, last.index, loc[0]+1)
				last.text = strings.TrimSpace(last.text[:loc[0]])
				stripped = true
				break
			}
		}
		if !stripped {
			break
		}
		if last.text == "" {
			kept = kept[:len(kept)-1]
		}
	}

	out := make([]string, len(kept))
	for i, k := range kept {
		out[i] = k.text
	}
	return out, island
}

func (n *LocationNormalizer) wholeIsland(seg string) (islandMatcher, bool) {
	for _, m := range n.islands {
		if m.segment.MatchString(seg) {
			return m, true
		}
	}
	return islandMatcher{}, false
}
