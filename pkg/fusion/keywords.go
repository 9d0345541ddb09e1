package fusion

import "strings"

// Target-class keyword tables, one per source. Labels are matched against
// these with MatchesTarget; nothing else in the engine decides what counts
// as a cat.
var (
	visualKeywords = []string{
		"cat", "cats", "domestic_cat", "persian_cat", "siamese_cat",
		"tabby_cat", "kitten", "feline",
	}

	acousticKeywords = []string{
		"cat", "meow", "purr", "purring", "mew", "mewing", "feline",
		"cat_vocalization",
	}
)

// MatchesTarget reports whether a classifier label names the target class for
// the given source.
//
// Matching is case-insensitive and delimiter-aware: the label is lowercased
// and every run of non-alphanumeric characters collapses to an underscore, so
// "Domestic Cat", "domestic-cat" and "domestic_cat" all match. A keyword must
// appear as a whole delimited token ("tomcategory" does not match "cat").
func MatchesTarget(source Source, label string) bool {
	keywords := visualKeywords
	if source == SourceAcoustic {
		keywords = acousticKeywords
	}

	norm := "_" + normalizeLabel(label) + "_"
	for _, kw := range keywords {
		if strings.Contains(norm, "_"+kw+"_") {
			return true
		}
	}
	return false
}

// normalizeLabel lowercases a label and collapses non-alphanumeric runs to
// single underscores.
func normalizeLabel(label string) string {
	var b strings.Builder
	b.Grow(len(label))

	lastUnderscore := true // suppress a leading separator
	for _, r := range strings.ToLower(label) {
		alnum := (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9')
		if alnum {
			b.WriteRune(r)
			lastUnderscore = false
		} else if !lastUnderscore {
			b.WriteByte('_')
			lastUnderscore = true
		}
	}

	return strings.TrimSuffix(b.String(), "_")
}
