package eval

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/rotisserie/eris"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// accentFolder strips combining diacritical marks so "Café" and "Cafe"
// normalize identically.
var accentFolder = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// NormalizeOptions controls text canonicalization for the EXACT and FUZZY
// comparators.
type NormalizeOptions struct {
	CaseFold    bool
	FoldAccents bool
}

// DefaultNormalize is the canonicalization applied unless a spec overrides it.
var DefaultNormalize = NormalizeOptions{CaseFold: true, FoldAccents: true}

// NormalizeText canonicalizes a string: trims, collapses internal
// whitespace, strips trailing punctuation, and optionally case-folds and
// folds accents.
func NormalizeText(s string, opts NormalizeOptions) string {
	s = strings.TrimSpace(s)
	s = strings.Join(strings.Fields(s), " ")
	s = strings.TrimRight(s, ".,;:!?")

	if opts.FoldAccents {
		if folded, _, err := transform.String(accentFolder, s); err == nil {
			s = folded
		}
	}
	if opts.CaseFold {
		s = strings.ToLower(s)
	}
	return s
}

// currencySymbols are stripped during numeric normalization.
const currencySymbols = "$€£¥₹"

// NormalizeNumber strips currency symbols and thousands separators, unifies
// the decimal representation, and parses the result. Parentheses denote
// negatives ("(100)" -> -100). Non-parseable input fails closed with an
// error; the caller records it as a comparator failure.
func NormalizeNumber(s string) (float64, error) {
	cleaned := strings.TrimSpace(s)
	if cleaned == "" {
		return 0, eris.New("eval: empty numeric value")
	}

	negative := false
	if strings.HasPrefix(cleaned, "(") && strings.HasSuffix(cleaned, ")") {
		negative = true
		cleaned = cleaned[1 : len(cleaned)-1]
	}

	var b strings.Builder
	b.Grow(len(cleaned))
	for _, r := range cleaned {
		switch {
		case r >= '0' && r <= '9', r == '.', r == '-', r == '+':
			b.WriteRune(r)
		case r == ',':
			// Thousands separator. European decimal commas are handled below
			// when no dot is present.
		case strings.ContainsRune(currencySymbols, r), unicode.IsSpace(r):
		default:
			return 0, eris.Errorf("eval: unparseable numeric value %q", s)
		}
	}
	numeric := b.String()

	// "1.234,56" style: a single comma after the last dot with at most two
	// trailing digits is a decimal comma; any dots before it are thousands
	// separators.
	if rebuilt := rebuildWithDecimalComma(cleaned); strings.Count(rebuilt, ",") == 1 {
		ci := strings.LastIndex(rebuilt, ",")
		if ci > strings.LastIndex(rebuilt, ".") && len(rebuilt)-ci-1 <= 2 {
			numeric = strings.Replace(strings.ReplaceAll(rebuilt, ".", ""), ",", ".", 1)
		}
	}

	v, err := strconv.ParseFloat(numeric, 64)
	if err != nil {
		return 0, eris.Wrapf(err, "eval: parse number %q", s)
	}
	if negative {
		v = -v
	}
	return v, nil
}

// rebuildWithDecimalComma re-filters the raw string keeping the comma so it
// can be swapped for a decimal point.
func rebuildWithDecimalComma(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9', r == '.', r == '-', r == '+', r == ',':
			b.WriteRune(r)
		}
	}
	return b.String()
}
