package facematch

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// honorifics are dropped from search keys; rosters list "Dr. Meera Iyer" and
// "Meera Iyer" interchangeably.
var honorifics = map[string]struct{}{
	"mr": {}, "mrs": {}, "ms": {}, "miss": {}, "dr": {}, "prof": {}, "sir": {}, "smt": {}, "shri": {},
}

var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// foldName lowercases s and removes combining marks ("Jiří" -> "jiri").
func foldName(s string) string {
	folded, _, err := transform.String(stripMarks, s)
	if err != nil {
		folded = s
	}
	return strings.ToLower(folded)
}

// NormalizePersonName is the search key stored next to a staff name:
// folded to lowercase ASCII where possible, punctuation turned into spaces,
// titles removed and whitespace collapsed.
func NormalizePersonName(name string) string {
	name = strings.Map(func(r rune) rune {
		if r == '-' || r == '.' || r == ',' || r == '\'' {
			return ' '
		}
		return r
	}, foldName(name))

	words := strings.Fields(name)
	kept := words[:0]
	for _, w := range words {
		if _, ok := honorifics[w]; ok && len(words) > 1 {
			continue
		}
		kept = append(kept, w)
	}
	return strings.Join(kept, " ")
}

// NormalizeStaffID canonicalizes staff IDs entered by hand ("ｔ001 " -> "T001").
func NormalizeStaffID(id string) string {
	return strings.ToUpper(strings.TrimSpace(norm.NFKC.String(id)))
}
