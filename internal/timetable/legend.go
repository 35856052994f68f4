package timetable

import (
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/noah-isme/tuition-center-api/internal/models"
)

// NeutralColor is used for abbreviations without a bucket.
const NeutralColor = "bg-gray-100 text-gray-800"

var (
	oneToOneSuffix = regexp.MustCompile(`(?i)\s*[-(]?\s*1\s*(to|-|:)\s*1\s*\)?\s*$`)
	standardToken  = regexp.MustCompile(`^[fs][1-6]$`)
	tokenSplit     = regexp.MustCompile(`[\s\-/(),]+`)
)

// Longer names come first so "matematik tambahan" wins over "matematik".
var knownPrefixes = []struct {
	prefix string
	abbr   string
}{
	{"matematik tambahan", "MT"},
	{"additional mathematics", "MT"},
	{"add maths", "MT"},
	{"matematik", "MM"},
	{"mathematics", "MM"},
	{"maths", "MM"},
	{"kimia", "KIM"},
	{"chemistry", "KIM"},
	{"fizik", "FIZ"},
	{"physics", "FIZ"},
	{"biologi", "BIO"},
	{"biology", "BIO"},
	{"sains", "SN"},
	{"science", "SN"},
	{"sejarah", "SEJ"},
	{"history", "SEJ"},
	{"bahasa malaysia", "BM"},
	{"bahasa melayu", "BM"},
	{"bahasa inggeris", "BI"},
	{"english", "BI"},
	{"bahasa cina", "BC"},
	{"chinese", "BC"},
	{"geografi", "GEO"},
	{"ekonomi", "EKO"},
	{"prinsip perakaunan", "PP"},
	{"perniagaan", "PNG"},
}

var colorBuckets = map[string]string{
	"MM":  "bg-blue-100 text-blue-800",
	"MT":  "bg-indigo-100 text-indigo-800",
	"KIM": "bg-green-100 text-green-800",
	"FIZ": "bg-purple-100 text-purple-800",
	"BIO": "bg-emerald-100 text-emerald-800",
	"SN":  "bg-teal-100 text-teal-800",
	"SEJ": "bg-amber-100 text-amber-800",
	"BM":  "bg-red-100 text-red-800",
	"BI":  "bg-sky-100 text-sky-800",
	"BC":  "bg-rose-100 text-rose-800",
	"GEO": "bg-lime-100 text-lime-800",
	"EKO": "bg-orange-100 text-orange-800",
	"PP":  "bg-yellow-100 text-yellow-800",
	"PNG": "bg-cyan-100 text-cyan-800",
}

// IsDLP reports whether a subject name carries the dual language marker.
func IsDLP(name string) bool {
	return strings.Contains(strings.ToUpper(name), "DLP")
}

// Abbreviate derives a short display code from a free-text subject name.
func Abbreviate(name string) string {
	return abbreviate(name, IsDLP(name))
}

// AbbreviateSubject prefers the base subject field and takes the DLP marker
// from either field.
func AbbreviateSubject(s models.Subject) string {
	source := s.Subject
	if strings.TrimSpace(source) == "" {
		source = s.Name
	}
	return abbreviate(source, IsDLP(s.Name) || IsDLP(s.Subject))
}

func abbreviate(name string, dlp bool) string {
	cleaned := cleanName(name)
	abbr := ""
	for _, kp := range knownPrefixes {
		if strings.HasPrefix(cleaned, kp.prefix) {
			abbr = kp.abbr
			break
		}
	}
	if abbr == "" && cleaned != "" {
		words := strings.Fields(cleaned)
		if len(words) > 1 {
			var b strings.Builder
			for _, w := range words {
				r, _ := utf8.DecodeRuneInString(w)
				b.WriteRune(unicode.ToUpper(r))
			}
			abbr = b.String()
		} else {
			runes := []rune(cleaned)
			if len(runes) > 3 {
				runes = runes[:3]
			}
			abbr = strings.ToUpper(string(runes))
		}
	}
	if dlp {
		abbr += "D"
	}
	return abbr
}

// cleanName lowercases, strips the one-to-one suffix, program markers and
// standard tokens, and collapses whitespace.
func cleanName(name string) string {
	name = oneToOneSuffix.ReplaceAllString(strings.TrimSpace(name), "")
	tokens := tokenSplit.Split(strings.ToLower(name), -1)

	kept := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		switch {
		case tok == "", tok == "dlp", tok == "form":
			continue
		case standardToken.MatchString(tok):
			continue
		}
		kept = append(kept, tok)
	}

	// "BM" is a language marker unless it is the whole name.
	if len(kept) > 1 {
		filtered := kept[:0]
		for _, tok := range kept {
			if tok != "bm" {
				filtered = append(filtered, tok)
			}
		}
		kept = filtered
	}
	return strings.Join(kept, " ")
}

// ColorFor maps an abbreviation to a colour bucket. A trailing DLP "D" is
// ignored when the full abbreviation has no bucket.
func ColorFor(abbr string) string {
	if c, ok := colorBuckets[abbr]; ok {
		return c
	}
	if strings.HasSuffix(abbr, "D") {
		if c, ok := colorBuckets[strings.TrimSuffix(abbr, "D")]; ok {
			return c
		}
	}
	return NeutralColor
}

// LegendEntry describes how a subject is shown on a grid.
type LegendEntry struct {
	Code         string `json:"code"`
	Name         string `json:"name"`
	Type         string `json:"type"`
	Abbreviation string `json:"abbreviation"`
	Color        string `json:"color"`
}

// BuildLegend derives entries for subjects ordered by abbreviation then code.
func BuildLegend(subjects []models.Subject) []LegendEntry {
	out := make([]LegendEntry, 0, len(subjects))
	for _, s := range subjects {
		abbr := AbbreviateSubject(s)
		out = append(out, LegendEntry{
			Code:         s.Code,
			Name:         s.Name,
			Type:         s.Type,
			Abbreviation: abbr,
			Color:        ColorFor(abbr),
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Abbreviation != out[j].Abbreviation {
			return out[i].Abbreviation < out[j].Abbreviation
		}
		return out[i].Code < out[j].Code
	})
	return out
}
