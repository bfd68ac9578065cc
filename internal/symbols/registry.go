package symbols

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strconv"
	"strings"
)

// MaxSymbolLength bounds every generated ticker, collision suffix included.
const MaxSymbolLength = 16

// curatedSymbols maps normalized series and character names to their fixed tickers.
var curatedSymbols = map[string]string{
	// Spider-Man
	"amazing spider-man":       "ASM",
	"spectacular spider-man":   "SPEC",
	"ultimate spider-man":      "USM",
	"spider-man":               "SM",
	"spider-man miles morales": "SMM",
	"spider-gwen":              "SGW",
	"venom":                    "VNM",
	// Batman
	"batman":           "BAT",
	"detective comics": "DET",
	"batman and robin": "BR",
	"dark knight":      "DK",
	"batgirl":          "BG",
	"nightwing":        "NW",
	"robin":            "ROB",
	// Superman
	"superman":      "SUP",
	"action comics": "ACT",
	"man of steel":  "MOS",
	"supergirl":     "SG",
	"superboy":      "SB",
	// X-Men
	"uncanny x-men":     "UXM",
	"x-men":             "XM",
	"astonishing x-men": "AXM",
	"new x-men":         "NXM",
	"x-force":           "XF",
	"wolverine":         "WLV",
	"deadpool":          "DP",
	// Avengers
	"avengers":        "AVG",
	"new avengers":    "NAV",
	"mighty avengers": "MAV",
	"iron man":        "IM",
	"captain america": "CAP",
	"thor":            "THR",
	"hulk":            "HLK",
	"black widow":     "BW",
	"hawkeye":         "HE",
	// Justice League
	"justice league": "JL",
	"wonder woman":   "WW",
	"flash":          "FLH",
	"green lantern":  "GL",
	"aquaman":        "AQM",
	// Others
	"fantastic four": "FF",
	"daredevil":      "DD",
	"punisher":       "PUN",
	"spawn":          "SPN",
	"walking dead":   "TWD",
	"saga":           "SAG",
	"invincible":     "INV",
}

var (
	variantRE       = regexp.MustCompile(`\(([^)]+)\)`)
	variantStripRE  = regexp.MustCompile(`\s*\([^)]+\)`)
	normalizeDropRE = regexp.MustCompile(`[^\w\s-]`)
	whitespaceRE    = regexp.MustCompile(`\s+`)
)

// Registry builds deterministic tickers. It holds no mutable state and is
// safe for concurrent use.
type Registry struct {
	curated map[string]string
}

type Option func(*Registry)

// WithCurated adds or overrides curated tickers. Keys are normalized.
func WithCurated(extra map[string]string) Option {
	return func(r *Registry) {
		for name, sym := range extra {
			if code := sanitize(sym); code != "" {
				r.curated[Normalize(name)] = code
			}
		}
	}
}

func New(opts ...Option) *Registry {
	r := &Registry{curated: make(map[string]string, len(curatedSymbols))}
	for k, v := range curatedSymbols {
		r.curated[k] = v
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Normalize lowercases name, drops punctuation other than hyphens and
// collapses whitespace.
func Normalize(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = normalizeDropRE.ReplaceAllString(s, "")
	s = whitespaceRE.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// CoreSymbol returns the curated ticker for name, or a curated base plus a
// two-letter variant code for names like "Batman (Beyond)", or an
// abbreviation of at most maxLength characters.
// Curated tickers are returned whole even when longer than maxLength.
func (r *Registry) CoreSymbol(name string, maxLength int) string {
	if code, ok := r.curated[Normalize(name)]; ok {
		return code
	}

	base := name
	m := variantRE.FindStringSubmatch(name)
	if m != nil {
		loc := variantStripRE.FindStringIndex(name)
		base = strings.TrimSpace(name[:loc[0]] + name[loc[1]:])
	}
	if code, ok := r.curated[Normalize(base)]; ok {
		if m != nil {
			return truncate(code+Abbreviate(m[1], 2), maxLength)
		}
		return code
	}
	return Abbreviate(base, maxLength)
}

// Abbreviate compresses name to at most maxLength characters of [A-Z0-9]:
// a single word is truncated, several words become an acronym when it fits,
// otherwise the leading word keeps a prefix and the rest contribute initials.
func Abbreviate(name string, maxLength int) string {
	words := strings.Fields(upperAlnumSpace(name))
	switch len(words) {
	case 0:
		return HashToCode(name, maxLength)
	case 1:
		return truncate(words[0], maxLength)
	}

	var acronym strings.Builder
	for _, w := range words {
		acronym.WriteByte(w[0])
	}
	if n := acronym.Len(); n >= 2 && n <= maxLength {
		return acronym.String()
	}

	first := truncate(words[0], max(2, maxLength-(len(words)-1)))
	initials := acronym.String()[1:]
	return truncate(first+initials, maxLength)
}

// HashToCode is a stable base-36 code derived from the SHA-256 of input.
func HashToCode(input string, length int) string {
	sum := sha256.Sum256([]byte(input))
	prefix := hex.EncodeToString(sum[:4])
	n, _ := strconv.ParseUint(prefix, 16, 64)
	return truncate(strings.ToUpper(strconv.FormatUint(n, 36)), length)
}

// upperAlnumSpace upper-cases s and keeps only ASCII letters, digits and whitespace.
func upperAlnumSpace(s string) string {
	var b strings.Builder
	for _, c := range strings.ToUpper(s) {
		switch {
		case c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
			b.WriteRune(c)
		case c == ' ', c == '\t', c == '\n', c == '\r':
			b.WriteRune(' ')
		}
	}
	return b.String()
}

// sanitize upper-cases s and keeps only ASCII letters and digits.
func sanitize(s string) string {
	return strings.ReplaceAll(upperAlnumSpace(s), " ", "")
}

func truncate(s string, n int) string {
	if n < 0 {
		n = 0
	}
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// clip enforces MaxSymbolLength without leaving a dangling separator.
func clip(s string) string {
	if len(s) <= MaxSymbolLength {
		return s
	}
	return strings.TrimRight(s[:MaxSymbolLength], ".")
}
