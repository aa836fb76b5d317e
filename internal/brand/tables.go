package brand

import "regexp"

// weighted is one category of a keyword scoring table.
type weighted struct {
	label    string
	keywords []string
}

var serviceKeywords = map[string]struct{}{
	"services": {}, "solutions": {}, "products": {}, "offerings": {},
	"consulting": {}, "software": {}, "platform": {}, "tool": {}, "app": {},
	"system": {}, "service": {}, "technology": {}, "development": {},
	"design": {}, "marketing": {}, "analytics": {},
}

// Tables are slices so ties resolve in declaration order.
var toneTable = []weighted{
	{"professional", []string{"professional", "business", "enterprise", "corporate", "industry"}},
	{"friendly", []string{"friendly", "welcoming", "approachable", "personal", "warm"}},
	{"innovative", []string{"innovative", "cutting-edge", "modern", "advanced", "next-generation"}},
	{"reliable", []string{"reliable", "trusted", "secure", "stable", "proven"}},
	{"creative", []string{"creative", "artistic", "unique", "original", "inspiring"}},
	{"casual", []string{"casual", "relaxed", "informal", "easy", "simple"}},
}

var audienceTable = []weighted{
	{"businesses", []string{"business", "company", "corporation", "enterprise", "organization"}},
	{"startups", []string{"startup", "entrepreneur", "founders", "early-stage"}},
	{"developers", []string{"developer", "programmer", "engineer", "technical", "coding"}},
	{"designers", []string{"designer", "creative", "artist", "visual", "graphic"}},
	{"consumers", []string{"customer", "user", "individual", "personal", "consumer"}},
	{"professionals", []string{"professional", "expert", "specialist", "practitioner"}},
}

var (
	noisePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)copyright.*?\d{4}`),
		regexp.MustCompile(`(?i)all rights reserved`),
		regexp.MustCompile(`(?i)privacy policy`),
		regexp.MustCompile(`(?i)terms of service`),
		regexp.MustCompile(`(?i)cookie policy`),
		regexp.MustCompile(`(?i)home\s+about\s+contact`),
		regexp.MustCompile(`(?i)menu\s+toggle`),
		regexp.MustCompile(`(?i)skip to content`),
	}

	whitespaceRegex = regexp.MustCompile(`\s+`)
	sentenceSplit   = regexp.MustCompile(`[.!?]+`)
	wordRegex       = regexp.MustCompile(`\b\w+\b`)

	namePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)welcome to ([A-Z][a-zA-Z\s]{1,40})`),
		regexp.MustCompile(`(?i)about ([A-Z][a-zA-Z\s]{2,20})`),
		regexp.MustCompile(`(?i)^([A-Z][a-zA-Z\s]{2,20})\s+is\s+`),
		regexp.MustCompile(`(?i)([A-Z][a-zA-Z\s]{2,20})\s+helps\s+`),
		regexp.MustCompile(`(?i)at ([A-Z][a-zA-Z\s]{2,20}),?\s+we`),
	}

	taglinePatterns = []*regexp.Regexp{
		regexp.MustCompile(`([A-Z][^.!?]*(?:solution|innovation|future|better|best|leading)[^.!?]*[.!])`),
		regexp.MustCompile(`([A-Z][^.!?]*(?:we help|we make|we create|we build)[^.!?]*[.!])`),
		regexp.MustCompile(`([A-Z][^.!?]*(?:your|our).*?(?:partner|solution|choice)[^.!?]*[.!])`),
	}

	listPatterns = []*regexp.Regexp{
		regexp.MustCompile(`[•*\-]\s*([A-Z][^.!?\n•*\-]*)`),
		regexp.MustCompile(`\d+\.\s*([A-Z][^.!?\n]*)`),
		regexp.MustCompile(`(?i)(?:we offer|we provide|including)[:\s]*([^.!?\n]*)`),
	}

	missionPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)(?:mission|vision|purpose)[:\s]*([^.!?]*[.!?])`),
		regexp.MustCompile(`(?i)(?:we believe|our goal|our mission)[:\s]*([^.!?]*[.!?])`),
		regexp.MustCompile(`(?i)(?:dedicated to|committed to)[:\s]*([^.!?]*[.!?])`),
	}

	hexColorRegex = regexp.MustCompile(`#([0-9A-Fa-f]{6}|[0-9A-Fa-f]{3})\b`)

	fontPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)font-family:\s*["']?([^"';\n}]+)["']?`),
		regexp.MustCompile(`(?i)fontFamily:\s*["']([^"']+)["']`),
		regexp.MustCompile(`(?i)--font-[^:]*:\s*["']?([^"';\n}]+)["']?`),
	}
)

var commonColors = map[string]struct{}{
	"#000000": {}, "#FFFFFF": {}, "#CCCCCC": {}, "#999999": {}, "#666666": {}, "#333333": {},
}

var genericFonts = map[string]struct{}{
	"arial": {}, "helvetica": {}, "sans-serif": {}, "serif": {},
	"monospace": {}, "cursive": {}, "fantasy": {}, "inherit": {},
	"system-ui": {}, "initial": {},
}

// Output caps.
const (
	maxServices = 5
	maxAudience = 3
	maxTones    = 2
	maxColors   = 6
	maxFonts    = 4
)
