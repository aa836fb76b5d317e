package brand

import (
	"bytes"
	"cmp"
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/nao1215/brandscan/internal/model"
)

// Analyze infers a brand brief from text chunks.
func Analyze(text []string) *model.BrandBrief {
	return analyze(text, "")
}

// AnalyzeCrawl infers a brand brief from a crawl. Text fields come from the
// crawl's text chunks, colors and fonts also from the styles of every page.
func AnalyzeCrawl(result *model.CrawlResult) *model.BrandBrief {
	if result == nil {
		return &model.BrandBrief{}
	}

	var styles strings.Builder
	for _, page := range result.OrderedPages() {
		styles.WriteString(styleSource(page.HTML))
		styles.WriteByte('\n')
	}
	return analyze(result.Text, styles.String())
}

func analyze(chunks []string, styles string) *model.BrandBrief {
	full := strings.Join(chunks, " ")
	clean := cleanText(full)
	source := full + "\n" + styles

	return &model.BrandBrief{
		Name:     extractName(clean),
		Tagline:  extractTagline(clean),
		Mission:  extractMission(clean),
		Services: extractServices(clean),
		Audience: rank(clean, audienceTable, maxAudience),
		Tone:     rank(clean, toneTable, maxTones),
		Colors:   extractColors(source),
		Fonts:    extractFonts(source),
	}
}

// styleSource returns the <style> blocks and inline style attributes of
// an HTML document.
func styleSource(html []byte) string {
	if len(html) == 0 {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return ""
	}

	var b strings.Builder
	doc.Find("style").Each(func(_ int, s *goquery.Selection) {
		b.WriteString(s.Text())
		b.WriteByte('\n')
	})
	doc.Find("[style]").Each(func(_ int, s *goquery.Selection) {
		style, _ := s.Attr("style")
		b.WriteString(style)
		b.WriteString(";\n")
	})
	return b.String()
}

func cleanText(text string) string {
	text = whitespaceRegex.ReplaceAllString(text, " ")
	for _, re := range noisePatterns {
		text = re.ReplaceAllString(text, "")
	}
	return strings.TrimSpace(whitespaceRegex.ReplaceAllString(text, " "))
}

func extractName(text string) string {
	for _, re := range namePatterns {
		var candidates []string
		for _, m := range re.FindAllStringSubmatch(text, -1) {
			if name := leadingCapitalized(m[1]); name != "" {
				candidates = append(candidates, name)
			}
		}
		if name := mostCommon(candidates); name != "" {
			return name
		}
	}

	words := strings.Fields(text)
	if len(words) > 50 {
		words = words[:50]
	}
	for _, w := range words {
		w = strings.TrimFunc(w, unicode.IsPunct)
		r, _ := utf8.DecodeRuneInString(w)
		if unicode.IsUpper(r) && utf8.RuneCountInString(w) > 2 {
			return w
		}
	}
	return ""
}

// leadingCapitalized keeps the leading run of capitalized words, so
// "Acme Corp and friends" becomes "Acme Corp".
func leadingCapitalized(s string) string {
	var kept []string
	for _, w := range strings.Fields(s) {
		r, _ := utf8.DecodeRuneInString(w)
		if !unicode.IsUpper(r) {
			break
		}
		kept = append(kept, w)
	}
	return strings.Join(kept, " ")
}

// mostCommon returns the most frequent value, the first seen on ties.
func mostCommon(values []string) string {
	counts := make(map[string]int, len(values))
	best, bestCount := "", 0
	for _, v := range values {
		counts[v]++
	}
	for _, v := range values {
		if counts[v] > bestCount {
			best, bestCount = v, counts[v]
		}
	}
	return best
}

func extractTagline(text string) string {
	for _, re := range taglinePatterns {
		best := ""
		for _, m := range re.FindAllStringSubmatch(text, -1) {
			s := strings.TrimSpace(m[1])
			if len(s) <= 10 || len(s) >= 100 {
				continue
			}
			if best == "" || len(s) < len(best) {
				best = s
			}
		}
		if best != "" {
			return best
		}
	}

	sentences := sentenceSplit.Split(text, -1)
	if len(sentences) > 20 {
		sentences = sentences[:20]
	}
	for _, s := range sentences {
		lower := strings.ToLower(s)
		if !containsAny(lower, "mission", "vision", "believe") {
			continue
		}
		if s = strings.TrimSpace(s); len(s) > 10 && len(s) < 150 {
			return s
		}
	}
	return ""
}

func extractMission(text string) string {
	for _, re := range missionPatterns {
		for _, m := range re.FindAllStringSubmatch(text, -1) {
			if s := strings.TrimSpace(m[1]); len(s) > 20 && len(s) < 200 {
				return s
			}
		}
	}

	for _, s := range sentenceSplit.Split(text, -1) {
		if !containsAny(strings.ToLower(s), "we help", "we provide", "we create", "we build") {
			continue
		}
		if s = strings.TrimSpace(s); len(s) > 20 && len(s) < 150 {
			return s + "."
		}
	}
	return ""
}

func extractServices(text string) []string {
	var services []string

	for _, wc := range topWords(wordRegex.FindAllString(strings.ToLower(text), -1), 50) {
		if _, ok := serviceKeywords[wc.word]; ok && wc.count > 2 {
			services = append(services, titleCase(wc.word))
		}
	}

	for _, re := range listPatterns {
		for _, m := range re.FindAllStringSubmatch(text, -1) {
			if s := strings.TrimSpace(m[1]); len(s) > 5 && len(s) < 50 {
				services = append(services, s)
			}
		}
	}

	return firstN(dedupe(services), maxServices)
}

type wordCount struct {
	word  string
	count int
}

// topWords returns the n most frequent words, earlier words first on ties.
func topWords(words []string, n int) []wordCount {
	index := make(map[string]int)
	var counts []wordCount
	for _, w := range words {
		if j, ok := index[w]; ok {
			counts[j].count++
			continue
		}
		index[w] = len(counts)
		counts = append(counts, wordCount{word: w, count: 1})
	}
	slices.SortStableFunc(counts, func(a, b wordCount) int {
		return cmp.Compare(b.count, a.count)
	})
	return firstN(counts, n)
}

// rank scores every table entry by keyword occurrences and returns the
// labels of the n best, title cased.
func rank(text string, table []weighted, n int) []string {
	lower := strings.ToLower(text)

	type scored struct {
		label string
		score int
	}
	var scores []scored
	for _, entry := range table {
		total := 0
		for _, kw := range entry.keywords {
			total += strings.Count(lower, kw)
		}
		if total > 0 {
			scores = append(scores, scored{entry.label, total})
		}
	}
	slices.SortStableFunc(scores, func(a, b scored) int {
		return cmp.Compare(b.score, a.score)
	})

	var labels []string
	for _, s := range firstN(scores, n) {
		labels = append(labels, titleCase(s.label))
	}
	return labels
}

func extractColors(text string) []string {
	var colors []string
	seen := make(map[string]struct{})
	for _, m := range hexColorRegex.FindAllStringSubmatch(text, -1) {
		hex := strings.ToUpper(m[1])
		if len(hex) == 3 {
			hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
		}
		color := "#" + hex
		if _, ok := seen[color]; ok {
			continue
		}
		seen[color] = struct{}{}
		if _, ok := commonColors[color]; ok {
			continue
		}
		colors = append(colors, color)
	}
	return firstN(colors, maxColors)
}

var quoteStripper = strings.NewReplacer(`"`, "", `'`, "")

func extractFonts(text string) []string {
	var fonts []string
	for _, re := range fontPatterns {
		for _, m := range re.FindAllStringSubmatch(text, -1) {
			font := quoteStripper.Replace(strings.TrimSpace(m[1]))
			font, _, _ = strings.Cut(font, ",")
			font = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(font), "!important"))
			if len(font) <= 2 || strings.HasPrefix(font, "var(") {
				continue
			}
			if _, generic := genericFonts[strings.ToLower(font)]; generic {
				continue
			}
			if !slices.Contains(fonts, font) {
				fonts = append(fonts, font)
			}
		}
	}
	return firstN(fonts, maxFonts)
}

func titleCase(s string) string {
	// A Caser keeps state, so each call gets its own.
	return cases.Title(language.English).String(s)
}

func containsAny(s string, substrs ...string) bool {
	for _, sub := range substrs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func dedupe(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

func firstN[T any](values []T, n int) []T {
	if len(values) > n {
		return values[:n]
	}
	return values
}
