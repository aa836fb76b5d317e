package brand

import (
	"fmt"
	"io"
	"strings"

	"github.com/nao1215/markdown"

	"github.com/nao1215/brandscan/internal/model"
)

const notDetected = "_Not detected_"

// Render writes brief as a Markdown document titled after domain.
func Render(w io.Writer, brief *model.BrandBrief, domain string) error {
	if brief == nil {
		brief = &model.BrandBrief{}
	}
	md := markdown.NewMarkdown(w)

	md.H1("Brand Brief")
	md.PlainText("")
	if domain != "" {
		md.PlainTextf("Generated from the website content of `%s`.", domain)
		md.PlainText("")
	}

	md.H2("Brand Identity")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Field", "Value"},
		Rows: [][]string{
			{"Brand Name", orPlaceholder(brief.Name)},
			{"Tagline", orPlaceholder(brief.Tagline)},
		},
	})
	md.PlainText("")

	md.H2("Mission Statement")
	md.PlainText("")
	md.PlainText(orPlaceholder(brief.Mission))
	md.PlainText("")

	md.H2("Products/Services")
	md.PlainText("")
	writeList(md, brief.Services, true)

	md.H2("Target Audience")
	md.PlainText("")
	writeList(md, brief.Audience, false)

	md.H2("Brand Tone")
	md.PlainText("")
	md.PlainText(orPlaceholder(strings.Join(brief.Tone, ", ")))
	md.PlainText("")

	writeVisualIdentity(md, brief)

	if summary := summarize(brief); summary != "" {
		md.H2("Brand Summary")
		md.PlainText("")
		md.PlainText(summary)
		md.PlainText("")
	}

	md.HorizontalRule()
	md.PlainText("")
	md.PlainText("*This brand brief was generated automatically from website content analysis.*")

	return md.Build()
}

func writeVisualIdentity(md *markdown.Markdown, brief *model.BrandBrief) {
	md.H2("Visual Identity")
	md.PlainText("")

	primary, secondary := brief.Colors, []string(nil)
	if len(primary) > 2 {
		primary, secondary = brief.Colors[:2], brief.Colors[2:]
	}

	md.H3("Primary Colors")
	md.PlainText("")
	writeList(md, labeled("Primary Color", primary), false)

	md.H3("Secondary Colors")
	md.PlainText("")
	writeList(md, labeled("Secondary Color", secondary), false)

	md.H3("Typography")
	md.PlainText("")
	writeList(md, labeled("Font", brief.Fonts), false)
}

func writeList(md *markdown.Markdown, items []string, ordered bool) {
	switch {
	case len(items) == 0:
		md.PlainText(notDetected)
	case ordered:
		md.OrderedList(items...)
	default:
		md.BulletList(items...)
	}
	md.PlainText("")
}

func labeled(label string, values []string) []string {
	out := make([]string, 0, len(values))
	for i, v := range values {
		out = append(out, fmt.Sprintf("%s %d: `%s`", label, i+1, v))
	}
	return out
}

// summarize builds the closing paragraph from whatever was inferred.
func summarize(brief *model.BrandBrief) string {
	if brief.Name == "" {
		return ""
	}

	var b strings.Builder
	b.WriteString(brief.Name)
	if len(brief.Tone) > 0 {
		fmt.Fprintf(&b, " is a %s brand", strings.ToLower(brief.Tone[0]))
	} else {
		b.WriteString(" is a brand")
	}
	if len(brief.Audience) > 0 {
		fmt.Fprintf(&b, " that serves %s", strings.ToLower(strings.Join(brief.Audience, ", ")))
	}
	b.WriteString(".")
	if len(brief.Services) > 0 {
		fmt.Fprintf(&b, " It focuses on %s.", strings.ToLower(strings.Join(firstN(brief.Services, 3), ", ")))
	}
	return b.String()
}

func orPlaceholder(s string) string {
	if s == "" {
		return notDetected
	}
	return s
}
