package crawler

import (
	"slices"
	"strings"
	"testing"
)

func mustParse(t *testing.T, base, doc string, opts ...ParserOption) *ParseResult {
	t.Helper()

	parser, err := NewParser(base, opts...)
	if err != nil {
		t.Fatalf("failed to create parser: %v", err)
	}
	result, err := parser.Parse(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("failed to parse: %v", err)
	}
	return result
}

// TestParser tests HTML extraction.
func TestParser(t *testing.T) {
	t.Parallel()

	t.Run("extracts title and meta description", func(t *testing.T) {
		t.Parallel()

		doc := `<html><head><title> Acme Corp </title>
			<meta name="description" content="We build rockets.">
			</head><body><svg><title>icon</title></svg></body></html>`

		result := mustParse(t, "https://acme.test/", doc)
		if result.Title != "Acme Corp" {
			t.Errorf("expected title 'Acme Corp', got %q", result.Title)
		}
		if result.MetaDescription != "We build rockets." {
			t.Errorf("unexpected meta description %q", result.MetaDescription)
		}
		if len(result.Text) != 0 {
			t.Errorf("expected titles to stay out of the text, got %q", result.Text)
		}
	})

	t.Run("text skips boilerplate and keeps document order", func(t *testing.T) {
		t.Parallel()

		doc := `<html><head><style>body{color:red}</style><script>var x = 1;</script></head>
			<body>
				<header>Top banner</header>
				<nav>Home | About</nav>
				<h1>Welcome   to Acme</h1>
				<p>First paragraph.</p><p>Second  paragraph.</p>
				<noscript>Enable JS</noscript>
				<footer>Copyright</footer>
			</body></html>`

		result := mustParse(t, "https://acme.test/", doc)
		expected := []string{"Welcome", "to Acme", "First paragraph.", "Second", "paragraph."}
		if !slices.Equal(result.Text, expected) {
			t.Errorf("expected %q, got %q", expected, result.Text)
		}
	})

	t.Run("collects every media reference", func(t *testing.T) {
		t.Parallel()

		doc := `<html><head>
				<link rel="icon" href="/favicon.ico">
				<link rel="stylesheet" href="/site.css">
				<meta property="og:image" content="https://cdn.acme.test/og.png">
			</head><body>
				<header><img src="/img/logo.png" alt="logo"></header>
				<img src="data:image/gif;base64,R0lGOD" data-src="/img/lazy.jpg">
				<img data-lazy-src="/img/lazier.jpg">
				<img data-original="/img/original.webp">
				<div style="background-image: url('/img/hero.jpg'); color: red"></div>
				<svg><image href="/img/inline.png"></image></svg>
				<svg><image xlink:href="/img/xlink.png"></image></svg>
				<object type="image/svg+xml" data="/img/diagram.svg"></object>
				<img src="/img/logo.png">
				<img src="javascript:void(0)">
			</body></html>`

		result := mustParse(t, "https://acme.test/about", doc)
		expected := []string{
			"https://acme.test/img/logo.png",
			"https://acme.test/img/lazy.jpg",
			"https://acme.test/img/lazier.jpg",
			"https://acme.test/img/original.webp",
			"https://acme.test/img/hero.jpg",
			"https://acme.test/img/inline.png",
			"https://acme.test/img/xlink.png",
			"https://acme.test/img/diagram.svg",
			"https://acme.test/favicon.ico",
			"https://cdn.acme.test/og.png",
		}
		if !slices.Equal(result.MediaURLs, expected) {
			t.Errorf("unexpected media:\nexpected %q\ngot      %q", expected, result.MediaURLs)
		}
	})

	t.Run("media filter drops rejected URLs", func(t *testing.T) {
		t.Parallel()

		doc := `<img src="/a.png"><img src="/tracking/pixel.gif">`
		keep := func(u string) bool { return !strings.Contains(u, "/tracking/") }

		result := mustParse(t, "https://acme.test/", doc, WithMediaFilter(keep))
		if !slices.Equal(result.MediaURLs, []string{"https://acme.test/a.png"}) {
			t.Errorf("unexpected media %q", result.MediaURLs)
		}
	})

	t.Run("collects videos and allow-listed embeds", func(t *testing.T) {
		t.Parallel()

		doc := `<video src="/v/intro.mp4"><source src="/v/intro.webm"></video>
			<iframe src="https://www.youtube.com/embed/abc"></iframe>
			<iframe src="//player.vimeo.com/video/1"></iframe>
			<iframe src="https://ads.example.com/frame"></iframe>`

		result := mustParse(t, "https://acme.test/", doc)
		expected := []string{
			"https://acme.test/v/intro.mp4",
			"https://acme.test/v/intro.webm",
			"https://www.youtube.com/embed/abc",
			"https://player.vimeo.com/video/1",
		}
		if !slices.Equal(result.VideoURLs, expected) {
			t.Errorf("unexpected videos:\nexpected %q\ngot      %q", expected, result.VideoURLs)
		}
	})

	t.Run("embed allow-list can be replaced", func(t *testing.T) {
		t.Parallel()

		doc := `<iframe src="https://www.youtube.com/embed/abc"></iframe>
			<iframe src="https://video.acme.test/player/7"></iframe>`

		result := mustParse(t, "https://acme.test/", doc, WithEmbedHosts([]string{"video.acme.test"}))
		if !slices.Equal(result.VideoURLs, []string{"https://video.acme.test/player/7"}) {
			t.Errorf("unexpected videos %q", result.VideoURLs)
		}
	})

	t.Run("links are canonical, in scope and deduplicated", func(t *testing.T) {
		t.Parallel()

		doc := `<a href="/about?ref=nav#team">About</a>
			<a href="https://ACME.test/about">About again</a>
			<a href="contact">Contact</a>
			<a href="https://other.test/">Other</a>
			<a href="mailto:hi@acme.test">Mail</a>
			<a href="#top">Top</a>
			<a href="javascript:void(0)">JS</a>`

		result := mustParse(t, "https://acme.test/company/", doc)
		expected := []string{
			"https://acme.test/about",
			"https://acme.test/company/contact",
		}
		if !slices.Equal(result.Links, expected) {
			t.Errorf("unexpected links:\nexpected %q\ngot      %q", expected, result.Links)
		}
	})

	t.Run("honors base href", func(t *testing.T) {
		t.Parallel()

		doc := `<head><base href="/assets/"></head><body><img src="logo.svg"></body>`

		result := mustParse(t, "https://acme.test/page", doc)
		if !slices.Equal(result.MediaURLs, []string{"https://acme.test/assets/logo.svg"}) {
			t.Errorf("unexpected media %q", result.MediaURLs)
		}
	})

	t.Run("malformed HTML does not fail", func(t *testing.T) {
		t.Parallel()

		result := mustParse(t, "https://acme.test/", `<p>Unclosed <b>bold <a href="/x">link`)
		if len(result.Links) != 1 {
			t.Errorf("expected 1 link, got %v", result.Links)
		}
		if len(result.Text) == 0 {
			t.Error("expected text from malformed document")
		}
	})

	t.Run("invalid base URL", func(t *testing.T) {
		t.Parallel()

		if _, err := NewParser("http://[::1"); err == nil {
			t.Error("expected error for invalid base URL")
		}
	})
}
