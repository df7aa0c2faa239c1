package links

import (
	"strings"
	"testing"
)

func TestExtractFiltersByPathPattern(t *testing.T) {
	t.Parallel()

	html := `<a href="/ai/launch-1">X</a><a href="/other/y">Y</a>`
	got := Extract(html, "https://x.com", []string{"/ai/"})

	if len(got) != 1 {
		t.Fatalf("expected 1 link, got %d: %v", len(got), got)
	}
	if _, ok := got["https://x.com/ai/launch-1"]; !ok {
		t.Fatalf("expected https://x.com/ai/launch-1 in %v", got)
	}
}

func TestExtractResolvesRelativeAndStripsFragments(t *testing.T) {
	t.Parallel()

	html := `
	<a href="./2026/01/story">rel</a>
	<a href="../2026/02/story">dotdot</a>
	<a href="https://x.com/2026/03/story#comments">frag</a>
	<a href="mailto:tips@x.com">mail</a>
	<a href="javascript:void(0)">js</a>`

	got := Extract(html, "https://x.com/tag/ai/", []string{"/2026/"})

	want := []string{
		"https://x.com/tag/ai/2026/01/story",
		"https://x.com/tag/2026/02/story",
		"https://x.com/2026/03/story",
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d links, got %d: %v", len(want), len(got), got)
	}
	for _, w := range want {
		if _, ok := got[w]; !ok {
			t.Errorf("missing %s in %v", w, got)
		}
	}
}

func TestExtractDeduplicates(t *testing.T) {
	t.Parallel()

	html := strings.Repeat(`<a href="/ai/same">dup</a>`, 5)
	got := Extract(html, "https://x.com", []string{"/ai/"})
	if len(got) != 1 {
		t.Fatalf("expected 1 unique link, got %d", len(got))
	}
}

func TestExtractNeverFailsOnMalformedHTML(t *testing.T) {
	t.Parallel()

	cases := []string{
		"",
		"<<<<>>>>",
		`<a href="/ai/x`,
		`<a href="/ai/ok"><div></a></p><a href=`,
		"plain text with no markup",
		`<a href=":%zz//bad">broken</a><a href="/ai/good">good</a>`,
	}

	for _, html := range cases {
		got := Extract(html, "https://x.com", []string{"/ai/"})
		for link := range got {
			if !strings.HasPrefix(link, "https://x.com/ai/") {
				t.Errorf("unexpected link %q for input %q", link, html)
			}
		}
	}
}

func TestExtractEmptyPatternsKeepsAll(t *testing.T) {
	t.Parallel()

	html := `<a href="/a">A</a><a href="/b">B</a>`
	got := Extract(html, "https://x.com", nil)
	if len(got) != 2 {
		t.Fatalf("expected 2 links, got %d", len(got))
	}
}

func TestNormalize(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in         string
		stripQuery bool
		want       string
	}{
		{"https://X.com/AI/story/", false, "https://x.com/AI/story"},
		{"https://x.com/ai/story?utm_source=feed", true, "https://x.com/ai/story"},
		{"https://x.com/ai/story?id=7", false, "https://x.com/ai/story?id=7"},
		{"https://x.com/a/./b/../c", false, "https://x.com/a/c"},
		{"https://x.com/ai/story#sec", false, "https://x.com/ai/story"},
		{"https://x.com/", false, "https://x.com/"},
	}

	for _, tc := range cases {
		got, err := Normalize(tc.in, tc.stripQuery)
		if err != nil {
			t.Fatalf("Normalize(%q) error: %v", tc.in, err)
		}
		if got != tc.want {
			t.Errorf("Normalize(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestNormalizeQueryVariantsCollapse(t *testing.T) {
	t.Parallel()

	a, err := Normalize("https://x.com/ai/story?ref=home", true)
	if err != nil {
		t.Fatal(err)
	}
	b, err := Normalize("https://x.com/ai/story/", true)
	if err != nil {
		t.Fatal(err)
	}
	if a != b {
		t.Errorf("expected variants to collapse: %q vs %q", a, b)
	}
}

func TestNormalizeRejectsNonHTTP(t *testing.T) {
	t.Parallel()

	for _, in := range []string{"/relative/path", "ftp://x.com/file", "mailto:a@b.c", ""} {
		if _, err := Normalize(in, false); err == nil {
			t.Errorf("expected error for %q", in)
		}
	}
}
