// Package links extracts and normalizes article URLs from listing-page HTML.
package links

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Extract collects absolute article URLs from raw HTML. Relative hrefs are
// resolved against baseURL, fragments are dropped, and only URLs whose path
// contains at least one of pathPatterns are kept. An empty pattern list keeps
// every link. Malformed markup never fails: goquery parses whatever anchor
// constructs it can recognize and the rest is silently skipped.
func Extract(html, baseURL string, pathPatterns []string) map[string]struct{} {
	out := make(map[string]struct{})

	base, err := url.Parse(baseURL)
	if err != nil || !base.IsAbs() {
		return out
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		// Reader errors only; parse errors never reach here.
		return out
	}

	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, ok := sel.Attr("href")
		if !ok {
			return
		}
		href = strings.TrimSpace(href)
		if href == "" {
			return
		}

		ref, err := url.Parse(href)
		if err != nil {
			return
		}

		abs := base.ResolveReference(ref)
		if abs.Scheme != "http" && abs.Scheme != "https" {
			return
		}
		abs.Fragment = ""

		if !matchesAny(abs.Path, pathPatterns) {
			return
		}

		out[abs.String()] = struct{}{}
	})

	return out
}

func matchesAny(path string, patterns []string) bool {
	if len(patterns) == 0 {
		return true
	}
	for _, p := range patterns {
		if p == "" {
			continue
		}
		if strings.Contains(path, p) {
			return true
		}
	}
	return false
}

// Normalize reduces a URL to the canonical form used for deduplication:
// lowercase scheme and host, no fragment, no trailing slash, and optionally
// no query string for sources known to decorate article links with tracking
// parameters. Returns an error for relative or non-HTTP URLs.
func Normalize(raw string, stripQuery bool) (string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", err
	}
	if !u.IsAbs() || u.Host == "" {
		return "", &url.Error{Op: "normalize", URL: raw, Err: errNotAbsolute}
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", &url.Error{Op: "normalize", URL: raw, Err: errNotHTTP}
	}

	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""
	if stripQuery {
		u.RawQuery = ""
	}

	u.Path = resolveDotSegments(u.Path)
	if u.Path != "/" {
		u.Path = strings.TrimSuffix(u.Path, "/")
	}

	return u.String(), nil
}

// resolveDotSegments removes "." and ".." path elements, keeping the path
// rooted. url.URL does this during ResolveReference but not during Parse.
func resolveDotSegments(p string) string {
	if p == "" {
		return ""
	}
	segs := strings.Split(p, "/")
	out := make([]string, 0, len(segs))
	for _, s := range segs {
		switch s {
		case ".":
			continue
		case "..":
			if len(out) > 1 {
				out = out[:len(out)-1]
			}
		default:
			out = append(out, s)
		}
	}
	joined := strings.Join(out, "/")
	if !strings.HasPrefix(joined, "/") {
		joined = "/" + joined
	}
	return joined
}

type normalizeError string

func (e normalizeError) Error() string { return string(e) }

const (
	errNotAbsolute normalizeError = "url is not absolute"
	errNotHTTP     normalizeError = "url scheme is not http or https"
)
