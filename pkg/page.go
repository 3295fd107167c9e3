package kdown

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/sirupsen/logrus"
)

// PageIdentifier extracts direct file links out of a single HTML page.
// It performs exactly one hop: the page itself is fetched and its
// a[href] and img[src] attributes collected, resolved against the page
// URL; discovered pages are never followed.
type PageIdentifier struct {
	pattern     *regexp.Regexp
	linkPattern *regexp.Regexp
	client      *Client
}

// NewPageIdentifier matches pages whose URL satisfies urlGlob (shell
// glob over the full URL). linkPattern, when non-nil, filters the
// extracted links; nil keeps everything.
func NewPageIdentifier(client *Client, urlGlob string, linkPattern *regexp.Regexp) (*PageIdentifier, error) {
	re, err := regexp.Compile(CompileGlob(urlGlob, true))
	if err != nil {
		return nil, fmt.Errorf("invalid page glob %q: %w", urlGlob, err)
	}
	return &PageIdentifier{
		pattern:     re,
		linkPattern: linkPattern,
		client:      client,
	}, nil
}

func (p *PageIdentifier) CanResolve(u string) bool {
	return p.pattern.MatchString(u)
}

func (p *PageIdentifier) Resolve(u string) ([]string, error) {
	base, err := url.Parse(u)
	if err != nil {
		return nil, fmt.Errorf("invalid page URL %s: %w", u, err)
	}

	res, err := p.client.Fetch(u, nil)
	if err != nil {
		return nil, err
	}
	defer closeQuietly(res.Body)

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return nil, &NetworkError{URL: u, StatusCode: res.StatusCode}
	}
	if !isHTMLContent(res.Header.Get("Content-Type")) {
		return nil, fmt.Errorf("%s is not an HTML page", u)
	}

	document, err := goquery.NewDocumentFromReader(res.Body)
	if err != nil {
		return nil, err
	}

	var targets []string
	seen := make(map[string]struct{})
	collect := func(val string) {
		ref, err := url.Parse(val)
		if err != nil {
			logrus.Debugf("skipping invalid link %q on %s: %v", val, u, err)
			return
		}
		resolved := base.ResolveReference(ref).String()
		if p.linkPattern != nil && !p.linkPattern.MatchString(resolved) {
			return
		}
		if _, dup := seen[resolved]; dup {
			return
		}
		seen[resolved] = struct{}{}
		targets = append(targets, resolved)
	}

	document.Find("a[href]").Each(func(_ int, selection *goquery.Selection) {
		if val, exists := selection.Attr("href"); exists {
			collect(val)
		}
	})
	document.Find("img[src]").Each(func(_ int, selection *goquery.Selection) {
		if val, exists := selection.Attr("src"); exists {
			collect(val)
		}
	})

	return targets, nil
}

func isHTMLContent(contentType string) bool {
	for _, v := range strings.Split(contentType, ";") {
		if strings.TrimSpace(v) == "text/html" {
			return true
		}
	}
	return false
}
