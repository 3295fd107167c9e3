package kdown

import (
	"fmt"
	"regexp"
	"strings"
)

const defaultGfycatAPIBase = "https://gfycat.com/cajax/get"

const kindGfycat ResourceKind = "gfy"

// GfycatIdentifier matches the whole gfycat host with a wildcard path
// and resolves a page into its single direct file link.
type GfycatIdentifier struct {
	*TableIdentifier

	// APIBase can be pointed at a test server.
	APIBase string

	client *Client
	format Format
}

func NewGfycatIdentifier(client *Client) *GfycatIdentifier {
	id := &GfycatIdentifier{
		APIBase: defaultGfycatAPIBase,
		client:  client,
		format:  FormatWebm,
	}

	table := &RegexTable{}
	table.MustAdd(CompileURLGlobRegex("", "*gfycat.com", "/*"), kindGfycat)
	id.TableIdentifier = NewTableIdentifier(table, id.expand)

	return id
}

func (g *GfycatIdentifier) PreferredFormat() Format {
	return g.format
}

func (g *GfycatIdentifier) SetPreferredFormat(f Format) {
	g.format = f
}

func (g *GfycatIdentifier) expand(url string, _ ResourceKind, re *regexp.Regexp) ([]string, error) {
	m := re.FindStringSubmatch(url)
	if len(m) < 2 {
		return nil, fmt.Errorf("pattern %q no longer matches %s", re, url)
	}
	name := stripAfter(m[len(m)-1], "?", "#", ".")

	res, err := g.client.GetJSON(g.APIBase+"/"+name, nil)
	if err != nil {
		return nil, err
	}
	if msg, ok := res.JSON["error"].(string); ok {
		return nil, &APIError{Provider: "gfycat", Message: msg}
	}
	item, ok := res.JSON["gfyItem"].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("gfycat response for %s carries no gfyItem", name)
	}

	// Rendition fields are named after the format, e.g. webmUrl.
	field := strings.ToLower(string(g.format)) + "Url"
	link, ok := item[field].(string)
	if !ok || link == "" {
		return nil, fmt.Errorf("gfycat item %s has no %s field", name, field)
	}
	return []string{link}, nil
}
