package kdown

import (
	"fmt"
	"regexp"

	"github.com/sirupsen/logrus"
)

const defaultImgurAPIBase = "https://api.imgur.com/3"

const (
	kindImgurAlbum   ResourceKind = "album"
	kindImgurGallery ResourceKind = "gallery"
	kindImgurImage   ResourceKind = "image"
)

// ImgurIdentifier expands imgur album, gallery and single-image URLs
// into direct file links via the v3 API.
type ImgurIdentifier struct {
	*TableIdentifier

	// ClientID is sent as the Authorization Client-ID header when set.
	ClientID string

	// DownloadAlbums governs whether album and gallery URLs are expanded
	// at all. When false they resolve to the empty set; single images
	// are unaffected.
	DownloadAlbums bool

	// APIBase can be pointed at a test server.
	APIBase string

	client *Client
	format Format
}

func NewImgurIdentifier(client *Client) *ImgurIdentifier {
	id := &ImgurIdentifier{
		ClientID:       "",
		DownloadAlbums: true,
		APIBase:        defaultImgurAPIBase,
		client:         client,
		format:         FormatGif,
	}

	// Album before gallery before image. The image pattern matches album
	// and gallery URLs too, so this insertion order is load-bearing.
	table := &RegexTable{}
	table.MustAdd(CompileURLGlobRegex("", "*imgur.com", "/a/*"), kindImgurAlbum)
	table.MustAdd(CompileURLGlobRegex("", "*imgur.com", "/gallery/*"), kindImgurGallery)
	table.MustAdd(CompileURLGlobRegex("", "*imgur.com", "/*"), kindImgurImage)
	id.TableIdentifier = NewTableIdentifier(table, id.expand)

	return id
}

func (im *ImgurIdentifier) PreferredFormat() Format {
	return im.format
}

func (im *ImgurIdentifier) SetPreferredFormat(f Format) {
	im.format = f
}

func (im *ImgurIdentifier) expand(url string, kind ResourceKind, re *regexp.Regexp) ([]string, error) {
	m := re.FindStringSubmatch(url)
	if len(m) < 2 {
		return nil, fmt.Errorf("pattern %q no longer matches %s", re, url)
	}
	// The hash is the last capture; direct links carry an extension and
	// shared links may carry a query or fragment.
	hash := stripAfter(m[len(m)-1], "?", "#", "/", ".")

	switch kind {
	case kindImgurAlbum, kindImgurGallery:
		if !im.DownloadAlbums {
			logrus.Debugf("album downloads disabled, %s resolves to nothing", url)
			return nil, nil
		}
		endpoint := fmt.Sprintf("%s/album/%s/images", im.APIBase, hash)
		if kind == kindImgurGallery {
			endpoint = fmt.Sprintf("%s/gallery/%s/images", im.APIBase, hash)
		}
		data, err := im.apiData(endpoint)
		if err != nil {
			return nil, err
		}
		items, ok := data.([]any)
		if !ok {
			return nil, fmt.Errorf("unexpected imgur %s payload for %s", kind, url)
		}
		targets := make([]string, 0, len(items))
		for _, item := range items {
			node, ok := item.(map[string]any)
			if !ok {
				continue
			}
			if link := im.selectLink(node); link != "" {
				targets = append(targets, link)
			}
		}
		return targets, nil

	case kindImgurImage:
		data, err := im.apiData(fmt.Sprintf("%s/image/%s", im.APIBase, hash))
		if err != nil {
			return nil, err
		}
		node, ok := data.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("unexpected imgur image payload for %s", url)
		}
		link := im.selectLink(node)
		if link == "" {
			return nil, fmt.Errorf("imgur image %s has no usable link", hash)
		}
		return []string{link}, nil
	}

	return nil, fmt.Errorf("unknown imgur resource kind %q", kind)
}

// apiData GETs an endpoint and unwraps the v3 envelope. A success flag
// present and false becomes an APIError carrying the API's own message.
func (im *ImgurIdentifier) apiData(endpoint string) (any, error) {
	var headers map[string]string
	if im.ClientID != "" {
		headers = map[string]string{"Authorization": "Client-ID " + im.ClientID}
	}

	res, err := im.client.GetJSON(endpoint, headers)
	if err != nil {
		return nil, err
	}
	if success, ok := res.JSON["success"].(bool); ok && !success {
		msg := "unknown error"
		if data, ok := res.JSON["data"].(map[string]any); ok {
			if text, ok := data["error"].(string); ok && text != "" {
				msg = text
			}
		}
		return nil, &APIError{Provider: "imgur", Message: msg}
	}
	return res.JSON["data"], nil
}

// selectLink picks the preferred rendition of an image node, falling
// back to the generic link field.
func (im *ImgurIdentifier) selectLink(node map[string]any) string {
	if link, ok := node[string(im.format)].(string); ok && link != "" {
		return link
	}
	if link, ok := node["link"].(string); ok {
		return link
	}
	return ""
}
