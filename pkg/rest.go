package kdown

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const jsonMediaType = "application/json"

// RESTResponse carries the result of a JSON GET.
type RESTResponse struct {
	Header      http.Header
	JSON        map[string]any
	Body        []byte
	ContentType string
}

// Client issues the module's HTTP requests. One Client is shared across
// all identifiers and downloads of a Kdown instance so the underlying
// connection pool is reused; per-call clients would defeat that.
type Client struct {
	// UserAgent is sent with every request.
	UserAgent string

	httpClient *http.Client
}

func NewClient(userAgent string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		UserAgent:  userAgent,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Fetch performs a plain GET with the default headers merged with the
// caller's. Caller-supplied headers win on collision. The caller owns
// the response body.
func (c *Client) Fetch(url string, headers map[string]string) (*http.Response, error) {
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", c.UserAgent)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	return c.httpClient.Do(req)
}

// GetJSON performs a GET and decodes the body as a JSON object. A
// non-JSON content type with a non-empty body is a hard error: callers
// must never receive a silently empty tree for a malformed API
// response. Blocking, no retry.
func (c *Client) GetJSON(url string, headers map[string]string) (*RESTResponse, error) {
	res, err := c.Fetch(url, headers)
	if err != nil {
		return nil, err
	}
	defer closeQuietly(res.Body)

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("reading body of %s: %w", url, err)
	}

	contentType := res.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, jsonMediaType) && len(body) > 0 {
		return nil, fmt.Errorf("malformed API response from %s: content type %q is not JSON", url, contentType)
	}

	resp := &RESTResponse{
		Header:      res.Header,
		Body:        body,
		ContentType: contentType,
	}
	if len(body) > 0 {
		if err := json.Unmarshal(body, &resp.JSON); err != nil {
			return nil, fmt.Errorf("decoding JSON from %s: %w", url, err)
		}
	}
	return resp, nil
}
