package kdown

import (
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/temoto/robotstxt"
)

const defaultBufferSize = 32 * 1024

// DownloadRequest describes one top-level download call. It is built
// once, never mutated, and shared by reference across every target
// fetch derived from it.
type DownloadRequest struct {
	URL       string
	Directory string

	// AcceptableContentTypes is prefix-matched against the response's
	// Content-Type. Empty means accept anything.
	AcceptableContentTypes []string
}

// Kdown resolves a URL into download targets through its identifier
// chain and fetches each one over a single shared HTTP client.
type Kdown struct {
	// CreateDirectories makes the orchestrator create a missing
	// destination directory instead of failing. A destination that
	// exists as a plain file is always a hard error.
	CreateDirectories bool

	// BufferSize is the chunk size used when streaming bodies to disk.
	BufferSize int

	// RespectRobots gates every target fetch behind the host's
	// robots.txt (fail-open on fetch problems). Off by default.
	RespectRobots bool

	identifiers []ResourceIdentifier
	client      *Client

	robotsCache   map[string]*robotstxt.RobotsData
	robotsCacheMu sync.RWMutex
}

// New creates an orchestrator with the given client identifier and the
// default resolution chain: imgur, then gfycat.
func New(userAgent string) *Kdown {
	client := NewClient(userAgent, 30*time.Second)
	return &Kdown{
		BufferSize: defaultBufferSize,
		client:     client,
		identifiers: []ResourceIdentifier{
			NewImgurIdentifier(client),
			NewGfycatIdentifier(client),
		},
	}
}

// NewWithIdentifiers creates an orchestrator with a caller-supplied
// chain. An empty chain resolves every URL to itself.
func NewWithIdentifiers(userAgent string, identifiers ...ResourceIdentifier) *Kdown {
	return &Kdown{
		BufferSize:  defaultBufferSize,
		client:      NewClient(userAgent, 30*time.Second),
		identifiers: identifiers,
	}
}

// Client returns the shared HTTP client, for wiring extra identifiers.
func (k *Kdown) Client() *Client {
	return k.client
}

// Identifiers returns the resolution chain in precedence order.
func (k *Kdown) Identifiers() []ResourceIdentifier {
	return k.identifiers
}

// Resolve expands url through the identifier chain; the first
// identifier that recognizes it wins, a URL nobody recognizes resolves
// to itself.
func (k *Kdown) Resolve(url string) ([]string, error) {
	return ResolveChain(k.identifiers, url)
}

// DownloadSync resolves rawURL and fetches every target one at a time,
// in target order, blocking until all are written. The first failure
// aborts the whole call: callers never observe a partial result. This
// is deliberately different from DownloadAsync, which isolates
// failures per target.
func (k *Kdown) DownloadSync(rawURL, directory string, acceptableContentTypes []string) ([]string, error) {
	req := &DownloadRequest{
		URL:                    rawURL,
		Directory:              directory,
		AcceptableContentTypes: acceptableContentTypes,
	}

	targets, err := k.Resolve(rawURL)
	if err != nil {
		return nil, err
	}

	paths := make([]string, 0, len(targets))
	for _, target := range targets {
		written, err := k.fetchTarget(req, target, nil)
		if err != nil {
			return nil, err
		}
		paths = append(paths, written)
	}
	return paths, nil
}

// DownloadAsync resolves rawURL and dispatches one concurrent fetch per
// target; it returns the target count immediately. Zero means no
// fetches were started and the tracker will see no events at all, the
// explicit no-op outcome. Otherwise the tracker receives progress and
// exactly one completion or failure per target, and one batch event
// once every target has settled. Per-target failures never abort
// siblings.
func (k *Kdown) DownloadAsync(rawURL, directory string, acceptableContentTypes []string, tracker Tracker) (int, error) {
	if tracker == nil {
		tracker = NoopTracker{}
	}

	req := &DownloadRequest{
		URL:                    rawURL,
		Directory:              directory,
		AcceptableContentTypes: acceptableContentTypes,
	}

	targets, err := k.Resolve(rawURL)
	if err != nil {
		return 0, err
	}
	if len(targets) == 0 {
		logrus.Debugf("%s resolved to no targets, nothing to download", rawURL)
		return 0, nil
	}

	state := &batchState{total: len(targets), tracker: tracker}
	for _, target := range targets {
		go func(target string) {
			written, fetchErr := k.fetchTarget(req, target, tracker)
			if fetchErr != nil {
				logrus.Warnf("download of %s failed: %v", target, fetchErr)
			}
			state.settle(target, written, fetchErr)
		}(target)
	}
	return len(targets), nil
}

// batchState aggregates settlement across one asynchronous batch. The
// counter implied by the two lists is the only state shared between
// fetch goroutines; every mutation holds the mutex. It is dropped once
// the batch event fired.
type batchState struct {
	mu        sync.Mutex
	total     int
	succeeded []string
	failed    []string
	tracker   Tracker
}

// settle records one terminal outcome. Each target settles exactly
// once, so exactly the final call observes done and fires the batch
// event. Tracker calls happen under the mutex: events are serialized
// and the batch event strictly follows every per-file event.
func (b *batchState) settle(target, path string, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err != nil {
		b.failed = append(b.failed, target)
		b.tracker.OnFileFailed(target, err)
	} else {
		b.succeeded = append(b.succeeded, target)
		b.tracker.OnFileComplete(target, path)
	}

	if len(b.succeeded)+len(b.failed) == b.total {
		b.tracker.OnBatchComplete(b.succeeded, b.failed)
	}
}

// fetchTarget downloads one target into the request's directory and
// returns the written path. tracker may be nil (the synchronous path
// reports no progress).
func (k *Kdown) fetchTarget(req *DownloadRequest, target string, tracker Tracker) (string, error) {
	parsed, err := url.Parse(target)
	if err != nil {
		return "", fmt.Errorf("invalid target URL %s: %w", target, err)
	}
	if k.RespectRobots && !k.urlAllowedByRobots(parsed) {
		return "", fmt.Errorf("robots.txt disallows fetching %s", target)
	}

	if err := k.ensureDirectory(req.Directory); err != nil {
		return "", err
	}

	res, err := k.client.Fetch(target, nil)
	if err != nil {
		return "", err
	}
	defer closeQuietly(res.Body)

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return "", &NetworkError{URL: target, StatusCode: res.StatusCode}
	}

	contentType := res.Header.Get("Content-Type")
	if !contentTypeAcceptable(contentType, req.AcceptableContentTypes) {
		return "", &ContentTypeError{
			URL:         target,
			ContentType: contentType,
			Acceptable:  req.AcceptableContentTypes,
		}
	}

	// The filename comes from the URL the response actually landed on,
	// after any redirects.
	finalURL := res.Request.URL
	name := path.Base(finalURL.Path)
	if name == "/" || name == "." || name == "" {
		name = finalURL.Hostname()
	}
	outPath := filepath.Join(req.Directory, name)

	out, err := os.Create(outPath)
	if err != nil {
		return "", &FilesystemError{Path: outPath, Err: err}
	}

	written, copyErr := k.streamBody(out, res.Body, target, outPath, res.ContentLength, tracker)
	closeErr := out.Close()
	if copyErr != nil {
		return "", copyErr
	}
	if closeErr != nil {
		return "", &FilesystemError{Path: outPath, Err: closeErr}
	}

	logrus.Debugf("wrote %d bytes from %s to %s", written, target, outPath)
	return outPath, nil
}

// streamBody copies src to dst in BufferSize chunks, reporting progress
// after each chunk when a tracker is present.
func (k *Kdown) streamBody(dst io.Writer, src io.Reader, target, outPath string, total int64, tracker Tracker) (int64, error) {
	size := k.BufferSize
	if size <= 0 {
		size = defaultBufferSize
	}
	buf := make([]byte, size)

	var written int64
	for {
		n, readErr := src.Read(buf)
		if n > 0 {
			if _, writeErr := dst.Write(buf[:n]); writeErr != nil {
				return written, &FilesystemError{Path: outPath, Err: writeErr}
			}
			written += int64(n)
			if tracker != nil {
				fraction := 0.0
				if total > 0 {
					fraction = float64(written) / float64(total)
				}
				tracker.OnProgress(target, written, total, fraction)
			}
		}
		if readErr == io.EOF {
			return written, nil
		}
		if readErr != nil {
			return written, fmt.Errorf("reading body of %s: %w", target, readErr)
		}
	}
}

// ensureDirectory makes sure dir exists as a directory. Missing
// directories are created only when CreateDirectories is set; a plain
// file at the directory path is a configuration error, not a warning.
func (k *Kdown) ensureDirectory(dir string) error {
	info, err := os.Stat(dir)
	if err == nil {
		if !info.IsDir() {
			return &FilesystemError{Path: dir, Err: errors.New("exists but is not a directory")}
		}
		return nil
	}
	if !os.IsNotExist(err) {
		return &FilesystemError{Path: dir, Err: err}
	}
	if !k.CreateDirectories {
		return &FilesystemError{Path: dir, Err: errors.New("does not exist and directory creation is disabled")}
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return &FilesystemError{Path: dir, Err: err}
	}
	return nil
}

// contentTypeAcceptable applies prefix matching: "image/png" accepts
// "image/png; charset=utf-8". An empty acceptable set accepts anything,
// including a missing header; a non-empty set rejects a missing header.
func contentTypeAcceptable(contentType string, acceptable []string) bool {
	if len(acceptable) == 0 {
		return true
	}
	if contentType == "" {
		return false
	}
	for _, t := range acceptable {
		if strings.HasPrefix(contentType, t) {
			return true
		}
	}
	return false
}
