package kdown

// Tracker observes the lifecycle of an asynchronous batch. Events for
// different targets may arrive in any order and from different
// goroutines; per target exactly one of OnFileComplete/OnFileFailed
// fires, and OnBatchComplete fires exactly once after the last target
// settled.
type Tracker interface {
	// OnProgress reports bytes written so far for one target. total is
	// the Content-Length, or -1 when unknown; fraction is 0 in that
	// case.
	OnProgress(url string, written, total int64, fraction float64)

	OnFileComplete(url, path string)
	OnFileFailed(url string, err error)

	// OnBatchComplete carries the source URLs in settlement order.
	OnBatchComplete(succeeded, failed []string)
}

// NoopTracker implements Tracker with empty methods. Embed it to
// override only the events you care about.
type NoopTracker struct{}

func (NoopTracker) OnProgress(string, int64, int64, float64) {}

func (NoopTracker) OnFileComplete(string, string) {}

func (NoopTracker) OnFileFailed(string, error) {}

func (NoopTracker) OnBatchComplete([]string, []string) {}
