package main

import (
	"fmt"
	"os"
	"path"
	"sync"

	"github.com/joho/godotenv"
	"github.com/schollz/progressbar/v3"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	kdown "github.com/mattbdean/Kdown/pkg"
)

var flags struct {
	output        string
	contentTypes  []string
	clientID      string
	format        string
	userAgent     string
	createDirs    bool
	async         bool
	respectRobots bool
	skipAlbums    bool
	verbose       bool
}

func main() {
	rootCmd := &cobra.Command{
		Use:          "kdown <url>",
		Short:        "Resolve a URL into its downloadable files and fetch them",
		Args:         cobra.ExactArgs(1),
		RunE:         run,
		SilenceUsage: true,
	}

	f := rootCmd.Flags()
	f.StringVarP(&flags.output, "output", "o", ".", "destination directory")
	f.StringSliceVarP(&flags.contentTypes, "content-type", "t", nil, "acceptable content types (prefix matched, empty accepts any)")
	f.StringVar(&flags.clientID, "imgur-client-id", "", "imgur API client ID (defaults to IMGUR_CLIENT_ID)")
	f.StringVar(&flags.format, "format", "", "preferred format for providers offering multiple renditions (gif, gifv, webm, mp4)")
	f.StringVar(&flags.userAgent, "user-agent", "kdown", "User-Agent header sent with every request")
	f.BoolVar(&flags.createDirs, "create-dirs", true, "create the destination directory when missing")
	f.BoolVar(&flags.async, "async", false, "download targets concurrently")
	f.BoolVar(&flags.respectRobots, "respect-robots", false, "honor robots.txt before fetching targets")
	f.BoolVar(&flags.skipAlbums, "skip-albums", false, "do not expand album and gallery URLs")
	f.BoolVarP(&flags.verbose, "verbose", "v", false, "verbose logging")

	if err := rootCmd.Execute(); err != nil {
		logrus.Fatal(err)
	}
}

func run(_ *cobra.Command, args []string) error {
	if flags.verbose {
		logrus.SetLevel(logrus.DebugLevel)
	}

	// A .env next to the binary may carry the imgur client ID.
	if err := godotenv.Load(); err != nil {
		logrus.Debugf("no .env loaded: %v", err)
	}
	if flags.clientID == "" {
		flags.clientID = os.Getenv("IMGUR_CLIENT_ID")
	}

	k := kdown.New(flags.userAgent)
	k.CreateDirectories = flags.createDirs
	k.RespectRobots = flags.respectRobots

	for _, id := range k.Identifiers() {
		if imgur, ok := id.(*kdown.ImgurIdentifier); ok {
			imgur.ClientID = flags.clientID
			imgur.DownloadAlbums = !flags.skipAlbums
		}
		if flags.format != "" {
			if sel, ok := id.(kdown.FormatSelector); ok {
				sel.SetPreferredFormat(kdown.Format(flags.format))
			}
		}
	}

	if !flags.async {
		paths, err := k.DownloadSync(args[0], flags.output, flags.contentTypes)
		if err != nil {
			return err
		}
		for _, p := range paths {
			fmt.Println(p)
		}
		return nil
	}

	tracker := newBarTracker()
	total, err := k.DownloadAsync(args[0], flags.output, flags.contentTypes, tracker)
	if err != nil {
		return err
	}
	if total == 0 {
		logrus.Info("nothing to download")
		return nil
	}
	<-tracker.done
	return nil
}

// barTracker renders one progress bar per file and signals batch
// completion through done.
type barTracker struct {
	kdown.NoopTracker

	mu   sync.Mutex
	bars map[string]*progressbar.ProgressBar
	done chan struct{}
}

func newBarTracker() *barTracker {
	return &barTracker{
		bars: make(map[string]*progressbar.ProgressBar),
		done: make(chan struct{}),
	}
}

func (t *barTracker) OnProgress(url string, written, total int64, _ float64) {
	t.mu.Lock()
	bar, ok := t.bars[url]
	if !ok {
		bar = progressbar.DefaultBytes(total, path.Base(url))
		t.bars[url] = bar
	}
	t.mu.Unlock()
	_ = bar.Set64(written)
}

func (t *barTracker) OnFileComplete(url, path string) {
	logrus.Infof("downloaded %s to %s", url, path)
}

func (t *barTracker) OnFileFailed(url string, err error) {
	logrus.Warnf("download of %s failed: %v", url, err)
}

func (t *barTracker) OnBatchComplete(succeeded, failed []string) {
	logrus.Infof("batch complete: %d succeeded, %d failed", len(succeeded), len(failed))
	close(t.done)
}
