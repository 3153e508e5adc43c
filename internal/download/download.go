package download

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/Brownie44l1/medscan-api/internal/config"
	"github.com/Brownie44l1/medscan-api/internal/metric"
	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog/log"
)

// Target is a model artifact and where to fetch it from.
type Target struct {
	Path string
	URL  string
}

// ModelTargets lists the brain and lung artifacts the server loads.
func ModelTargets(cfg *config.Config) []Target {
	return []Target{
		{Path: cfg.BrainModelPath, URL: cfg.BrainModelURL},
		{Path: cfg.LungModelPath, URL: cfg.LungModelURL},
	}
}

type Downloader struct {
	client   *http.Client
	minBytes int64
	progress io.Writer
}

// New returns a Downloader that treats files of minBytes or fewer as absent.
// Progress is written to progress when it is non-nil.
func New(client *http.Client, minBytes int64, progress io.Writer) *Downloader {
	if client == nil {
		client = http.DefaultClient
	}
	return &Downloader{client: client, minBytes: minBytes, progress: progress}
}

// EnsureAll fetches every target in order and stops at the first failure.
func (d *Downloader) EnsureAll(ctx context.Context, targets []Target) error {
	for _, target := range targets {
		if _, err := d.Ensure(ctx, target); err != nil {
			return err
		}
	}
	return nil
}

// Ensure downloads target unless a large enough file is already present. It
// reports whether a download happened.
func (d *Downloader) Ensure(ctx context.Context, target Target) (bool, error) {
	if info, err := os.Stat(target.Path); err == nil && info.Mode().IsRegular() && info.Size() > d.minBytes {
		log.Info().Msgf("Model exists, skipping: %s (%s)", target.Path, humanize.Bytes(uint64(info.Size())))
		return false, nil
	}

	if err := os.MkdirAll(filepath.Dir(target.Path), 0o755); err != nil {
		return false, fmt.Errorf("failed to create directory for %s: %w", target.Path, err)
	}

	log.Info().Msgf("Downloading %s -> %s", target.URL, target.Path)
	written, err := d.fetch(ctx, target)
	if err != nil {
		return false, err
	}

	metric.Count(metric.ModelDownloadSize, written, []string{
		metric.TagAsString(metric.TagModel, filepath.Base(target.Path)),
	})
	log.Info().Msgf("Downloaded %s (%s)", target.Path, humanize.Bytes(uint64(written)))
	return true, nil
}

// fetch streams the body into a temp file beside the destination and renames
// it into place only after the copy completes.
func (d *Downloader) fetch(ctx context.Context, target Target) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.URL, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to build request for %s: %w", target.URL, err)
	}
	resp, err := d.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("failed to download %s: %w", target.URL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return 0, fmt.Errorf("failed to download %s: unexpected status %s", target.URL, resp.Status)
	}

	tmp, err := os.CreateTemp(filepath.Dir(target.Path), filepath.Base(target.Path)+".part-*")
	if err != nil {
		return 0, fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	var dst io.Writer = tmp
	if d.progress != nil {
		dst = io.MultiWriter(tmp, newProgressWriter(d.progress, resp.ContentLength))
	}

	written, err := io.Copy(dst, resp.Body)
	if d.progress != nil {
		fmt.Fprintln(d.progress)
	}
	if err != nil {
		tmp.Close()
		return 0, fmt.Errorf("failed to write %s: %w", target.Path, err)
	}
	if err := tmp.Close(); err != nil {
		return 0, fmt.Errorf("failed to write %s: %w", target.Path, err)
	}
	if err := os.Rename(tmp.Name(), target.Path); err != nil {
		return 0, fmt.Errorf("failed to move download into place: %w", err)
	}
	return written, nil
}

type progressWriter struct {
	out     io.Writer
	total   int64
	written int64
	lastPct int
}

func newProgressWriter(out io.Writer, total int64) *progressWriter {
	return &progressWriter{out: out, total: total, lastPct: -1}
}

func (p *progressWriter) Write(b []byte) (int, error) {
	p.written += int64(len(b))
	if p.total <= 0 {
		fmt.Fprintf(p.out, "\r  %s", humanize.Bytes(uint64(p.written)))
		return len(b), nil
	}

	pct := int(p.written * 100 / p.total)
	if pct != p.lastPct {
		p.lastPct = pct
		fmt.Fprintf(p.out, "\r  %d%% (%s / %s)", pct,
			humanize.Bytes(uint64(p.written)), humanize.Bytes(uint64(p.total)))
	}
	return len(b), nil
}
