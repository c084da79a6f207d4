package catalog

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"llmeval/internal/common/fsutil"
)

// Progress reports how much of a checkpoint has been fetched.
type Progress struct {
	Completed int64
	Total     int64 // 0 when the server did not announce a length
}

// Fraction returns completion in [0,1]. Unknown totals report 0 until done.
func (p Progress) Fraction() float64 {
	if p.Total <= 0 {
		return 0
	}
	f := float64(p.Completed) / float64(p.Total)
	if f > 1 {
		return 1
	}
	return f
}

// ProgressFunc is called while a checkpoint is fetched.
type ProgressFunc func(Progress)

// Store resolves configurations to files under Dir, downloading builtin
// checkpoints from BaseURL on first use.
type Store struct {
	Dir     string
	BaseURL string
	Client  *http.Client
	// Interval throttles progress callbacks; zero reports every chunk.
	Interval time.Duration
}

// NewStore creates the models directory if needed.
func NewStore(dir, baseURL string) (*Store, error) {
	abs, err := fsutil.ResolveDir(dir)
	if err != nil {
		return nil, err
	}
	return &Store{
		Dir:      abs,
		BaseURL:  strings.TrimRight(baseURL, "/"),
		Client:   &http.Client{Timeout: 0}, // large downloads; callers bound via ctx
		Interval: 250 * time.Millisecond,
	}, nil
}

// Path returns where the checkpoint for cfg lives on disk.
func (s *Store) Path(cfg Configuration) string {
	if cfg.Local() {
		return cfg.Path
	}
	return filepath.Join(s.Dir, cfg.Filename)
}

// Has reports whether the checkpoint is already present.
func (s *Store) Has(cfg Configuration) bool {
	return fsutil.FileSize(s.Path(cfg)) > 0
}

// URL is the download location of a builtin checkpoint.
func (s *Store) URL(cfg Configuration) string {
	return fmt.Sprintf("%s/%s/resolve/main/%s", s.BaseURL, cfg.Repo, cfg.Filename)
}

// Ensure returns the local path of cfg, downloading it first when missing.
// Partial downloads are resumed with a Range request.
func (s *Store) Ensure(ctx context.Context, cfg Configuration, progress ProgressFunc) (string, error) {
	final := s.Path(cfg)
	if s.Has(cfg) {
		if progress != nil {
			n := fsutil.FileSize(final)
			progress(Progress{Completed: n, Total: n})
		}
		return final, nil
	}
	if cfg.Local() {
		return "", fmt.Errorf("model file missing: %s", cfg.Path)
	}
	if cfg.Repo == "" || cfg.Filename == "" {
		return "", fmt.Errorf("model %s has no download source", cfg.ID)
	}

	partDir := filepath.Join(s.Dir, ".downloading")
	if err := os.MkdirAll(partDir, 0o755); err != nil {
		return "", fmt.Errorf("create download dir: %w", err)
	}
	part := filepath.Join(partDir, cfg.Filename+".part")
	offset := fsutil.FileSize(part)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.URL(cfg), nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	if offset > 0 {
		req.Header.Set("Range", fmt.Sprintf("bytes=%d-", offset))
	}
	resp, err := s.Client.Do(req)
	if err != nil {
		return "", fmt.Errorf("download %s: %w", cfg.ID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusRequestedRangeNotSatisfiable && offset > 0 {
		return s.finishPart(cfg, part, final, offset, resp.Header.Get("Content-Range"), progress)
	}

	flag := os.O_CREATE | os.O_WRONLY
	switch resp.StatusCode {
	case http.StatusPartialContent:
		flag |= os.O_APPEND
	case http.StatusOK:
		// server ignored Range; start over
		offset = 0
		flag |= os.O_TRUNC
	default:
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("download %s: %s: %s", cfg.ID, resp.Status, strings.TrimSpace(string(b)))
	}
	total := int64(0)
	if resp.ContentLength > 0 {
		total = resp.ContentLength + offset
	}

	f, err := os.OpenFile(part, flag, 0o644)
	if err != nil {
		return "", fmt.Errorf("open temp file: %w", err)
	}
	if err := s.copyWithProgress(f, resp.Body, offset, total, progress); err != nil {
		f.Close()
		return "", fmt.Errorf("download %s: %w", cfg.ID, err)
	}
	if err := f.Close(); err != nil {
		return "", err
	}
	if err := os.Rename(part, final); err != nil {
		return "", fmt.Errorf("move download into place: %w", err)
	}
	return final, nil
}

// finishPart handles a 416 on resume: the part file already holds every
// byte. A Content-Range size that disagrees with the part file means the
// partial download is stale, so it is discarded.
func (s *Store) finishPart(cfg Configuration, part, final string, size int64, contentRange string, progress ProgressFunc) (string, error) {
	if total, ok := rangeSize(contentRange); ok && total != size {
		_ = os.Remove(part)
		return "", fmt.Errorf("download %s: partial file has %d bytes, remote has %d; restarting on next attempt", cfg.ID, size, total)
	}
	if progress != nil {
		progress(Progress{Completed: size, Total: size})
	}
	if err := os.Rename(part, final); err != nil {
		return "", fmt.Errorf("move download into place: %w", err)
	}
	return final, nil
}

// rangeSize parses the complete length from a "bytes */N" Content-Range.
func rangeSize(v string) (int64, bool) {
	_, n, ok := strings.Cut(v, "/")
	if !ok || n == "*" {
		return 0, false
	}
	size, err := strconv.ParseInt(strings.TrimSpace(n), 10, 64)
	return size, err == nil
}

func (s *Store) copyWithProgress(dst io.Writer, src io.Reader, offset, total int64, progress ProgressFunc) error {
	buf := make([]byte, 32*1024)
	done := offset
	last := time.Time{}
	for {
		n, err := src.Read(buf)
		if n > 0 {
			if _, werr := dst.Write(buf[:n]); werr != nil {
				return werr
			}
			done += int64(n)
			if progress != nil && time.Since(last) >= s.Interval {
				progress(Progress{Completed: done, Total: total})
				last = time.Now()
			}
		}
		if err == io.EOF {
			if progress != nil {
				if total <= 0 {
					total = done
				}
				progress(Progress{Completed: done, Total: total})
			}
			return nil
		}
		if err != nil {
			return err
		}
	}
}
