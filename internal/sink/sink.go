package sink

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"gocloud.dev/blob"
	_ "gocloud.dev/blob/fileblob"
	_ "gocloud.dev/blob/gcsblob"
	_ "gocloud.dev/blob/memblob"
	_ "gocloud.dev/blob/s3blob"
)

const bufferSize = 256 * 1024

// Error reports a failure of the output destination.
type Error struct {
	Op     string // open, write or close
	Target string
	Err    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s output %s: %v", e.Op, e.Target, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Sink is a buffered io.WriteCloser over a local file or a blob object.
type Sink struct {
	target  string
	buf     *bufio.Writer
	closers []func() error
	written int64
	closed  bool
}

// Open resolves target and opens it for writing, truncating any existing
// content. Parent directories of local paths are created.
func Open(ctx context.Context, target string) (*Sink, error) {
	if target == "" {
		return nil, &Error{Op: "open", Err: errors.New("empty target")}
	}

	var (
		s   *Sink
		err error
	)
	if u, ok := parseBucketURL(target); ok {
		s, err = openBlob(ctx, target, u)
	} else {
		s, err = openFile(target)
	}
	if err != nil {
		return nil, &Error{Op: "open", Target: target, Err: err}
	}
	return s, nil
}

// NewBlob writes key in an already opened bucket. The caller keeps
// ownership of bucket.
func NewBlob(ctx context.Context, bucket *blob.Bucket, key string) (*Sink, error) {
	w, err := newWriter(ctx, bucket, key)
	if err != nil {
		return nil, &Error{Op: "open", Target: key, Err: err}
	}
	return newSink(key, w, w.Close), nil
}

func newSink(target string, w io.Writer, closers ...func() error) *Sink {
	return &Sink{
		target:  target,
		buf:     bufio.NewWriterSize(w, bufferSize),
		closers: closers,
	}
}

func openFile(p string) (*Sink, error) {
	if dir := filepath.Dir(p); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create output directory: %w", err)
		}
	}

	f, err := os.Create(p)
	if err != nil {
		return nil, fmt.Errorf("create output file: %w", err)
	}
	return newSink(p, f, f.Close), nil
}

func openBlob(ctx context.Context, target string, u *url.URL) (*Sink, error) {
	bucketURL, key, err := splitBucketURL(u)
	if err != nil {
		return nil, err
	}

	if u.Scheme == "file" {
		if err := os.MkdirAll(filepath.FromSlash(strings.TrimPrefix(bucketURL, "file://")), 0o755); err != nil {
			return nil, fmt.Errorf("create output directory: %w", err)
		}
	}

	bkt, err := blob.OpenBucket(ctx, bucketURL)
	if err != nil {
		return nil, fmt.Errorf("open bucket %s: %w", bucketURL, err)
	}

	w, err := newWriter(ctx, bkt, key)
	if err != nil {
		bkt.Close()
		return nil, fmt.Errorf("open object %s: %w", key, err)
	}
	return newSink(target, w, w.Close, bkt.Close), nil
}

// newWriter detaches the object writer from ctx. A blob write aborts when its
// context is cancelled, and an interrupted run must still commit what it
// merged so far.
func newWriter(ctx context.Context, bucket *blob.Bucket, key string) (*blob.Writer, error) {
	return bucket.NewWriter(context.WithoutCancel(ctx), key, &blob.WriterOptions{
		ContentType: "text/tab-separated-values",
	})
}

// parseBucketURL reports whether target names a bucket rather than a local
// path. Single-letter schemes are Windows drive letters.
func parseBucketURL(target string) (*url.URL, bool) {
	if !strings.Contains(target, "://") {
		return nil, false
	}
	u, err := url.Parse(target)
	if err != nil || len(u.Scheme) < 2 {
		return nil, false
	}
	return u, true
}

// splitBucketURL separates the object key from the bucket URL. For file://
// the bucket is the directory holding the file; for every other scheme the
// host names the bucket and the path is the key.
func splitBucketURL(u *url.URL) (bucketURL, key string, err error) {
	query := ""
	if u.RawQuery != "" {
		query = "?" + u.RawQuery
	}

	if u.Scheme == "file" {
		dir, file := path.Split(u.Path)
		if file == "" {
			return "", "", fmt.Errorf("%s has no file name", u.Redacted())
		}
		return "file://" + strings.TrimSuffix(dir, "/") + query, file, nil
	}

	key = strings.TrimPrefix(u.Path, "/")
	if key == "" || strings.HasSuffix(key, "/") {
		return "", "", fmt.Errorf("%s has no object key", u.Redacted())
	}
	return u.Scheme + "://" + u.Host + query, key, nil
}

// Target returns the target the sink was opened for.
func (s *Sink) Target() string {
	return s.target
}

// Written returns the number of bytes accepted so far.
func (s *Sink) Written() int64 {
	return s.written
}

func (s *Sink) Write(p []byte) (int, error) {
	if s.closed {
		return 0, &Error{Op: "write", Target: s.target, Err: os.ErrClosed}
	}
	n, err := s.buf.Write(p)
	s.written += int64(n)
	if err != nil {
		return n, &Error{Op: "write", Target: s.target, Err: err}
	}
	return n, nil
}

// Close flushes buffered data and releases the underlying file or object.
// Every closer runs even if an earlier one fails; the first error wins.
func (s *Sink) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true

	firstErr := s.buf.Flush()
	for _, c := range s.closers {
		if err := c(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if firstErr != nil {
		return &Error{Op: "close", Target: s.target, Err: firstErr}
	}
	return nil
}
