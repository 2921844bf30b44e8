package sink

import (
	"context"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocloud.dev/blob/memblob"
)

func TestOpenLocalFile(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "nested", "players.tsv")

	s, err := Open(context.Background(), target)
	require.NoError(t, err)

	_, err = io.WriteString(s, "PlayerId\tName\nP1\tAlice\n")
	require.NoError(t, err)
	require.NoError(t, s.Close())

	got, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, "PlayerId\tName\nP1\tAlice\n", string(got))
	assert.Equal(t, int64(len(got)), s.Written())
	assert.Equal(t, target, s.Target())
}

func TestOpenTruncatesExisting(t *testing.T) {
	target := filepath.Join(t.TempDir(), "players.tsv")
	require.NoError(t, os.WriteFile(target, []byte("stale content from an older run\n"), 0o644))

	s, err := Open(context.Background(), target)
	require.NoError(t, err)
	_, err = io.WriteString(s, "PlayerId\n")
	require.NoError(t, err)
	require.NoError(t, s.Close())

	got, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, "PlayerId\n", string(got))
}

func TestOpenEmptyTarget(t *testing.T) {
	_, err := Open(context.Background(), "")
	assert.Error(t, err)
}

func TestOpenUnwritableDirectory(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(blocker, nil, 0o644))

	_, err := Open(context.Background(), filepath.Join(blocker, "players.tsv"))
	assert.Error(t, err)
}

func TestOpenFileURL(t *testing.T) {
	dir := t.TempDir()
	target := "file://" + filepath.ToSlash(filepath.Join(dir, "out")) + "/players.tsv"

	s, err := Open(context.Background(), target)
	require.NoError(t, err)
	_, err = io.WriteString(s, "PlayerId\nP1\n")
	require.NoError(t, err)
	require.NoError(t, s.Close())

	got, err := os.ReadFile(filepath.Join(dir, "out", "players.tsv"))
	require.NoError(t, err)
	assert.Equal(t, "PlayerId\nP1\n", string(got))
}

func TestOpenMemURL(t *testing.T) {
	s, err := Open(context.Background(), "mem://exports/players.tsv")
	require.NoError(t, err)
	_, err = io.WriteString(s, "PlayerId\n")
	require.NoError(t, err)
	assert.NoError(t, s.Close())
}

func TestNewBlob(t *testing.T) {
	ctx := context.Background()
	bucket := memblob.OpenBucket(nil)
	defer bucket.Close()

	s, err := NewBlob(ctx, bucket, "exports/players.tsv")
	require.NoError(t, err)
	_, err = io.WriteString(s, "PlayerId\tName\n")
	require.NoError(t, err)
	_, err = io.WriteString(s, "P1\tAlice\n")
	require.NoError(t, err)
	require.NoError(t, s.Close())

	got, err := bucket.ReadAll(ctx, "exports/players.tsv")
	require.NoError(t, err)
	assert.Equal(t, "PlayerId\tName\nP1\tAlice\n", string(got))
}

func TestBlobCommitsAfterCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	bucket := memblob.OpenBucket(nil)
	defer bucket.Close()

	s, err := NewBlob(ctx, bucket, "partial.tsv")
	require.NoError(t, err)
	_, err = io.WriteString(s, "PlayerId\nP1\n")
	require.NoError(t, err)

	cancel()
	require.NoError(t, s.Close())

	got, err := bucket.ReadAll(context.Background(), "partial.tsv")
	require.NoError(t, err)
	assert.Equal(t, "PlayerId\nP1\n", string(got))
}

func TestCloseIsIdempotent(t *testing.T) {
	s, err := Open(context.Background(), filepath.Join(t.TempDir(), "players.tsv"))
	require.NoError(t, err)

	require.NoError(t, s.Close())
	assert.NoError(t, s.Close())

	_, err = s.Write([]byte("late"))
	assert.Error(t, err)
}

func TestSplitBucketURL(t *testing.T) {
	tests := []struct {
		target     string
		wantBucket string
		wantKey    string
		wantErr    bool
	}{
		{"s3://my-bucket/exports/players.tsv?region=us-east-1", "s3://my-bucket?region=us-east-1", "exports/players.tsv", false},
		{"gs://my-bucket/players.tsv", "gs://my-bucket", "players.tsv", false},
		{"mem://scratch/players.tsv", "mem://scratch", "players.tsv", false},
		{"file:///var/exports/players.tsv", "file:///var/exports", "players.tsv", false},
		{"s3://my-bucket/", "", "", true},
		{"s3://my-bucket", "", "", true},
		{"file:///var/exports/", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			u, err := url.Parse(tt.target)
			require.NoError(t, err)

			bucketURL, key, err := splitBucketURL(u)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantBucket, bucketURL)
			assert.Equal(t, tt.wantKey, key)
		})
	}
}

func TestParseBucketURL(t *testing.T) {
	tests := []struct {
		target string
		want   bool
	}{
		{"players.tsv", false},
		{"/var/exports/players.tsv", false},
		{`C:\exports\players.tsv`, false},
		{"c://exports/players.tsv", false},
		{"s3://bucket/players.tsv", true},
		{"file:///tmp/players.tsv", true},
	}

	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			_, ok := parseBucketURL(tt.target)
			assert.Equal(t, tt.want, ok)
		})
	}
}

func TestOpenErrorType(t *testing.T) {
	_, err := Open(context.Background(), "s3://bucket-only")

	var sinkErr *Error
	require.ErrorAs(t, err, &sinkErr)
	assert.Equal(t, "open", sinkErr.Op)
	assert.Equal(t, "s3://bucket-only", sinkErr.Target)
}

func TestWriteAfterCloseErrorType(t *testing.T) {
	s, err := Open(context.Background(), filepath.Join(t.TempDir(), "players.tsv"))
	require.NoError(t, err)
	require.NoError(t, s.Close())

	_, err = s.Write([]byte("late"))

	var sinkErr *Error
	require.ErrorAs(t, err, &sinkErr)
	assert.Equal(t, "write", sinkErr.Op)
	assert.ErrorIs(t, err, os.ErrClosed)
}
