package merge

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcooley/PlayFabExport/internal/fetch"
	"github.com/mcooley/PlayFabExport/internal/wait"
)

// memFetcher serves bodies from a map and records every requested URL.
type memFetcher struct {
	bodies  map[string]string
	fetched []string
}

func (f *memFetcher) Fetch(ctx context.Context, url string) (io.ReadCloser, error) {
	f.fetched = append(f.fetched, url)
	body, ok := f.bodies[url]
	if !ok {
		return nil, &fetch.TransferError{URL: url, StatusCode: http.StatusNotFound}
	}
	return io.NopCloser(strings.NewReader(body)), nil
}

func newMerger(f fetch.Fetcher) (*Merger, *wait.Recorder) {
	w := &wait.Recorder{}
	return New(DefaultConfig(), f, w), w
}

func TestMergeShards(t *testing.T) {
	t.Run("two shards end to end", func(t *testing.T) {
		f := &memFetcher{bodies: map[string]string{
			"https://cdn/shard1.tsv": "PlayerId\tName\nP1\tAlice\n",
			"https://cdn/shard2.tsv": "PlayerId\tName\nP2\tBob\n\n",
		}}
		m, _ := newMerger(f)
		var out bytes.Buffer

		stats, err := m.MergeShards(context.Background(), []string{"https://cdn/shard1.tsv", "https://cdn/shard2.tsv"}, &out)

		require.NoError(t, err)
		assert.Equal(t, "PlayerId\tName\nP1\tAlice\nP2\tBob\n", out.String())
		assert.Equal(t, 2, stats.ShardsTotal)
		assert.Equal(t, 2, stats.ShardsMerged)
		assert.Equal(t, int64(2), stats.RowsWritten)
		assert.Equal(t, int64(out.Len()), stats.BytesWritten)
		assert.True(t, stats.HeaderWritten)
	})

	t.Run("header only from first shard", func(t *testing.T) {
		f := &memFetcher{bodies: map[string]string{
			"a": "PlayerId\tA\nrow-a\n",
			"b": "PlayerId\tB\nrow-b\n",
			"c": "PlayerId\tC\nrow-c\n",
		}}
		m, _ := newMerger(f)
		var out bytes.Buffer

		_, err := m.MergeShards(context.Background(), []string{"a", "b", "c"}, &out)

		require.NoError(t, err)
		assert.Equal(t, "PlayerId\tA\nrow-a\nrow-b\nrow-c\n", out.String())
		assert.Equal(t, 1, strings.Count(out.String(), "PlayerId"))
	})

	t.Run("integrity failure stops before next shard", func(t *testing.T) {
		f := &memFetcher{bodies: map[string]string{
			"a": "PlayerId\tName\nP1\tAlice\n",
			"b": "Name\tScore\nP2\t10\n",
			"c": "PlayerId\tName\nP3\tCarol\n",
		}}
		m, _ := newMerger(f)
		var out bytes.Buffer

		stats, err := m.MergeShards(context.Background(), []string{"a", "b", "c"}, &out)

		var integrityErr *IntegrityError
		require.ErrorAs(t, err, &integrityErr)
		assert.Equal(t, "b", integrityErr.URL)
		assert.Equal(t, "PlayerId", integrityErr.Marker)
		assert.Equal(t, []string{"a", "b"}, f.fetched)
		assert.Equal(t, "PlayerId\tName\nP1\tAlice\n", out.String())
		assert.Equal(t, 1, stats.ShardsMerged)
	})

	t.Run("transfer failure keeps partial output", func(t *testing.T) {
		f := &memFetcher{bodies: map[string]string{
			"a": "PlayerId\nP1\n",
			"c": "PlayerId\nP3\n",
		}}
		m, _ := newMerger(f)
		var out bytes.Buffer

		_, err := m.MergeShards(context.Background(), []string{"a", "missing", "c"}, &out)

		var transferErr *fetch.TransferError
		require.ErrorAs(t, err, &transferErr)
		assert.Equal(t, http.StatusNotFound, transferErr.StatusCode)
		assert.ErrorIs(t, err, fetch.ErrNotFound)
		assert.Equal(t, []string{"a", "missing"}, f.fetched)
		assert.Equal(t, "PlayerId\nP1\n", out.String())
	})

	t.Run("header only shard contributes no rows", func(t *testing.T) {
		f := &memFetcher{bodies: map[string]string{
			"a": "PlayerId\tName\n",
			"b": "PlayerId\tName\nP2\tBob\n",
		}}
		m, _ := newMerger(f)
		var out bytes.Buffer

		stats, err := m.MergeShards(context.Background(), []string{"a", "b"}, &out)

		require.NoError(t, err)
		assert.Equal(t, "PlayerId\tName\nP2\tBob\n", out.String())
		assert.Equal(t, int64(1), stats.RowsWritten)
	})

	t.Run("empty manifest writes nothing", func(t *testing.T) {
		f := &memFetcher{}
		m, w := newMerger(f)
		var out bytes.Buffer

		stats, err := m.MergeShards(context.Background(), nil, &out)

		require.NoError(t, err)
		assert.Empty(t, out.String())
		assert.Empty(t, f.fetched)
		assert.Empty(t, w.Delays)
		assert.False(t, stats.HeaderWritten)
	})

	t.Run("blank entries are never fetched", func(t *testing.T) {
		f := &memFetcher{bodies: map[string]string{
			"urlA": "PlayerId\nA\n",
			"urlB": "PlayerId\nB\n",
		}}
		m, w := newMerger(f)
		var out bytes.Buffer

		stats, err := m.MergeShards(context.Background(), []string{"urlA", "", "urlB", "  ", ""}, &out)

		require.NoError(t, err)
		assert.Equal(t, []string{"urlA", "urlB"}, f.fetched)
		assert.Equal(t, 2, stats.ShardsTotal)
		assert.Len(t, w.Delays, 1)
		assert.Equal(t, "PlayerId\nA\nB\n", out.String())
	})

	t.Run("zero byte shard is skipped", func(t *testing.T) {
		f := &memFetcher{bodies: map[string]string{
			"a": "",
			"b": "PlayerId\tName\nP2\tBob",
		}}
		m, _ := newMerger(f)
		var out bytes.Buffer

		stats, err := m.MergeShards(context.Background(), []string{"a", "b"}, &out)

		require.NoError(t, err)
		assert.Equal(t, "PlayerId\tName\nP2\tBob\n", out.String())
		assert.Equal(t, 2, stats.ShardsMerged)
	})

	t.Run("blank first line is not a header", func(t *testing.T) {
		f := &memFetcher{bodies: map[string]string{"a": "\nPlayerId\nP1\n"}}
		m, _ := newMerger(f)

		_, err := m.MergeShards(context.Background(), []string{"a"}, io.Discard)

		var integrityErr *IntegrityError
		require.ErrorAs(t, err, &integrityErr)
	})

	t.Run("pauses between shards only", func(t *testing.T) {
		f := &memFetcher{bodies: map[string]string{
			"a": "PlayerId\n1\n",
			"b": "PlayerId\n2\n",
			"c": "PlayerId\n3\n",
		}}
		m, w := newMerger(f)

		_, err := m.MergeShards(context.Background(), []string{"a", "b", "c"}, io.Discard)

		require.NoError(t, err)
		assert.Equal(t, []time.Duration{time.Second, time.Second}, w.Delays)
	})

	t.Run("no pause when delay is zero", func(t *testing.T) {
		f := &memFetcher{bodies: map[string]string{"a": "PlayerId\n1\n", "b": "PlayerId\n2\n"}}
		w := &wait.Recorder{}
		m := New(Config{ShardDelay: 0}, f, w)

		_, err := m.MergeShards(context.Background(), []string{"a", "b"}, io.Discard)

		require.NoError(t, err)
		assert.Empty(t, w.Delays)
	})

	t.Run("interrupted pause aborts", func(t *testing.T) {
		f := &memFetcher{bodies: map[string]string{"a": "PlayerId\n1\n", "b": "PlayerId\n2\n"}}
		w := &wait.Recorder{Err: context.Canceled}
		m := New(DefaultConfig(), f, w)

		_, err := m.MergeShards(context.Background(), []string{"a", "b"}, io.Discard)

		require.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, []string{"a"}, f.fetched)
	})

	t.Run("custom header marker", func(t *testing.T) {
		f := &memFetcher{bodies: map[string]string{"a": "MasterPlayerAccountId\tX\nM1\t1\n"}}
		m := New(Config{HeaderMarker: "MasterPlayerAccountId"}, f, &wait.Recorder{})
		var out bytes.Buffer

		_, err := m.MergeShards(context.Background(), []string{"a"}, &out)

		require.NoError(t, err)
		assert.Equal(t, "MasterPlayerAccountId\tX\nM1\t1\n", out.String())
	})

	t.Run("progress lines", func(t *testing.T) {
		f := &memFetcher{bodies: map[string]string{"a": "PlayerId\n1\n", "b": "PlayerId\n2\n"}}
		var progress bytes.Buffer
		m := New(DefaultConfig(), f, &wait.Recorder{}, WithProgress(&progress))

		_, err := m.MergeShards(context.Background(), []string{"a", "b", ""}, io.Discard)

		require.NoError(t, err)
		assert.Equal(t, "Downloaded 1 files out of 2...\nDownloaded 2 files out of 2...\n", progress.String())
	})

	t.Run("sink write failure", func(t *testing.T) {
		f := &memFetcher{bodies: map[string]string{"a": "PlayerId\n1\n"}}
		m, _ := newMerger(f)
		sink := &failingWriter{failAfter: 1}

		_, err := m.MergeShards(context.Background(), []string{"a"}, sink)

		require.Error(t, err)
		assert.ErrorIs(t, err, errDiskFull)
	})
}

var errDiskFull = errors.New("disk full")

type failingWriter struct {
	failAfter int
	writes    int
}

func (w *failingWriter) Write(p []byte) (int, error) {
	if w.writes >= w.failAfter {
		return 0, errDiskFull
	}
	w.writes++
	return len(p), nil
}

// TestMergeShardsLineCounts checks that k shards with h_i data rows produce
// exactly one header plus the sum of h_i rows, in order, for random inputs.
func TestMergeShardsLineCounts(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))

	for iter := 0; iter < 50; iter++ {
		k := rng.IntN(6)
		bodies := make(map[string]string, k)
		urls := make([]string, 0, k)
		var want []string

		for i := 0; i < k; i++ {
			url := fmt.Sprintf("https://cdn/%d/%d.tsv", iter, i)
			urls = append(urls, url)

			var b strings.Builder
			header := fmt.Sprintf("PlayerId\tShard%d", i)
			b.WriteString(header + "\n")
			if len(want) == 0 {
				want = append(want, header)
			}
			for r, h := 0, rng.IntN(8); r < h; r++ {
				if rng.IntN(4) == 0 {
					b.WriteString("\n")
				}
				row := fmt.Sprintf("P%d-%d\t%d", i, r, rng.IntN(1000))
				b.WriteString(row + "\n")
				want = append(want, row)
			}
			bodies[url] = b.String()
		}

		m, _ := newMerger(&memFetcher{bodies: bodies})
		var out bytes.Buffer
		stats, err := m.MergeShards(context.Background(), urls, &out)
		require.NoError(t, err)

		if k == 0 {
			assert.Empty(t, out.String())
			continue
		}

		got := strings.Split(strings.TrimSuffix(out.String(), "\n"), "\n")
		assert.Equal(t, want, got, "iteration %d", iter)
		assert.Equal(t, int64(len(want)-1), stats.RowsWritten)
		assert.NotContains(t, out.String(), "\n\n")
	}
}

func TestFetchManifest(t *testing.T) {
	t.Run("trailing newline yields empty entry", func(t *testing.T) {
		f := &memFetcher{bodies: map[string]string{"https://cdn/index": "urlA\nurlB\n"}}
		m, _ := newMerger(f)

		shards, err := m.FetchManifest(context.Background(), "https://cdn/index")

		require.NoError(t, err)
		assert.Equal(t, []string{"urlA", "urlB", ""}, shards)
	})

	t.Run("non success status", func(t *testing.T) {
		m, _ := newMerger(&memFetcher{})

		_, err := m.FetchManifest(context.Background(), "https://cdn/index")

		var transferErr *fetch.TransferError
		require.ErrorAs(t, err, &transferErr)
		assert.Equal(t, "https://cdn/index", transferErr.URL)
	})
}

func TestDownloadOverHTTP(t *testing.T) {
	var paths []string
	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		switch r.URL.Path {
		case "/index.txt":
			fmt.Fprintf(w, "%s/shard1.tsv\n%s/shard2.tsv\n", server.URL, server.URL)
		case "/shard1.tsv":
			w.Write([]byte("PlayerId\tName\nP1\tAlice\n"))
		case "/shard2.tsv":
			w.Write([]byte("PlayerId\tName\nP2\tBob\n\n"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	m := New(DefaultConfig(), fetch.NewClient(fetch.WithTimeout(5*time.Second)), &wait.Recorder{})
	var out bytes.Buffer

	stats, err := m.Download(context.Background(), server.URL+"/index.txt", &out)

	require.NoError(t, err)
	assert.Equal(t, "PlayerId\tName\nP1\tAlice\nP2\tBob\n", out.String())
	assert.Equal(t, []string{"/index.txt", "/shard1.tsv", "/shard2.tsv"}, paths)
	assert.Equal(t, 2, stats.ShardsMerged)
}
