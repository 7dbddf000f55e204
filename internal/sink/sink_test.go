package sink

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSink(t *testing.T) *FileSink {
	t.Helper()
	s, err := NewFileSink(filepath.Join(t.TempDir(), "out"), nil)
	require.NoError(t, err)
	return s
}

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"plain", "plain"},
		{"a/b\\c", "a_b_c"},
		{`x|y?z*w:"q"`, "x_y_z_w__q_"},
		{"<tag>", "_tag_"},
		{"a+b [c]", "a_b__c_"},
		{"007", "007"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SanitizeName(tt.in), "SanitizeName(%q)", tt.in)
	}
}

func TestFileSink_AppendCreatesAndGrows(t *testing.T) {
	s := newTestSink(t)

	require.NoError(t, s.Append("007", json.RawMessage(`[{"a":1}]`)))
	require.NoError(t, s.Append("007", json.RawMessage(`[{"a":2}]`)))

	list, err := s.Read("007")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.JSONEq(t, `[{"a":1}]`, string(list[0]))
	assert.JSONEq(t, `[{"a":2}]`, string(list[1]))

	data, err := os.ReadFile(s.Path("007"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "[\n    [\n        {"), "file should use 4-space indent:\n%s", data)
}

func TestFileSink_CorruptBucketStartsOver(t *testing.T) {
	s := newTestSink(t)

	require.NoError(t, os.WriteFile(s.Path("bad"), []byte("{not json"), 0o644))
	require.NoError(t, s.Append("bad", json.RawMessage(`[1]`)))

	list, err := s.Read("bad")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.JSONEq(t, `[1]`, string(list[0]))
}

func TestFileSink_ReadMissing(t *testing.T) {
	s := newTestSink(t)

	list, err := s.Read("nothing")
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestFileSink_RejectsInvalidInput(t *testing.T) {
	s := newTestSink(t)

	assert.ErrorIs(t, s.Append("", json.RawMessage(`[1]`)), ErrEmptyBucket)
	assert.ErrorIs(t, s.Append("b", json.RawMessage(`[1`)), ErrInvalidBody)

	_, err := os.Stat(s.Path("b"))
	assert.True(t, os.IsNotExist(err), "invalid body must not create a bucket")
}

func TestFileSink_OutputDirHoldsOnlyBuckets(t *testing.T) {
	s := newTestSink(t)

	require.NoError(t, s.Append("007", json.RawMessage(`[1]`)))
	require.NoError(t, s.Append("a b", json.RawMessage(`[2]`)))
	require.NoError(t, s.Append("007", json.RawMessage(`[3]`)))

	entries, err := os.ReadDir(s.Dir())
	require.NoError(t, err)

	var files []string
	for _, e := range entries {
		if e.IsDir() {
			assert.Equal(t, LockDir, e.Name())
			continue
		}
		files = append(files, e.Name())
	}
	assert.ElementsMatch(t, []string{"007.json", "a_b.json"}, files)

	_, err = os.Stat(filepath.Join(s.Dir(), LockDir, "007.lock"))
	assert.NoError(t, err, "flock file lives under the lock dir")
}

func TestFileSink_SanitizedPath(t *testing.T) {
	s := newTestSink(t)

	require.NoError(t, s.Append("Cool/Name: 1", json.RawMessage(`[1]`)))

	_, err := os.Stat(filepath.Join(s.Dir(), "Cool_Name__1.json"))
	assert.NoError(t, err)
}

func TestFileSink_ConcurrentAppends(t *testing.T) {
	s := newTestSink(t)

	const n = 50
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, s.Append("shared", json.RawMessage(fmt.Sprintf(`[{"i":%d}]`, i))))
		}(i)
	}
	wg.Wait()

	list, err := s.Read("shared")
	require.NoError(t, err)
	require.Len(t, list, n)

	seen := make(map[int]bool, n)
	for _, raw := range list {
		var body []struct{ I int }
		require.NoError(t, json.Unmarshal(raw, &body))
		require.Len(t, body, 1)
		seen[body[0].I] = true
	}
	assert.Len(t, seen, n, "every append must be present exactly once")
	assert.Equal(t, 0, s.lockCount(), "lock map should be empty when idle")
}

func TestFileSink_ConcurrentAppendsAcrossSinks(t *testing.T) {
	dir := t.TempDir()
	a, err := NewFileSink(dir, nil)
	require.NoError(t, err)
	b, err := NewFileSink(dir, nil)
	require.NoError(t, err)

	const n = 20
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			assert.NoError(t, a.Append("shared", json.RawMessage(`["a"]`)))
		}()
		go func() {
			defer wg.Done()
			assert.NoError(t, b.Append("shared", json.RawMessage(`["b"]`)))
		}()
	}
	wg.Wait()

	list, err := a.Read("shared")
	require.NoError(t, err)
	assert.Len(t, list, 2*n)
}

func TestFileSink_IndependentBuckets(t *testing.T) {
	s := newTestSink(t)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, s.Append(fmt.Sprintf("b%d", i), json.RawMessage(`[true]`)))
		}(i)
	}
	wg.Wait()

	for i := 0; i < 10; i++ {
		list, err := s.Read(fmt.Sprintf("b%d", i))
		require.NoError(t, err)
		assert.Len(t, list, 1)
	}
}
