package watch

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"skillmatch/internal/errors"
	"skillmatch/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type changeRecorder struct {
	mu    sync.Mutex
	calls [][]types.GroupID
}

func (r *changeRecorder) record(groups []types.GroupID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, groups)
}

func (r *changeRecorder) snapshot() [][]types.GroupID {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([][]types.GroupID{}, r.calls...)
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
}

func TestNewInputWatcherValidation(t *testing.T) {
	_, err := NewInputWatcher(map[types.GroupID]string{types.GroupResume: "a.txt"}, 0, nil, nil)
	assert.Error(t, err)

	_, err = NewInputWatcher(map[types.GroupID]string{types.GroupResume: ""}, 0, func([]types.GroupID) {}, nil)
	assert.EqualError(t, err, "no input files to watch")

	w, err := NewInputWatcher(map[types.GroupID]string{types.GroupResume: "a.txt"}, 0, func([]types.GroupID) {}, nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultDebounceDelay, w.debounceDelay)
}

func TestInputWatcherDebouncesChanges(t *testing.T) {
	dir := t.TempDir()
	resume := filepath.Join(dir, "resume.txt")
	jd := filepath.Join(dir, "jd.txt")
	writeFile(t, resume, "Go")
	writeFile(t, jd, "Go, Rust")

	rec := &changeRecorder{}
	w, err := NewInputWatcher(map[types.GroupID]string{
		types.GroupResume:         resume,
		types.GroupJobDescription: jd,
	}, 50*time.Millisecond, rec.record, errors.Discard())
	require.NoError(t, err)
	require.NoError(t, w.Start())
	t.Cleanup(func() { _ = w.Stop() })
	assert.True(t, w.IsRunning())

	// a burst of writes becomes one callback
	writeFile(t, jd, "Go, Rust, K")
	writeFile(t, jd, "Go, Rust, Ka")
	writeFile(t, jd, "Go, Rust, Kafka")

	require.Eventually(t, func() bool { return len(rec.snapshot()) == 1 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, []types.GroupID{types.GroupJobDescription}, rec.snapshot()[0])

	// unrelated files in the same directory are ignored
	writeFile(t, filepath.Join(dir, "notes.txt"), "ignore me")
	time.Sleep(200 * time.Millisecond)
	assert.Len(t, rec.snapshot(), 1)
}

func TestInputWatcherStartStop(t *testing.T) {
	dir := t.TempDir()
	resume := filepath.Join(dir, "resume.pdf")
	writeFile(t, resume, "%PDF-1.4")

	w, err := NewInputWatcher(map[types.GroupID]string{types.GroupResume: resume}, 10*time.Millisecond, func([]types.GroupID) {}, nil)
	require.NoError(t, err)

	require.NoError(t, w.Start())
	assert.Error(t, w.Start(), "second start must fail")
	assert.Equal(t, []string{resume}, w.GetWatchedFiles())

	require.NoError(t, w.Stop())
	assert.False(t, w.IsRunning())
	assert.NoError(t, w.Stop())
}

func TestInputWatcherRestart(t *testing.T) {
	dir := t.TempDir()
	resume := filepath.Join(dir, "resume.txt")
	writeFile(t, resume, "Go")

	rec := &changeRecorder{}
	w, err := NewInputWatcher(map[types.GroupID]string{types.GroupResume: resume}, 20*time.Millisecond, rec.record, nil)
	require.NoError(t, err)

	require.NoError(t, w.Start())
	require.NoError(t, w.Stop())

	require.NoError(t, w.Start())
	assert.True(t, w.IsRunning())

	writeFile(t, resume, "Go and Rust")
	require.Eventually(t, func() bool { return len(rec.snapshot()) == 1 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, []types.GroupID{types.GroupResume}, rec.snapshot()[0])

	require.NoError(t, w.Stop())
	assert.False(t, w.IsRunning())
}

func TestGroupOrder(t *testing.T) {
	files := map[types.GroupID]string{
		types.GroupJobDescription: "/jd",
		types.GroupResume:         "/cv",
	}
	assert.Equal(t, []types.GroupID{types.GroupResume, types.GroupJobDescription}, groupOrder(files))
}
