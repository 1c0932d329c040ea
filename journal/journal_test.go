package journal

import (
	"errors"
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppendAndRead(t *testing.T) {
	dir := t.TempDir()
	j, err := Open(dir)
	require.NoError(t, err)

	require.NoError(t, j.Append(EntryIntent, "i-abc123", "user-42", map[string]string{"action": "shutdown"}))
	require.NoError(t, j.AppendError(EntryFailed, "i-abc123", "user-42", nil, errors.New("instance is pending")))
	require.NoError(t, j.Close())

	files, err := filepath.Glob(filepath.Join(dir, "vahti-*.journal"))
	require.NoError(t, err)
	require.Len(t, files, 1)

	reader, err := NewReader(files[0])
	require.NoError(t, err)
	defer func() { _ = reader.Close() }()

	first, err := reader.Next()
	require.NoError(t, err)
	assert.Equal(t, EntryIntent, first.Type)
	assert.Equal(t, int64(1), first.Sequence)
	assert.Equal(t, "i-abc123", first.ResourceID)
	assert.Equal(t, "user-42", first.OwnerID)
	assert.Empty(t, first.Error)

	second, err := reader.Next()
	require.NoError(t, err)
	assert.Equal(t, EntryFailed, second.Type)
	assert.Equal(t, int64(2), second.Sequence)
	assert.Equal(t, "instance is pending", second.Error)

	_, err = reader.Next()
	assert.Equal(t, io.EOF, err)
}

func TestReplay(t *testing.T) {
	dir := t.TempDir()
	j, err := Open(dir)
	require.NoError(t, err)
	require.NoError(t, j.Append(EntryCleanup, "vol-1", "user-42", nil))
	require.NoError(t, j.Append(EntryCleanup, "vol-2", "user-42", nil))
	require.NoError(t, j.Close())

	var seen []string
	err = Replay(dir, time.Time{}, func(e *Entry) error {
		seen = append(seen, e.ResourceID)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"vol-1", "vol-2"}, seen)

	// Entries before the cutoff are skipped
	seen = nil
	err = Replay(dir, time.Now().Add(time.Hour), func(e *Entry) error {
		seen = append(seen, e.ResourceID)
		return nil
	})
	require.NoError(t, err)
	assert.Empty(t, seen)
}

func TestReplayHandlerError(t *testing.T) {
	dir := t.TempDir()
	j, err := Open(dir)
	require.NoError(t, err)
	require.NoError(t, j.Append(EntryReconcile, "", "user-42", nil))
	require.NoError(t, j.Close())

	boom := errors.New("boom")
	err = Replay(dir, time.Time{}, func(e *Entry) error { return boom })
	assert.ErrorIs(t, err, boom)
}
