package log

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogger_AppendAndReadAll(t *testing.T) {
	dir := t.TempDir()
	logger, err := NewLogger(dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, ".panelsim", "log.jsonl"), logger.Path())

	require.NoError(t, logger.Append(LogEvent{Event: EventSessionStarted, SessionID: "s1"}))
	require.NoError(t, logger.Append(LogEvent{Event: EventLateEvent, SessionID: "s1", Reason: "upload_result"}))
	require.NoError(t, logger.Append(LogEvent{Event: EventSessionStarted, SessionID: "s2"}))

	events, err := logger.ReadAll()
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.False(t, events[0].Time.IsZero(), "time is stamped")
	assert.Equal(t, time.UTC, events[0].Time.Location())

	s1 := ForSession(events, "s1")
	require.Len(t, s1, 2)
	assert.Equal(t, EventLateEvent, s1[1].Event)
	assert.Equal(t, "upload_result", s1[1].Reason)
}

func TestLogger_ReadAllMissingFile(t *testing.T) {
	logger, err := NewLogger(t.TempDir())
	require.NoError(t, err)

	events, err := logger.ReadAll()
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestLogger_ReadAllSkipsTornLine(t *testing.T) {
	dir := t.TempDir()
	logger, err := NewLogger(dir)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(logger.Path(), []byte("{\"event\":\"submit\"}\n{\"event\":\"sess"), 0644))

	events, err := logger.ReadAll()
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, EventSubmit, events[0].Event)
}

func TestLogger_ConcurrentAppend(t *testing.T) {
	logger, err := NewLogger(t.TempDir())
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, logger.Append(LogEvent{Event: EventSubmit, Turn: i}))
		}(i)
	}
	wg.Wait()

	events, err := logger.ReadAll()
	require.NoError(t, err)
	assert.Len(t, events, 20)
}
