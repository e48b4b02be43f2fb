package session

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestStore_CreateAndGetSession(t *testing.T) {
	store := newTestStore(t)

	sess := &Session{Company: "Acme", Budget: DurationBudget(10)}
	require.NoError(t, store.CreateSession(sess))
	require.NotEmpty(t, sess.ID)
	require.False(t, sess.StartTime.IsZero())

	got, err := store.GetSession(sess.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Acme", got.Company)
	assert.Equal(t, DurationBudget(10), got.Budget)
	assert.Equal(t, ReasonNone, got.EndReason)
	assert.True(t, got.EndTime.IsZero())
}

func TestStore_GetSessionMissing(t *testing.T) {
	store := newTestStore(t)

	got, err := store.GetSession("does-not-exist")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestStore_RecordTurnsAndFinish(t *testing.T) {
	store := newTestStore(t)

	sess := &Session{Company: "Acme", Budget: QuestionBudget(3)}
	require.NoError(t, store.CreateSession(sess))

	now := time.Now()
	text := Turn{
		Index:       0,
		Prompt:      Prompt{Executive: "CEO", Name: "Dana", Title: "CEO", Question: "Why now?"},
		Response:    &Response{Modality: ModalityText, Text: "Because the market moved."},
		ShownAt:     now,
		SubmittedAt: now.Add(20 * time.Second),
	}
	audio := Turn{
		Index:       1,
		Prompt:      Prompt{Executive: "CFO", Name: "Lee", Question: "What does it cost?", IsFollowUp: true},
		Response:    &Response{Modality: ModalityAudio, MediaType: "audio/wav", Size: 3200, Transcription: "About two million."},
		ShownAt:     now.Add(30 * time.Second),
		SubmittedAt: now.Add(50 * time.Second),
	}
	require.NoError(t, store.RecordTurn(sess.ID, text))
	require.NoError(t, store.RecordTurn(sess.ID, audio))
	require.NoError(t, store.FinishSession(sess.ID, ReasonSessionEnding, now.Add(time.Minute)))

	got, err := store.GetSession(sess.ID)
	require.NoError(t, err)
	require.Len(t, got.Turns, 2)
	assert.Equal(t, ReasonSessionEnding, got.EndReason)
	assert.Equal(t, Closed, got.State)

	assert.Equal(t, "Because the market moved.", got.Turns[0].Response.Content())
	assert.Equal(t, ModalityAudio, got.Turns[1].Response.Modality)
	assert.Equal(t, "About two million.", got.Turns[1].Response.Content())
	assert.Equal(t, 3200, got.Turns[1].Response.Size)
	assert.True(t, got.Turns[1].Prompt.IsFollowUp)
}

func TestStore_RecordTurnRejectsUnanswered(t *testing.T) {
	store := newTestStore(t)

	err := store.RecordTurn("any", Turn{Index: 4})
	require.Error(t, err)
}

func TestStore_ListSessions(t *testing.T) {
	store := newTestStore(t)

	first := &Session{Company: "First", Budget: QuestionBudget(2), StartTime: time.Now().Add(-time.Hour)}
	second := &Session{Company: "Second", Budget: DurationBudget(5), StartTime: time.Now()}
	require.NoError(t, store.CreateSession(first))
	require.NoError(t, store.CreateSession(second))

	require.NoError(t, store.RecordTurn(second.ID, Turn{
		Index:    0,
		Response: &Response{Modality: ModalityAudio, Transcription: "hi"},
	}))
	require.NoError(t, store.RecordTurn(second.ID, Turn{
		Index:    1,
		Response: &Response{Modality: ModalityText, Text: "hello"},
	}))

	sums, err := store.ListSessions(10)
	require.NoError(t, err)
	require.Len(t, sums, 2)

	assert.Equal(t, "Second", sums[0].Company)
	assert.Equal(t, 2, sums[0].Turns)
	assert.Equal(t, 1, sums[0].Audio)
	assert.Equal(t, 1, sums[0].Text)
	assert.Equal(t, "First", sums[1].Company)
	assert.Equal(t, 0, sums[1].Turns)
}
