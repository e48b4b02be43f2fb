package session

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// Store journals finished and in-progress sessions to SQLite so past
// interviews can be listed. It is not used to resume a session.
type Store struct {
	db *sql.DB
}

// NewStore opens the SQLite database at dbPath and creates tables if they don't exist.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := createTables(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func createTables(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		company TEXT NOT NULL DEFAULT '',
		budget_kind TEXT NOT NULL,
		budget_limit INTEGER NOT NULL,
		end_reason TEXT NOT NULL DEFAULT '',
		started_at DATETIME NOT NULL,
		ended_at DATETIME
	);

	CREATE TABLE IF NOT EXISTS turns (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL,
		idx INTEGER NOT NULL,
		executive TEXT NOT NULL,
		speaker TEXT NOT NULL,
		question TEXT NOT NULL,
		is_followup INTEGER NOT NULL DEFAULT 0,
		modality TEXT NOT NULL,
		content TEXT NOT NULL,
		media_type TEXT NOT NULL DEFAULT '',
		size INTEGER NOT NULL DEFAULT 0,
		shown_at DATETIME NOT NULL,
		submitted_at DATETIME NOT NULL,
		FOREIGN KEY (session_id) REFERENCES sessions(id)
	);
	`
	_, err := db.Exec(schema)
	return err
}

// CreateSession inserts sess, assigning a new ID when it has none.
func (s *Store) CreateSession(sess *Session) error {
	if sess.ID == "" {
		sess.ID = uuid.New().String()
	}
	if sess.StartTime.IsZero() {
		sess.StartTime = time.Now()
	}

	_, err := s.db.Exec(
		`INSERT INTO sessions (id, company, budget_kind, budget_limit, started_at)
		 VALUES (?, ?, ?, ?, ?)`,
		sess.ID, sess.Company, string(sess.Budget.Kind), sess.Budget.Limit(), sess.StartTime,
	)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

// FinishSession stamps the end reason and end time of a session.
func (s *Store) FinishSession(id string, reason EndReason, endedAt time.Time) error {
	_, err := s.db.Exec(
		`UPDATE sessions SET end_reason = ?, ended_at = ? WHERE id = ?`,
		string(reason), endedAt, id,
	)
	if err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	return nil
}

// RecordTurn appends an answered turn. Unanswered turns are rejected.
func (s *Store) RecordTurn(sessionID string, t Turn) error {
	if t.Response == nil {
		return fmt.Errorf("turn %d has no response", t.Index)
	}

	isFollowUp := 0
	if t.Prompt.IsFollowUp {
		isFollowUp = 1
	}

	_, err := s.db.Exec(
		`INSERT INTO turns (session_id, idx, executive, speaker, question, is_followup,
		                    modality, content, media_type, size, shown_at, submitted_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sessionID, t.Index, t.Prompt.Executive, t.Prompt.Speaker(), t.Prompt.Question, isFollowUp,
		string(t.Response.Modality), t.Response.Content(), t.Response.MediaType, t.Response.Size,
		t.ShownAt, t.SubmittedAt,
	)
	if err != nil {
		return fmt.Errorf("insert turn: %w", err)
	}
	return nil
}

// GetSession retrieves a journaled session and its answered turns by ID.
// Returns nil, nil when no such session exists.
func (s *Store) GetSession(id string) (*Session, error) {
	row := s.db.QueryRow(
		`SELECT id, company, budget_kind, budget_limit, end_reason, started_at, ended_at
		 FROM sessions WHERE id = ?`,
		id,
	)

	var (
		sess    Session
		kind    string
		limit   int
		reason  string
		endedAt sql.NullTime
	)
	err := row.Scan(&sess.ID, &sess.Company, &kind, &limit, &reason, &sess.StartTime, &endedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan session: %w", err)
	}
	sess.Budget = budgetFromRow(kind, limit)
	sess.EndReason = EndReason(reason)
	if endedAt.Valid {
		sess.EndTime = endedAt.Time
		sess.State = Closed
	}

	turns, err := s.GetTurns(id)
	if err != nil {
		return nil, err
	}
	sess.Turns = turns

	return &sess, nil
}

// GetTurns returns the recorded turns of a session in order.
func (s *Store) GetTurns(sessionID string) ([]Turn, error) {
	rows, err := s.db.Query(
		`SELECT idx, executive, speaker, question, is_followup, modality, content,
		        media_type, size, shown_at, submitted_at
		 FROM turns WHERE session_id = ? ORDER BY idx ASC`,
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("query turns: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var turns []Turn
	for rows.Next() {
		var (
			t          Turn
			r          Response
			isFollowUp int
			modality   string
			content    string
		)
		if err := rows.Scan(&t.Index, &t.Prompt.Executive, &t.Prompt.Name, &t.Prompt.Question, &isFollowUp,
			&modality, &content, &r.MediaType, &r.Size, &t.ShownAt, &t.SubmittedAt); err != nil {
			return nil, fmt.Errorf("scan turn: %w", err)
		}
		t.Prompt.IsFollowUp = isFollowUp != 0
		r.Modality = Modality(modality)
		if r.Modality == ModalityAudio {
			r.Transcription = content
		} else {
			r.Text = content
		}
		t.Response = &r
		turns = append(turns, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}

	return turns, nil
}

// ListSessions returns summaries of the most recent sessions.
func (s *Store) ListSessions(limit int) ([]Summary, error) {
	rows, err := s.db.Query(
		`SELECT s.id, s.company, s.budget_kind, s.budget_limit, s.end_reason, s.started_at, s.ended_at,
		        COALESCE(COUNT(t.id), 0) AS turns,
		        COALESCE(SUM(CASE WHEN t.modality = 'audio' THEN 1 ELSE 0 END), 0) AS audio
		 FROM sessions s
		 LEFT JOIN turns t ON s.id = t.session_id
		 GROUP BY s.id
		 ORDER BY s.started_at DESC
		 LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var summaries []Summary
	for rows.Next() {
		var (
			sum     Summary
			kind    string
			lim     int
			reason  string
			endedAt sql.NullTime
		)
		if err := rows.Scan(&sum.ID, &sum.Company, &kind, &lim, &reason, &sum.StartedAt, &endedAt,
			&sum.Turns, &sum.Audio); err != nil {
			return nil, fmt.Errorf("scan summary: %w", err)
		}
		sum.Budget = budgetFromRow(kind, lim)
		sum.EndReason = EndReason(reason)
		sum.Text = sum.Turns - sum.Audio
		if endedAt.Valid {
			sum.EndedAt = endedAt.Time
		}
		summaries = append(summaries, sum)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}

	return summaries, nil
}

func budgetFromRow(kind string, limit int) Budget {
	if BudgetKind(kind) == BudgetDuration {
		return DurationBudget(limit)
	}
	return QuestionBudget(limit)
}
