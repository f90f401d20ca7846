package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"intervia-backend/internal/models"
)

// SessionRepo persists sessions, their transcripts and their question pools.
// It is the production implementation of the interview engine's Store.
type SessionRepo struct {
	pool *pgxpool.Pool
}

func NewSessionRepo(pool *pgxpool.Pool) *SessionRepo {
	return &SessionRepo{pool: pool}
}

// db is satisfied by both *pgxpool.Pool and pgx.Tx, so the same write helpers
// serve single statements and the submission transaction.
type db interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const sessionColumns = `id, candidate_id, role, status, is_terminated, termination_reason,
	completion_reason, started_at, completed_at, total_duration_seconds,
	time_remaining_seconds, last_time_update, warning_count, last_warning_at,
	proctoring_json, created_at`

func (r *SessionRepo) Create(ctx context.Context, s *models.Session) error {
	s.ID = uuid.New()
	s.Status = models.StatusScheduled
	proctoring, _ := json.Marshal(s.Proctoring)

	query := `INSERT INTO sessions (id, candidate_id, role, status, total_duration_seconds,
			time_remaining_seconds, warning_count, proctoring_json)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at`

	return r.pool.QueryRow(ctx, query,
		s.ID, s.CandidateID, s.Role, s.Status, s.TotalDurationSeconds,
		s.TimeRemainingSeconds, s.WarningCount, proctoring,
	).Scan(&s.CreatedAt)
}

func (r *SessionRepo) Session(ctx context.Context, id uuid.UUID) (*models.Session, error) {
	row := r.pool.QueryRow(ctx,
		fmt.Sprintf("SELECT %s FROM sessions WHERE id = $1", sessionColumns), id)
	return scanSession(row)
}

// ActiveSessionByCandidate returns (nil, nil) when the candidate has no
// in_progress session.
func (r *SessionRepo) ActiveSessionByCandidate(ctx context.Context, candidateID uuid.UUID) (*models.Session, error) {
	row := r.pool.QueryRow(ctx,
		fmt.Sprintf(`SELECT %s FROM sessions WHERE candidate_id = $1 AND status = 'in_progress'
			ORDER BY created_at DESC LIMIT 1`, sessionColumns), candidateID)
	s, err := scanSession(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return s, err
}

func (r *SessionRepo) ListByCandidate(ctx context.Context, candidateID uuid.UUID) ([]*models.Session, error) {
	rows, err := r.pool.Query(ctx,
		fmt.Sprintf("SELECT %s FROM sessions WHERE candidate_id = $1 ORDER BY created_at DESC", sessionColumns),
		candidateID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []*models.Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}

func (r *SessionRepo) SaveSession(ctx context.Context, s *models.Session) error {
	return saveSession(ctx, r.pool, s)
}

func saveSession(ctx context.Context, db db, s *models.Session) error {
	proctoring, _ := json.Marshal(s.Proctoring)
	_, err := db.Exec(ctx, `UPDATE sessions SET status = $1, is_terminated = $2,
			termination_reason = $3, completion_reason = $4, started_at = $5, completed_at = $6,
			total_duration_seconds = $7, time_remaining_seconds = $8, last_time_update = $9,
			warning_count = $10, last_warning_at = $11, proctoring_json = $12
		WHERE id = $13`,
		s.Status, s.IsTerminated, s.TerminationReason, s.CompletionReason,
		s.StartedAt, s.CompletedAt, s.TotalDurationSeconds, s.TimeRemainingSeconds,
		s.LastTimeUpdate, s.WarningCount, s.LastWarningAt, proctoring, s.ID)
	return err
}

func scanSession(row pgx.Row) (*models.Session, error) {
	s := &models.Session{}
	var proctoring json.RawMessage
	err := row.Scan(
		&s.ID, &s.CandidateID, &s.Role, &s.Status, &s.IsTerminated, &s.TerminationReason,
		&s.CompletionReason, &s.StartedAt, &s.CompletedAt, &s.TotalDurationSeconds,
		&s.TimeRemainingSeconds, &s.LastTimeUpdate, &s.WarningCount, &s.LastWarningAt,
		&proctoring, &s.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(proctoring) > 0 {
		json.Unmarshal(proctoring, &s.Proctoring)
	}
	return s, nil
}

// ──── Question records ────

const recordColumns = `id, session_id, position, text, category, difficulty, type, pool_index,
	expected_answer, answer, is_answered, answered_at, time_spent_seconds,
	sentiment, sentiment_analyzed_at, critique_json, critique_at,
	answer_viewed, answer_viewed_at, created_at`

func (r *SessionRepo) Transcript(ctx context.Context, sessionID uuid.UUID) ([]*models.QuestionRecord, error) {
	rows, err := r.pool.Query(ctx,
		fmt.Sprintf("SELECT %s FROM question_records WHERE session_id = $1 ORDER BY position", recordColumns),
		sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*models.QuestionRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (r *SessionRepo) Record(ctx context.Context, sessionID, questionID uuid.UUID) (*models.QuestionRecord, error) {
	row := r.pool.QueryRow(ctx,
		fmt.Sprintf("SELECT %s FROM question_records WHERE session_id = $1 AND id = $2", recordColumns),
		sessionID, questionID)
	return scanRecord(row)
}

func (r *SessionRepo) AppendRecord(ctx context.Context, rec *models.QuestionRecord) error {
	return appendRecord(ctx, r.pool, rec)
}

func appendRecord(ctx context.Context, db db, rec *models.QuestionRecord) error {
	_, err := db.Exec(ctx, `INSERT INTO question_records
			(id, session_id, position, text, category, difficulty, type, pool_index,
			 expected_answer, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		rec.ID, rec.SessionID, rec.Position, rec.Text, rec.Category, rec.Difficulty,
		rec.Type, rec.PoolIndex, rec.ExpectedAnswer, rec.CreatedAt)
	return err
}

func (r *SessionRepo) SaveRecord(ctx context.Context, rec *models.QuestionRecord) error {
	return saveRecord(ctx, r.pool, rec)
}

func saveRecord(ctx context.Context, db db, rec *models.QuestionRecord) error {
	var critique json.RawMessage
	if rec.Critique != nil {
		critique, _ = json.Marshal(rec.Critique)
	}
	_, err := db.Exec(ctx, `UPDATE question_records SET answer = $1, is_answered = $2,
			answered_at = $3, time_spent_seconds = $4, sentiment = $5, sentiment_analyzed_at = $6,
			critique_json = $7, critique_at = $8, answer_viewed = $9, answer_viewed_at = $10
		WHERE id = $11`,
		rec.Answer, rec.IsAnswered, rec.AnsweredAt, rec.TimeSpentSeconds,
		rec.Sentiment, rec.SentimentAnalyzedAt, critique, rec.CritiqueAt,
		rec.AnswerViewed, rec.AnswerViewedAt, rec.ID)
	return err
}

func scanRecord(row pgx.Row) (*models.QuestionRecord, error) {
	rec := &models.QuestionRecord{}
	var critique json.RawMessage
	err := row.Scan(
		&rec.ID, &rec.SessionID, &rec.Position, &rec.Text, &rec.Category, &rec.Difficulty,
		&rec.Type, &rec.PoolIndex, &rec.ExpectedAnswer, &rec.Answer, &rec.IsAnswered,
		&rec.AnsweredAt, &rec.TimeSpentSeconds, &rec.Sentiment, &rec.SentimentAnalyzedAt,
		&critique, &rec.CritiqueAt, &rec.AnswerViewed, &rec.AnswerViewedAt, &rec.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(critique) > 0 {
		rec.Critique = &models.Critique{}
		json.Unmarshal(critique, rec.Critique)
	}
	return rec, nil
}

// ──── Question pools ────

func (r *SessionRepo) CreatePool(ctx context.Context, p *models.QuestionPool) error {
	p.ID = uuid.New()
	questions, _ := json.Marshal(p.Questions)
	return r.pool.QueryRow(ctx, `INSERT INTO question_pools (id, session_id, questions_json)
			VALUES ($1, $2, $3) RETURNING created_at`,
		p.ID, p.SessionID, questions,
	).Scan(&p.CreatedAt)
}

func (r *SessionRepo) Pool(ctx context.Context, sessionID uuid.UUID) (*models.QuestionPool, error) {
	p := &models.QuestionPool{}
	var questions json.RawMessage
	err := r.pool.QueryRow(ctx,
		"SELECT id, session_id, questions_json, created_at FROM question_pools WHERE session_id = $1",
		sessionID,
	).Scan(&p.ID, &p.SessionID, &questions, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(questions, &p.Questions); err != nil {
		return nil, fmt.Errorf("corrupt question pool %s: %w", p.ID, err)
	}
	return p, nil
}

func (r *SessionRepo) SavePool(ctx context.Context, p *models.QuestionPool) error {
	return savePool(ctx, r.pool, p)
}

func savePool(ctx context.Context, db db, p *models.QuestionPool) error {
	questions, _ := json.Marshal(p.Questions)
	_, err := db.Exec(ctx, "UPDATE question_pools SET questions_json = $1 WHERE id = $2",
		questions, p.ID)
	return err
}

// PersistSubmission applies every write of one accepted answer in a single
// transaction: the answered record, the session's conduct/timing state, the
// pool flags, and the next record when one was produced.
func (r *SessionRepo) PersistSubmission(ctx context.Context, s *models.Session, answered *models.QuestionRecord, pool *models.QuestionPool, next *models.QuestionRecord) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := saveRecord(ctx, tx, answered); err != nil {
		return err
	}
	if err := saveSession(ctx, tx, s); err != nil {
		return err
	}
	if err := savePool(ctx, tx, pool); err != nil {
		return err
	}
	if next != nil {
		if err := appendRecord(ctx, tx, next); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}
