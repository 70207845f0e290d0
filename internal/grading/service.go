package grading

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"mockexam/internal/scoring"
)

var (
	ErrAnswerKeyNotFound = errors.New("answer key not found")
	ErrResultNotFound    = errors.New("score result not found")
	ErrInvalidScheme     = errors.New("invalid marking scheme")
)

// ScoreRequest is one grading run: the attempt's question list as the
// runner holds it in memory, a stored answer key, and an optional marking
// scheme (defaults apply when omitted).
type ScoreRequest struct {
	AttemptRef    string             `json:"attempt_ref"`
	AnswerKeyID   int64              `json:"answer_key_id"`
	Questions     []scoring.Question `json:"questions"`
	MarkingScheme json.RawMessage    `json:"marking_scheme,omitempty"`
}

type ScoreRecord struct {
	ID          int64               `json:"id"`
	AttemptRef  string              `json:"attempt_ref"`
	AnswerKeyID int64               `json:"answer_key_id"`
	Result      scoring.ScoreResult `json:"result"`
	CreatedAt   time.Time           `json:"created_at"`
}

// ScoreSummary is the list-view projection of a stored result.
type ScoreSummary struct {
	ID            int64     `json:"id"`
	AttemptRef    string    `json:"attempt_ref"`
	AnswerKeyID   int64     `json:"answer_key_id"`
	TotalScore    int       `json:"total_score"`
	TotalMaxScore int       `json:"total_max_score"`
	CreatedAt     time.Time `json:"created_at"`
}

type Service struct {
	db *sql.DB
}

func NewService(db *sql.DB) *Service {
	return &Service{db: db}
}

// Score grades the attempt and stores the breakdown. Re-scoring the same
// attempt_ref (say, after a marking-scheme edit) replaces the stored row;
// each run is a full recompute, never an incremental update.
func (s *Service) Score(ctx context.Context, req ScoreRequest) (*ScoreRecord, error) {
	var document []byte
	err := s.db.QueryRowContext(ctx, `
		SELECT document
		FROM answer_keys
		WHERE id = $1
	`, req.AnswerKeyID).Scan(&document)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAnswerKeyNotFound
		}
		return nil, fmt.Errorf("load answer key: %w", err)
	}

	key, issues := scoring.ParseAnswerKey(document)
	if len(issues) > 0 {
		// Stored keys passed validation on upload.
		return nil, fmt.Errorf("stored answer key %d no longer parses: %v", req.AnswerKeyID, issues)
	}

	scheme, err := scoring.ParseMarkingScheme(req.MarkingScheme)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidScheme, err)
	}

	result := scoring.CalculateScore(req.Questions, key, scheme)

	schemeJSON, err := json.Marshal(scheme)
	if err != nil {
		return nil, fmt.Errorf("encode marking scheme: %w", err)
	}
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("encode score result: %w", err)
	}

	rec := &ScoreRecord{
		AttemptRef:  req.AttemptRef,
		AnswerKeyID: req.AnswerKeyID,
		Result:      result,
	}
	err = s.db.QueryRowContext(ctx, `
		INSERT INTO score_results (attempt_ref, answer_key_id, marking_scheme, result, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (attempt_ref) DO UPDATE SET
			answer_key_id = EXCLUDED.answer_key_id,
			marking_scheme = EXCLUDED.marking_scheme,
			result = EXCLUDED.result,
			created_at = EXCLUDED.created_at
		RETURNING id, created_at
	`, req.AttemptRef, req.AnswerKeyID, string(schemeJSON), string(resultJSON), time.Now().UTC()).Scan(&rec.ID, &rec.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("store score result: %w", err)
	}
	return rec, nil
}

func (s *Service) GetResult(ctx context.Context, id int64) (*ScoreRecord, error) {
	rec := &ScoreRecord{}
	var resultJSON []byte
	err := s.db.QueryRowContext(ctx, `
		SELECT id, attempt_ref, answer_key_id, result, created_at
		FROM score_results
		WHERE id = $1
	`, id).Scan(&rec.ID, &rec.AttemptRef, &rec.AnswerKeyID, &resultJSON, &rec.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrResultNotFound
		}
		return nil, fmt.Errorf("load score result: %w", err)
	}
	if err := json.Unmarshal(resultJSON, &rec.Result); err != nil {
		return nil, fmt.Errorf("decode score result: %w", err)
	}
	return rec, nil
}

func (s *Service) ListResults(ctx context.Context, limit, offset int) ([]ScoreSummary, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, attempt_ref, answer_key_id, result, created_at
		FROM score_results
		ORDER BY created_at DESC, id DESC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list score results: %w", err)
	}
	defer rows.Close()

	out := make([]ScoreSummary, 0)
	for rows.Next() {
		var (
			sum        ScoreSummary
			resultJSON []byte
		)
		if err := rows.Scan(&sum.ID, &sum.AttemptRef, &sum.AnswerKeyID, &resultJSON, &sum.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan score result: %w", err)
		}
		var result scoring.ScoreResult
		if err := json.Unmarshal(resultJSON, &result); err != nil {
			return nil, fmt.Errorf("decode score result %d: %w", sum.ID, err)
		}
		sum.TotalScore = result.TotalScore
		sum.TotalMaxScore = result.TotalMaxScore
		out = append(out, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate score results: %w", err)
	}
	return out, nil
}

// PurgeResultsBefore drops stored results older than the cutoff. Returns
// the number of rows removed.
func (s *Service) PurgeResultsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM score_results
		WHERE created_at < $1
	`, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("purge score results: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("purge rows affected: %w", err)
	}
	return n, nil
}
