package answerkey

import (
	"context"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"mockexam/internal/scoring"

	"golang.org/x/crypto/blake2b"
)

var (
	ErrKeyNotFound = errors.New("answer key not found")
	ErrKeyInUse    = errors.New("answer key has stored results")
)

// ValidationError carries the per-entry issues of a rejected upload so the
// handler can show the author exactly what to fix.
type ValidationError struct {
	Issues []scoring.Issue
}

func (e *ValidationError) Error() string {
	if len(e.Issues) == 0 {
		return "answer key rejected"
	}
	parts := make([]string, 0, len(e.Issues))
	for _, is := range e.Issues {
		parts = append(parts, is.String())
	}
	return "answer key rejected: " + strings.Join(parts, "; ")
}

type KeyRecord struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	Fingerprint string          `json:"fingerprint"`
	Document    json.RawMessage `json:"document,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

type Service struct {
	db *sql.DB
}

func NewService(db *sql.DB) *Service {
	return &Service{db: db}
}

// Upload validates an answer-key document and stores it content-addressed.
// Uploading the same document twice returns the already-stored record.
func (s *Service) Upload(ctx context.Context, name string, raw []byte) (*KeyRecord, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		name = "untitled key"
	}

	key, issues := scoring.ParseAnswerKey(raw)
	if len(issues) > 0 {
		return nil, &ValidationError{Issues: issues}
	}

	// Re-marshal so whitespace and field order never change the
	// fingerprint of an identical document.
	canonical, err := json.Marshal(key)
	if err != nil {
		return nil, fmt.Errorf("canonicalize answer key: %w", err)
	}
	sum := blake2b.Sum256(canonical)
	fingerprint := hex.EncodeToString(sum[:])

	existing := &KeyRecord{}
	err = s.db.QueryRowContext(ctx, `
		SELECT id, name, fingerprint, document, created_at
		FROM answer_keys
		WHERE fingerprint = $1
	`, fingerprint).Scan(&existing.ID, &existing.Name, &existing.Fingerprint, &existing.Document, &existing.CreatedAt)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("query existing key: %w", err)
	}

	created := &KeyRecord{Name: name, Fingerprint: fingerprint, Document: canonical}
	err = s.db.QueryRowContext(ctx, `
		INSERT INTO answer_keys (name, fingerprint, document, created_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`, name, fingerprint, string(canonical), time.Now().UTC()).Scan(&created.ID, &created.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert answer key: %w", err)
	}
	return created, nil
}

func (s *Service) Get(ctx context.Context, id int64) (*KeyRecord, error) {
	rec := &KeyRecord{}
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, fingerprint, document, created_at
		FROM answer_keys
		WHERE id = $1
	`, id).Scan(&rec.ID, &rec.Name, &rec.Fingerprint, &rec.Document, &rec.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrKeyNotFound
		}
		return nil, fmt.Errorf("load answer key: %w", err)
	}
	return rec, nil
}

// List returns stored keys without their documents, newest first.
func (s *Service) List(ctx context.Context, limit, offset int) ([]KeyRecord, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, fingerprint, created_at
		FROM answer_keys
		ORDER BY created_at DESC, id DESC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list answer keys: %w", err)
	}
	defer rows.Close()

	out := make([]KeyRecord, 0)
	for rows.Next() {
		var rec KeyRecord
		if err := rows.Scan(&rec.ID, &rec.Name, &rec.Fingerprint, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan answer key: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate answer keys: %w", err)
	}
	return out, nil
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	var inUse bool
	if err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM score_results WHERE answer_key_id = $1)
	`, id).Scan(&inUse); err != nil {
		return fmt.Errorf("check key usage: %w", err)
	}
	if inUse {
		return ErrKeyInUse
	}

	res, err := s.db.ExecContext(ctx, `DELETE FROM answer_keys WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete answer key: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete answer key rows: %w", err)
	}
	if n == 0 {
		return ErrKeyNotFound
	}
	return nil
}

// TemplateJSON is the starter document offered to exam authors for download.
func TemplateJSON() []byte {
	return []byte(`{
  "1": { "type": "singleCorrect", "correctAnswer": "A", "marks": {"correct": 4, "incorrect": -1, "unanswered": 0} },
  "2": { "type": "singleCorrect", "correctAnswer": "B" },
  "3": { "type": "multipleCorrect", "correctAnswer": ["A", "C", "D"] },
  "5": { "type": "numerical", "correctAnswer": "9.8" }
}
`)
}
