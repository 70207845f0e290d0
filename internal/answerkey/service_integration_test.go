package answerkey

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"mockexam/internal/db"

	"github.com/xuri/excelize/v2"
)

// openTestDB spins up a throwaway sqlite database. Gated behind
// MOCKEXAM_INTEGRATION=1 so the default test run stays free of disk I/O.
func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	if os.Getenv("MOCKEXAM_INTEGRATION") != "1" {
		t.Skip("set MOCKEXAM_INTEGRATION=1 to run database tests")
	}

	dsn := "file:" + filepath.Join(t.TempDir(), "test.db") + "?_pragma=busy_timeout(5000)"
	conn, err := db.Open(context.Background(), db.DriverSQLite, dsn)
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func TestServiceUploadIsContentAddressed(t *testing.T) {
	conn := openTestDB(t)
	svc := NewService(conn)
	ctx := context.Background()

	doc := []byte(`{
		"1": {"type": "singleCorrect", "correctAnswer": "A"},
		"3": {"type": "multipleCorrect", "correctAnswer": ["A", "C"]}
	}`)

	first, err := svc.Upload(ctx, "mock 1", doc)
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if first.ID == 0 || first.Fingerprint == "" {
		t.Fatalf("expected populated record, got %+v", first)
	}

	// Same document with different whitespace and name must dedupe.
	again, err := svc.Upload(ctx, "mock 1 copy", []byte(`{"3":{"type":"multipleCorrect","correctAnswer":["A","C"]},"1":{"type":"singleCorrect","correctAnswer":"A"}}`))
	if err != nil {
		t.Fatalf("re-upload: %v", err)
	}
	if again.ID != first.ID {
		t.Fatalf("expected dedupe to id %d, got %d", first.ID, again.ID)
	}
	if again.Name != "mock 1" {
		t.Fatalf("expected original name to win, got %q", again.Name)
	}

	// A different document is a new row.
	other, err := svc.Upload(ctx, "mock 2", []byte(`{"1": {"type": "singleCorrect", "correctAnswer": "B"}}`))
	if err != nil {
		t.Fatalf("upload other: %v", err)
	}
	if other.ID == first.ID {
		t.Fatal("distinct documents must not share a row")
	}
}

func TestServiceUploadRejectsInvalidDocument(t *testing.T) {
	conn := openTestDB(t)
	svc := NewService(conn)

	_, err := svc.Upload(context.Background(), "bad", []byte(`{"1": {"type": "essay", "correctAnswer": "A"}}`))
	var verr *ValidationError
	if !errors.As(err, &verr) || len(verr.Issues) == 0 {
		t.Fatalf("expected validation issues, got %v", err)
	}

	items, err := svc.List(context.Background(), 10, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(items) != 0 {
		t.Fatalf("rejected upload must not be stored, found %d rows", len(items))
	}
}

func TestServiceGetListDelete(t *testing.T) {
	conn := openTestDB(t)
	svc := NewService(conn)
	ctx := context.Background()

	rec, err := svc.Upload(ctx, "k1", []byte(`{"1": {"type": "numerical", "correctAnswer": "9.8"}}`))
	if err != nil {
		t.Fatalf("upload: %v", err)
	}

	got, err := svc.Get(ctx, rec.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Fingerprint != rec.Fingerprint || len(got.Document) == 0 {
		t.Fatalf("get returned incomplete record: %+v", got)
	}

	if _, err := svc.Get(ctx, rec.ID+100); err != ErrKeyNotFound {
		t.Fatalf("expected ErrKeyNotFound, got %v", err)
	}

	items, err := svc.List(ctx, 10, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(items) != 1 || items[0].ID != rec.ID {
		t.Fatalf("unexpected listing: %+v", items)
	}
	if len(items[0].Document) != 0 {
		t.Fatal("listing must not carry full documents")
	}

	if err := svc.Delete(ctx, rec.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := svc.Delete(ctx, rec.ID); err != ErrKeyNotFound {
		t.Fatalf("expected ErrKeyNotFound on second delete, got %v", err)
	}
}

func TestServiceDeleteRefusesKeysWithResults(t *testing.T) {
	conn := openTestDB(t)
	svc := NewService(conn)
	ctx := context.Background()

	rec, err := svc.Upload(ctx, "k1", []byte(`{"1": {"type": "singleCorrect", "correctAnswer": "A"}}`))
	if err != nil {
		t.Fatalf("upload: %v", err)
	}

	_, err = conn.ExecContext(ctx, `
		INSERT INTO score_results (attempt_ref, answer_key_id, marking_scheme, result, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, "attempt-1", rec.ID, "{}", "{}", time.Now().UTC())
	if err != nil {
		t.Fatalf("seed result: %v", err)
	}

	if err := svc.Delete(ctx, rec.ID); err != ErrKeyInUse {
		t.Fatalf("expected ErrKeyInUse, got %v", err)
	}
}

func TestServiceImportXLSXRoundTrip(t *testing.T) {
	conn := openTestDB(t)
	svc := NewService(conn)
	ctx := context.Background()

	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	rows := [][]any{
		{"question_id", "type", "correct_answer", "marks_correct", "marks_incorrect", "marks_unanswered"},
		{"1", "singleCorrect", "A", 4, -1, 0},
		{"3", "multipleCorrect", "A, C, D", nil, nil, nil},
		{"5", "numerical", "9.8", nil, nil, nil},
	}
	for r, values := range rows {
		for c, v := range values {
			if v == nil {
				continue
			}
			cell, _ := excelize.CoordinatesToCellName(c+1, r+1)
			_ = f.SetCellValue(sheet, cell, v)
		}
	}
	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		t.Fatalf("build xlsx: %v", err)
	}

	rec, err := svc.ImportXLSX(ctx, "imported", bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("import: %v", err)
	}

	got, err := svc.Get(ctx, rec.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	doc := string(got.Document)
	for _, want := range []string{`"multipleCorrect"`, `"9.8"`, `"correct":4`} {
		if !bytes.Contains([]byte(doc), []byte(want)) {
			t.Fatalf("stored document missing %s: %s", want, doc)
		}
	}

	// The template spreadsheet must itself import cleanly.
	tpl, err := TemplateXLSX()
	if err != nil {
		t.Fatalf("template: %v", err)
	}
	if _, err := svc.ImportXLSX(ctx, "template", bytes.NewReader(tpl)); err != nil {
		t.Fatalf("template import: %v", err)
	}
}

func TestImportXLSXRowErrors(t *testing.T) {
	conn := openTestDB(t)
	svc := NewService(conn)
	ctx := context.Background()

	build := func(rows [][]any) []byte {
		t.Helper()
		f := excelize.NewFile()
		sheet := f.GetSheetName(0)
		for r, values := range rows {
			for c, v := range values {
				if v == nil {
					continue
				}
				cell, _ := excelize.CoordinatesToCellName(c+1, r+1)
				_ = f.SetCellValue(sheet, cell, v)
			}
		}
		var buf bytes.Buffer
		if err := f.Write(&buf); err != nil {
			t.Fatalf("build xlsx: %v", err)
		}
		return buf.Bytes()
	}

	tests := []struct {
		name string
		rows [][]any
	}{
		{
			name: "missing type column",
			rows: [][]any{{"question_id", "correct_answer"}, {"1", "A"}},
		},
		{
			name: "duplicate question id",
			rows: [][]any{
				{"question_id", "type", "correct_answer"},
				{"1", "singleCorrect", "A"},
				{"1", "singleCorrect", "B"},
			},
		},
		{
			name: "partial marks columns",
			rows: [][]any{
				{"question_id", "type", "correct_answer", "marks_correct", "marks_incorrect", "marks_unanswered"},
				{"1", "singleCorrect", "A", 4, nil, nil},
			},
		},
		{
			name: "no data rows",
			rows: [][]any{{"question_id", "type", "correct_answer"}},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.ImportXLSX(ctx, tc.name, bytes.NewReader(build(tc.rows)))
			if err == nil {
				t.Fatal("expected import error")
			}
			if _, ok := err.(*ImportError); !ok {
				t.Fatalf("expected ImportError, got %T: %v", err, err)
			}
		})
	}
}
