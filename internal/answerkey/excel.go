package answerkey

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ImportError reports a malformed spreadsheet in a form the handler can
// hand back to the uploader.
type ImportError struct {
	msg string
}

func (e *ImportError) Error() string { return e.msg }

func importErrorf(format string, args ...any) error {
	return &ImportError{msg: fmt.Sprintf(format, args...)}
}

// Spreadsheet column layout. correct_answer holds a single option letter or
// value, or a comma-separated list for multipleCorrect rows. The three marks
// columns are optional and must be filled together.
var templateHeaders = []string{
	"question_id", "type", "correct_answer",
	"marks_correct", "marks_incorrect", "marks_unanswered",
}

// ImportXLSX converts a spreadsheet into the JSON answer-key document and
// funnels it through Upload, so both intake paths share one validation gate.
func (s *Service) ImportXLSX(ctx context.Context, name string, r io.Reader) (*KeyRecord, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, importErrorf("open excel: %v", err)
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, &ImportError{msg: "excel sheet is empty"}
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read rows: %w", err)
	}
	if len(rows) < 2 {
		return nil, &ImportError{msg: "no data rows found"}
	}

	header := map[string]int{}
	for i, h := range rows[0] {
		header[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, col := range []string{"question_id", "type", "correct_answer"} {
		if _, ok := header[col]; !ok {
			return nil, importErrorf("missing required column: %s", col)
		}
	}

	doc := make(map[string]any)
	for i := 1; i < len(rows); i++ {
		rowNo := i + 1
		row := rows[i]

		get := func(key string) string {
			idx, ok := header[key]
			if !ok || idx >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[idx])
		}

		id := get("question_id")
		qType := get("type")
		answer := get("correct_answer")
		if id == "" && qType == "" && answer == "" {
			continue // trailing blank row
		}
		if id == "" {
			return nil, importErrorf("row %d: question_id is empty", rowNo)
		}
		if _, exists := doc[id]; exists {
			return nil, importErrorf("row %d: duplicate question_id %s", rowNo, id)
		}

		entry := map[string]any{"type": qType}
		if qType == "multipleCorrect" {
			opts := make([]string, 0, 4)
			for _, part := range strings.Split(answer, ",") {
				part = strings.TrimSpace(part)
				if part != "" {
					opts = append(opts, part)
				}
			}
			entry["correctAnswer"] = opts
		} else {
			entry["correctAnswer"] = answer
		}

		marks, err := parseMarksCells(get("marks_correct"), get("marks_incorrect"), get("marks_unanswered"))
		if err != nil {
			return nil, importErrorf("row %d: %v", rowNo, err)
		}
		if marks != nil {
			entry["marks"] = marks
		}

		doc[id] = entry
	}

	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode answer key: %w", err)
	}
	return s.Upload(ctx, name, raw)
}

func parseMarksCells(correct, incorrect, unanswered string) (map[string]int, error) {
	if correct == "" && incorrect == "" && unanswered == "" {
		return nil, nil
	}
	out := map[string]int{}
	for field, cell := range map[string]string{
		"correct":    correct,
		"incorrect":  incorrect,
		"unanswered": unanswered,
	} {
		if cell == "" {
			return nil, fmt.Errorf("marks_%s is empty but other marks columns are filled", field)
		}
		n, err := strconv.Atoi(cell)
		if err != nil {
			return nil, fmt.Errorf("marks_%s is not an integer: %q", field, cell)
		}
		out[field] = n
	}
	return out, nil
}

// TemplateXLSX builds the downloadable spreadsheet starter, mirroring the
// JSON template rows.
func TemplateXLSX() ([]byte, error) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)

	for i, h := range templateHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	rows := [][]any{
		{"1", "singleCorrect", "A", 4, -1, 0},
		{"2", "singleCorrect", "B", nil, nil, nil},
		{"3", "multipleCorrect", "A,C,D", nil, nil, nil},
		{"5", "numerical", "9.8", nil, nil, nil},
	}
	for r, values := range rows {
		for c, v := range values {
			if v == nil {
				continue
			}
			cell, _ := excelize.CoordinatesToCellName(c+1, r+2)
			_ = f.SetCellValue(sheet, cell, v)
		}
	}
	_ = f.SetColWidth(sheet, "A", "F", 18)

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("write excel: %w", err)
	}
	return buf.Bytes(), nil
}
