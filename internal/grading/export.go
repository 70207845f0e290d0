package grading

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"strings"

	"mockexam/internal/scoring"

	"github.com/xuri/excelize/v2"
)

// ExportResultXLSX renders one stored result as a score sheet: section
// totals on top, one row per scored question below.
func (s *Service) ExportResultXLSX(ctx context.Context, id int64) ([]byte, error) {
	rec, err := s.GetResult(ctx, id)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	sheet := f.GetSheetName(0)

	row := 1
	setRow := func(values ...any) {
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			_ = f.SetCellValue(sheet, cell, v)
		}
		row++
	}

	setRow("attempt", rec.AttemptRef)
	setRow("answer_key_id", rec.AnswerKeyID)
	setRow("total_score", rec.Result.TotalScore)
	setRow("total_max_score", rec.Result.TotalMaxScore)
	row++

	setRow("section", "score", "max_score", "correct", "incorrect", "unanswered")
	for _, t := range scoring.SectionTypes {
		sec := rec.Result.Sections[t]
		if sec == nil {
			continue
		}
		setRow(string(t), sec.Score, sec.MaxScore, sec.Correct, sec.Incorrect, sec.Unanswered)
	}
	row++

	setRow("question_id", "score", "max_score", "is_correct", "correct_answer", "user_answer")
	ids := make([]int64, 0, len(rec.Result.Questions))
	for qid := range rec.Result.Questions {
		ids = append(ids, qid)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, qid := range ids {
		qs := rec.Result.Questions[qid]
		setRow(
			qid,
			qs.Score,
			qs.MaxScore,
			qs.IsCorrect,
			strings.Join(qs.CorrectAnswer, ","),
			strings.Join(qs.UserAnswer, ","),
		)
	}

	_ = f.SetColWidth(sheet, "A", "F", 18)

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("write excel: %w", err)
	}
	return buf.Bytes(), nil
}
