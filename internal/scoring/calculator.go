package scoring

import "strconv"

// CalculateScore grades a finished attempt against a validated answer key
// and a fully-populated marking scheme. It is pure: identical inputs yield
// identical results, and nothing is retained between calls.
//
// Questions without a matching key entry are skipped outright: they appear
// nowhere in the result and contribute to no total. The same holds for
// questions whose type matches no known case. Both behaviors are part of
// the scoring contract relied on by existing graded attempts; do not turn
// them into "unanswered" without a product decision.
func CalculateScore(questions []Question, key AnswerKey, scheme MarkingScheme) ScoreResult {
	result := ScoreResult{
		Sections:  make(map[QuestionType]*SectionScore, len(SectionTypes)),
		Questions: make(map[int64]*QuestionScore, len(questions)),
	}
	for _, t := range SectionTypes {
		result.Sections[t] = &SectionScore{}
	}

	for _, q := range questions {
		entry, ok := key[strconv.FormatInt(q.ID, 10)]
		if !ok {
			continue
		}

		var qs *QuestionScore
		switch q.Type {
		case TypeSingleCorrect:
			qs = scoreSingleCorrect(q, entry, scheme.SingleCorrect)
		case TypeNumerical:
			qs = scoreExactMatch(q, entry, scheme.Numerical)
		case TypeMultipleCorrect:
			qs = scoreMultipleCorrect(q, entry, scheme.MultipleCorrect)
		default:
			continue
		}

		section := result.Sections[q.Type]
		section.MaxScore += qs.MaxScore
		section.Score += qs.Score
		switch {
		case q.Type != TypeMultipleCorrect && q.UserAnswer == nil,
			q.Type == TypeMultipleCorrect && len(q.SelectedOptions) == 0:
			section.Unanswered++
		case qs.IsCorrect:
			section.Correct++
		default:
			section.Incorrect++
		}

		result.Questions[q.ID] = qs
	}

	for _, t := range SectionTypes {
		result.TotalScore += result.Sections[t].Score
		result.TotalMaxScore += result.Sections[t].MaxScore
	}
	return result
}

func scoreSingleCorrect(q Question, entry KeyEntry, scheme SingleCorrectScheme) *QuestionScore {
	marks := scheme.Default
	if !scheme.Global && entry.Marks != nil {
		marks = MarkTriple(*entry.Marks)
	}
	return scoreExactMatch(q, entry, marks)
}

// scoreExactMatch applies a marks triple with literal string comparison.
// Numerical answers deliberately go through the same path: "9.80" does not
// match a key of "9.8". Loosening this would rescore past attempts.
func scoreExactMatch(q Question, entry KeyEntry, marks MarkTriple) *QuestionScore {
	qs := &QuestionScore{
		MaxScore:      marks.Correct,
		CorrectAnswer: entry.correctAnswerSlice(),
		UserAnswer:    userAnswerSlice(q),
	}
	switch {
	case q.UserAnswer == nil:
		qs.Score = marks.Unanswered
	case *q.UserAnswer == entry.CorrectText:
		qs.Score = marks.Correct
		qs.IsCorrect = true
	default:
		qs.Score = marks.Incorrect
	}
	return qs
}

func scoreMultipleCorrect(q Question, entry KeyEntry, scheme MultipleCorrectScheme) *QuestionScore {
	qs := &QuestionScore{
		MaxScore:      scheme.AllCorrect,
		CorrectAnswer: entry.correctAnswerSlice(),
		UserAnswer:    userAnswerSlice(q),
	}

	marked := q.SelectedOptions
	if len(marked) == 0 {
		qs.Score = scheme.Unanswered
		return qs
	}

	correctSet := make(map[string]struct{}, len(entry.CorrectOptions))
	for _, opt := range entry.CorrectOptions {
		correctSet[opt] = struct{}{}
	}
	for _, opt := range marked {
		if _, ok := correctSet[opt]; !ok {
			// An incorrect pick trumps any partial credit.
			qs.Score = scheme.AnyIncorrect
			return qs
		}
	}

	// Every marked option is correct: walk the partial-credit ladder in
	// order, first match wins. Shapes no rung covers fall through to the
	// anyIncorrect tier even though nothing wrong was marked; that quirk
	// is load-bearing for already-graded attempts.
	markedCount := countDistinct(marked)
	correctCount := len(correctSet)
	switch {
	case markedCount == correctCount:
		qs.Score = scheme.AllCorrect
		qs.IsCorrect = true
	case correctCount == 4 && markedCount == 3:
		qs.Score = scheme.PartialCorrect.AllCorrectOptionsThreeMarked
	case correctCount >= 3 && markedCount == 2:
		qs.Score = scheme.PartialCorrect.TwoCorrectOptionsMarked
	case correctCount >= 2 && markedCount == 1:
		qs.Score = scheme.PartialCorrect.OneCorrectOptionMarked
	default:
		qs.Score = scheme.AnyIncorrect
	}
	return qs
}

func countDistinct(opts []string) int {
	set := make(map[string]struct{}, len(opts))
	for _, o := range opts {
		set[o] = struct{}{}
	}
	return len(set)
}
