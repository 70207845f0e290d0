package scoring

import (
	"encoding/json"
	"fmt"
)

type QuestionType string

const (
	TypeSingleCorrect   QuestionType = "singleCorrect"
	TypeMultipleCorrect QuestionType = "multipleCorrect"
	TypeNumerical       QuestionType = "numerical"
)

// SectionTypes lists the three aggregation buckets in report order.
var SectionTypes = []QuestionType{TypeSingleCorrect, TypeMultipleCorrect, TypeNumerical}

// Question is the slice of runner state the calculator reads. Timing and
// visit metadata stay with the runner and never reach this package.
//
// UserAnswer carries the response for singleCorrect/numerical questions
// (nil means unanswered; an empty string is an answer). SelectedOptions
// carries the response for multipleCorrect questions (nil or empty means
// unanswered; order is irrelevant).
type Question struct {
	ID              int64        `json:"id"`
	Type            QuestionType `json:"type"`
	UserAnswer      *string      `json:"userAnswer,omitempty"`
	SelectedOptions []string     `json:"selectedOptions,omitempty"`
}

// UnmarshalJSON accepts the runner's polymorphic userAnswer field: null,
// a string, or an array of option letters depending on question type.
func (q *Question) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID         int64           `json:"id"`
		Type       QuestionType    `json:"type"`
		UserAnswer json.RawMessage `json:"userAnswer"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	q.ID = raw.ID
	q.Type = raw.Type
	q.UserAnswer = nil
	q.SelectedOptions = nil

	if len(raw.UserAnswer) == 0 || string(raw.UserAnswer) == "null" {
		return nil
	}
	switch raw.UserAnswer[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw.UserAnswer, &s); err != nil {
			return err
		}
		q.UserAnswer = &s
	case '[':
		var opts []string
		if err := json.Unmarshal(raw.UserAnswer, &opts); err != nil {
			return err
		}
		q.SelectedOptions = opts
	default:
		return fmt.Errorf("question %d: userAnswer must be null, string or array", raw.ID)
	}
	return nil
}

// MarkOverride is a per-question singleCorrect marks override carried in
// the answer key. Used only when the global scheme is disabled.
type MarkOverride struct {
	Correct    int `json:"correct"`
	Incorrect  int `json:"incorrect"`
	Unanswered int `json:"unanswered"`
}

// KeyEntry is one validated answer-key entry. CorrectText is set for
// singleCorrect/numerical entries, CorrectOptions for multipleCorrect.
type KeyEntry struct {
	Type           QuestionType
	CorrectText    string
	CorrectOptions []string
	Marks          *MarkOverride
}

func (e *KeyEntry) UnmarshalJSON(data []byte) error {
	var raw struct {
		Type          QuestionType    `json:"type"`
		CorrectAnswer json.RawMessage `json:"correctAnswer"`
		Marks         *MarkOverride   `json:"marks"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	e.Type = raw.Type
	e.Marks = raw.Marks
	e.CorrectText = ""
	e.CorrectOptions = nil

	if len(raw.CorrectAnswer) == 0 {
		return nil
	}
	switch raw.CorrectAnswer[0] {
	case '"':
		return json.Unmarshal(raw.CorrectAnswer, &e.CorrectText)
	case '[':
		return json.Unmarshal(raw.CorrectAnswer, &e.CorrectOptions)
	default:
		return fmt.Errorf("correctAnswer must be a string or an array of strings")
	}
}

func (e KeyEntry) MarshalJSON() ([]byte, error) {
	out := map[string]any{"type": e.Type}
	if e.Type == TypeMultipleCorrect {
		out["correctAnswer"] = e.CorrectOptions
	} else {
		out["correctAnswer"] = e.CorrectText
	}
	if e.Marks != nil {
		out["marks"] = e.Marks
	}
	return json.Marshal(out)
}

// correctAnswerSlice renders the entry's correct answer in the shape the
// report layer consumes, regardless of question type.
func (e KeyEntry) correctAnswerSlice() []string {
	if e.Type == TypeMultipleCorrect {
		return append([]string(nil), e.CorrectOptions...)
	}
	if e.CorrectText == "" {
		return []string{}
	}
	return []string{e.CorrectText}
}

// AnswerKey maps question ids (as they appear in the uploaded JSON document)
// to validated entries.
type AnswerKey map[string]KeyEntry

type MarkTriple struct {
	Correct    int `json:"correct"`
	Incorrect  int `json:"incorrect"`
	Unanswered int `json:"unanswered"`
}

type SingleCorrectScheme struct {
	// Global selects the Default triple for every singleCorrect question.
	// When false, a per-question override from the answer key wins and
	// Default is the fallback for entries without one.
	Global  bool       `json:"global"`
	Default MarkTriple `json:"default"`
}

type PartialCorrectScheme struct {
	AllCorrectOptionsThreeMarked int `json:"allCorrectOptionsThreeMarked"`
	TwoCorrectOptionsMarked      int `json:"twoCorrectOptionsMarked"`
	OneCorrectOptionMarked       int `json:"oneCorrectOptionMarked"`
}

type MultipleCorrectScheme struct {
	AllCorrect     int                  `json:"allCorrect"`
	PartialCorrect PartialCorrectScheme `json:"partialCorrect"`
	AnyIncorrect   int                  `json:"anyIncorrect"`
	Unanswered     int                  `json:"unanswered"`
}

// MarkingScheme is the fully-populated marking configuration. Callers must
// fill every field before scoring; DefaultMarkingScheme supplies the stock
// values.
type MarkingScheme struct {
	SingleCorrect   SingleCorrectScheme   `json:"singleCorrect"`
	Numerical       MarkTriple            `json:"numerical"`
	MultipleCorrect MultipleCorrectScheme `json:"multipleCorrect"`
}

func DefaultMarkingScheme() MarkingScheme {
	return MarkingScheme{
		SingleCorrect: SingleCorrectScheme{
			Global:  true,
			Default: MarkTriple{Correct: 4, Incorrect: -1, Unanswered: 0},
		},
		Numerical: MarkTriple{Correct: 4, Incorrect: 0, Unanswered: 0},
		MultipleCorrect: MultipleCorrectScheme{
			AllCorrect: 4,
			PartialCorrect: PartialCorrectScheme{
				AllCorrectOptionsThreeMarked: 3,
				TwoCorrectOptionsMarked:      2,
				OneCorrectOptionMarked:       1,
			},
			AnyIncorrect: -2,
			Unanswered:   0,
		},
	}
}

type SectionScore struct {
	Score      int `json:"score"`
	MaxScore   int `json:"maxScore"`
	Correct    int `json:"correct"`
	Incorrect  int `json:"incorrect"`
	Unanswered int `json:"unanswered"`
}

type QuestionScore struct {
	Score         int      `json:"score"`
	MaxScore      int      `json:"maxScore"`
	IsCorrect     bool     `json:"isCorrect"`
	CorrectAnswer []string `json:"correctAnswer"`
	UserAnswer    []string `json:"userAnswer"`
}

// ScoreResult is the full breakdown for one scoring run. It is plain data:
// recomputed from scratch on every call, safe to serialize as-is.
type ScoreResult struct {
	TotalScore    int                            `json:"totalScore"`
	TotalMaxScore int                            `json:"totalMaxScore"`
	Sections      map[QuestionType]*SectionScore `json:"sectionScores"`
	Questions     map[int64]*QuestionScore       `json:"questionScores"`
}

func userAnswerSlice(q Question) []string {
	switch q.Type {
	case TypeMultipleCorrect:
		if q.SelectedOptions == nil {
			return []string{}
		}
		return append([]string(nil), q.SelectedOptions...)
	default:
		if q.UserAnswer == nil {
			return []string{}
		}
		return []string{*q.UserAnswer}
	}
}
