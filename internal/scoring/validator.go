package scoring

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Issue describes one validation failure in an uploaded answer-key document.
// EntryID is empty for document-level failures.
type Issue struct {
	EntryID string `json:"entry_id,omitempty"`
	Field   string `json:"field,omitempty"`
	Reason  string `json:"reason"`
}

func (i Issue) String() string {
	switch {
	case i.EntryID == "":
		return i.Reason
	case i.Field == "":
		return fmt.Sprintf("entry %s: %s", i.EntryID, i.Reason)
	default:
		return fmt.Sprintf("entry %s, field %s: %s", i.EntryID, i.Field, i.Reason)
	}
}

// ValidateAnswerKey structurally checks an untrusted answer-key document.
// An empty result means the document is accepted. The accepted set is a
// strict predicate: one bad entry rejects the whole document, there is no
// partial acceptance. The checks are purely structural; the document is
// never interpreted here.
func ValidateAnswerKey(raw []byte) []Issue {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(raw, &doc); err != nil || doc == nil {
		return []Issue{{Reason: "document must be a JSON object"}}
	}
	if len(doc) == 0 {
		return []Issue{{Reason: "document has no entries"}}
	}

	issues := make([]Issue, 0)
	for id, entryRaw := range doc {
		if _, err := strconv.ParseFloat(id, 64); err != nil {
			issues = append(issues, Issue{EntryID: id, Reason: "id is not numeric"})
		}
		issues = append(issues, validateKeyEntry(id, entryRaw)...)
	}
	if len(issues) == 0 {
		return nil
	}
	return issues
}

// IsValidAnswerKey is the boolean gate in front of the calculator.
func IsValidAnswerKey(raw []byte) bool {
	return len(ValidateAnswerKey(raw)) == 0
}

func validateKeyEntry(id string, raw json.RawMessage) []Issue {
	var entry map[string]json.RawMessage
	if err := json.Unmarshal(raw, &entry); err != nil || entry == nil {
		return []Issue{{EntryID: id, Reason: "entry must be a JSON object"}}
	}

	issues := make([]Issue, 0)

	typeRaw, hasType := entry["type"]
	if !hasType {
		issues = append(issues, Issue{EntryID: id, Field: "type", Reason: "missing"})
	}
	answerRaw, hasAnswer := entry["correctAnswer"]
	if !hasAnswer {
		issues = append(issues, Issue{EntryID: id, Field: "correctAnswer", Reason: "missing"})
	}

	var qType QuestionType
	if hasType {
		var s string
		if err := json.Unmarshal(typeRaw, &s); err != nil {
			issues = append(issues, Issue{EntryID: id, Field: "type", Reason: "must be a string"})
		} else {
			qType = QuestionType(s)
			switch qType {
			case TypeSingleCorrect, TypeMultipleCorrect, TypeNumerical:
			default:
				issues = append(issues, Issue{EntryID: id, Field: "type", Reason: "unknown question type " + strconv.Quote(s)})
				qType = ""
			}
		}
	}

	if hasAnswer && qType != "" {
		switch qType {
		case TypeSingleCorrect, TypeNumerical:
			var s string
			if err := json.Unmarshal(answerRaw, &s); err != nil {
				issues = append(issues, Issue{EntryID: id, Field: "correctAnswer", Reason: "must be a string for " + string(qType)})
			}
		case TypeMultipleCorrect:
			var opts []string
			if err := json.Unmarshal(answerRaw, &opts); err != nil {
				issues = append(issues, Issue{EntryID: id, Field: "correctAnswer", Reason: "must be an array of strings for multipleCorrect"})
			} else if len(opts) == 0 {
				issues = append(issues, Issue{EntryID: id, Field: "correctAnswer", Reason: "must not be empty"})
			}
		}
	}

	if marksRaw, ok := entry["marks"]; ok {
		issues = append(issues, validateMarks(id, marksRaw)...)
	}

	return issues
}

func validateMarks(id string, raw json.RawMessage) []Issue {
	var marks map[string]json.RawMessage
	if err := json.Unmarshal(raw, &marks); err != nil || marks == nil {
		return []Issue{{EntryID: id, Field: "marks", Reason: "must be a JSON object"}}
	}

	issues := make([]Issue, 0)
	for _, field := range []string{"correct", "incorrect", "unanswered"} {
		v, ok := marks[field]
		if !ok {
			issues = append(issues, Issue{EntryID: id, Field: "marks." + field, Reason: "missing"})
			continue
		}
		var n float64
		if err := json.Unmarshal(v, &n); err != nil {
			issues = append(issues, Issue{EntryID: id, Field: "marks." + field, Reason: "must be a number"})
		}
	}
	return issues
}

// ParseAnswerKey validates and, when the document is accepted, decodes it
// into the typed form the calculator consumes.
func ParseAnswerKey(raw []byte) (AnswerKey, []Issue) {
	if issues := ValidateAnswerKey(raw); len(issues) > 0 {
		return nil, issues
	}
	var key AnswerKey
	if err := json.Unmarshal(raw, &key); err != nil {
		// Validation already vouched for the shape.
		return nil, []Issue{{Reason: "decode answer key: " + err.Error()}}
	}
	return key, nil
}
