package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// Test is one taker's attempt at a quiz.
type Test struct {
	ID        string
	QuizID    string
	Email     string
	Contents  []map[string]any
	CreatedAt time.Time
	Extra     map[string]any
}

var testKnownKeys = []string{"_id", "quizId", "email", "contents", "createdAt"}

func (t Test) MarshalJSON() ([]byte, error) {
	doc := make(map[string]any, len(t.Extra)+5)
	for k, v := range t.Extra {
		doc[k] = v
	}
	if t.ID != "" {
		doc["_id"] = t.ID
	}
	doc["quizId"] = t.QuizID
	doc["email"] = t.Email
	contents := t.Contents
	if contents == nil {
		contents = []map[string]any{}
	}
	doc["contents"] = contents
	if !t.CreatedAt.IsZero() {
		doc["createdAt"] = t.CreatedAt
	}
	return json.Marshal(doc)
}

func (t *Test) UnmarshalJSON(data []byte) error {
	known, extra, err := splitDocument(data, testKnownKeys)
	if err != nil {
		return err
	}
	*t = Test{Extra: extra}
	if raw, ok := known["_id"]; ok {
		if err := json.Unmarshal(raw, &t.ID); err != nil {
			return fmt.Errorf("_id: %w", err)
		}
	}
	if raw, ok := known["createdAt"]; ok {
		if err := decodeNullable(raw, &t.CreatedAt); err != nil {
			return fmt.Errorf("createdAt: %w", err)
		}
	}
	delete(known, "_id")
	delete(known, "createdAt")
	return t.ApplyFields(known)
}

// ApplyFields replaces every listed field. The identity key and the creation
// timestamp are never replaced.
func (t *Test) ApplyFields(fields map[string]json.RawMessage) error {
	for key, raw := range fields {
		switch key {
		case "_id", "createdAt":
		case "quizId":
			t.QuizID = ""
			if err := decodeNullable(raw, &t.QuizID); err != nil {
				return fmt.Errorf("%w: quizId: %v", ErrBadRequest, err)
			}
		case "email":
			t.Email = ""
			if err := decodeNullable(raw, &t.Email); err != nil {
				return fmt.Errorf("%w: email: %v", ErrBadRequest, err)
			}
		case "contents":
			t.Contents = nil
			if err := decodeNullable(raw, &t.Contents); err != nil {
				return fmt.Errorf("%w: contents: %v", ErrBadRequest, err)
			}
		default:
			var v any
			if err := json.Unmarshal(raw, &v); err != nil {
				return fmt.Errorf("%w: %s: %v", ErrBadRequest, key, err)
			}
			if t.Extra == nil {
				t.Extra = make(map[string]any)
			}
			t.Extra[key] = v
		}
	}
	return nil
}

// MarkAnswered sets contents[index].answered. Missing positions up to index are
// padded with null items, the way a document store does for an indexed $set.
func (t *Test) MarkAnswered(index int) {
	for len(t.Contents) <= index {
		t.Contents = append(t.Contents, nil)
	}
	if t.Contents[index] == nil {
		t.Contents[index] = make(map[string]any, 1)
	}
	t.Contents[index]["answered"] = true
}

// SnapshotContents copies quiz items into test items with answered=false.
// Items that are not JSON objects are kept under "question".
func SnapshotContents(items []json.RawMessage) []map[string]any {
	out := make([]map[string]any, 0, len(items))
	for _, raw := range items {
		var item map[string]any
		if err := json.Unmarshal(raw, &item); err != nil || item == nil {
			var v any
			_ = json.Unmarshal(raw, &v)
			item = map[string]any{"question": v}
		}
		item["answered"] = false
		out = append(out, item)
	}
	return out
}

// TestUpdate carries an optional question index to flag as answered plus
// fields to replace.
type TestUpdate struct {
	Question *int
	Fields   map[string]json.RawMessage
}

// MaxQuestionIndex bounds the question index an update may flag, since
// missing positions up to it are padded.
const MaxQuestionIndex = 999

func (u TestUpdate) Empty() bool {
	return u.Question == nil && len(u.Fields) == 0
}

// Validate rejects empty updates and question indexes outside
// [0, MaxQuestionIndex].
func (u TestUpdate) Validate() error {
	if u.Empty() {
		return ErrEmptyPatch
	}
	if u.Question != nil && (*u.Question < 0 || *u.Question > MaxQuestionIndex) {
		return fmt.Errorf("%w: question must be between 0 and %d", ErrBadRequest, MaxQuestionIndex)
	}
	return nil
}
