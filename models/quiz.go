package models

import (
	"encoding/json"
	"fmt"
)

type QuizStatus string

const (
	StatusPending   QuizStatus = "pending"
	StatusPublished QuizStatus = "published"
)

func (s QuizStatus) Valid() bool {
	return s == StatusPending || s == StatusPublished
}

// ParseStatus accepts an empty string as "no status".
func ParseStatus(raw string) (QuizStatus, error) {
	if raw == "" {
		return "", nil
	}
	s := QuizStatus(raw)
	if !s.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, raw)
	}
	return s, nil
}

// Quiz is an author-owned document. Fields the service does not know about are
// kept in Extra and flattened back into the top level on the wire.
type Quiz struct {
	ID           string
	Author       string
	Status       QuizStatus
	Contents     []json.RawMessage
	Participants []string
	Extra        map[string]any
}

var quizKnownKeys = []string{"_id", "author", "status", "contents", "participants"}

func (q Quiz) MarshalJSON() ([]byte, error) {
	doc := make(map[string]any, len(q.Extra)+5)
	for k, v := range q.Extra {
		doc[k] = v
	}
	if q.ID != "" {
		doc["_id"] = q.ID
	}
	doc["author"] = q.Author
	doc["status"] = q.Status
	contents := q.Contents
	if contents == nil {
		contents = []json.RawMessage{}
	}
	doc["contents"] = contents
	participants := q.Participants
	if participants == nil {
		participants = []string{}
	}
	doc["participants"] = participants
	return json.Marshal(doc)
}

func (q *Quiz) UnmarshalJSON(data []byte) error {
	known, extra, err := splitDocument(data, quizKnownKeys)
	if err != nil {
		return err
	}
	*q = Quiz{Extra: extra}
	if raw, ok := known["_id"]; ok {
		if err := json.Unmarshal(raw, &q.ID); err != nil {
			return fmt.Errorf("_id: %w", err)
		}
	}
	delete(known, "_id")
	return q.ApplyFields(known)
}

// ApplyFields replaces every listed field, leaving the rest untouched. The
// identity key is never replaced.
func (q *Quiz) ApplyFields(fields map[string]json.RawMessage) error {
	for key, raw := range fields {
		switch key {
		case "_id":
		case "author":
			q.Author = ""
			if err := decodeNullable(raw, &q.Author); err != nil {
				return fmt.Errorf("%w: author: %v", ErrBadRequest, err)
			}
		case "status":
			var s string
			if err := decodeNullable(raw, &s); err != nil {
				return fmt.Errorf("%w: status: %v", ErrBadRequest, err)
			}
			status, err := ParseStatus(s)
			if err != nil {
				return err
			}
			q.Status = status
		case "contents":
			q.Contents = nil
			if err := decodeNullable(raw, &q.Contents); err != nil {
				return fmt.Errorf("%w: contents: %v", ErrBadRequest, err)
			}
		case "participants":
			q.Participants = nil
			if err := decodeNullable(raw, &q.Participants); err != nil {
				return fmt.Errorf("%w: participants: %v", ErrBadRequest, err)
			}
		default:
			var v any
			if err := json.Unmarshal(raw, &v); err != nil {
				return fmt.Errorf("%w: %s: %v", ErrBadRequest, key, err)
			}
			if q.Extra == nil {
				q.Extra = make(map[string]any)
			}
			q.Extra[key] = v
		}
	}
	return nil
}

type QuizUpdateMode int

const (
	ReplaceFields QuizUpdateMode = iota
	AppendContent
	AppendParticipant
)

func (m QuizUpdateMode) String() string {
	switch m {
	case AppendContent:
		return "append_content"
	case AppendParticipant:
		return "append_participant"
	default:
		return "replace_fields"
	}
}

// QuizUpdate is a patch whose shape has already been decided.
type QuizUpdate struct {
	Mode        QuizUpdateMode
	Item        json.RawMessage
	Participant string
	Fields      map[string]json.RawMessage
}

type QuizPage struct {
	Quizzes    []Quiz `json:"quizzes"`
	TotalCount int64  `json:"totalCount"`
}

func splitDocument(data []byte, knownKeys []string) (map[string]json.RawMessage, map[string]any, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, nil, err
	}
	known := make(map[string]json.RawMessage, len(knownKeys))
	for _, k := range knownKeys {
		if v, ok := raw[k]; ok {
			known[k] = v
			delete(raw, k)
		}
	}
	var extra map[string]any
	if len(raw) > 0 {
		extra = make(map[string]any, len(raw))
		for k, v := range raw {
			var decoded any
			if err := json.Unmarshal(v, &decoded); err != nil {
				return nil, nil, err
			}
			extra[k] = decoded
		}
	}
	return known, extra, nil
}

func decodeNullable(raw json.RawMessage, dst any) error {
	if string(raw) == "null" {
		return nil
	}
	return json.Unmarshal(raw, dst)
}
