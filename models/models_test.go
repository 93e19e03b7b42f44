package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuizJSONKeepsUnknownFieldsAtTopLevel(t *testing.T) {
	body := `{"author":"a@x.io","status":"published","title":"Go basics","timer":30,
		"contents":[{"q":"1+1?"}],"participants":["b@x.io"]}`

	var q Quiz
	require.NoError(t, json.Unmarshal([]byte(body), &q))
	assert.Equal(t, "a@x.io", q.Author)
	assert.Equal(t, StatusPublished, q.Status)
	assert.Equal(t, []string{"b@x.io"}, q.Participants)
	require.Len(t, q.Contents, 1)
	assert.Equal(t, "Go basics", q.Extra["title"])
	assert.Equal(t, float64(30), q.Extra["timer"])

	q.ID = "abc"
	out, err := json.Marshal(q)
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(out, &doc))
	assert.Equal(t, "abc", doc["_id"])
	assert.Equal(t, "Go basics", doc["title"])
	assert.Equal(t, float64(30), doc["timer"])
	assert.Equal(t, "published", doc["status"])
}

func TestQuizUnmarshalRejectsUnknownStatus(t *testing.T) {
	var q Quiz
	err := json.Unmarshal([]byte(`{"status":"archived"}`), &q)
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func TestQuizApplyFieldsLeavesOtherFieldsAlone(t *testing.T) {
	q := Quiz{
		Author:   "a@x.io",
		Status:   StatusPending,
		Contents: []json.RawMessage{json.RawMessage(`{"q":1}`)},
		Extra:    map[string]any{"title": "old"},
	}

	err := q.ApplyFields(map[string]json.RawMessage{
		"status": json.RawMessage(`"published"`),
		"_id":    json.RawMessage(`"ignored"`),
	})
	require.NoError(t, err)

	assert.Equal(t, StatusPublished, q.Status)
	assert.Equal(t, "a@x.io", q.Author)
	assert.Len(t, q.Contents, 1)
	assert.Equal(t, "old", q.Extra["title"])
	assert.Empty(t, q.ID)
}

func TestParseStatus(t *testing.T) {
	s, err := ParseStatus("")
	require.NoError(t, err)
	assert.Equal(t, QuizStatus(""), s)

	s, err = ParseStatus("pending")
	require.NoError(t, err)
	assert.Equal(t, StatusPending, s)

	_, err = ParseStatus("draft")
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func TestMarkAnsweredPreservesOtherFlags(t *testing.T) {
	test := Test{Contents: []map[string]any{
		{"q": "a", "answered": true},
		{"q": "b", "answered": false},
		{"q": "c", "answered": false},
	}}

	test.MarkAnswered(2)

	assert.Equal(t, true, test.Contents[0]["answered"])
	assert.Equal(t, false, test.Contents[1]["answered"])
	assert.Equal(t, true, test.Contents[2]["answered"])
	assert.Equal(t, "c", test.Contents[2]["q"])
}

func TestMarkAnsweredPadsShortContents(t *testing.T) {
	var test Test
	test.MarkAnswered(1)

	require.Len(t, test.Contents, 2)
	assert.Nil(t, test.Contents[0])
	assert.Equal(t, true, test.Contents[1]["answered"])
}

func TestSnapshotContents(t *testing.T) {
	items := SnapshotContents([]json.RawMessage{
		json.RawMessage(`{"q":"1+1?","options":[1,2]}`),
		json.RawMessage(`"free text"`),
	})

	require.Len(t, items, 2)
	assert.Equal(t, "1+1?", items[0]["q"])
	assert.Equal(t, false, items[0]["answered"])
	assert.Equal(t, "free text", items[1]["question"])
	assert.Equal(t, false, items[1]["answered"])
}

func TestTestJSONRoundTrip(t *testing.T) {
	var test Test
	body := `{"quizId":"q1","email":"t@x.io","score":3,"contents":[{"answered":false}]}`
	require.NoError(t, json.Unmarshal([]byte(body), &test))

	assert.Equal(t, "q1", test.QuizID)
	assert.Equal(t, "t@x.io", test.Email)
	assert.Equal(t, float64(3), test.Extra["score"])
	assert.True(t, test.CreatedAt.IsZero())

	out, err := json.Marshal(test)
	require.NoError(t, err)
	assert.NotContains(t, string(out), "createdAt")
	assert.NotContains(t, string(out), "_id")
}

func TestTestUpdateValidate(t *testing.T) {
	q := func(n int) *int { return &n }

	assert.ErrorIs(t, TestUpdate{}.Validate(), ErrEmptyPatch)
	assert.NoError(t, TestUpdate{Question: q(0)}.Validate())
	assert.NoError(t, TestUpdate{Question: q(MaxQuestionIndex)}.Validate())
	assert.ErrorIs(t, TestUpdate{Question: q(MaxQuestionIndex + 1)}.Validate(), ErrBadRequest)
	assert.ErrorIs(t, TestUpdate{Question: q(2000000000)}.Validate(), ErrBadRequest)
	assert.ErrorIs(t, TestUpdate{Question: q(-1)}.Validate(), ErrBadRequest)
	assert.NoError(t, TestUpdate{Fields: map[string]json.RawMessage{"score": json.RawMessage(`1`)}}.Validate())
}
