package services

import (
	"context"
	"encoding/json"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"quizzy/models"
	"quizzy/repository"
	"quizzy/repository/gormstore"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func newStore(t *testing.T) *gormstore.Store {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "services.db")), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	store := gormstore.New(db)
	require.NoError(t, store.Migrate())
	t.Cleanup(func() { _ = store.Close(context.Background()) })
	return store
}

// spyQuizRepo records whether any repository method ran.
type spyQuizRepo struct {
	repository.QuizRepository
	calls int
}

func (s *spyQuizRepo) ListByAuthor(context.Context, string, models.QuizStatus, int, int) ([]models.Quiz, int64, error) {
	s.calls++
	return nil, 0, nil
}

func (s *spyQuizRepo) ListByParticipant(context.Context, string, int, int) ([]models.Quiz, int64, error) {
	s.calls++
	return nil, 0, nil
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []string
}

func (n *recordingNotifier) Publish(quizID, eventType string, payload any) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, eventType+":"+quizID)
}

func raw(s string) json.RawMessage { return json.RawMessage(s) }

func TestAuthIssueValidateRoundTrip(t *testing.T) {
	auth := NewAuthService(testSecret, 24*time.Hour)

	token, err := auth.Issue(map[string]any{"email": "a@x.io", "name": "Ann"})
	require.NoError(t, err)

	id, err := auth.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, "a@x.io", id.Email)
	assert.Equal(t, "Ann", id.Claims["name"])
	assert.Contains(t, id.Claims, "exp")

	id, err = auth.ValidateHeader("Bearer " + token)
	require.NoError(t, err)
	assert.Equal(t, "a@x.io", id.Email)
}

func TestAuthValidateFailures(t *testing.T) {
	auth := NewAuthService(testSecret, 24*time.Hour)

	_, err := auth.Validate("")
	assert.ErrorIs(t, err, models.ErrUnauthorized)

	_, err = auth.ValidateHeader("")
	assert.ErrorIs(t, err, models.ErrUnauthorized)

	_, err = auth.ValidateHeader("Bearer")
	assert.ErrorIs(t, err, models.ErrForbidden)

	_, err = auth.Validate("not.a.token")
	assert.ErrorIs(t, err, models.ErrForbidden)

	other := NewAuthService("another-secret-another-secret-xx", time.Hour)
	token, err := other.Issue(map[string]any{"email": "a@x.io"})
	require.NoError(t, err)
	_, err = auth.Validate(token)
	assert.ErrorIs(t, err, models.ErrForbidden)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"email": "a@x.io"})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = auth.Validate(unsigned)
	assert.ErrorIs(t, err, models.ErrForbidden)
}

func TestAuthTokenExpires(t *testing.T) {
	auth := NewAuthService(testSecret, 24*time.Hour)
	issuedAt := time.Now()
	auth.now = func() time.Time { return issuedAt }

	token, err := auth.Issue(map[string]any{"email": "a@x.io"})
	require.NoError(t, err)

	auth.now = func() time.Time { return issuedAt.Add(23 * time.Hour) }
	_, err = auth.Validate(token)
	require.NoError(t, err)

	auth.now = func() time.Time { return issuedAt.Add(25 * time.Hour) }
	_, err = auth.Validate(token)
	assert.ErrorIs(t, err, models.ErrForbidden)
}

func TestAccessPolicy(t *testing.T) {
	owner := &models.Identity{Email: "a@x.io"}

	strict := AccessPolicy{EnforceParticipantView: true}
	assert.NoError(t, strict.AuthorizeAuthorView("a@x.io", owner))
	assert.ErrorIs(t, strict.AuthorizeAuthorView("b@x.io", owner), models.ErrForbidden)
	assert.ErrorIs(t, strict.AuthorizeAuthorView("a@x.io", nil), models.ErrUnauthorized)
	assert.ErrorIs(t, strict.AuthorizeAuthorView("", &models.Identity{}), models.ErrForbidden)
	assert.ErrorIs(t, strict.AuthorizeParticipantView("b@x.io", owner), models.ErrForbidden)

	loose := AccessPolicy{}
	assert.NoError(t, loose.AuthorizeParticipantView("b@x.io", nil))
	assert.ErrorIs(t, loose.AuthorizeAuthorView("b@x.io", owner), models.ErrForbidden)
}

func TestListAuthoredForbiddenSkipsRepository(t *testing.T) {
	spy := &spyQuizRepo{}
	svc := NewQuizService(spy, AccessPolicy{EnforceParticipantView: true}, models.UpdateOptions{})

	_, err := svc.ListAuthored(context.Background(), &models.Identity{Email: "a@x.io"}, ListQuizzesRequest{Email: "b@x.io"})
	assert.ErrorIs(t, err, models.ErrForbidden)

	_, err = svc.ListParticipated(context.Background(), &models.Identity{Email: "a@x.io"}, ListQuizzesRequest{Email: "b@x.io"})
	assert.ErrorIs(t, err, models.ErrForbidden)

	_, err = svc.ListAuthored(context.Background(), &models.Identity{Email: "a@x.io"}, ListQuizzesRequest{Email: "a@x.io", Status: "draft"})
	assert.ErrorIs(t, err, models.ErrInvalidStatus)

	assert.Zero(t, spy.calls)
}

func TestQuizLifecycle(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	svc := NewQuizService(store.Quizzes(), AccessPolicy{EnforceParticipantView: true}, models.UpdateOptions{CreateIfMissing: true})
	owner := &models.Identity{Email: "a@x.io"}

	created, err := svc.Create(ctx, &models.Quiz{Author: "a@x.io", Extra: map[string]any{"title": "T"}})
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, created.Status)

	_, err = svc.Update(ctx, created.ID, map[string]json.RawMessage{"contents": raw(`{"q":"first"}`)})
	require.NoError(t, err)
	_, err = svc.Update(ctx, created.ID, map[string]json.RawMessage{"participants": raw(`"p@x.io"`)})
	require.NoError(t, err)
	res, err := svc.Update(ctx, created.ID, map[string]json.RawMessage{"status": raw(`"published"`)})
	require.NoError(t, err)
	assert.EqualValues(t, 1, res.ModifiedCount)

	got, err := svc.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPublished, got.Status)
	assert.Equal(t, "T", got.Extra["title"])
	require.Len(t, got.Contents, 1)
	assert.JSONEq(t, `{"q":"first"}`, string(got.Contents[0]))
	assert.Equal(t, []string{"p@x.io"}, got.Participants)

	page, err := svc.ListAuthored(ctx, owner, ListQuizzesRequest{Email: "a@x.io", Status: "published"})
	require.NoError(t, err)
	assert.EqualValues(t, 1, page.TotalCount)

	page, err = svc.ListParticipated(ctx, &models.Identity{Email: "p@x.io"}, ListQuizzesRequest{Email: "p@x.io"})
	require.NoError(t, err)
	assert.EqualValues(t, 1, page.TotalCount)

	del, err := svc.Delete(ctx, created.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, del.DeletedCount)

	_, err = svc.Get(ctx, created.ID)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestQuizCreateRejectsUnknownStatus(t *testing.T) {
	svc := NewQuizService(newStore(t).Quizzes(), AccessPolicy{}, models.UpdateOptions{})
	_, err := svc.Create(context.Background(), &models.Quiz{Author: "a@x.io", Status: "draft"})
	assert.ErrorIs(t, err, models.ErrInvalidStatus)
}

func TestDecideQuizUpdate(t *testing.T) {
	tests := []struct {
		name    string
		patch   map[string]json.RawMessage
		mode    models.QuizUpdateMode
		wantErr error
	}{
		{"contents wins", map[string]json.RawMessage{"contents": raw(`{"q":1}`), "participants": raw(`"p"`)}, models.AppendContent, nil},
		{"participant", map[string]json.RawMessage{"participants": raw(`"p@x.io"`)}, models.AppendParticipant, nil},
		{"falsy contents falls through", map[string]json.RawMessage{"contents": raw(`null`), "status": raw(`"pending"`)}, models.ReplaceFields, nil},
		{"replace", map[string]json.RawMessage{"title": raw(`"x"`)}, models.ReplaceFields, nil},
		{"participant must be a string", map[string]json.RawMessage{"participants": raw(`["a","b"]`)}, 0, models.ErrBadRequest},
		{"bad status", map[string]json.RawMessage{"status": raw(`"draft"`)}, 0, models.ErrInvalidStatus},
		{"only key", map[string]json.RawMessage{"_id": raw(`"abc"`)}, 0, models.ErrEmptyPatch},
		{"empty", map[string]json.RawMessage{}, 0, models.ErrEmptyPatch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			upd, err := decideQuizUpdate(tt.patch)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.mode, upd.Mode)
		})
	}
}

func TestStartTestSnapshotsQuizContents(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	notifier := &recordingNotifier{}
	quizzes := NewQuizService(store.Quizzes(), AccessPolicy{}, models.UpdateOptions{})
	svc := NewTestService(store.Tests(), store.Quizzes(), notifier, models.UpdateOptions{CreateIfMissing: true})

	quiz, err := quizzes.Create(ctx, &models.Quiz{
		Author:   "a@x.io",
		Contents: []json.RawMessage{raw(`{"q":"one"}`), raw(`{"q":"two"}`)},
	})
	require.NoError(t, err)

	test, err := svc.Start(ctx, StartTestRequest{QuizID: quiz.ID, Email: "t@x.io"})
	require.NoError(t, err)
	require.Len(t, test.Contents, 2)
	assert.Equal(t, "one", test.Contents[0]["q"])
	assert.Equal(t, false, test.Contents[0]["answered"])

	_, err = svc.Start(ctx, StartTestRequest{QuizID: quiz.ID, Email: "t@x.io"})
	assert.ErrorIs(t, err, models.ErrDuplicateAttempt)

	listed, err := svc.ListByTaker(ctx, "t@x.io")
	require.NoError(t, err)
	assert.Len(t, listed, 1)

	q := 1
	res, err := svc.RecordAnswer(ctx, test.ID, &q, nil)
	require.NoError(t, err)
	assert.EqualValues(t, 1, res.ModifiedCount)

	got, err := svc.Get(ctx, test.ID)
	require.NoError(t, err)
	assert.Equal(t, false, got.Contents[0]["answered"])
	assert.Equal(t, true, got.Contents[1]["answered"])

	assert.Equal(t, []string{
		EventTestStarted + ":" + quiz.ID,
		EventAnswerRecorded + ":" + quiz.ID,
	}, notifier.events)
}

func TestStartTestValidation(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	svc := NewTestService(store.Tests(), store.Quizzes(), nil, models.UpdateOptions{})

	_, err := svc.Start(ctx, StartTestRequest{Email: "t@x.io"})
	assert.ErrorIs(t, err, models.ErrBadRequest)

	_, err = svc.Start(ctx, StartTestRequest{QuizID: "00000000-0000-4000-8000-000000000000", Email: "t@x.io"})
	assert.ErrorIs(t, err, models.ErrNotFound)

	test, err := svc.Start(ctx, StartTestRequest{
		Email: "t@x.io",
		Body: map[string]json.RawMessage{
			"quizId":   raw(`"external-quiz"`),
			"contents": raw(`[{"q":"custom"}]`),
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "external-quiz", test.QuizID)
	require.Len(t, test.Contents, 1)

	_, err = svc.RecordAnswer(ctx, test.ID, nil, nil)
	assert.ErrorIs(t, err, models.ErrEmptyPatch)

	huge := 2000000000
	_, err = svc.RecordAnswer(ctx, test.ID, &huge, nil)
	assert.ErrorIs(t, err, models.ErrBadRequest)
}
