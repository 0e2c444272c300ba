package exam

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mind-engage/classroom-gateway/internal/classroom"
	"github.com/mind-engage/classroom-gateway/internal/db"
	syncx "github.com/mind-engage/classroom-gateway/internal/sync"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared&_pragma=foreign_keys(1)"
	dbh, err := db.Open(context.Background(), db.DriverSQLite, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = dbh.Close() })
	return dbh
}

func TestSQLStoreTestRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := NewSQLStore(openTestDB(t))
	opens := t0.Add(-time.Hour)
	tst := mcTest()
	tst.PassingScore = floatp(50)
	tst.OpensAt = &opens
	tst.Questions = append(tst.Questions, Question{
		ID: "q0", Text: "first", Type: ShortAnswer, Points: 2, Order: -1,
		Answers: []ReferenceAnswer{{ID: "r1", Text: "ref"}},
	})
	require.NoError(t, s.PutTest(ctx, tst))
	require.NoError(t, s.PutTest(ctx, tst), "upsert is repeatable")

	got, err := s.GetTest(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, "room1", got.ClassroomID)
	assert.Equal(t, KindTest, got.Kind)
	require.NotNil(t, got.TimeLimitMinutes)
	assert.Equal(t, 30, *got.TimeLimitMinutes)
	assert.Equal(t, 30*time.Minute, got.TimeLimit())
	require.NotNil(t, got.PassingScore)
	assert.Equal(t, 50.0, *got.PassingScore)
	require.NotNil(t, got.OpensAt)
	assert.True(t, opens.Equal(*got.OpensAt))
	assert.Nil(t, got.ClosesAt)

	qs, err := s.ListQuestions(ctx, "t1")
	require.NoError(t, err)
	require.Len(t, qs, 2)
	assert.Equal(t, "q0", qs[0].ID)
	require.Len(t, qs[0].Answers, 1)
	assert.Equal(t, "ref", qs[0].Answers[0].Text)
	require.Len(t, qs[1].Options, 2)
	assert.True(t, qs[1].Options[0].Correct)
	assert.False(t, qs[1].Options[1].Correct)

	_, err = s.GetTest(ctx, "missing")
	assert.ErrorIs(t, err, ErrRecordNotFound)
}

func TestSQLStoreOneOpenAttempt(t *testing.T) {
	ctx := context.Background()
	s := NewSQLStore(openTestDB(t))
	require.NoError(t, s.PutTest(ctx, mcTest()))

	a, created, err := s.FindOrCreateAttempt(ctx, "t1", "stu", t0)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, t0, a.StartedAt)

	again, created, err := s.FindOrCreateAttempt(ctx, "t1", "stu", t0.Add(time.Minute))
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, a.ID, again.ID)
	assert.Equal(t, t0, again.StartedAt)

	other, created, err := s.FindOrCreateAttempt(ctx, "t1", "stu2", t0)
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotEqual(t, a.ID, other.ID)

	_, err = s.CompleteAttempt(ctx, Completion{AttemptID: a.ID, SubmittedAt: t0.Add(time.Minute)})
	require.NoError(t, err)

	next, created, err := s.FindOrCreateAttempt(ctx, "t1", "stu", t0.Add(2*time.Minute))
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotEqual(t, a.ID, next.ID)
}

func TestSQLStoreConcurrentFindOrCreate(t *testing.T) {
	ctx := context.Background()
	s := NewSQLStore(openTestDB(t))
	require.NoError(t, s.PutTest(ctx, mcTest()))

	const n = 8
	ids := make([]string, n)
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			a, _, err := s.FindOrCreateAttempt(ctx, "t1", "stu", t0)
			ids[i], errs[i] = a.ID, err
		}(i)
	}
	wg.Wait()
	for i := 0; i < n; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, ids[0], ids[i])
	}
	list, err := s.ListAttempts(ctx, AttemptListOpts{TestID: "t1"})
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestSQLStoreCompleteAttemptOnce(t *testing.T) {
	ctx := context.Background()
	dbh := openTestDB(t)
	s := NewSQLStore(dbh)
	require.NoError(t, s.PutTest(ctx, mcTest()))
	a, _, err := s.FindOrCreateAttempt(ctx, "t1", "stu", t0)
	require.NoError(t, err)

	optA, optB := "A", "B"
	yes, no := true, false
	ten, zero := 10.0, 0.0
	ev, err := syncx.NewEvent(syncx.TypeAttemptSubmitted, a.ID, map[string]any{"score": 100})
	require.NoError(t, err)

	done, err := s.CompleteAttempt(ctx, Completion{
		AttemptID:   a.ID,
		SubmittedAt: t0.Add(10 * time.Minute),
		Score:       floatp(100),
		Responses: []Response{
			{ID: uuid.NewString(), QuestionID: "q1", OptionID: &optB, IsCorrect: &no, PointsAwarded: &zero},
			{ID: uuid.NewString(), QuestionID: "q1", OptionID: &optA, IsCorrect: &yes, PointsAwarded: &ten},
		},
		Events: []syncx.Event{ev},
	})
	require.NoError(t, err)
	assert.True(t, done.Completed)
	require.NotNil(t, done.Score)
	assert.Equal(t, 100.0, *done.Score)
	require.NotNil(t, done.SubmittedAt)
	assert.Equal(t, t0.Add(10*time.Minute), *done.SubmittedAt)

	rs, err := s.ListResponses(ctx, a.ID)
	require.NoError(t, err)
	require.Len(t, rs, 1, "responses are keyed by (attempt, question)")
	assert.Equal(t, "A", *rs[0].OptionID)
	assert.True(t, *rs[0].IsCorrect)
	assert.Equal(t, 10.0, *rs[0].PointsAwarded)

	_, err = s.CompleteAttempt(ctx, Completion{
		AttemptID:   a.ID,
		SubmittedAt: t0.Add(11 * time.Minute),
		Responses:   []Response{{ID: uuid.NewString(), QuestionID: "q1", OptionID: &optB}},
	})
	require.ErrorIs(t, err, ErrAlreadyCompleted)

	rs, err = s.ListResponses(ctx, a.ID)
	require.NoError(t, err)
	require.Len(t, rs, 1)
	assert.Equal(t, "A", *rs[0].OptionID, "losing submit must not touch responses")

	evs, err := syncx.NewEventRepo(dbh).Since(ctx, 0, 10)
	require.NoError(t, err)
	require.Len(t, evs, 1)
	assert.Equal(t, a.ID, evs[0].Key)
	assert.Equal(t, syncx.TypeAttemptSubmitted, evs[0].Type)
}

func TestSQLStoreCompleteMissingAttempt(t *testing.T) {
	s := NewSQLStore(openTestDB(t))
	_, err := s.CompleteAttempt(context.Background(), Completion{AttemptID: "nope", SubmittedAt: t0})
	require.ErrorIs(t, err, ErrAlreadyCompleted)

	_, err = s.GetAttempt(context.Background(), "nope")
	require.ErrorIs(t, err, ErrRecordNotFound)
}

func TestSQLStoreListAttempts(t *testing.T) {
	ctx := context.Background()
	s := NewSQLStore(openTestDB(t))
	require.NoError(t, s.PutTest(ctx, mcTest()))
	for i, u := range []string{"a", "b", "c"} {
		_, _, err := s.FindOrCreateAttempt(ctx, "t1", u, t0.Add(time.Duration(i)*time.Minute))
		require.NoError(t, err)
	}

	all, err := s.ListAttempts(ctx, AttemptListOpts{TestID: "t1"})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "c", all[0].UserID, "newest first")

	page, err := s.ListAttempts(ctx, AttemptListOpts{TestID: "t1", Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "b", page[0].UserID)

	mine, err := s.ListAttempts(ctx, AttemptListOpts{UserID: "a"})
	require.NoError(t, err)
	require.Len(t, mine, 1)
}

// The full Start/Submit flow on sqlite with classroom membership from the
// same database.
func TestServiceOverSQL(t *testing.T) {
	ctx := context.Background()
	dbh := openTestDB(t)
	dir := classroom.NewSQLDirectory(dbh)
	require.NoError(t, dir.AddMember(ctx, "room1", "stu", classroom.RoleStudent))

	now := t0
	svc := NewService(NewSQLStore(dbh), dir, WithClock(func() time.Time { return now }))
	require.NoError(t, NewSQLStore(dbh).PutTest(ctx, mcTest()))

	_, err := svc.Start(ctx, "t1", "stranger")
	require.ErrorIs(t, err, ErrForbidden)

	st, err := svc.Start(ctx, "t1", "stu")
	require.NoError(t, err)
	require.Len(t, st.Questions, 1)

	now = now.Add(32 * time.Minute)
	_, err = svc.Submit(ctx, st.Attempt.ID, "stu", []ResponseInput{{QuestionID: "q1", OptionID: "A"}})
	require.ErrorIs(t, err, ErrTimeExceeded)
	rs, err := NewSQLStore(dbh).ListResponses(ctx, st.Attempt.ID)
	require.NoError(t, err)
	assert.Empty(t, rs)

	now = t0.Add(20 * time.Minute)
	res, err := svc.Submit(ctx, st.Attempt.ID, "stu", []ResponseInput{{QuestionID: "q1", OptionID: "A"}})
	require.NoError(t, err)
	require.NotNil(t, res.Attempt.Score)
	assert.Equal(t, 100.0, *res.Attempt.Score)

	_, err = svc.Submit(ctx, st.Attempt.ID, "stu", nil)
	require.ErrorIs(t, err, ErrInvalidAttempt)
}
