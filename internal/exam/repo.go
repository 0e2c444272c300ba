package exam

import (
	"context"
	"errors"
	"time"

	syncx "github.com/mind-engage/classroom-gateway/internal/sync"
)

var (
	// ErrRecordNotFound is returned by stores when a row does not exist.
	ErrRecordNotFound = errors.New("record not found")
	// ErrAlreadyCompleted is returned by CompleteAttempt when another call won.
	ErrAlreadyCompleted = errors.New("attempt already completed")
)

type AttemptListOpts struct {
	TestID string
	UserID string
	Limit  int
	Offset int
}

// Completion is everything written when an attempt is submitted. Stores apply
// it atomically: either all of it lands or none of it does.
type Completion struct {
	AttemptID          string
	SubmittedAt        time.Time
	Score              *float64
	NeedsManualGrading bool
	Responses          []Response
	Events             []syncx.Event
}

type Store interface {
	PutTest(ctx context.Context, t Test) error
	GetTest(ctx context.Context, id string) (Test, error)
	// ListQuestions returns every question of the test with options and
	// reference answers, ordered by order index.
	ListQuestions(ctx context.Context, testID string) ([]Question, error)

	// FindOrCreateAttempt returns the single incomplete attempt for
	// (testID, userID), creating it when none exists. created reports which.
	FindOrCreateAttempt(ctx context.Context, testID, userID string, now time.Time) (a Attempt, created bool, err error)
	GetAttempt(ctx context.Context, id string) (Attempt, error)
	CompleteAttempt(ctx context.Context, c Completion) (Attempt, error)
	ListAttempts(ctx context.Context, opts AttemptListOpts) ([]Attempt, error)
	ListResponses(ctx context.Context, attemptID string) ([]Response, error)
}

// stampMillis is the precision attempt timestamps are stored at. It rounds
// up so a persisted start is never earlier than the real one.
func stampMillis(t time.Time) time.Time {
	r := t.Truncate(time.Millisecond)
	if r.Before(t) {
		r = r.Add(time.Millisecond)
	}
	return r.UTC()
}
