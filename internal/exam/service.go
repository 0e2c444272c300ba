package exam

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mind-engage/classroom-gateway/internal/classroom"
	"github.com/mind-engage/classroom-gateway/internal/grading"
	"github.com/mind-engage/classroom-gateway/internal/metrics"
	syncx "github.com/mind-engage/classroom-gateway/internal/sync"
)

// SubmitGrace absorbs latency between the client timer firing and the
// submission reaching the server.
const SubmitGrace = time.Minute

// QuestionCache holds sanitized question sets keyed by test id. Only sets
// that passed the integrity check are stored. PutTest drops the entry for
// the test it writes.
type QuestionCache interface {
	Get(ctx context.Context, testID string) ([]QuestionView, bool)
	Set(ctx context.Context, testID string, qs []QuestionView)
	Invalidate(ctx context.Context, testID string) error
}

type noCache struct{}

func (noCache) Get(context.Context, string) ([]QuestionView, bool) { return nil, false }
func (noCache) Set(context.Context, string, []QuestionView)        {}
func (noCache) Invalidate(context.Context, string) error           { return nil }

type Service struct {
	store   Store
	members classroom.Directory
	grader  grading.Grader
	cache   QuestionCache
	log     *zap.Logger
	now     func() time.Time
}

type ServiceOption func(*Service)

func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) { s.now = now }
}

func WithLogger(l *zap.Logger) ServiceOption {
	return func(s *Service) { s.log = l }
}

func WithGrader(g grading.Grader) ServiceOption {
	return func(s *Service) { s.grader = g }
}

func WithQuestionCache(c QuestionCache) ServiceOption {
	return func(s *Service) {
		if c != nil {
			s.cache = c
		}
	}
}

func NewService(store Store, members classroom.Directory, opts ...ServiceOption) *Service {
	s := &Service{
		store:   store,
		members: members,
		grader:  grading.NewDefaultGrader(),
		cache:   noCache{},
		log:     zap.NewNop(),
		now:     time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

type StartResult struct {
	Attempt          Attempt        `json:"attempt"`
	Resumed          bool           `json:"resumed"`
	Questions        []QuestionView `json:"questions"`
	Deadline         *time.Time     `json:"deadline,omitempty"`
	RemainingSeconds *int64         `json:"remaining_seconds,omitempty"`
}

// Start returns the caller's open attempt for the test, creating it when
// there is none.
func (s *Service) Start(ctx context.Context, testID, userID string) (StartResult, error) {
	const op = "exam.Start"
	now := s.now()

	t, err := s.store.GetTest(ctx, testID)
	if errors.Is(err, ErrRecordNotFound) {
		return StartResult{}, s.reject(op, fail(op, ErrNotFound, nil))
	}
	if err != nil {
		return StartResult{}, fmt.Errorf("%s: load test: %w", op, err)
	}
	if _, err := s.members.Role(ctx, t.ClassroomID, userID); err != nil {
		if errors.Is(err, classroom.ErrNotMember) {
			return StartResult{}, s.reject(op, fail(op, ErrForbidden, nil))
		}
		return StartResult{}, fmt.Errorf("%s: membership: %w", op, err)
	}
	if t.OpensAt != nil && now.Before(*t.OpensAt) {
		return StartResult{}, s.reject(op, fail(op, ErrNotYetOpen, nil))
	}
	if t.ClosesAt != nil && now.After(*t.ClosesAt) {
		return StartResult{}, s.reject(op, fail(op, ErrClosed, nil))
	}

	questions, err := s.questionSet(ctx, testID)
	if err != nil {
		return StartResult{}, s.reject(op, err)
	}

	a, created, err := s.store.FindOrCreateAttempt(ctx, testID, userID, now)
	if err != nil {
		return StartResult{}, fmt.Errorf("%s: %w", op, err)
	}

	res := StartResult{Attempt: a, Resumed: !created, Questions: questions}
	if limit := t.TimeLimit(); limit > 0 {
		deadline := a.StartedAt.Add(limit)
		remaining := int64(deadline.Sub(now).Seconds())
		if remaining < 0 {
			remaining = 0
		}
		res.Deadline = &deadline
		res.RemainingSeconds = &remaining
	}

	outcome := "created"
	if !created {
		outcome = "resumed"
	}
	metrics.AttemptsStarted.WithLabelValues(outcome).Inc()
	s.log.Info("attempt "+outcome,
		zap.String("attempt_id", a.ID),
		zap.String("test_id", testID),
		zap.String("user_id", userID))
	return res, nil
}

// PutTest stores a test definition with its questions and drops any cached
// question set for it. Writing the same test again is safe.
func (s *Service) PutTest(ctx context.Context, t Test) error {
	const op = "exam.PutTest"
	if err := s.store.PutTest(ctx, t); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := s.cache.Invalidate(ctx, t.ID); err != nil {
		return fmt.Errorf("%s: invalidate cached questions: %w", op, err)
	}
	s.log.Info("test stored",
		zap.String("test_id", t.ID),
		zap.Int("questions", len(t.Questions)))
	return nil
}

// questionSet loads the sanitized questions, refusing tests whose choice
// questions do not have exactly one correct option.
func (s *Service) questionSet(ctx context.Context, testID string) ([]QuestionView, error) {
	if qs, ok := s.cache.Get(ctx, testID); ok {
		return qs, nil
	}
	full, err := s.store.ListQuestions(ctx, testID)
	if err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}
	for _, q := range full {
		if !q.Type.Choice() {
			continue
		}
		n := 0
		for _, o := range q.Options {
			if o.Correct {
				n++
			}
		}
		if n != 1 {
			return nil, fail("exam.Start", ErrIntegrity,
				fmt.Errorf("question %s has %d correct options", q.ID, n))
		}
	}
	views := Sanitize(full)
	s.cache.Set(ctx, testID, views)
	return views, nil
}

// ResponseInput is one answer in a submission: OptionID for choice
// questions, Text for written ones.
type ResponseInput struct {
	QuestionID string
	OptionID   string
	Text       string
}

type SubmitResult struct {
	Attempt            Attempt    `json:"attempt"`
	AwardedPoints      float64    `json:"awarded_points"`
	TotalPoints        float64    `json:"total_points"`
	NeedsManualGrading bool       `json:"needs_manual_grading"`
	Passed             *bool      `json:"passed,omitempty"`
	Responses          []Response `json:"responses"`
	Skipped            int        `json:"skipped"`
}

// Submit grades the answers and completes the attempt. Answers for questions
// that are not part of the test are skipped; when a question is answered
// more than once the last answer wins.
func (s *Service) Submit(ctx context.Context, attemptID, userID string, in []ResponseInput) (SubmitResult, error) {
	const op = "exam.Submit"
	now := s.now()

	a, err := s.store.GetAttempt(ctx, attemptID)
	if errors.Is(err, ErrRecordNotFound) || (err == nil && (a.UserID != userID || a.Completed)) {
		return SubmitResult{}, s.reject(op, fail(op, ErrInvalidAttempt, nil))
	}
	if err != nil {
		return SubmitResult{}, fmt.Errorf("%s: load attempt: %w", op, err)
	}

	t, err := s.store.GetTest(ctx, a.TestID)
	if err != nil {
		return SubmitResult{}, fmt.Errorf("%s: load test: %w", op, err)
	}
	if limit := t.TimeLimit(); limit > 0 && now.Sub(a.StartedAt) > limit+SubmitGrace {
		s.log.Warn("submission after deadline",
			zap.String("attempt_id", a.ID),
			zap.Duration("elapsed", now.Sub(a.StartedAt)),
			zap.Duration("limit", limit))
		return SubmitResult{}, s.reject(op, fail(op, ErrTimeExceeded, nil))
	}

	questions, err := s.store.ListQuestions(ctx, a.TestID)
	if err != nil {
		return SubmitResult{}, fmt.Errorf("%s: load questions: %w", op, err)
	}

	res := SubmitResult{}
	byID := make(map[string]Question, len(questions))
	for _, q := range questions {
		byID[q.ID] = q
		res.TotalPoints += q.Points
		if s.grader.Manual(string(q.Type)) {
			res.NeedsManualGrading = true
		}
	}

	graded := map[string]Response{}
	var order []string
	for _, ri := range in {
		q, ok := byID[ri.QuestionID]
		if !ok {
			res.Skipped++
			continue
		}
		gq := grading.Q{Type: string(q.Type), Points: q.Points}
		for _, o := range q.Options {
			if o.Correct {
				gq.CorrectOptionIDs = append(gq.CorrectOptionIDs, o.ID)
			}
		}
		gr, err := s.grader.Grade(ctx, gq, grading.Answer{OptionID: ri.OptionID, Text: ri.Text})
		if err != nil {
			return SubmitResult{}, fmt.Errorf("%s: grade %s: %w", op, q.ID, err)
		}
		r := Response{
			ID:            uuid.NewString(),
			AttemptID:     a.ID,
			QuestionID:    q.ID,
			IsCorrect:     gr.Correct,
			PointsAwarded: gr.Points,
		}
		if q.Type.Choice() {
			if ri.OptionID != "" {
				opt := ri.OptionID
				r.OptionID = &opt
			}
		} else {
			text := ri.Text
			r.TextAnswer = &text
		}
		if _, seen := graded[q.ID]; !seen {
			order = append(order, q.ID)
		}
		graded[q.ID] = r
	}

	for _, qid := range order {
		r := graded[qid]
		if r.PointsAwarded != nil {
			res.AwardedPoints += *r.PointsAwarded
		}
		res.Responses = append(res.Responses, r)
	}

	var score *float64
	if !res.NeedsManualGrading {
		p := grading.Percent(res.AwardedPoints, res.TotalPoints)
		score = &p
	}

	ev, err := syncx.NewEvent(syncx.TypeAttemptSubmitted, a.ID, map[string]any{
		"test_id":              a.TestID,
		"user_id":              a.UserID,
		"score":                score,
		"awarded_points":       res.AwardedPoints,
		"total_points":         res.TotalPoints,
		"needs_manual_grading": res.NeedsManualGrading,
	})
	if err != nil {
		return SubmitResult{}, fmt.Errorf("%s: event: %w", op, err)
	}

	done, err := s.store.CompleteAttempt(ctx, Completion{
		AttemptID:          a.ID,
		SubmittedAt:        now,
		Score:              score,
		NeedsManualGrading: res.NeedsManualGrading,
		Responses:          res.Responses,
		Events:             []syncx.Event{ev},
	})
	if errors.Is(err, ErrAlreadyCompleted) || errors.Is(err, ErrRecordNotFound) {
		return SubmitResult{}, s.reject(op, fail(op, ErrInvalidAttempt, err))
	}
	if err != nil {
		return SubmitResult{}, fmt.Errorf("%s: %w", op, err)
	}
	res.Attempt = done
	if res.Responses == nil {
		res.Responses = []Response{}
	}
	if done.Score != nil && t.PassingScore != nil {
		passed := *done.Score >= *t.PassingScore
		res.Passed = &passed
	}

	metrics.AttemptsSubmitted.WithLabelValues(strconv.FormatBool(res.NeedsManualGrading)).Inc()
	if done.Score != nil {
		metrics.Scores.Observe(*done.Score)
	}
	s.log.Info("attempt submitted",
		zap.String("attempt_id", a.ID),
		zap.String("test_id", a.TestID),
		zap.String("user_id", userID),
		zap.Float64("awarded", res.AwardedPoints),
		zap.Float64("total", res.TotalPoints),
		zap.Bool("needs_manual_grading", res.NeedsManualGrading),
		zap.Int("skipped", res.Skipped))
	return res, nil
}

type AttemptDetail struct {
	Attempt   Attempt    `json:"attempt"`
	Responses []Response `json:"responses"`
}

// Attempt returns an attempt to its owner or to teaching staff of the
// test's classroom.
func (s *Service) Attempt(ctx context.Context, attemptID, viewerID string) (AttemptDetail, error) {
	const op = "exam.Attempt"
	a, err := s.store.GetAttempt(ctx, attemptID)
	if errors.Is(err, ErrRecordNotFound) {
		return AttemptDetail{}, fail(op, ErrNotFound, nil)
	}
	if err != nil {
		return AttemptDetail{}, fmt.Errorf("%s: %w", op, err)
	}
	if a.UserID != viewerID {
		t, err := s.store.GetTest(ctx, a.TestID)
		if err != nil {
			return AttemptDetail{}, fmt.Errorf("%s: load test: %w", op, err)
		}
		if err := s.requireStaff(ctx, op, t.ClassroomID, viewerID); err != nil {
			return AttemptDetail{}, err
		}
	}
	rs, err := s.store.ListResponses(ctx, a.ID)
	if err != nil {
		return AttemptDetail{}, fmt.Errorf("%s: responses: %w", op, err)
	}
	return AttemptDetail{Attempt: a, Responses: rs}, nil
}

// Attempts lists attempts of a test for teaching staff of its classroom.
func (s *Service) Attempts(ctx context.Context, testID, viewerID string, limit, offset int) ([]Attempt, error) {
	const op = "exam.Attempts"
	t, err := s.store.GetTest(ctx, testID)
	if errors.Is(err, ErrRecordNotFound) {
		return nil, fail(op, ErrNotFound, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := s.requireStaff(ctx, op, t.ClassroomID, viewerID); err != nil {
		return nil, err
	}
	return s.store.ListAttempts(ctx, AttemptListOpts{TestID: testID, Limit: limit, Offset: offset})
}

func (s *Service) requireStaff(ctx context.Context, op, classroomID, userID string) error {
	role, err := s.members.Role(ctx, classroomID, userID)
	if errors.Is(err, classroom.ErrNotMember) || (err == nil && !role.Staff()) {
		return fail(op, ErrForbidden, nil)
	}
	if err != nil {
		return fmt.Errorf("%s: membership: %w", op, err)
	}
	return nil
}

func (s *Service) reject(op string, err error) error {
	if code := Code(err); code != "" {
		metrics.Rejections.WithLabelValues(op, code).Inc()
	}
	return err
}
