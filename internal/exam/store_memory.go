package exam

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	syncx "github.com/mind-engage/classroom-gateway/internal/sync"
)

// MemoryStore keeps everything in maps behind one lock. It honours the same
// one-open-attempt and single-completion rules as SQLStore.
type MemoryStore struct {
	mu        sync.RWMutex
	tests     map[string]Test
	attempts  map[string]Attempt
	responses map[string]map[string]Response // attemptID -> questionID -> response
	events    []syncx.Event
}

func NewInMemoryStore() *MemoryStore {
	return &MemoryStore{
		tests:     map[string]Test{},
		attempts:  map[string]Attempt{},
		responses: map[string]map[string]Response{},
	}
}

func (m *MemoryStore) PutTest(_ context.Context, t Test) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t.Kind == "" {
		t.Kind = KindTest
	}
	qs := make([]Question, len(t.Questions))
	for i, q := range t.Questions {
		q.TestID = t.ID
		q.Options = append([]Option(nil), q.Options...)
		for j := range q.Options {
			q.Options[j].QuestionID = q.ID
		}
		q.Answers = append([]ReferenceAnswer(nil), q.Answers...)
		qs[i] = q
	}
	t.Questions = qs
	m.tests[t.ID] = t
	return nil
}

func (m *MemoryStore) GetTest(_ context.Context, id string) (Test, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.tests[id]
	if !ok {
		return Test{}, ErrRecordNotFound
	}
	t.Questions = nil
	return t, nil
}

func (m *MemoryStore) ListQuestions(_ context.Context, testID string) ([]Question, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.tests[testID]
	if !ok {
		return nil, nil
	}
	out := make([]Question, len(t.Questions))
	for i, q := range t.Questions {
		q.Options = append([]Option(nil), q.Options...)
		sort.SliceStable(q.Options, func(a, b int) bool { return q.Options[a].Order < q.Options[b].Order })
		q.Answers = append([]ReferenceAnswer(nil), q.Answers...)
		out[i] = q
	}
	sort.SliceStable(out, func(a, b int) bool { return out[a].Order < out[b].Order })
	return out, nil
}

func (m *MemoryStore) FindOrCreateAttempt(_ context.Context, testID, userID string, now time.Time) (Attempt, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.attempts {
		if a.TestID == testID && a.UserID == userID && !a.Completed {
			return a, false, nil
		}
	}
	a := Attempt{
		ID:        uuid.NewString(),
		TestID:    testID,
		UserID:    userID,
		StartedAt: stampMillis(now),
	}
	m.attempts[a.ID] = a
	return a, true, nil
}

func (m *MemoryStore) GetAttempt(_ context.Context, id string) (Attempt, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.attempts[id]
	if !ok {
		return Attempt{}, ErrRecordNotFound
	}
	return a, nil
}

func (m *MemoryStore) CompleteAttempt(_ context.Context, c Completion) (Attempt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.attempts[c.AttemptID]
	if !ok {
		return Attempt{}, ErrRecordNotFound
	}
	if a.Completed {
		return Attempt{}, ErrAlreadyCompleted
	}
	submitted := stampMillis(c.SubmittedAt)
	a.Completed = true
	a.SubmittedAt = &submitted
	a.Score = c.Score
	a.NeedsManualGrading = c.NeedsManualGrading
	m.attempts[a.ID] = a

	byQuestion := m.responses[a.ID]
	if byQuestion == nil {
		byQuestion = map[string]Response{}
		m.responses[a.ID] = byQuestion
	}
	for _, r := range c.Responses {
		r.AttemptID = a.ID
		byQuestion[r.QuestionID] = r
	}
	for _, e := range c.Events {
		e.Seq = int64(len(m.events) + 1)
		e.CreatedAt = time.Now().Unix()
		m.events = append(m.events, e)
	}
	return a, nil
}

func (m *MemoryStore) ListAttempts(_ context.Context, opts AttemptListOpts) ([]Attempt, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []Attempt{}
	for _, a := range m.attempts {
		if opts.TestID != "" && a.TestID != opts.TestID {
			continue
		}
		if opts.UserID != "" && a.UserID != opts.UserID {
			continue
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].StartedAt.Equal(out[j].StartedAt) {
			return out[i].StartedAt.After(out[j].StartedAt)
		}
		return out[i].ID < out[j].ID
	})
	if opts.Offset > 0 {
		if opts.Offset >= len(out) {
			return []Attempt{}, nil
		}
		out = out[opts.Offset:]
	}
	if opts.Limit > 0 && opts.Limit < len(out) {
		out = out[:opts.Limit]
	}
	return out, nil
}

func (m *MemoryStore) ListResponses(_ context.Context, attemptID string) ([]Response, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.attempts[attemptID]
	if !ok {
		return []Response{}, nil
	}
	order := map[string]int{}
	for _, q := range m.tests[a.TestID].Questions {
		order[q.ID] = q.Order
	}
	out := make([]Response, 0, len(m.responses[attemptID]))
	for _, r := range m.responses[attemptID] {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return order[out[i].QuestionID] < order[out[j].QuestionID] })
	return out, nil
}

// Events returns a copy of the events appended by CompleteAttempt.
func (m *MemoryStore) Events() []syncx.Event {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]syncx.Event(nil), m.events...)
}
