package exam

import (
	"sort"
	"time"
)

type Kind string

const (
	KindTest Kind = "TEST"
	KindExam Kind = "EXAM"
)

type QuestionType string

const (
	MultipleChoice QuestionType = "MULTIPLE_CHOICE"
	TrueFalse      QuestionType = "TRUE_FALSE"
	ShortAnswer    QuestionType = "SHORT_ANSWER"
	Essay          QuestionType = "ESSAY"
)

// Choice reports whether answers are picked from the question's options.
func (t QuestionType) Choice() bool { return t == MultipleChoice || t == TrueFalse }

// Manual reports whether a teacher has to grade the answer.
func (t QuestionType) Manual() bool { return t == ShortAnswer || t == Essay }

type Option struct {
	ID         string `json:"id"`
	QuestionID string `json:"question_id"`
	Text       string `json:"text"`
	Correct    bool   `json:"correct"`
	Order      int    `json:"order"`
}

// ReferenceAnswer is a teacher-provided model answer for text questions.
type ReferenceAnswer struct {
	ID         string `json:"id"`
	QuestionID string `json:"question_id"`
	Text       string `json:"text"`
}

type Question struct {
	ID      string            `json:"id"`
	TestID  string            `json:"test_id"`
	Text    string            `json:"text"`
	Type    QuestionType      `json:"type"`
	Points  float64           `json:"points"`
	Order   int               `json:"order"`
	Options []Option          `json:"options,omitempty"`
	Answers []ReferenceAnswer `json:"answers,omitempty"`
}

// Test is an assessment owned by a classroom. Questions is only populated by
// the authoring path; Start and Submit load questions separately.
type Test struct {
	ID               string     `json:"id"`
	ClassroomID      string     `json:"classroom_id"`
	Title            string     `json:"title"`
	Kind             Kind       `json:"kind"`
	TimeLimitMinutes *int       `json:"time_limit_minutes,omitempty"`
	PassingScore     *float64   `json:"passing_score,omitempty"`
	OpensAt          *time.Time `json:"opens_at,omitempty"`
	ClosesAt         *time.Time `json:"closes_at,omitempty"`
	Questions        []Question `json:"questions,omitempty"`
}

// TimeLimit returns the configured limit, or 0 when the test is untimed.
func (t Test) TimeLimit() time.Duration {
	if t.TimeLimitMinutes == nil || *t.TimeLimitMinutes <= 0 {
		return 0
	}
	return time.Duration(*t.TimeLimitMinutes) * time.Minute
}

type State string

const (
	StateNotStarted State = "NOT_STARTED"
	StateInProgress State = "IN_PROGRESS"
	StateCompleted  State = "COMPLETED"
)

type Attempt struct {
	ID                 string     `json:"id"`
	TestID             string     `json:"test_id"`
	UserID             string     `json:"user_id"`
	StartedAt          time.Time  `json:"started_at"`
	SubmittedAt        *time.Time `json:"submitted_at,omitempty"`
	Completed          bool       `json:"completed"`
	Score              *float64   `json:"score"`
	NeedsManualGrading bool       `json:"needs_manual_grading"`
}

func (a Attempt) State() State {
	switch {
	case a.ID == "":
		return StateNotStarted
	case a.Completed:
		return StateCompleted
	default:
		return StateInProgress
	}
}

// Response is one graded (or pending) answer inside a submitted attempt.
type Response struct {
	ID            string   `json:"id"`
	AttemptID     string   `json:"attempt_id"`
	QuestionID    string   `json:"question_id"`
	OptionID      *string  `json:"option_id,omitempty"`
	TextAnswer    *string  `json:"text_answer,omitempty"`
	IsCorrect     *bool    `json:"is_correct"`
	PointsAwarded *float64 `json:"points_awarded"`
}

// ---- learner-facing views: never carry correctness or reference answers ----

type OptionView struct {
	ID    string `json:"id"`
	Text  string `json:"text"`
	Order int    `json:"order"`
}

type QuestionView struct {
	ID      string       `json:"id"`
	Text    string       `json:"text"`
	Type    QuestionType `json:"type"`
	Points  float64      `json:"points"`
	Order   int          `json:"order"`
	Options []OptionView `json:"options,omitempty"`
}

// Sanitize strips answer data and orders questions and options by their order index.
func Sanitize(qs []Question) []QuestionView {
	out := make([]QuestionView, 0, len(qs))
	for _, q := range qs {
		v := QuestionView{ID: q.ID, Text: q.Text, Type: q.Type, Points: q.Points, Order: q.Order}
		for _, o := range q.Options {
			v.Options = append(v.Options, OptionView{ID: o.ID, Text: o.Text, Order: o.Order})
		}
		sort.SliceStable(v.Options, func(i, j int) bool { return v.Options[i].Order < v.Options[j].Order })
		out = append(out, v)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out
}
