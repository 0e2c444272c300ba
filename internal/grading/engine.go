package grading

import (
	"context"
	"math"
)

// Q is a minimal view of a question needed for grading.
type Q struct {
	Type             string
	Points           float64
	CorrectOptionIDs []string
}

// Answer is what the learner sent for one question.
type Answer struct {
	OptionID string
	Text     string
}

// Result is the outcome of grading a single question response. Correct and
// Points stay nil when a teacher has to decide.
type Result struct {
	Correct     *bool
	Points      *float64
	MaxPoints   float64
	NeedsManual bool
}

// AutoPoints returns the awarded points, treating pending results as zero.
func (r Result) AutoPoints() float64 {
	if r.Points == nil {
		return 0
	}
	return *r.Points
}

// Strategy grades a single question.
type Strategy interface {
	Grade(ctx context.Context, q Q, a Answer) (Result, error)
}

// Grader routes by question type to the correct Strategy.
type Grader interface {
	Grade(ctx context.Context, q Q, a Answer) (Result, error)
	// Manual reports whether questions of this type are never auto-graded.
	Manual(questionType string) bool
}

type defaultGrader struct {
	strategies map[string]Strategy
}

func (g *defaultGrader) Grade(ctx context.Context, q Q, a Answer) (Result, error) {
	s, ok := g.strategies[q.Type]
	if !ok {
		return Result{MaxPoints: q.Points, NeedsManual: true}, nil
	}
	return s.Grade(ctx, q, a)
}

func (g *defaultGrader) Manual(questionType string) bool {
	s, ok := g.strategies[questionType]
	if !ok {
		return true
	}
	_, manual := s.(manualStrategy)
	return manual
}

// NewDefaultGrader installs built-in strategies.
func NewDefaultGrader() Grader {
	return &defaultGrader{
		strategies: map[string]Strategy{
			"MULTIPLE_CHOICE": choiceStrategy{},
			"TRUE_FALSE":      choiceStrategy{},
			"SHORT_ANSWER":    manualStrategy{},
			"ESSAY":           manualStrategy{},
		},
	}
}

// --- Strategies ---

type choiceStrategy struct{}

func (choiceStrategy) Grade(_ context.Context, q Q, a Answer) (Result, error) {
	correct := false
	if a.OptionID != "" {
		for _, id := range q.CorrectOptionIDs {
			if id == a.OptionID {
				correct = true
				break
			}
		}
	}
	points := 0.0
	if correct {
		points = q.Points
	}
	return Result{Correct: &correct, Points: &points, MaxPoints: q.Points}, nil
}

type manualStrategy struct{}

func (manualStrategy) Grade(_ context.Context, q Q, _ Answer) (Result, error) {
	return Result{MaxPoints: q.Points, NeedsManual: true}, nil
}

// Percent converts awarded points into a whole-number percentage of total.
// A test worth nothing scores 0.
func Percent(awarded, total float64) float64 {
	if total <= 0 {
		return 0
	}
	return math.Round(100 * awarded / total)
}
