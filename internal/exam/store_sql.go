package exam

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	syncx "github.com/mind-engage/classroom-gateway/internal/sync"
)

type SQLStore struct {
	db     *sql.DB
	events *syncx.EventRepo
}

func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db, events: syncx.NewEventRepo(db)}
}

func (s *SQLStore) PutTest(ctx context.Context, t Test) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	kind := t.Kind
	if kind == "" {
		kind = KindTest
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO tests
		(id,classroom_id,title,kind,time_limit_minutes,passing_score,opens_at,closes_at,created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		ON CONFLICT (id) DO UPDATE SET classroom_id=EXCLUDED.classroom_id, title=EXCLUDED.title,
		  kind=EXCLUDED.kind, time_limit_minutes=EXCLUDED.time_limit_minutes,
		  passing_score=EXCLUDED.passing_score, opens_at=EXCLUDED.opens_at, closes_at=EXCLUDED.closes_at`,
		t.ID, t.ClassroomID, t.Title, string(kind), nullInt(t.TimeLimitMinutes), nullFloat(t.PassingScore),
		nullUnix(t.OpensAt), nullUnix(t.ClosesAt), time.Now().Unix()); err != nil {
		return fmt.Errorf("upsert test: %w", err)
	}

	for _, q := range t.Questions {
		if _, err := tx.ExecContext(ctx, `INSERT INTO questions (id,test_id,text,type,points,order_index)
			VALUES ($1,$2,$3,$4,$5,$6)
			ON CONFLICT (id) DO UPDATE SET text=EXCLUDED.text, type=EXCLUDED.type,
			  points=EXCLUDED.points, order_index=EXCLUDED.order_index`,
			q.ID, t.ID, q.Text, string(q.Type), q.Points, q.Order); err != nil {
			return fmt.Errorf("upsert question %s: %w", q.ID, err)
		}
		for _, o := range q.Options {
			if _, err := tx.ExecContext(ctx, `INSERT INTO options (id,question_id,text,is_correct,order_index)
				VALUES ($1,$2,$3,$4,$5)
				ON CONFLICT (id) DO UPDATE SET text=EXCLUDED.text, is_correct=EXCLUDED.is_correct,
				  order_index=EXCLUDED.order_index`,
				o.ID, q.ID, o.Text, boolInt(o.Correct), o.Order); err != nil {
				return fmt.Errorf("upsert option %s: %w", o.ID, err)
			}
		}
		for _, a := range q.Answers {
			if _, err := tx.ExecContext(ctx, `INSERT INTO reference_answers (id,question_id,text)
				VALUES ($1,$2,$3)
				ON CONFLICT (id) DO UPDATE SET text=EXCLUDED.text`,
				a.ID, q.ID, a.Text); err != nil {
				return fmt.Errorf("upsert answer %s: %w", a.ID, err)
			}
		}
	}
	return tx.Commit()
}

func (s *SQLStore) GetTest(ctx context.Context, id string) (Test, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id,classroom_id,title,kind,time_limit_minutes,passing_score,opens_at,closes_at
		FROM tests WHERE id=$1`, id)
	var (
		t       Test
		kind    string
		limit   sql.NullInt64
		passing sql.NullFloat64
		opens   sql.NullInt64
		closes  sql.NullInt64
	)
	if err := row.Scan(&t.ID, &t.ClassroomID, &t.Title, &kind, &limit, &passing, &opens, &closes); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Test{}, ErrRecordNotFound
		}
		return Test{}, err
	}
	t.Kind = Kind(kind)
	if limit.Valid {
		v := int(limit.Int64)
		t.TimeLimitMinutes = &v
	}
	if passing.Valid {
		v := passing.Float64
		t.PassingScore = &v
	}
	t.OpensAt = unixPtr(opens)
	t.ClosesAt = unixPtr(closes)
	return t, nil
}

func (s *SQLStore) ListQuestions(ctx context.Context, testID string) ([]Question, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id,text,type,points,order_index FROM questions
		WHERE test_id=$1 ORDER BY order_index, id`, testID)
	if err != nil {
		return nil, err
	}
	var qs []Question
	index := map[string]int{}
	for rows.Next() {
		var q Question
		var typ string
		if err := rows.Scan(&q.ID, &q.Text, &typ, &q.Points, &q.Order); err != nil {
			rows.Close()
			return nil, err
		}
		q.TestID = testID
		q.Type = QuestionType(typ)
		index[q.ID] = len(qs)
		qs = append(qs, q)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	orows, err := s.db.QueryContext(ctx, `SELECT o.id,o.question_id,o.text,o.is_correct,o.order_index
		FROM options o JOIN questions q ON q.id=o.question_id
		WHERE q.test_id=$1 ORDER BY o.order_index, o.id`, testID)
	if err != nil {
		return nil, err
	}
	for orows.Next() {
		var o Option
		var correct int
		if err := orows.Scan(&o.ID, &o.QuestionID, &o.Text, &correct, &o.Order); err != nil {
			orows.Close()
			return nil, err
		}
		o.Correct = correct != 0
		if i, ok := index[o.QuestionID]; ok {
			qs[i].Options = append(qs[i].Options, o)
		}
	}
	orows.Close()
	if err := orows.Err(); err != nil {
		return nil, err
	}

	arows, err := s.db.QueryContext(ctx, `SELECT a.id,a.question_id,a.text
		FROM reference_answers a JOIN questions q ON q.id=a.question_id
		WHERE q.test_id=$1 ORDER BY a.id`, testID)
	if err != nil {
		return nil, err
	}
	defer arows.Close()
	for arows.Next() {
		var a ReferenceAnswer
		if err := arows.Scan(&a.ID, &a.QuestionID, &a.Text); err != nil {
			return nil, err
		}
		if i, ok := index[a.QuestionID]; ok {
			qs[i].Answers = append(qs[i].Answers, a)
		}
	}
	return qs, arows.Err()
}

// FindOrCreateAttempt leans on the attempts_one_open partial unique index:
// concurrent callers race on the insert and all of them read back the winner.
func (s *SQLStore) FindOrCreateAttempt(ctx context.Context, testID, userID string, now time.Time) (Attempt, bool, error) {
	res, err := s.db.ExecContext(ctx, `INSERT INTO attempts (id,test_id,user_id,started_at,completed,needs_manual_grading)
		VALUES ($1,$2,$3,$4,0,0)
		ON CONFLICT (test_id,user_id) WHERE completed = 0 DO NOTHING`,
		uuid.NewString(), testID, userID, stampMillis(now).UnixMilli())
	if err != nil {
		return Attempt{}, false, fmt.Errorf("insert attempt: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return Attempt{}, false, err
	}
	row := s.db.QueryRowContext(ctx, `SELECT `+attemptCols+` FROM attempts
		WHERE test_id=$1 AND user_id=$2 AND completed=0`, testID, userID)
	a, err := scanAttempt(row)
	if err != nil {
		return Attempt{}, false, fmt.Errorf("read open attempt: %w", err)
	}
	return a, n == 1, nil
}

func (s *SQLStore) GetAttempt(ctx context.Context, id string) (Attempt, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+attemptCols+` FROM attempts WHERE id=$1`, id)
	a, err := scanAttempt(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Attempt{}, ErrRecordNotFound
	}
	return a, err
}

// CompleteAttempt flips the completion flag first so that a concurrent or
// retried submit loses before it can write any response rows.
func (s *SQLStore) CompleteAttempt(ctx context.Context, c Completion) (Attempt, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Attempt{}, err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `UPDATE attempts
		SET completed=1, submitted_at=$1, score=$2, needs_manual_grading=$3
		WHERE id=$4 AND completed=0`,
		stampMillis(c.SubmittedAt).UnixMilli(), nullFloat(c.Score), boolInt(c.NeedsManualGrading), c.AttemptID)
	if err != nil {
		return Attempt{}, fmt.Errorf("complete attempt: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return Attempt{}, err
	} else if n == 0 {
		return Attempt{}, ErrAlreadyCompleted
	}

	for _, r := range c.Responses {
		var correct sql.NullInt64
		if r.IsCorrect != nil {
			correct = sql.NullInt64{Int64: int64(boolInt(*r.IsCorrect)), Valid: true}
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO responses
			(id,attempt_id,question_id,option_id,text_answer,is_correct,points_awarded)
			VALUES ($1,$2,$3,$4,$5,$6,$7)
			ON CONFLICT (attempt_id,question_id) DO UPDATE SET option_id=EXCLUDED.option_id,
			  text_answer=EXCLUDED.text_answer, is_correct=EXCLUDED.is_correct,
			  points_awarded=EXCLUDED.points_awarded`,
			r.ID, c.AttemptID, r.QuestionID, nullString(r.OptionID), nullString(r.TextAnswer),
			correct, nullFloat(r.PointsAwarded)); err != nil {
			return Attempt{}, fmt.Errorf("upsert response %s: %w", r.QuestionID, err)
		}
	}
	for _, e := range c.Events {
		if err := s.events.Append(ctx, tx, e); err != nil {
			return Attempt{}, fmt.Errorf("append event: %w", err)
		}
	}

	row := tx.QueryRowContext(ctx, `SELECT `+attemptCols+` FROM attempts WHERE id=$1`, c.AttemptID)
	a, err := scanAttempt(row)
	if err != nil {
		return Attempt{}, err
	}
	return a, tx.Commit()
}

func (s *SQLStore) ListAttempts(ctx context.Context, opts AttemptListOpts) ([]Attempt, error) {
	limit := opts.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `SELECT `+attemptCols+` FROM attempts
		WHERE ($1 = '' OR test_id=$1) AND ($2 = '' OR user_id=$2)
		ORDER BY started_at DESC, id LIMIT $3 OFFSET $4`,
		opts.TestID, opts.UserID, limit, opts.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Attempt{}
	for rows.Next() {
		a, err := scanAttempt(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *SQLStore) ListResponses(ctx context.Context, attemptID string) ([]Response, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT r.id,r.question_id,r.option_id,r.text_answer,r.is_correct,r.points_awarded
		FROM responses r JOIN questions q ON q.id=r.question_id
		WHERE r.attempt_id=$1 ORDER BY q.order_index, q.id`, attemptID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Response{}
	for rows.Next() {
		var (
			r       Response
			option  sql.NullString
			text    sql.NullString
			correct sql.NullInt64
			points  sql.NullFloat64
		)
		if err := rows.Scan(&r.ID, &r.QuestionID, &option, &text, &correct, &points); err != nil {
			return nil, err
		}
		r.AttemptID = attemptID
		if option.Valid {
			r.OptionID = &option.String
		}
		if text.Valid {
			r.TextAnswer = &text.String
		}
		if correct.Valid {
			b := correct.Int64 != 0
			r.IsCorrect = &b
		}
		if points.Valid {
			r.PointsAwarded = &points.Float64
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// ---- scanning helpers ----

const attemptCols = `id,test_id,user_id,started_at,submitted_at,completed,score,needs_manual_grading`

type scanner interface {
	Scan(dest ...any) error
}

func scanAttempt(sc scanner) (Attempt, error) {
	var (
		a         Attempt
		started   int64
		submitted sql.NullInt64
		completed int
		score     sql.NullFloat64
		manual    int
	)
	if err := sc.Scan(&a.ID, &a.TestID, &a.UserID, &started, &submitted, &completed, &score, &manual); err != nil {
		return Attempt{}, err
	}
	a.StartedAt = time.UnixMilli(started).UTC()
	if submitted.Valid {
		t := time.UnixMilli(submitted.Int64).UTC()
		a.SubmittedAt = &t
	}
	a.Completed = completed != 0
	if score.Valid {
		v := score.Float64
		a.Score = &v
	}
	a.NeedsManualGrading = manual != 0
	return a, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullInt(p *int) sql.NullInt64 {
	if p == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*p), Valid: true}
}

func nullFloat(p *float64) sql.NullFloat64 {
	if p == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *p, Valid: true}
}

func nullString(p *string) sql.NullString {
	if p == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *p, Valid: true}
}

func nullUnix(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.Unix(), Valid: true}
}

func unixPtr(v sql.NullInt64) *time.Time {
	if !v.Valid {
		return nil
	}
	t := time.Unix(v.Int64, 0).UTC()
	return &t
}
