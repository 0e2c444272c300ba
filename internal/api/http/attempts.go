package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	authmw "github.com/mind-engage/classroom-gateway/internal/auth/middleware"
	"github.com/mind-engage/classroom-gateway/internal/exam"
)

// POST /tests/{testID}/attempts
// Starts or resumes the caller's attempt. 201 for a new attempt, 200 on resume.
func StartAttemptHandler(svc *exam.Service, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sub := authmw.SubjectFromContext(r.Context())
		res, err := svc.Start(r.Context(), chi.URLParam(r, "testID"), sub)
		if err != nil {
			writeError(w, log, err)
			return
		}
		status := http.StatusCreated
		if res.Resumed {
			status = http.StatusOK
		}
		writeJSON(w, status, res)
	}
}

type submitRequest struct {
	Responses []struct {
		QuestionID string `json:"question_id" validate:"required"`
		OptionID   string `json:"option_id"`
		Text       string `json:"text" validate:"max=20000"`
	} `json:"responses" validate:"max=1000,dive"`
}

// POST /attempts/{attemptID}/submit
func SubmitAttemptHandler(svc *exam.Service, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req submitRequest
		if !bind(w, r, &req) {
			return
		}
		in := make([]exam.ResponseInput, 0, len(req.Responses))
		for _, rr := range req.Responses {
			in = append(in, exam.ResponseInput{QuestionID: rr.QuestionID, OptionID: rr.OptionID, Text: rr.Text})
		}
		sub := authmw.SubjectFromContext(r.Context())
		res, err := svc.Submit(r.Context(), chi.URLParam(r, "attemptID"), sub, in)
		if err != nil {
			writeError(w, log, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

// GET /attempts/{attemptID}
func GetAttemptHandler(svc *exam.Service, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sub := authmw.SubjectFromContext(r.Context())
		d, err := svc.Attempt(r.Context(), chi.URLParam(r, "attemptID"), sub)
		if err != nil {
			writeError(w, log, err)
			return
		}
		writeJSON(w, http.StatusOK, d)
	}
}

// GET /tests/{testID}/attempts?limit=50&offset=0
// Teaching staff of the test's classroom only.
func ListAttemptsHandler(svc *exam.Service, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		sub := authmw.SubjectFromContext(r.Context())
		list, err := svc.Attempts(r.Context(), chi.URLParam(r, "testID"), sub,
			parseIntDefault(q.Get("limit"), 50), parseIntDefault(q.Get("offset"), 0))
		if err != nil {
			writeError(w, log, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"attempts": list})
	}
}
