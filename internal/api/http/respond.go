package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/mind-engage/classroom-gateway/internal/exam"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

var statusByCode = map[string]int{
	"forbidden":       http.StatusForbidden,
	"not_found":       http.StatusNotFound,
	"not_yet_open":    http.StatusConflict,
	"closed":          http.StatusConflict,
	"invalid_attempt": http.StatusConflict,
	"time_exceeded":   http.StatusUnprocessableEntity,
	"integrity":       http.StatusInternalServerError,
}

// writeError maps engine errors to their status; anything else is a 500 and
// gets logged.
func writeError(w http.ResponseWriter, log *zap.Logger, err error) {
	code := exam.Code(err)
	status, ok := statusByCode[code]
	if !ok {
		code, status = "internal", http.StatusInternalServerError
	}
	msg := http.StatusText(status)
	var e *exam.Error
	if errors.As(err, &e) {
		msg = e.Kind.Error()
	}
	if status >= 500 {
		log.Error("request failed", zap.String("code", code), zap.Error(err))
	}
	writeJSON(w, status, errorBody{Error: code, Message: msg})
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, errorBody{Error: "bad_request", Message: msg})
}

// bind decodes a JSON body into dst and validates it. It writes the 400
// itself and reports false on failure.
func bind(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(io.LimitReader(r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		badRequest(w, "bad json: "+err.Error())
		return false
	}
	if err := validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			parts := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				parts = append(parts, fmt.Sprintf("%s failed %s", fe.Namespace(), fe.Tag()))
			}
			badRequest(w, strings.Join(parts, "; "))
			return false
		}
		badRequest(w, err.Error())
		return false
	}
	return true
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if v, err := strconv.Atoi(s); err == nil && v >= 0 {
		return v
	}
	return def
}
