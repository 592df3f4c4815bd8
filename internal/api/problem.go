package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/UkralStul/matjip-discussion/internal/domain"
)

// Problem - тело ошибки в формате RFC 7807.
type Problem struct {
	Type     string      `json:"type"`
	Title    string      `json:"title"`
	Status   int         `json:"status"`
	Code     domain.Code `json:"code,omitempty"`
	Detail   string      `json:"detail,omitempty"`
	Instance string      `json:"instance,omitempty"`
	TraceID  string      `json:"traceId,omitempty"`
}

func statusOf(code domain.Code) int {
	switch code {
	case domain.CodeValidation, domain.CodeInvalidNesting:
		return http.StatusBadRequest
	case domain.CodeAuthentication:
		return http.StatusUnauthorized
	case domain.CodePermission:
		return http.StatusForbidden
	case domain.CodeNotFound:
		return http.StatusNotFound
	case domain.CodeConflict:
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

func writeProblem(w http.ResponseWriter, r *http.Request, status int, code domain.Code, detail string) {
	p := Problem{
		Type:     fmt.Sprintf("https://matjip.dev/problems/%d", status),
		Title:    http.StatusText(status),
		Status:   status,
		Code:     code,
		Detail:   detail,
		Instance: r.URL.Path,
		TraceID:  middleware.GetReqID(r.Context()),
	}
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(p)
}

// writeError переводит ошибку сервиса в HTTP-ответ. Чужие ошибки - 500 и запись в лог.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var de *domain.Error
	if errors.As(err, &de) {
		writeProblem(w, r, statusOf(de.Code), de.Code, de.Message)
		return
	}
	s.log.ErrorContext(r.Context(), "request failed",
		"method", r.Method, "path", r.URL.Path, "request_id", middleware.GetReqID(r.Context()), "error", err)
	writeProblem(w, r, http.StatusInternalServerError, "", "internal server error")
}

func (s *Server) tooManyRequests(w http.ResponseWriter, r *http.Request) {
	writeProblem(w, r, http.StatusTooManyRequests, "RATE_LIMITED", "too many requests, slow down")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// decodeJSON разбирает тело запроса; неизвестные поля отклоняются.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return domain.Validationf("invalid request body: %v", err)
	}
	return nil
}
