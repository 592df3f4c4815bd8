package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/UkralStul/matjip-discussion/internal/domain"
)

var (
	errAuthRequired  = domain.ErrAuthentication
	errAdminRequired = domain.Permissionf("admin role required")
)

func spaceOf(r *http.Request) domain.Space {
	return domain.Space(strings.ToUpper(chi.URLParam(r, "space")))
}

func idParam(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, domain.Validationf("invalid id %q", raw)
	}
	return id, nil
}

// intQuery - отсутствующий параметр даёт 0.
func intQuery(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, domain.Validationf("%s must be an integer", name)
	}
	return n, nil
}

func pageQuery(r *http.Request) (int, int, error) {
	page, err := intQuery(r, "page")
	if err != nil {
		return 0, 0, err
	}
	size, err := intQuery(r, "size")
	if err != nil {
		return 0, 0, err
	}
	return page, size, nil
}

func upper(r *http.Request, name string) string {
	return strings.ToUpper(strings.TrimSpace(r.URL.Query().Get(name)))
}
