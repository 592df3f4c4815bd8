package api

import (
	"context"
	"net/http"

	"github.com/UkralStul/matjip-discussion/internal/auth"
	"github.com/UkralStul/matjip-discussion/internal/discussion"
	"github.com/UkralStul/matjip-discussion/internal/domain"
)

func (s *Server) adminListItems(w http.ResponseWriter, r *http.Request) {
	q, err := listQuery(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	page, err := s.svc.ListItemsAdmin(r.Context(), auth.FromContext(r.Context()), spaceOf(r), q)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

type itemAction func(ctx context.Context, p *domain.Principal, space domain.Space, id int64) (*domain.ContentItem, error)

func (s *Server) moderate(action itemAction) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := idParam(r)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		item, err := action(r.Context(), auth.FromContext(r.Context()), spaceOf(r), id)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, item)
	}
}

func (s *Server) hideItem(w http.ResponseWriter, r *http.Request)    { s.moderate(s.svc.ManualHide)(w, r) }
func (s *Server) restoreItem(w http.ResponseWriter, r *http.Request) { s.moderate(s.svc.ManualRestore)(w, r) }
func (s *Server) pinItem(w http.ResponseWriter, r *http.Request)     { s.moderate(s.svc.Pin)(w, r) }
func (s *Server) unpinItem(w http.ResponseWriter, r *http.Request)   { s.moderate(s.svc.Unpin)(w, r) }

func (s *Server) listReports(w http.ResponseWriter, r *http.Request) {
	page, size, err := pageQuery(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	status := domain.ReportStatus(upper(r, "status"))
	reports, err := s.svc.ListReports(r.Context(), auth.FromContext(r.Context()), status, page, size)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, reports)
}

func (s *Server) getReport(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	report, err := s.svc.GetReport(r.Context(), auth.FromContext(r.Context()), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) resolveReport(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var in discussion.Resolution
	if err := decodeJSON(w, r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	report, err := s.svc.ResolveReport(r.Context(), auth.FromContext(r.Context()), id, in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}
