package api

import (
	"net/http"

	"github.com/UkralStul/matjip-discussion/internal/auth"
	"github.com/UkralStul/matjip-discussion/internal/discussion"
	"github.com/UkralStul/matjip-discussion/internal/domain"
)

type reasonRequest struct {
	Reason string `json:"reason"`
}

func listQuery(r *http.Request) (discussion.ListQuery, error) {
	page, size, err := pageQuery(r)
	if err != nil {
		return discussion.ListQuery{}, err
	}
	return discussion.ListQuery{
		Kind:       domain.Kind(upper(r, "type")),
		Keyword:    r.URL.Query().Get("keyword"),
		SearchType: domain.SearchType(upper(r, "searchType")),
		Page:       page,
		Size:       size,
	}, nil
}

func (s *Server) listItems(w http.ResponseWriter, r *http.Request) {
	q, err := listQuery(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	page, err := s.svc.ListItems(r.Context(), spaceOf(r), q)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (s *Server) createItem(w http.ResponseWriter, r *http.Request) {
	var in discussion.ItemInput
	if err := decodeJSON(w, r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	item, err := s.svc.CreateItem(r.Context(), auth.FromContext(r.Context()), spaceOf(r), in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

func (s *Server) getItem(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	item, err := s.svc.GetItem(r.Context(), auth.FromContext(r.Context()), spaceOf(r), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (s *Server) updateItem(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var in discussion.ItemInput
	if err := decodeJSON(w, r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	item, err := s.svc.UpdateItem(r.Context(), auth.FromContext(r.Context()), spaceOf(r), id, in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (s *Server) deleteItem(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.svc.DeleteItem(r.Context(), auth.FromContext(r.Context()), spaceOf(r), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) recommendState(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	state, err := s.svc.IsRecommended(r.Context(), auth.FromContext(r.Context()), spaceOf(r), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

func (s *Server) toggleRecommendation(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	state, err := s.svc.ToggleRecommendation(r.Context(), auth.FromContext(r.Context()), spaceOf(r), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

func (s *Server) reportItem(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var in reasonRequest
	if err := decodeJSON(w, r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	report, err := s.svc.ReportItem(r.Context(), auth.FromContext(r.Context()), spaceOf(r), id, in.Reason)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, report)
}
