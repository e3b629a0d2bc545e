package http

import (
	"encoding/json"
	"net/http"

	"expenses/internal/core"
	"expenses/internal/log"
)

type transactionList struct {
	Items []core.Transaction `json:"items"`
}

func (s *Server) handleListUnlabeled(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, err := queryInt(q, "limit", core.DefaultUnlabeledLimit, 1, core.MaxListLimit)
	if err != nil {
		s.writeError(w, r, log.OpList, err)
		return
	}
	items, err := s.svc.Labeling.ListUnlabeled(r.Context(), limit, q.Get("q"))
	if err != nil {
		s.writeError(w, r, log.OpList, err)
		return
	}
	if items == nil {
		items = []core.Transaction{}
	}
	writeJSON(w, http.StatusOK, transactionList{Items: items})
}

// handleAssignCategory sets or clears a transaction's category. The body
// must carry the category_id key; an explicit null clears the label.
func (s *Server) handleAssignCategory(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, log.OpLabel, err)
		return
	}
	var body map[string]json.RawMessage
	if err := decodeJSON(w, r, &body); err != nil {
		s.writeError(w, r, log.OpLabel, err)
		return
	}
	raw, ok := body["category_id"]
	if !ok {
		s.writeError(w, r, log.OpLabel, core.NewValidationError("category_id", "category_id is required (use null to clear)"))
		return
	}
	categoryID, err := parseCategoryRef(raw)
	if err != nil {
		s.writeError(w, r, log.OpLabel, err)
		return
	}
	t, err := s.svc.Labeling.Assign(r.Context(), id, categoryID)
	if err != nil {
		s.writeError(w, r, log.OpLabel, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}
