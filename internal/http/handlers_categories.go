package http

import (
	"net/http"

	"expenses/internal/core"
	"expenses/internal/log"
	"expenses/internal/services"
)

type createCategoryRequest struct {
	Name string `json:"name"`
}

type categoryList struct {
	Items []core.Category `json:"items"`
}

type usageList struct {
	Items []core.CategoryUsage `json:"items"`
}

type deleteCategoryResponse struct {
	Deleted  bool `json:"deleted"`
	Detached int  `json:"detached"`
}

type seedResponse struct {
	OK            bool `json:"ok"`
	Inserted      int  `json:"inserted"`
	TotalDefaults int  `json:"total_defaults"`
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := s.svc.Categories.List(r.Context())
	if err != nil {
		s.writeError(w, r, log.OpList, err)
		return
	}
	if cats == nil {
		cats = []core.Category{}
	}
	writeJSON(w, http.StatusOK, categoryList{Items: cats})
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	var req createCategoryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, log.OpCreate, err)
		return
	}
	c, err := s.svc.Categories.Create(r.Context(), req.Name)
	if err != nil {
		s.writeError(w, r, log.OpCreate, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (s *Server) handleCategoryUsage(w http.ResponseWriter, r *http.Request) {
	usage, err := s.svc.Categories.Usage(r.Context())
	if err != nil {
		s.writeError(w, r, log.OpList, err)
		return
	}
	if usage == nil {
		usage = []core.CategoryUsage{}
	}
	writeJSON(w, http.StatusOK, usageList{Items: usage})
}

// handleDeleteCategory removes a category. force=true detaches the
// transactions still referencing it instead of refusing.
func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, log.OpDelete, err)
		return
	}
	force, err := queryBool(r.URL.Query(), "force")
	if err != nil {
		s.writeError(w, r, log.OpDelete, err)
		return
	}
	detached, err := s.svc.Categories.Delete(r.Context(), id, force)
	if err != nil {
		s.writeError(w, r, log.OpDelete, err)
		return
	}
	writeJSON(w, http.StatusOK, deleteCategoryResponse{Deleted: true, Detached: detached})
}

func (s *Server) handleSeedCategories(w http.ResponseWriter, r *http.Request) {
	inserted, err := s.svc.Categories.SeedDefaults(r.Context())
	if err != nil {
		s.writeError(w, r, log.OpSeed, err)
		return
	}
	writeJSON(w, http.StatusOK, seedResponse{
		OK:            true,
		Inserted:      inserted,
		TotalDefaults: len(services.DefaultCategoryNames),
	})
}
