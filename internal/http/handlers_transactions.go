package http

import (
	"encoding/json"
	"net/http"

	"expenses/internal/core"
	"expenses/internal/log"
)

// createTransactionRequest mirrors the client payload. Amount may arrive
// as a JSON number or a string.
type createTransactionRequest struct {
	Date        string          `json:"date"`
	Description string          `json:"description"`
	Amount      json.RawMessage `json:"amount"`
	Merchant    *string         `json:"merchant"`
	CategoryID  json.RawMessage `json:"category_id"`
	Source      string          `json:"source"`
}

func (req createTransactionRequest) input() (core.TransactionInput, error) {
	amount, err := amountText(req.Amount)
	if err != nil {
		return core.TransactionInput{}, err
	}
	categoryID, err := parseCategoryRef(req.CategoryID)
	if err != nil {
		return core.TransactionInput{}, err
	}
	return core.TransactionInput{
		Date:        req.Date,
		Description: req.Description,
		Amount:      amount,
		Merchant:    req.Merchant,
		CategoryID:  categoryID,
		Source:      req.Source,
	}, nil
}

type transactionPage struct {
	Items   []core.Transaction `json:"items"`
	Page    int                `json:"page"`
	Limit   int                `json:"limit"`
	Total   int                `json:"total"`
	HasNext bool               `json:"has_next"`
}

type deletedResponse struct {
	Deleted bool `json:"deleted"`
}

// listFilter builds the ledger filter for GET /transactions and returns
// the requested page number.
func listFilter(r *http.Request) (core.Filter, int, error) {
	q := r.URL.Query()
	start, end, err := dateRange(q)
	if err != nil {
		return core.Filter{}, 0, err
	}
	category, err := queryCategory(q)
	if err != nil {
		return core.Filter{}, 0, err
	}
	limit, err := queryInt(q, "limit", core.DefaultListLimit, 1, core.MaxListLimit)
	if err != nil {
		return core.Filter{}, 0, err
	}
	page, err := queryInt(q, "page", 1, 1, 1_000_000)
	if err != nil {
		return core.Filter{}, 0, err
	}
	return core.Filter{
		Q:        q.Get("q"),
		Start:    start,
		End:      end,
		Category: category,
		Limit:    limit,
		Offset:   (page - 1) * limit,
	}, page, nil
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	f, page, err := listFilter(r)
	if err != nil {
		s.writeError(w, r, log.OpList, err)
		return
	}
	result, err := s.svc.Ledger.List(r.Context(), f)
	if err != nil {
		s.writeError(w, r, log.OpList, err)
		return
	}
	items := result.Items
	if items == nil {
		items = []core.Transaction{}
	}
	writeJSON(w, http.StatusOK, transactionPage{
		Items:   items,
		Page:    page,
		Limit:   f.Limit,
		Total:   result.Total,
		HasNext: f.Offset+len(items) < result.Total,
	})
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req createTransactionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, log.OpCreate, err)
		return
	}
	in, err := req.input()
	if err != nil {
		s.writeError(w, r, log.OpCreate, err)
		return
	}
	t, err := s.svc.Ledger.Create(r.Context(), in)
	if err != nil {
		s.writeError(w, r, log.OpCreate, err)
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, log.OpRead, err)
		return
	}
	t, err := s.svc.Ledger.Get(r.Context(), id)
	if err != nil {
		s.writeError(w, r, log.OpRead, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, log.OpDelete, err)
		return
	}
	if err := s.svc.Ledger.Delete(r.Context(), id); err != nil {
		s.writeError(w, r, log.OpDelete, err)
		return
	}
	writeJSON(w, http.StatusOK, deletedResponse{Deleted: true})
}
