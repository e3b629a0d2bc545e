package http

import (
	"net/http"

	"expenses/internal/core"
	"expenses/internal/log"
)

type dailyList struct {
	Items []core.DailyTotal `json:"items"`
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	start, end, err := dateRange(r.URL.Query())
	if err != nil {
		s.writeError(w, r, log.OpSummarize, err)
		return
	}
	summary, err := s.svc.Reports.Summarize(r.Context(), start, end)
	if err != nil {
		s.writeError(w, r, log.OpSummarize, err)
		return
	}
	if summary.Items == nil {
		summary.Items = []core.SummaryGroup{}
	}
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleDaily(w http.ResponseWriter, r *http.Request) {
	start, end, err := dateRange(r.URL.Query())
	if err != nil {
		s.writeError(w, r, log.OpSummarize, err)
		return
	}
	days, err := s.svc.Reports.Daily(r.Context(), start, end)
	if err != nil {
		s.writeError(w, r, log.OpSummarize, err)
		return
	}
	if days == nil {
		days = []core.DailyTotal{}
	}
	writeJSON(w, http.StatusOK, dailyList{Items: days})
}
