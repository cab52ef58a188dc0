package api

import (
	"net/http"
)

// handleListStocks returns one page of the active stock universe.
func (s *Server) handleListStocks(w http.ResponseWriter, r *http.Request) {
	page := queryInt(r, "page", 1)
	perPage := queryInt(r, "per_page", 50)
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 200 {
		perPage = 50
	}

	stocks, total, err := s.repo.ListStocks(r.Context(), page, perPage)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"items":    stocks,
		"total":    total,
		"page":     page,
		"per_page": perPage,
	})
}

// handleStockPlan returns the most recent trade plan for one stock. The
// in-memory snapshot wins; otherwise the latest persisted plan is served.
func (s *Server) handleStockPlan(w http.ResponseWriter, r *http.Request) {
	code := r.PathValue("code")
	if code == "" {
		respondWithError(w, http.StatusBadRequest, "stock code is required")
		return
	}

	if snap := s.orch.Current(); snap != nil {
		for _, plan := range snap.Plans {
			if plan.StockCode == code {
				respondJSON(w, http.StatusOK, plan)
				return
			}
		}
	}

	plan, err := s.repo.LatestPlan(r.Context(), code)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if plan == nil {
		respondWithError(w, http.StatusNotFound, "no trade plan for stock "+code)
		return
	}
	respondJSON(w, http.StatusOK, plan)
}

// handleStockIndicators returns the latest computed indicator snapshot for
// one stock.
func (s *Server) handleStockIndicators(w http.ResponseWriter, r *http.Request) {
	code := r.PathValue("code")
	if code == "" {
		respondWithError(w, http.StatusBadRequest, "stock code is required")
		return
	}

	if snap := s.orch.Current(); snap != nil {
		if ind, ok := snap.Indicators[code]; ok {
			respondJSON(w, http.StatusOK, ind)
			return
		}
	}

	rec, err := s.repo.LatestIndicators(r.Context(), code)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if rec == nil {
		respondWithError(w, http.StatusNotFound, "no indicators for stock "+code)
		return
	}
	respondJSON(w, http.StatusOK, rec)
}
