package api

import (
	"encoding/json"
	"log"
	"net/http"

	"kabu-agent/cache"
	"kabu-agent/database"
)

// ScreeningResponse is one page of screening results.
type ScreeningResponse struct {
	Items   []database.ScreenedStock `json:"items"`
	Total   int64                    `json:"total"`
	Page    int                      `json:"page"`
	PerPage int                      `json:"per_page"`
}

// handleScreening filters the universe on the latest price, fundamental,
// indicator and score values. Identical criteria within the cache TTL are
// served from Redis.
func (s *Server) handleScreening(w http.ResponseWriter, r *http.Request) {
	var criteria database.ScreeningCriteria
	if err := json.NewDecoder(r.Body).Decode(&criteria); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid screening criteria: "+err.Error())
		return
	}
	if criteria.Page < 1 {
		criteria.Page = 1
	}
	if criteria.PerPage < 1 || criteria.PerPage > 100 {
		criteria.PerPage = 20
	}

	cacheKey := cache.ScreeningKey(criteria)
	var cached ScreeningResponse
	if err := s.redis.Get(r.Context(), cacheKey, &cached); err == nil {
		respondJSON(w, http.StatusOK, cached)
		return
	}

	items, total, err := s.repo.Screen(r.Context(), criteria)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if items == nil {
		items = []database.ScreenedStock{}
	}

	resp := ScreeningResponse{
		Items:   items,
		Total:   total,
		Page:    criteria.Page,
		PerPage: criteria.PerPage,
	}

	go func() {
		if s.redis == nil {
			return
		}
		ctx, cancel := context5s()
		defer cancel()
		if err := s.redis.Set(ctx, cacheKey, resp, cache.ScreeningTTL); err != nil {
			log.Printf("⚠️ Failed to cache screening result: %v", err)
		}
	}()

	respondJSON(w, http.StatusOK, resp)
}
