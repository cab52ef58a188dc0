package api

import (
	"net/http"

	"kabu-agent/analysis"
)

// handleBuySignals returns today's buy signals, best score first.
func (s *Server) handleBuySignals(w http.ResponseWriter, r *http.Request) {
	s.serveSignals(w, r, analysis.SignalBuy)
}

// handleSellSignals returns today's sell signals, best score first.
func (s *Server) handleSellSignals(w http.ResponseWriter, r *http.Request) {
	s.serveSignals(w, r, analysis.SignalSell)
}

// serveSignals prefers the in-memory snapshot of the last completed run;
// after a restart it falls back to the persisted signals of the latest run.
// The response body is a bare Signal array.
func (s *Server) serveSignals(w http.ResponseWriter, r *http.Request, signalType analysis.SignalType) {
	if snap := s.orch.Current(); snap != nil {
		signals := make([]analysis.Signal, 0)
		for _, sig := range snap.Signals {
			if sig.SignalType == signalType {
				signals = append(signals, sig)
			}
		}
		respondJSON(w, http.StatusOK, signals)
		return
	}

	signals, err := s.repo.SignalsByType(r.Context(), signalType)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if signals == nil {
		signals = []analysis.Signal{}
	}
	respondJSON(w, http.StatusOK, signals)
}
