package api

import (
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"kabu-agent/pipeline"
)

// TodayActionsResponse is the aggregated "what should I do today" payload.
type TodayActionsResponse struct {
	Date                string                         `json:"date"`
	PipelineStatus      pipeline.RunStatus             `json:"pipeline_status"`
	PipelineLastRun     *time.Time                     `json:"pipeline_last_run"`
	BuyRecommendations  []pipeline.OrderRecommendation `json:"buy_recommendations"`
	SellRecommendations []pipeline.OrderRecommendation `json:"sell_recommendations"`
	Summary             string                         `json:"summary"`
}

// handleTodayActions serves the current recommendation set. The in-memory
// snapshot wins; after a restart the Redis copy (and behind it the last
// persisted run) fills in until the next pipeline run.
func (s *Server) handleTodayActions(w http.ResponseWriter, r *http.Request) {
	state := s.orch.State()

	if snap := s.orch.Current(); snap != nil {
		resp := TodayActionsResponse{
			Date:                snap.Date.Format("2006-01-02"),
			PipelineStatus:      state.Status,
			PipelineLastRun:     state.FinishedAt,
			BuyRecommendations:  snap.BuyRecommendations,
			SellRecommendations: snap.SellRecommendations,
			Summary:             snap.Summary,
		}
		if resp.BuyRecommendations == nil {
			resp.BuyRecommendations = []pipeline.OrderRecommendation{}
		}
		if resp.SellRecommendations == nil {
			resp.SellRecommendations = []pipeline.OrderRecommendation{}
		}
		go s.cacheTodayActions(resp)
		respondJSON(w, http.StatusOK, resp)
		return
	}

	var cached TodayActionsResponse
	if err := s.redis.GetTodayActions(r.Context(), &cached); err == nil {
		cached.PipelineStatus = state.Status
		respondJSON(w, http.StatusOK, cached)
		return
	}

	respondJSON(w, http.StatusOK, TodayActionsResponse{
		Date:                time.Now().UTC().Format("2006-01-02"),
		PipelineStatus:      state.Status,
		PipelineLastRun:     state.FinishedAt,
		BuyRecommendations:  []pipeline.OrderRecommendation{},
		SellRecommendations: []pipeline.OrderRecommendation{},
		Summary:             "Pipeline has not produced recommendations yet. Trigger a run via POST /agent/run-pipeline.",
	})
}

func (s *Server) cacheTodayActions(resp TodayActionsResponse) {
	if s.redis == nil {
		return
	}
	ctx, cancel := context5s()
	defer cancel()
	if err := s.redis.CacheTodayActions(ctx, resp); err != nil {
		log.Printf("⚠️ Failed to cache today actions: %v", err)
	}
}

// handleRunPipeline triggers an asynchronous pipeline run. A trigger while
// a run is in flight reports already_running instead of queueing.
func (s *Server) handleRunPipeline(w http.ResponseWriter, r *http.Request) {
	runID, err := s.orch.Trigger()
	if errors.Is(err, pipeline.ErrAlreadyRunning) {
		respondJSON(w, http.StatusOK, map[string]string{
			"status":  "already_running",
			"message": "A pipeline run is already in progress",
		})
		return
	}
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"status":  "started",
		"run_id":  runID,
		"message": "Pipeline run started in the background",
	})
}

// handlePipelineStatus reports the state of the current or last run.
func (s *Server) handlePipelineStatus(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.orch.State())
}

// handleCancelPipeline requests cooperative cancellation of the in-flight
// run.
func (s *Server) handleCancelPipeline(w http.ResponseWriter, r *http.Request) {
	if err := s.orch.Cancel(); err != nil {
		if errors.Is(err, pipeline.ErrNotRunning) {
			respondWithError(w, http.StatusConflict, "no pipeline run in progress")
			return
		}
		respondWithError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{
		"status":  "cancelling",
		"message": "Cancellation requested; in-flight stock computations will finish",
	})
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins
	},
}

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = 54 * time.Second
)

// handlePipelineEvents upgrades to a WebSocket and streams pipeline
// lifecycle events. The current state is sent immediately on connect so a
// client never has to poll for the baseline.
func (s *Server) handlePipelineEvents(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("⚠️ WebSocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	events := s.broker.Subscribe()
	defer s.broker.Unsubscribe(events)

	conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
	if err := conn.WriteJSON(map[string]interface{}{
		"event":   "pipeline_status",
		"payload": s.orch.State(),
	}); err != nil {
		return
	}

	// Read pump: drain client frames so control messages are processed and
	// disconnects are noticed.
	done := make(chan struct{})
	go func() {
		defer close(done)
		conn.SetReadDeadline(time.Now().Add(wsPongWait))
		conn.SetPongHandler(func(string) error {
			conn.SetReadDeadline(time.Now().Add(wsPongWait))
			return nil
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(wsPingPeriod)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-events:
			conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if !ok {
				conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}
