package server

import (
	"encoding/json"
	"net/http"
	"strconv"

	"TrackVault/logger"

	"github.com/gorilla/mux"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// handleRunTask dispatches one queued task. The response only acknowledges
// dispatch; progress is observable through the task record and event log.
func (s *Server) handleRunTask(w http.ResponseWriter, r *http.Request) {
	taskID, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		http.Error(w, "invalid task id", http.StatusBadRequest)
		return
	}

	logger.Info("task run triggered", logger.Int64("taskID", taskID))
	s.scheduler.Dispatch(r.Context(), taskID)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]any{"taskId": taskID, "dispatched": true})
}

// handleDrain kicks the queued-task drain. Idempotent.
func (s *Server) handleDrain(w http.ResponseWriter, r *http.Request) {
	s.scheduler.Drain(r.Context())
	w.WriteHeader(http.StatusAccepted)
}
