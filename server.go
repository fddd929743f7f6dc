package main

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"bluon.io/audio/hspagw/headset"
)

// Server handles incoming HTTP requests for interacting with the
// configured headset backend
type Server struct {
	Logger  *slog.Logger
	Backend *headset.Backend
}

// ServeHTTP implements the http.Handler interface for the Server struct
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /status", s.handleStatus)
	mux.HandleFunc("POST /volume/speaker", s.handleSpeakerVolume)
	mux.HandleFunc("POST /volume/microphone", s.handleMicrophoneVolume)
	mux.ServeHTTP(w, r)
}

func (s *Server) sendError(w http.ResponseWriter, message string, statusCode int) {
	if message == "" {
		w.WriteHeader(statusCode)
		return
	}

	type ErrorResponse struct {
		Message string `json:"message"`
	}
	resp := ErrorResponse{Message: message}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(resp)

}

// handleStatus reports the current connection and call view
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	status, err := s.Backend.Status(r.Context())
	if err != nil {
		s.Logger.Error("Failed to read status", "error", err)
		s.sendError(w, err.Error(), http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(status)
}

type volumeRequest struct {
	Gain uint16 `json:"gain"`
}

// handleSpeakerVolume pushes a speaker gain value to the connected headset
func (s *Server) handleSpeakerVolume(w http.ResponseWriter, r *http.Request) {
	var req volumeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.sendError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.Gain > 15 {
		s.sendError(w, "gain must be between 0 and 15", http.StatusBadRequest)
		return
	}

	if err := s.Backend.SetSpeakerGain(r.Context(), req.Gain); err != nil {
		s.Logger.Error("Failed to set speaker gain", "error", err, "gain", req.Gain)
		s.sendError(w, err.Error(), http.StatusConflict)
		return
	}

	s.Logger.Info("Speaker gain set", "gain", req.Gain)
	w.WriteHeader(http.StatusOK)
}

// handleMicrophoneVolume pushes a microphone gain value to the connected headset
func (s *Server) handleMicrophoneVolume(w http.ResponseWriter, r *http.Request) {
	var req volumeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.sendError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.Gain > 15 {
		s.sendError(w, "gain must be between 0 and 15", http.StatusBadRequest)
		return
	}

	if err := s.Backend.SetMicrophoneGain(r.Context(), req.Gain); err != nil {
		s.Logger.Error("Failed to set microphone gain", "error", err, "gain", req.Gain)
		s.sendError(w, err.Error(), http.StatusConflict)
		return
	}

	s.Logger.Info("Microphone gain set", "gain", req.Gain)
	w.WriteHeader(http.StatusOK)
}
