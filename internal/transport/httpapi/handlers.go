package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/sandevgo/nimbus/internal/core"
	"github.com/sandevgo/nimbus/internal/service/agent"
	"github.com/sandevgo/nimbus/internal/service/persona"
	"github.com/sandevgo/nimbus/pkg/log"
)

const maxMessageLength = 500

type chatRequest struct {
	Message   string `json:"message"`
	City      string `json:"city,omitempty"`
	UserID    string `json:"user_id,omitempty"`
	PersonaID string `json:"persona_id,omitempty"`

	Preferences struct {
		Units         string `json:"units,omitempty"`
		ResponseStyle string `json:"response_style,omitempty"`
	} `json:"preferences"`

	RememberMemory *bool `json:"remember_memory,omitempty"`
	IncludeTrace   bool  `json:"include_trace,omitempty"`
}

type chatResponse struct {
	AnswerText    string            `json:"answer_text"`
	PersonaID     string            `json:"persona_id"`
	City          string            `json:"city"`
	Units         string            `json:"units"`
	ResponseStyle string            `json:"response_style"`
	MemoryWritten bool              `json:"memory_written"`
	Trace         []core.StepRecord `json:"trace,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"service": "nimbus",
		"version": core.NimbusVersion,
		"status":  "ok",
		"routes": map[string]string{
			"chat_post": "/chat",
			"chat_get":  "/chat?city=Chennai",
			"personas":  "/personas",
			"health":    "/health",
		},
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handlePersonas(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"personas": persona.IDs(), "default": persona.DefaultID})
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
		return
	}
	s.serveChat(w, r, req)
}

// handleChatLegacy keeps the query-parameter form working.
func (s *Server) handleChatLegacy(w http.ResponseWriter, r *http.Request) {
	city := r.URL.Query().Get("city")
	req := chatRequest{
		City:      city,
		Message:   r.URL.Query().Get("message"),
		UserID:    r.URL.Query().Get("user_id"),
		PersonaID: r.URL.Query().Get("persona_id"),
	}
	if req.Message == "" && city != "" {
		req.Message = fmt.Sprintf("What is the weather in %s?", city)
	}
	s.serveChat(w, r, req)
}

func (s *Server) serveChat(w http.ResponseWriter, r *http.Request, req chatRequest) {
	if req.Message == "" && req.City == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "provide message or city"})
		return
	}
	if len(req.Message) > maxMessageLength {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "message too long"})
		return
	}

	message := req.Message
	if message == "" {
		message = fmt.Sprintf("What is the weather in %s?", req.City)
	}

	result, err := s.agent.Run(r.Context(), agent.Request{
		UserID:        req.UserID,
		Message:       message,
		CityHint:      req.City,
		PersonaID:     req.PersonaID,
		Units:         req.Preferences.Units,
		ResponseStyle: req.Preferences.ResponseStyle,
		Remember:      req.RememberMemory,
		IncludeTrace:  req.IncludeTrace,
	})
	if err != nil {
		log.FromCtx(r.Context()).Error().Err(err).Msg("agent run failed")
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "request could not be completed"})
		return
	}

	writeJSON(w, http.StatusOK, chatResponse{
		AnswerText:    result.FinalText,
		PersonaID:     result.PersonaID,
		City:          result.City,
		Units:         result.Units,
		ResponseStyle: result.ResponseStyle,
		MemoryWritten: result.MemoryWritten,
		Trace:         result.Trace,
	})
}

func (s *Server) handleClearMemory(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("user_id")
	clearProfile := r.URL.Query().Get("profile") == "true"

	result, err := s.memory.Clear(r.Context(), userID, clearProfile)
	if err != nil {
		log.FromCtx(r.Context()).Error().Err(err).Str("user", userID).Msg("memory clear failed")
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "memory store unavailable"})
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
