package server

import (
	"encoding/json"
	stderrors "errors"
	"net/http"
	"strconv"

	"wa-gateway/auth"
	"wa-gateway/errors"
)

// connectRequest is the body of the connect call. user_id identifies the
// operator asking for the session and rides along into notifications.
type connectRequest struct {
	UserID string `json:"user_id" validate:"required"`
}

type successResponse struct {
	Code   int    `json:"code"`
	Status string `json:"status"`
	Body   any    `json:"body,omitempty"`
}

type errorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func (s *Server) handleConnect(w http.ResponseWriter, r *http.Request) {
	location := r.PathValue("location_identifier")

	var body connectRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.validate.Struct(body); err != nil {
		s.respondError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	status, err := s.service.Connect(r.Context(), location, body.UserID)
	if err != nil {
		s.respondFailure(w, r, err)
		return
	}

	s.respond(w, http.StatusOK, successResponse{Code: http.StatusOK, Status: string(status)})
}

func (s *Server) handleChats(w http.ResponseWriter, r *http.Request) {
	location := r.PathValue("location_identifier")

	query := r.URL.Query()
	limit := 0
	if rawLimit := query.Get("limit"); rawLimit != "" {
		parsed, err := strconv.Atoi(rawLimit)
		if err != nil {
			s.respondError(w, http.StatusBadRequest, "limit must be a number")
			return
		}
		limit = parsed
	}

	if query.Get("raw") == "true" {
		chats, err := s.service.RawChats(r.Context(), location)
		if err != nil {
			s.respondFailure(w, r, err)
			return
		}
		s.respond(w, http.StatusOK, successResponse{Code: http.StatusOK, Status: "success", Body: chats})
		return
	}

	collection, err := s.service.Chats(r.Context(), location, limit)
	if err != nil {
		s.respondFailure(w, r, err)
		return
	}
	s.respond(w, http.StatusOK, successResponse{Code: http.StatusOK, Status: "success", Body: collection})
}

func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	s.respond(w, http.StatusOK, successResponse{
		Code:   http.StatusOK,
		Status: "success",
		Body:   s.service.Sessions(),
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respond(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	s.respond(w, http.StatusOK, s.monitor.Collect())
}

// respondFailure maps each condition code onto its HTTP shape. The
// distinctions matter to the remote application: "already initializing"
// and "temporarily unavailable" invite a retry, "not connected" asks for
// an explicit connect, a read failure signals recovery is underway.
func (s *Server) respondFailure(w http.ResponseWriter, r *http.Request, err error) {
	caller := auth.CallerID(r.Context())
	s.log.Warn("request failed", "path", r.URL.Path, "user_id", caller, "error", err)

	switch {
	case stderrors.Is(err, errors.ErrLocationRequired):
		s.respondError(w, http.StatusBadRequest, "the location identifier is required")
	case stderrors.Is(err, errors.ErrAlreadyInitializing):
		s.respondError(w, http.StatusBadRequest, "client is already initializing, please try again in a few seconds")
	case stderrors.Is(err, errors.ErrNotConnected):
		s.respondError(w, http.StatusBadRequest, "there is no client for this location identifier")
	case stderrors.Is(err, errors.ErrTemporarilyUnavailable):
		s.respondError(w, http.StatusBadRequest, "we cannot get the chats at this moment, please try again later")
	case stderrors.Is(err, errors.ErrReadFailure):
		s.respondError(w, http.StatusInternalServerError, "error getting the client's chats")
	default:
		s.respondError(w, http.StatusInternalServerError, "internal error")
	}
}

func (s *Server) respond(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.log.Error("encoding response", "error", err)
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respond(w, status, errorResponse{Success: false, Message: message})
}
