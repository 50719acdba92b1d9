package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/dusk-indust/userbridge/internal/directory"
	"github.com/dusk-indust/userbridge/internal/user"
)

const maxBodyBytes = 1 << 20

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Error string `json:"error"`
}

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.users.ListAllUsers(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(r.URL.Query().Get("id"))
	if id == "" {
		writeError(w, http.StatusBadRequest, "id query parameter is required")
		return
	}

	u, err := s.users.GetUser(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	candidate, idSet, ok := decodeUser(w, r)
	if !ok {
		return
	}
	if idSet {
		writeError(w, http.StatusBadRequest, "id must not be set when creating a user")
		return
	}

	created, err := s.users.CreateUser(r.Context(), candidate)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	candidate, _, ok := decodeUser(w, r)
	if !ok {
		return
	}
	if strings.TrimSpace(candidate.ID) == "" {
		writeError(w, http.StatusBadRequest, "id is required when updating a user")
		return
	}

	if _, err := s.users.UpdateUser(r.Context(), candidate); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// decodeUser reads a user from the request body, answering 400 itself when the
// body is missing or malformed. idSet reports whether the body carried a
// non-null id member, even an empty one.
func decodeUser(w http.ResponseWriter, r *http.Request) (u user.User, idSet bool, ok bool) {
	var raw json.RawMessage
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&raw); err != nil {
		if errors.Is(err, io.EOF) {
			writeError(w, http.StatusBadRequest, "request body is required")
		} else {
			writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		}
		return user.User{}, false, false
	}
	if err := dec.Decode(&json.RawMessage{}); !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid request body: unexpected data after the JSON value")
		return user.User{}, false, false
	}
	if bytes.Equal(raw, []byte("null")) {
		writeError(w, http.StatusBadRequest, "request body is required")
		return user.User{}, false, false
	}

	if err := json.Unmarshal(raw, &u); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return user.User{}, false, false
	}

	var idMember struct {
		ID json.RawMessage `json:"id"`
	}
	if err := json.Unmarshal(raw, &idMember); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return user.User{}, false, false
	}
	idSet = len(idMember.ID) > 0 && !bytes.Equal(idMember.ID, []byte("null"))
	return u, idSet, true
}

// writeServiceError maps a service failure onto a response. Directory status
// errors pass their status through; everything else is a 500.
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	fields := []zap.Field{
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.Int("status", status),
		zap.Error(err),
	}
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", fields...)
	} else {
		s.logger.Info("request rejected", fields...)
	}
	writeError(w, status, err.Error())
}

func statusFor(err error) int {
	var decodeErr *directory.DecodeError
	if errors.As(err, &decodeErr) {
		return http.StatusInternalServerError
	}
	if code, ok := directory.StatusCode(err); ok {
		// The directory may report a code that is not a valid final status.
		if code < 200 || code > 599 {
			return http.StatusBadGateway
		}
		return code
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("encode response: %v", err))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	data, _ := json.Marshal(errorBody{Error: msg})
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}
