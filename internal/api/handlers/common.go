package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/hugh/chronos/internal/api/dto"
	"github.com/hugh/chronos/internal/api/middleware"
	"github.com/hugh/chronos/internal/auth"
	"github.com/hugh/chronos/internal/database/models"
)

const maxBodyBytes = 1 << 20

var errEmptyBody = errors.New("empty body")

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, dto.ErrorResponse{Error: msg})
}

func writeValidation(w http.ResponseWriter, details map[string]string) {
	writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Validation failed", Details: details})
}

// decodeJSON reads a JSON body into v. strict rejects unknown keys.
func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}, strict bool) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if strict {
		dec.DisallowUnknownFields()
	}
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return errEmptyBody
		}
		return err
	}
	return nil
}

// currentUser loads the caller. It writes 401 without an identity, 404 when
// the identity has no user row, and 500 on lookup failure.
func currentUser(w http.ResponseWriter, r *http.Request, users *auth.Service) (*models.User, bool) {
	email := middleware.GetUserEmail(r.Context())
	if email == "" {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return nil, false
	}

	user, err := users.GetUserByEmail(r.Context(), email)
	if err != nil {
		if errors.Is(err, auth.ErrUserNotFound) {
			writeError(w, http.StatusNotFound, "User not found")
		} else {
			writeError(w, http.StatusInternalServerError, "Internal server error")
		}
		return nil, false
	}
	return user, true
}
