package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dmitrijs2005/alertkeeper/internal/common"
)

const (
	kindValidation   = "validation_error"
	kindConflict     = "conflict"
	kindUnauthorized = "unauthorized"
	kindNotFound     = "not_found"
	kindInternal     = "internal_error"
)

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, kind, message string) {
	writeJSON(w, status, errorResponse{Error: kind, Message: message})
}

// classify maps a service error onto a status, an error kind and a message
// that is safe to show to clients.
func classify(err error) (int, string, string) {
	switch {
	case errors.Is(err, common.ErrTokenMissing):
		return http.StatusUnauthorized, kindUnauthorized, "Token is missing"
	case errors.Is(err, common.ErrTokenExpired):
		return http.StatusUnauthorized, kindUnauthorized, "Token has expired"
	case errors.Is(err, common.ErrInvalidToken):
		return http.StatusUnauthorized, kindUnauthorized, "Invalid token"
	case errors.Is(err, common.ErrorUnauthorized):
		return http.StatusUnauthorized, kindUnauthorized, "Could not verify"
	case errors.Is(err, common.ErrorValidation):
		return http.StatusBadRequest, kindValidation, err.Error()
	case errors.Is(err, common.ErrorDuplicateIOC):
		return http.StatusBadRequest, kindConflict, "Duplicate IOC for the same source"
	case errors.Is(err, common.ErrorAlreadyExists):
		return http.StatusBadRequest, kindConflict, "User already exists"
	case errors.Is(err, common.ErrorNotFound):
		return http.StatusNotFound, kindNotFound, "Not found"
	}
	return http.StatusInternalServerError, kindInternal, "internal server error"
}
