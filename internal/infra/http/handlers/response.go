package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/xavierca1/prospect-crm/internal/usecase"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{Error: code, Message: message})
}

// HTTPStatus maps a usecase error code to a response status.
func HTTPStatus(err error) int {
	switch usecase.ErrorCode(err) {
	case usecase.CodeValidation:
		return http.StatusBadRequest
	case usecase.CodeNotFound:
		return http.StatusNotFound
	case usecase.CodeConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func writeUsecaseError(w http.ResponseWriter, err error) {
	code := usecase.ErrorCode(err)
	if code == "" {
		code = "INTERNAL_ERROR"
	}
	writeError(w, HTTPStatus(err), code, usecase.PublicMessage(err))
}
