package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"fieldsurvey/internal/log"
	"fieldsurvey/internal/service"
	"fieldsurvey/internal/transport/rest/middleware"
)

// Error codes carried in the error envelope
const (
	CodeValidation        = "VALIDATION_ERROR"
	CodeUnauthorized      = "UNAUTHORIZED"
	CodeNotFound          = "NOT_FOUND"
	CodeDuplicateInFlight = "DUPLICATE_IN_FLIGHT"
	CodeInternal          = "INTERNAL_ERROR"
)

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type errorEnvelope struct {
	Success bool      `json:"success"`
	Message string    `json:"message"`
	Error   errorBody `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeData(w http.ResponseWriter, status int, data interface{}) {
	writeJSON(w, status, map[string]interface{}{"success": true, "data": data})
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorEnvelope{
		Message: message,
		Error:   errorBody{Code: code, Message: message},
	})
}

// writeServiceError maps service errors onto status codes. Internal details
// are logged, never returned.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		writeError(w, http.StatusBadRequest, CodeValidation, verr.Message)
	case errors.Is(err, service.ErrValidation):
		writeError(w, http.StatusBadRequest, CodeValidation, err.Error())
	case errors.Is(err, service.ErrSurveyNotFound):
		writeError(w, http.StatusNotFound, CodeNotFound, "survey not found")
	case errors.Is(err, service.ErrDuplicateInFlight):
		writeError(w, http.StatusConflict, CodeDuplicateInFlight, "an identical submission is being processed")
	default:
		log.WithFields(log.Fields{
			"requestId": middleware.GetRequestID(r.Context()),
			"method":    r.Method,
			"path":      r.URL.Path,
		}).Errorf("request failed: %v", err)
		writeError(w, http.StatusInternalServerError, CodeInternal, "internal server error")
	}
}
