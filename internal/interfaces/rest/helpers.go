package rest

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/pccbooth/payment-gateway/internal/application"
)

type SuccessResponse struct {
	Success bool `json:"success"`
	Data    any  `json:"data"`
}

type ErrorResponse struct {
	Success bool        `json:"success"`
	Error   ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// WriteJSON writes the standard success envelope.
func WriteJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(SuccessResponse{
		Success: true,
		Data:    data,
	})
}

// WriteError maps application errors to HTTP responses. Anything that is not
// a ServiceError is treated as internal and its detail kept out of the body.
func WriteError(w http.ResponseWriter, err error, logger *slog.Logger) {
	svcErr, ok := application.IsServiceError(err)
	if !ok {
		svcErr = application.NewInternalError(err)
	}

	if svcErr.HTTPStatus >= http.StatusInternalServerError {
		logger.Error("request failed", "code", svcErr.Code, "error", err)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(svcErr.HTTPStatus)
	json.NewEncoder(w).Encode(ErrorResponse{
		Success: false,
		Error: ErrorDetail{
			Code:    svcErr.Code,
			Message: svcErr.Message,
		},
	})
}
