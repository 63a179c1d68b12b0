package httphandler

import (
	"encoding/json"
	"net/http"

	"github.com/ericfisherdev/crmvault/internal/domain/model"
)

// writeJSON marshals v to JSON and writes it to the response with the given
// status code. If marshaling fails, a 500 error is written instead.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"internal server error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

// writeError writes a JSON error response with the given status code and message.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// errorResponse is the standard error response body.
type errorResponse struct {
	Error string `json:"error"`
}

// SaveCredentialsRequest is the JSON body for the save endpoint.
type SaveCredentialsRequest struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}

// CredentialsResponse is the JSON representation of a remembered login pair.
type CredentialsResponse struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}

// StatusResponse reports whether credentials are remembered.
type StatusResponse struct {
	Saved bool `json:"saved"`
}

// HealthResponse is the JSON representation of the health check endpoint.
type HealthResponse struct {
	Status string `json:"status"`
	Time   string `json:"time"`
}

func toCredentialsResponse(c model.Credentials) CredentialsResponse {
	return CredentialsResponse{Login: c.Login, Password: c.Password}
}
