package netx

import (
	"encoding/json"
	"net/http"
)

// AuthResponse represents authentication-related responses
type AuthResponse struct {
	Success     bool   `json:"success"`
	Message     string `json:"message"`
	Username    string `json:"username,omitempty"`
	RedirectURL string `json:"redirect_url,omitempty"`
}

// ErrorResponse represents error responses
type ErrorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}

// WriteJSON writes a JSON response with the specified status code
func WriteJSON(w http.ResponseWriter, statusCode int, data any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	return json.NewEncoder(w).Encode(data)
}

// WriteError writes an error JSON response. err is only exposed for
// server side failures, never for authentication problems.
func WriteError(w http.ResponseWriter, statusCode int, message string, err error) error {
	response := ErrorResponse{
		Success: false,
		Message: message,
	}

	if err != nil {
		response.Error = err.Error()
	}

	return WriteJSON(w, statusCode, response)
}

// WriteAuthSuccess writes a successful authentication response
func WriteAuthSuccess(w http.ResponseWriter, message, username, redirect string) error {
	return WriteJSON(w, http.StatusOK, AuthResponse{
		Success:     true,
		Message:     message,
		Username:    username,
		RedirectURL: redirect,
	})
}

// WriteAuthError writes an authentication error response
func WriteAuthError(w http.ResponseWriter, statusCode int, message string) error {
	return WriteJSON(w, statusCode, AuthResponse{
		Success: false,
		Message: message,
	})
}

// WriteUnauthorized writes an unauthorized response
func WriteUnauthorized(w http.ResponseWriter, message string) error {
	return WriteAuthError(w, http.StatusUnauthorized, message)
}

// WriteMethodNotAllowed writes a method not allowed response
func WriteMethodNotAllowed(w http.ResponseWriter) error {
	return WriteError(w, http.StatusMethodNotAllowed, "Method not allowed", nil)
}

// WriteInternalServerError writes an internal server error response
func WriteInternalServerError(w http.ResponseWriter, message string, err error) error {
	return WriteError(w, http.StatusInternalServerError, message, err)
}
