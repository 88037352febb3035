package httpx

import (
	"encoding/json"
	"net/http"
	"time"
)

// Response is the envelope every HTTP endpoint replies with.
type Response struct {
	Success   bool      `json:"success"`
	Data      any       `json:"data,omitempty"`
	Error     string    `json:"error,omitempty"`
	Message   string    `json:"message,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func WriteJSON(w http.ResponseWriter, status int, data any) {
	write(w, status, Response{
		Success:   true,
		Data:      data,
		Timestamp: time.Now().UTC(),
	})
}

func WriteMessage(w http.ResponseWriter, status int, msg string) {
	write(w, status, Response{
		Success:   true,
		Message:   msg,
		Timestamp: time.Now().UTC(),
	})
}

func WriteError(w http.ResponseWriter, status int, errMsg string) {
	write(w, status, Response{
		Success:   false,
		Error:     errMsg,
		Timestamp: time.Now().UTC(),
	})
}

func write(w http.ResponseWriter, status int, resp Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}
