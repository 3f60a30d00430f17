package httpx

import (
	"encoding/json"
	"net/http"
)

// writeJSON writes JSON response with status code.
func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// writeError sends an error message.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"message": msg})
}

// writeProcessError sends a message together with the raw failure text of
// an external process.
func writeProcessError(w http.ResponseWriter, status int, msg, raw string) {
	writeJSON(w, status, map[string]string{"message": msg, "error": raw})
}

func decodeJSON(req *http.Request, dst any) error {
	req.Body = http.MaxBytesReader(nil, req.Body, maxBodyBytes)
	return json.NewDecoder(req.Body).Decode(dst)
}

const maxBodyBytes = 1 << 20
