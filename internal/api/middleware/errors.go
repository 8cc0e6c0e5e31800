package middleware

import (
	"encoding/json"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/rosterlab/rosterlab/pkg/models"
)

// WriteError writes a models.ErrorResponse. A positive retryAfter also sets
// the Retry-After header, rounded up to whole seconds.
func WriteError(w http.ResponseWriter, status int, code, message string, retryAfter time.Duration) {
	body := models.ErrorResponse{Error: message, Code: code}
	if retryAfter > 0 {
		body.RetryAfterSeconds = int(math.Ceil(retryAfter.Seconds()))
		w.Header().Set("Retry-After", strconv.Itoa(body.RetryAfterSeconds))
	}
	setErrorCode(w, code)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
