package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/me/shopadmin/pkg/model"
)

// newRequestID returns a short random ID such as "req_1a2b3c4d".
func newRequestID() string {
	return "req_" + uuid.NewString()[:8]
}

// writeEnvelope replies with data wrapped in the JSON envelope. A non-nil
// apiErr marks the reply failed and takes the place of data.
func writeEnvelope(w http.ResponseWriter, r *http.Request, status int, data any, apiErr *model.APIError) {
	env := model.Response{
		Status:    "ok",
		RequestID: RequestIDFromContext(r.Context()),
		Timestamp: time.Now().UTC(),
		Data:      data,
	}
	if apiErr != nil {
		env.Status, env.Data, env.Error = "error", nil, apiErr
	}

	body, err := json.Marshal(env)
	if err != nil {
		http.Error(w, "encode response: "+err.Error(), http.StatusInternalServerError)
		return
	}
	h := w.Header()
	h.Set("Content-Type", "application/json")
	h.Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	w.Write(append(body, '\n'))
}
