package server

import (
	"net/http"
	"time"

	"github.com/me/shopadmin/pkg/model"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeEnvelope(w, r, http.StatusOK, model.Health{
		Status:  "healthy",
		Version: Version,
		Uptime:  time.Since(s.startTime).Round(time.Second).String(),
		API:     s.gw.BaseURL(),
	}, nil)
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	writeEnvelope(w, r, http.StatusNotFound, nil, &model.APIError{
		Code:    "NOT_FOUND",
		Message: "no route for " + r.Method + " " + r.URL.Path,
	})
}
