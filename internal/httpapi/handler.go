// Package httpapi exposes the counter service over plain net/http.
package httpapi

import (
	"errors"
	"io"
	"net/http"

	"github.com/tckz/password-counter/internal/service"
	"go.uber.org/zap"
)

// MaxBodyBytes caps the request body read into memory.
const MaxBodyBytes = 1 << 20

// Handler serves every path; routing is by method only.
type Handler struct {
	svc    *service.Service
	logger *zap.SugaredLogger
}

// NewHandler returns the counter handler wrapped with request id and access
// logging middleware.
func NewHandler(svc *service.Service, logger *zap.SugaredLogger) http.Handler {
	h := &Handler{svc: svc, logger: logger}
	return requestIDMiddleware(loggingMiddleware(logger, h))
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	resp := h.dispatch(w, r)

	for k, v := range resp.Headers {
		w.Header().Set(k, v)
	}
	w.WriteHeader(resp.StatusCode)
	_, _ = io.WriteString(w, resp.Body)
}

// dispatch reads the body only for POST, the one method that uses it.
func (h *Handler) dispatch(w http.ResponseWriter, r *http.Request) service.Response {
	req := service.Request{Method: r.Method, Path: r.URL.Path}
	if r.Method != http.MethodPost {
		return h.svc.Handle(r.Context(), req)
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
	if err != nil {
		if !errors.As(err, new(*http.MaxBytesError)) {
			h.logger.Warnf("read body: %v", err)
		}
		return h.svc.Reject(req, service.KindInvalidJSON, err)
	}

	// zero length means the client sent no body
	if len(body) > 0 {
		s := string(body)
		req.Body = &s
	}
	return h.svc.Handle(r.Context(), req)
}
