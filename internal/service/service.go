// Package service implements the password counter: a single record read with
// GET (created as 0 when absent) and overwritten with POST.
package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/samber/lo"
	"github.com/tckz/password-counter/internal/counter"
	"go.uber.org/zap"
)

var corsHeaders = map[string]string{
	"Access-Control-Allow-Origin":  "*",
	"Access-Control-Allow-Headers": "Content-Type,X-Amz-Date,Authorization,X-Api-Key,X-Amz-Security-Token",
	"Access-Control-Allow-Methods": "GET,POST,OPTIONS",
}

// Request is an inbound invocation. Body is nil when the trigger delivered none.
type Request struct {
	Method string
	Path   string
	Body   *string
}

type Response struct {
	StatusCode int
	Headers    map[string]string
	Body       string
}

type messageBody struct {
	Message string `json:"message"`
}

type countBody struct {
	Count   int64  `json:"count"`
	Message string `json:"message"`
}

type errorBody struct {
	Error string `json:"error"`
}

type Service struct {
	store  counter.Store
	logger *zap.SugaredLogger
	now    func() time.Time
}

type Option func(s *Service)

func WithLogger(l *zap.SugaredLogger) Option {
	return Option(func(s *Service) {
		s.logger = l
	})
}

func WithClock(now func() time.Time) Option {
	return Option(func(s *Service) {
		s.now = now
	})
}

func New(store counter.Store, opts ...Option) *Service {
	s := &Service{
		store:  store,
		logger: zap.NewNop().Sugar(),
		now:    time.Now,
	}
	for _, e := range opts {
		e(s)
	}
	return s
}

// Handle dispatches req by method. It never fails: every outcome, a panic
// included, is rendered as a JSON response carrying the CORS headers.
func (s *Service) Handle(ctx context.Context, req Request) (resp Response) {
	defer func() {
		if v := recover(); v != nil {
			resp = s.respondError(req, newError(KindInternal, fmt.Errorf("panic: %v", v)))
		}
	}()

	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	switch method {
	case http.MethodOptions:
		return s.respond(http.StatusOK, messageBody{Message: "OK"})
	case http.MethodGet:
		n, err := s.GetCounter(ctx)
		if err != nil {
			return s.respondError(req, err)
		}
		return s.respond(http.StatusOK, countBody{Count: n, Message: "Counter retrieved successfully"})
	case http.MethodPost:
		// an absent body is an empty object; a present one must parse
		body := "{}"
		if req.Body != nil {
			body = *req.Body
		}
		n, err := s.UpdateCounter(ctx, body)
		if err != nil {
			return s.respondError(req, err)
		}
		return s.respond(http.StatusOK, countBody{Count: n, Message: "Counter updated successfully"})
	default:
		return s.respondError(req, newError(KindMethodNotAllowed, nil))
	}
}

// GetCounter returns the stored count, creating the record with 0 first if
// it does not exist yet.
func (s *Service) GetCounter(ctx context.Context) (int64, error) {
	rec, err := s.store.Get(ctx, counter.RecordID)
	if err == nil {
		return rec.Count, nil
	}
	if !errors.Is(err, counter.ErrNotFound) {
		return 0, newError(KindStoreRead, fmt.Errorf("store.Get: %w", err))
	}

	if err := s.store.Put(ctx, counter.NewRecord(0, s.now())); err != nil {
		return 0, newError(KindStoreRead, fmt.Errorf("store.Put: %w", err))
	}
	return 0, nil
}

// UpdateCounter overwrites the record with the count in body and returns it.
func (s *Service) UpdateCounter(ctx context.Context, body string) (int64, error) {
	n, err := parseCount(body)
	if err != nil {
		return 0, err
	}

	if err := s.store.Put(ctx, counter.NewRecord(n, s.now())); err != nil {
		return 0, newError(KindStoreWrite, fmt.Errorf("store.Put: %w", err))
	}
	return n, nil
}

// parseCount accepts a JSON object whose optional "count" is a non-negative
// integer literal.
func parseCount(body string) (int64, error) {
	b := []byte(body)
	if !json.Valid(b) {
		return 0, newError(KindInvalidJSON, errors.New("malformed body"))
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(b, &fields); err != nil || fields == nil {
		return 0, newError(KindInvalidCount, errors.New("body is not an object"))
	}

	raw, ok := fields["count"]
	if !ok {
		return 0, nil
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return 0, newError(KindInvalidCount, err)
	}
	num, ok := v.(json.Number)
	if !ok {
		return 0, newError(KindInvalidCount, fmt.Errorf("count is %T", v))
	}
	// ParseInt rejects fractions and exponents
	n, err := strconv.ParseInt(num.String(), 10, 64)
	if err != nil {
		return 0, newError(KindInvalidCount, err)
	}
	if n < 0 {
		return 0, newError(KindInvalidCount, fmt.Errorf("count=%d", n))
	}
	return n, nil
}

// Reject renders the response for kind without running any operation, for
// transports that refuse a request before it reaches Handle.
func (s *Service) Reject(req Request, kind Kind, cause error) Response {
	return s.respondError(req, newError(kind, cause))
}

func (s *Service) respondError(req Request, err error) Response {
	var e *Error
	if !errors.As(err, &e) {
		e = newError(KindInternal, err)
	}

	status, msg := e.Kind.response()
	if status >= http.StatusInternalServerError {
		s.logger.With(zap.String("kind", e.Kind.String()), zap.String("method", req.Method)).
			Errorf("%s: %v", msg, e.Err)
	}
	return s.respond(status, errorBody{Error: msg})
}

func (s *Service) respond(status int, v any) Response {
	headers := lo.Assign(corsHeaders, map[string]string{"Content-Type": "application/json"})

	b, err := json.Marshal(v)
	if err != nil {
		s.logger.Errorf("json.Marshal: %v", err)
		return Response{
			StatusCode: http.StatusInternalServerError,
			Headers:    headers,
			Body:       `{"error":"Internal server error"}`,
		}
	}
	return Response{StatusCode: status, Headers: headers, Body: string(b)}
}
