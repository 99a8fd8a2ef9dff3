// Package lambdaapi serves the counter behind an API Gateway proxy integration.
package lambdaapi

import (
	"context"
	"encoding/base64"

	"github.com/aws/aws-lambda-go/events"
	"github.com/tckz/password-counter/internal/service"
	"go.uber.org/zap"
)

type Handler struct {
	svc    *service.Service
	logger *zap.SugaredLogger
}

func NewHandler(svc *service.Service, logger *zap.SugaredLogger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

// Handle never returns an error; failures are encoded in the response so
// API Gateway always gets a well formed proxy result.
func (h *Handler) Handle(ctx context.Context, ev events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	req := service.Request{
		Method: ev.HTTPMethod,
		Path:   ev.Path,
	}
	if ev.Body != "" {
		body := ev.Body
		if ev.IsBase64Encoded {
			b, err := base64.StdEncoding.DecodeString(ev.Body)
			if err != nil {
				// hand the raw text on, it will be rejected as invalid JSON
				h.logger.Warnf("base64 decode: requestID=%s, %v", ev.RequestContext.RequestID, err)
			} else {
				body = string(b)
			}
		}
		req.Body = &body
	}

	resp := h.svc.Handle(ctx, req)
	h.logger.Debugf("requestID=%s, method=%s, path=%s, status=%d", ev.RequestContext.RequestID, ev.HTTPMethod, ev.Path, resp.StatusCode)

	return events.APIGatewayProxyResponse{
		StatusCode: resp.StatusCode,
		Headers:    resp.Headers,
		Body:       resp.Body,
	}, nil
}
