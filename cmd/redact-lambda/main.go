package main

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"

	"github.com/KLcoding01/K-AI-Scribe-sub000/internal/phi"
	"github.com/KLcoding01/K-AI-Scribe-sub000/pkg/logging"
)

// The redact lambda exposes the redaction pipeline as a standalone edge
// function, so callers outside the main API can scrub text before it
// leaves their network.

var logger = logging.Default()

var gatekeeper = phi.NewGatekeeper(phi.WithLogger(logger))

func main() {
	lambda.Start(handle)
}

type redactRequest struct {
	Text string `json:"text"`
}

type redactResponse struct {
	Scrubbed string `json:"scrubbed"`
}

type authorizeResponse struct {
	Authorized bool     `json:"authorized"`
	Scrubbed   string   `json:"scrubbed,omitempty"`
	Code       string   `json:"code,omitempty"`
	Categories []string `json:"categories,omitempty"`
	Ref        string   `json:"ref,omitempty"`
}

func handle(ctx context.Context, evt events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	method := strings.ToUpper(strings.TrimSpace(evt.RequestContext.HTTP.Method))
	path := strings.TrimSpace(evt.RawPath)
	if path == "" {
		path = strings.TrimSpace(evt.RequestContext.HTTP.Path)
	}

	if path == "/health" || path == "/_health" {
		return events.APIGatewayV2HTTPResponse{StatusCode: http.StatusOK, Body: "ok"}, nil
	}

	if method != http.MethodPost {
		return events.APIGatewayV2HTTPResponse{StatusCode: http.StatusMethodNotAllowed}, nil
	}

	body, err := decodeBody(evt)
	if err != nil {
		return jsonResponse(http.StatusBadRequest, map[string]string{"error": "invalid body"}), nil
	}

	var req redactRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return jsonResponse(http.StatusBadRequest, map[string]string{"error": "invalid request body"}), nil
	}

	switch path {
	case "/redact":
		return jsonResponse(http.StatusOK, redactResponse{Scrubbed: phi.Scrub(req.Text)}), nil
	case "/authorize":
		return handleAuthorize(ctx, req.Text), nil
	default:
		return events.APIGatewayV2HTTPResponse{StatusCode: http.StatusNotFound}, nil
	}
}

func handleAuthorize(ctx context.Context, text string) events.APIGatewayV2HTTPResponse {
	scrubbed, err := gatekeeper.Authorize(ctx, text)
	if err != nil {
		var blocked *phi.BlockedError
		if errors.As(err, &blocked) {
			return jsonResponse(http.StatusUnprocessableEntity, authorizeResponse{
				Authorized: false,
				Code:       phi.BlockedCode,
				Categories: blocked.CategoryNames(),
				Ref:        blocked.ContentHash,
			})
		}
		logger.Error("authorize failed", "error", err)
		return jsonResponse(http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
	return jsonResponse(http.StatusOK, authorizeResponse{Authorized: true, Scrubbed: scrubbed})
}

func jsonResponse(status int, v any) events.APIGatewayV2HTTPResponse {
	body, err := json.Marshal(v)
	if err != nil {
		return events.APIGatewayV2HTTPResponse{StatusCode: http.StatusInternalServerError}
	}
	return events.APIGatewayV2HTTPResponse{
		StatusCode: status,
		Body:       string(body),
		Headers:    map[string]string{"content-type": "application/json"},
	}
}

func decodeBody(evt events.APIGatewayV2HTTPRequest) ([]byte, error) {
	if !evt.IsBase64Encoded {
		return []byte(evt.Body), nil
	}
	return base64.StdEncoding.DecodeString(evt.Body)
}
