// Package upstream provides a minimal GraphQL-over-HTTP transport shared
// by the Healthie and Authorizer clients.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// DefaultTimeout bounds every upstream call. A hung upstream must not
// block a request indefinitely.
const DefaultTimeout = 15 * time.Second

// GQLError is a single entry from a GraphQL response's errors list.
type GQLError struct {
	Message string `json:"message"`
}

// Response is the standard GraphQL envelope.
type Response struct {
	Data   json.RawMessage `json:"data"`
	Errors []GQLError      `json:"errors"`
}

// ErrorMessages flattens the errors list to plain strings.
func (r *Response) ErrorMessages() []string {
	if len(r.Errors) == 0 {
		return nil
	}
	msgs := make([]string, len(r.Errors))
	for i, e := range r.Errors {
		msgs[i] = e.Message
	}
	return msgs
}

// Transport executes GraphQL operations against one endpoint with a
// fixed set of headers.
type Transport struct {
	url     string
	headers map[string]string
	client  *http.Client
	logger  *zap.Logger
	service string
}

// NewTransport creates a transport for one upstream service.
func NewTransport(service, url string, headers map[string]string, logger *zap.Logger) *Transport {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Transport{
		url:     url,
		headers: headers,
		client:  &http.Client{Timeout: DefaultTimeout},
		logger:  logger,
		service: service,
	}
}

type requestBody struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

// Do posts one operation and returns the parsed envelope. Extra headers
// override the transport's fixed headers for this call only.
func (t *Transport) Do(ctx context.Context, query string, variables map[string]any, extraHeaders map[string]string) (*Response, error) {
	tracer := otel.Tracer("upstream")
	ctx, span := tracer.Start(ctx, t.service+"_graphql")
	defer span.End()
	span.SetAttributes(attribute.String("upstream.service", t.service))

	body, err := json.Marshal(requestBody{Query: query, Variables: variables})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range t.headers {
		req.Header.Set(k, v)
	}
	for k, v := range extraHeaders {
		req.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := t.client.Do(req)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("%s request failed: %w", t.service, err)
	}
	defer resp.Body.Close()

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
	t.logger.Debug("upstream call",
		zap.String("service", t.service),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%s returned status %d", t.service, resp.StatusCode)
	}

	var out Response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode %s response: %w", t.service, err)
	}
	return &out, nil
}
