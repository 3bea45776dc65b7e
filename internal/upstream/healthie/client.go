// Package healthie calls the external clinical records service.
// It issues exactly one mutation, createReferringProvider, and classifies
// the heterogeneous response into created / duplicate / failure at the
// client boundary so raw JSON never propagates inward.
package healthie

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/autonoos/intake-gateway/internal/apierr"
	"github.com/autonoos/intake-gateway/internal/upstream"
)

const createReferringProviderMutation = `
mutation createReferringProvider($input: ReferringProviderInput!) {
  createReferringProvider(input: $input) {
    referring_provider { id }
    duplicated_referring_provider { id }
    messages { field message }
  }
}`

// ProviderInput is the payload for the create mutation. NPI and phone
// arrive already normalized to digits.
type ProviderInput struct {
	FirstName    string
	LastName     string
	PracticeName string
	NPI          string
	Email        string
	Phone        string
}

// Result is the classified outcome of a create call. Duplicated means the
// clinical system matched an existing record; its id is still usable and
// must be forwarded to the identity step.
type Result struct {
	Duplicated bool
	ID         string
	Message    string
}

// Client issues the create mutation against the Healthie API.
type Client struct {
	transport *upstream.Transport
	logger    *zap.Logger
}

// New constructs a client. The API key is required; its absence is a
// configuration error reported before any network call.
func New(url, apiKey string, logger *zap.Logger) (*Client, error) {
	if apiKey == "" {
		return nil, apierr.Config("healthie api key is not configured")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	headers := map[string]string{
		"Authorization":       "Basic " + apiKey,
		"AuthorizationSource": "API",
	}
	return &Client{
		transport: upstream.NewTransport("healthie", url, headers, logger),
		logger:    logger,
	}, nil
}

type createPayload struct {
	CreateReferringProvider *struct {
		ReferringProvider *struct {
			ID string `json:"id"`
		} `json:"referring_provider"`
		DuplicatedReferringProvider *struct {
			ID string `json:"id"`
		} `json:"duplicated_referring_provider"`
		Messages []struct {
			Field   string `json:"field"`
			Message string `json:"message"`
		} `json:"messages"`
	} `json:"createReferringProvider"`
}

// CreateReferringProvider creates (or matches) a referring provider record.
func (c *Client) CreateReferringProvider(ctx context.Context, in ProviderInput) (*Result, error) {
	variables := map[string]any{
		"input": map[string]any{
			"first_name":    in.FirstName,
			"last_name":     in.LastName,
			"business_name": in.PracticeName,
			"npi":           in.NPI,
			"email":         in.Email,
			"phone_number":  in.Phone,
		},
	}

	resp, err := c.transport.Do(ctx, createReferringProviderMutation, variables, nil)
	if err != nil {
		return nil, apierr.Upstream(apierr.CodeHealthieError, "healthie call failed", err.Error())
	}
	if msgs := resp.ErrorMessages(); len(msgs) > 0 {
		return nil, apierr.Upstream(apierr.CodeHealthieError, "healthie returned errors", msgs...)
	}

	var payload createPayload
	if err := json.Unmarshal(resp.Data, &payload); err != nil {
		return nil, apierr.Upstream(apierr.CodeHealthieError, "healthie response malformed", err.Error())
	}

	p := payload.CreateReferringProvider
	if p == nil || (p.ReferringProvider == nil && p.DuplicatedReferringProvider == nil) {
		e := &apierr.Error{
			Code:    apierr.CodeHealthieCreateFail,
			Status:  422,
			Message: "healthie did not create a provider record",
		}
		if p != nil {
			for _, m := range p.Messages {
				e.Details = append(e.Details, fmt.Sprintf("%s: %s", m.Field, m.Message))
			}
		}
		return nil, e
	}

	// Prefer the freshly created record, fall back to the duplicate's id.
	if p.ReferringProvider != nil {
		c.logger.Info("referring provider created", zap.String("healthie_id", p.ReferringProvider.ID))
		return &Result{ID: p.ReferringProvider.ID}, nil
	}

	res := &Result{Duplicated: true, ID: p.DuplicatedReferringProvider.ID}
	if len(p.Messages) > 0 {
		var parts []string
		for _, m := range p.Messages {
			parts = append(parts, m.Message)
		}
		res.Message = strings.Join(parts, "; ")
	}
	c.logger.Info("referring provider already exists", zap.String("healthie_id", res.ID))
	return res, nil
}
