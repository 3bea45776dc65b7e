// Package authorizer calls the external identity/auth service.
//
// The identity account's nickname field is repurposed to store the
// clinical provider id, and app_data carries practice_name plus the same
// id under historical aliases. Classification of signup responses into
// created / duplicate / failure happens here, at the client boundary.
package authorizer

import (
	"context"
	"encoding/json"
	"strings"

	"go.uber.org/zap"

	"github.com/autonoos/intake-gateway/internal/apierr"
	"github.com/autonoos/intake-gateway/internal/upstream"
)

const (
	signupMutation = `
mutation signup($params: SignUpInput!) {
  signup(params: $params) {
    message
    user { id email nickname }
  }
}`

	profileQuery = `
query profile {
  profile { id email nickname phone_number app_data }
}`

	usersQuery = `
query users($params: PaginatedInput!) {
  _users(params: $params) {
    users { id email nickname phone_number app_data }
    pagination { total limit offset }
  }
}`
)

// usersPageSize bounds the admin listing query; the practice-name scan
// pages through until a short page.
const usersPageSize = 500

// duplicatePatterns are the substrings (case-insensitive) in upstream
// error messages that mean the account already exists.
var duplicatePatterns = []string{"already exists", "user exists", "duplicate"}

// SignupParams is the payload for the signup mutation.
type SignupParams struct {
	Email    string
	Password string
	// Nickname carries the clinical provider id.
	Nickname string
	// AppData carries practice_name and healthie_provider_id.
	AppData map[string]string
}

// SignupResult is the classified outcome of a signup call.
type SignupResult struct {
	Duplicated bool
}

// User is one identity account as returned by the profile or listing
// queries. AppData tolerates both a JSON object and a JSON-encoded string.
type User struct {
	ID          string          `json:"id"`
	Email       string          `json:"email"`
	Nickname    string          `json:"nickname"`
	PhoneNumber string          `json:"phone_number"`
	AppData     json.RawMessage `json:"app_data"`
}

// AppDataFields parses app_data into a flat string map. Legacy accounts
// stored the blob as a JSON-encoded string rather than an object.
func (u *User) AppDataFields() map[string]string {
	raw := u.AppData
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	var asString string
	if err := json.Unmarshal(raw, &asString); err == nil {
		raw = json.RawMessage(asString)
	}
	var generic map[string]any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil
	}
	fields := make(map[string]string, len(generic))
	for k, v := range generic {
		if s, ok := v.(string); ok {
			fields[k] = s
		}
	}
	return fields
}

// providerIDAliases are the accepted app_data field names for the linked
// clinical provider id, oldest last.
var providerIDAliases = []string{"healthie_provider_id", "healthie_providerId", "healthie_id"}

// ProviderID returns the linked clinical provider id from app_data,
// accepting historical field-name aliases.
func (u *User) ProviderID() string {
	fields := u.AppDataFields()
	for _, alias := range providerIDAliases {
		if v := fields[alias]; v != "" {
			return v
		}
	}
	return ""
}

// PracticeName returns the practice name stored in app_data.
func (u *User) PracticeName() string {
	return u.AppDataFields()["practice_name"]
}

// Client issues mutations and queries against the Authorizer API.
type Client struct {
	transport   *upstream.Transport
	adminSecret string
	logger      *zap.Logger
}

// New constructs a client. The admin secret is required for signup and
// the account listing; its absence fails before any network call.
func New(url, adminSecret string, logger *zap.Logger) (*Client, error) {
	if adminSecret == "" {
		return nil, apierr.Config("authorizer admin secret is not configured")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		transport:   upstream.NewTransport("authorizer", url, nil, logger),
		adminSecret: adminSecret,
		logger:      logger,
	}, nil
}

func (c *Client) adminHeaders() map[string]string {
	return map[string]string{"x-authorizer-admin-secret": c.adminSecret}
}

// Signup creates an identity account. An "already exists" style error from
// the upstream is not a failure; it is reported as Duplicated.
func (c *Client) Signup(ctx context.Context, params SignupParams) (*SignupResult, error) {
	appData, err := json.Marshal(params.AppData)
	if err != nil {
		return nil, apierr.Upstream(apierr.CodeAuthorizerError, "authorizer payload invalid", err.Error())
	}

	variables := map[string]any{
		"params": map[string]any{
			"email":            params.Email,
			"password":         params.Password,
			"confirm_password": params.Password,
			"nickname":         params.Nickname,
			"app_data":         string(appData),
		},
	}

	resp, err := c.transport.Do(ctx, signupMutation, variables, c.adminHeaders())
	if err != nil {
		return nil, apierr.Upstream(apierr.CodeAuthorizerError, "authorizer call failed", err.Error())
	}
	if msgs := resp.ErrorMessages(); len(msgs) > 0 {
		if isDuplicateMessage(msgs) {
			c.logger.Info("identity account already exists", zap.String("email", params.Email))
			return &SignupResult{Duplicated: true}, nil
		}
		return nil, apierr.Upstream(apierr.CodeAuthorizerError, "authorizer returned errors", msgs...)
	}

	c.logger.Info("identity account created", zap.String("email", params.Email))
	return &SignupResult{}, nil
}

// Profile fetches the account behind a bearer token.
func (c *Client) Profile(ctx context.Context, token string) (*User, error) {
	resp, err := c.transport.Do(ctx, profileQuery, nil, map[string]string{
		"Authorization": "Bearer " + token,
	})
	if err != nil {
		return nil, apierr.Unauthorized("invalid or expired session")
	}
	if len(resp.ErrorMessages()) > 0 {
		return nil, apierr.Unauthorized("invalid or expired session")
	}

	var payload struct {
		Profile *User `json:"profile"`
	}
	if err := json.Unmarshal(resp.Data, &payload); err != nil || payload.Profile == nil {
		return nil, apierr.Unauthorized("invalid or expired session")
	}
	return payload.Profile, nil
}

// Users lists all identity accounts through the admin query, paging until
// a short page. This backs the practice-name and phone scans; it is a full
// table walk per call, a documented scaling limit.
func (c *Client) Users(ctx context.Context) ([]User, error) {
	var all []User
	for offset := 0; ; offset += usersPageSize {
		variables := map[string]any{
			"params": map[string]any{"limit": usersPageSize, "offset": offset},
		}
		resp, err := c.transport.Do(ctx, usersQuery, variables, c.adminHeaders())
		if err != nil {
			return nil, apierr.Upstream(apierr.CodeAuthorizerError, "authorizer call failed", err.Error())
		}
		if msgs := resp.ErrorMessages(); len(msgs) > 0 {
			return nil, apierr.Upstream(apierr.CodeAuthorizerError, "authorizer returned errors", msgs...)
		}

		var payload struct {
			Users struct {
				Users []User `json:"users"`
			} `json:"_users"`
		}
		if err := json.Unmarshal(resp.Data, &payload); err != nil {
			return nil, apierr.Upstream(apierr.CodeAuthorizerError, "authorizer response malformed", err.Error())
		}

		all = append(all, payload.Users.Users...)
		if len(payload.Users.Users) < usersPageSize {
			return all, nil
		}
	}
}

func isDuplicateMessage(msgs []string) bool {
	for _, m := range msgs {
		lower := strings.ToLower(m)
		for _, pat := range duplicatePatterns {
			if strings.Contains(lower, pat) {
				return true
			}
		}
	}
	return false
}
