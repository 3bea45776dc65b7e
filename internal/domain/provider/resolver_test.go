package provider

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/autonoos/intake-gateway/internal/apierr"
	"github.com/autonoos/intake-gateway/internal/upstream/authorizer"
)

type fakeDirectory struct {
	profile    *authorizer.User
	profileErr error
	users      []authorizer.User
	usersErr   error
}

func (f *fakeDirectory) Profile(ctx context.Context, token string) (*authorizer.User, error) {
	return f.profile, f.profileErr
}

func (f *fakeDirectory) Users(ctx context.Context) ([]authorizer.User, error) {
	return f.users, f.usersErr
}

func appData(t *testing.T, fields map[string]string) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(fields)
	if err != nil {
		t.Fatal(err)
	}
	return raw
}

func TestResolveByPracticeNameCaseInsensitive(t *testing.T) {
	dir := &fakeDirectory{users: []authorizer.User{
		{ID: "u1", AppData: appData(t, map[string]string{
			"practice_name":        "Autonoos LLC",
			"healthie_provider_id": "77",
		})},
	}}
	r := NewResolver(dir, nil, nil)

	for _, name := range []string{"Autonoos LLC ", "autonoos llc", "  AUTONOOS LLC"} {
		id, err := r.Resolve(context.Background(), Lookup{PracticeName: name})
		if err != nil {
			t.Fatalf("resolve(%q) failed: %v", name, err)
		}
		if id.ProviderID != "77" {
			t.Errorf("resolve(%q) = %q, want 77", name, id.ProviderID)
		}
	}
}

func TestResolveByPracticeNameFirstMatchWins(t *testing.T) {
	dir := &fakeDirectory{users: []authorizer.User{
		{ID: "u1", AppData: appData(t, map[string]string{"practice_name": "Clinic A", "healthie_provider_id": "1"})},
		{ID: "u2", AppData: appData(t, map[string]string{"practice_name": "Clinic A", "healthie_provider_id": "2"})},
	}}
	r := NewResolver(dir, nil, nil)

	id, err := r.Resolve(context.Background(), Lookup{PracticeName: "Clinic A"})
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if id.ProviderID != "1" {
		t.Errorf("provider id = %q, want first match 1", id.ProviderID)
	}
}

func TestResolveByPracticeNameNotFound(t *testing.T) {
	dir := &fakeDirectory{users: []authorizer.User{
		{ID: "u1", AppData: appData(t, map[string]string{"practice_name": "Clinic B", "healthie_provider_id": "9"})},
	}}
	r := NewResolver(dir, nil, nil)

	_, err := r.Resolve(context.Background(), Lookup{PracticeName: "Clinic A"})
	var e *apierr.Error
	if !errors.As(err, &e) || e.Status != 404 {
		t.Fatalf("expected 404, got %v", err)
	}
}

func TestResolveByPracticeNameMatchWithoutProviderID(t *testing.T) {
	dir := &fakeDirectory{users: []authorizer.User{
		{ID: "u1", AppData: appData(t, map[string]string{"practice_name": "Clinic A"})},
	}}
	r := NewResolver(dir, nil, nil)

	_, err := r.Resolve(context.Background(), Lookup{PracticeName: "Clinic A"})
	var e *apierr.Error
	if !errors.As(err, &e) || e.Status != 404 {
		t.Fatalf("match without embedded id must yield 404, got %v", err)
	}
}

func TestResolveIdlessMatchIsNotShadowedByLaterAccount(t *testing.T) {
	dir := &fakeDirectory{users: []authorizer.User{
		{ID: "u1", AppData: appData(t, map[string]string{"practice_name": "clinic a"})},
		{ID: "u2", AppData: appData(t, map[string]string{"practice_name": "clinic a", "healthie_provider_id": "99"})},
	}}
	r := NewResolver(dir, nil, nil)

	_, err := r.Resolve(context.Background(), Lookup{PracticeName: "Clinic A"})
	var e *apierr.Error
	if !errors.As(err, &e) || e.Status != 404 {
		t.Fatalf("first match has no id, want 404 rather than the later account, got %v", err)
	}
}

func TestResolveAcceptsProviderIDAliases(t *testing.T) {
	for _, alias := range []string{"healthie_provider_id", "healthie_providerId", "healthie_id"} {
		dir := &fakeDirectory{users: []authorizer.User{
			{ID: "u1", AppData: appData(t, map[string]string{"practice_name": "Clinic A", alias: "55"})},
		}}
		r := NewResolver(dir, nil, nil)

		id, err := r.Resolve(context.Background(), Lookup{PracticeName: "Clinic A"})
		if err != nil {
			t.Fatalf("alias %s: resolve failed: %v", alias, err)
		}
		if id.ProviderID != "55" {
			t.Errorf("alias %s: provider id = %q", alias, id.ProviderID)
		}
	}
}

func TestResolveAcceptsStringEncodedAppData(t *testing.T) {
	encoded, _ := json.Marshal(`{"practice_name":"Clinic A","healthie_provider_id":"77"}`)
	dir := &fakeDirectory{users: []authorizer.User{{ID: "u1", AppData: encoded}}}
	r := NewResolver(dir, nil, nil)

	id, err := r.Resolve(context.Background(), Lookup{PracticeName: "clinic a"})
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if id.ProviderID != "77" {
		t.Errorf("provider id = %q, want 77", id.ProviderID)
	}
}

func TestResolveByToken(t *testing.T) {
	dir := &fakeDirectory{profile: &authorizer.User{
		ID:      "u1",
		AppData: appData(t, map[string]string{"practice_name": "Clinic A", "healthie_provider_id": "77"}),
	}}
	r := NewResolver(dir, nil, nil)

	id, err := r.Resolve(context.Background(), Lookup{Token: "tok"})
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if id.ProviderID != "77" || id.PracticeName != "Clinic A" {
		t.Errorf("unexpected identity: %+v", id)
	}
}

func TestResolveByTokenFallsBackToNickname(t *testing.T) {
	dir := &fakeDirectory{profile: &authorizer.User{ID: "u1", Nickname: "88"}}
	r := NewResolver(dir, nil, nil)

	id, err := r.Resolve(context.Background(), Lookup{Token: "tok"})
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if id.ProviderID != "88" {
		t.Errorf("provider id = %q, want nickname fallback 88", id.ProviderID)
	}
}

func TestResolveByTokenNotProvisioned(t *testing.T) {
	dir := &fakeDirectory{profile: &authorizer.User{ID: "u1"}}
	r := NewResolver(dir, nil, nil)

	_, err := r.Resolve(context.Background(), Lookup{Token: "tok"})
	var e *apierr.Error
	if !errors.As(err, &e) || e.Status != 403 {
		t.Fatalf("expected 403 for account without provider id, got %v", err)
	}
}

func TestResolveByTokenInvalid(t *testing.T) {
	dir := &fakeDirectory{profileErr: apierr.Unauthorized("invalid or expired session")}
	r := NewResolver(dir, nil, nil)

	_, err := r.Resolve(context.Background(), Lookup{Token: "bad"})
	var e *apierr.Error
	if !errors.As(err, &e) || e.Status != 401 {
		t.Fatalf("expected 401, got %v", err)
	}
}

func TestResolveByPhone(t *testing.T) {
	dir := &fakeDirectory{users: []authorizer.User{
		{ID: "u1", PhoneNumber: "+1 (915) 474-6142", Nickname: "77"},
	}}
	r := NewResolver(dir, nil, nil)

	id, err := r.Resolve(context.Background(), Lookup{Phone: "19154746142"})
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if id.ProviderID != "77" {
		t.Errorf("provider id = %q, want 77", id.ProviderID)
	}
}

func TestResolveDirectIDShortCircuits(t *testing.T) {
	r := NewResolver(&fakeDirectory{}, nil, nil)

	id, err := r.Resolve(context.Background(), Lookup{DirectID: "123"})
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if id.ProviderID != "123" {
		t.Errorf("provider id = %q", id.ProviderID)
	}
}

func TestResolveEmptyLookup(t *testing.T) {
	r := NewResolver(&fakeDirectory{}, nil, nil)

	_, err := r.Resolve(context.Background(), Lookup{})
	var e *apierr.Error
	if !errors.As(err, &e) || e.Status != 401 {
		t.Fatalf("expected 401 for empty lookup, got %v", err)
	}
}
