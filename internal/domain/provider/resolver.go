package provider

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/autonoos/intake-gateway/internal/apierr"
	"github.com/autonoos/intake-gateway/internal/observability/metrics"
	"github.com/autonoos/intake-gateway/internal/upstream/authorizer"
)

// IdentityDirectory reads identity accounts from the identity service.
type IdentityDirectory interface {
	Profile(ctx context.Context, token string) (*authorizer.User, error)
	Users(ctx context.Context) ([]authorizer.User, error)
}

// Lookup selects exactly one resolution strategy. The first non-empty
// field wins, in the order DirectID, Token, PracticeName, Phone; the
// historical endpoint variants never combined strategies in one request.
type Lookup struct {
	DirectID     string
	Token        string
	PracticeName string
	Phone        string
}

// Identity is a provider identity resolved at read/write time; it is
// derived, never stored.
type Identity struct {
	ProviderID   string
	PracticeName string
}

// Resolver resolves the canonical clinical provider id to attach to a
// patient record.
type Resolver struct {
	directory IdentityDirectory
	metrics   *metrics.Metrics
	logger    *zap.Logger
}

// NewResolver constructs a resolver over the identity directory.
func NewResolver(directory IdentityDirectory, m *metrics.Metrics, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{directory: directory, metrics: m, logger: logger}
}

// Resolve runs the strategy selected by l.
func (r *Resolver) Resolve(ctx context.Context, l Lookup) (*Identity, error) {
	tracer := otel.Tracer("provider-resolver")
	ctx, span := tracer.Start(ctx, "resolve_provider")
	defer span.End()

	var (
		id       *Identity
		err      error
		strategy string
	)
	switch {
	case l.DirectID != "":
		strategy = "direct_id"
		id = &Identity{ProviderID: l.DirectID}
	case l.Token != "":
		strategy = "token"
		id, err = r.byToken(ctx, l.Token)
	case l.PracticeName != "":
		strategy = "practice_name"
		id, err = r.byPracticeName(ctx, l.PracticeName)
	case l.Phone != "":
		strategy = "phone"
		id, err = r.byPhone(ctx, l.Phone)
	default:
		strategy = "none"
		err = apierr.Unauthorized("missing authorization")
	}

	span.SetAttributes(attribute.String("strategy", strategy))
	if r.metrics != nil {
		outcome := "resolved"
		if err != nil {
			outcome = "failed"
		}
		r.metrics.ResolverLookups.WithLabelValues(strategy, outcome).Inc()
	}
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return id, nil
}

func (r *Resolver) byToken(ctx context.Context, token string) (*Identity, error) {
	user, err := r.directory.Profile(ctx, token)
	if err != nil {
		return nil, err
	}
	providerID := user.ProviderID()
	if providerID == "" {
		// Fall back to the nickname, where the signup flow stores the
		// clinical id directly.
		providerID = user.Nickname
	}
	if providerID == "" {
		return nil, apierr.Forbidden("account is not provisioned as a provider")
	}
	return &Identity{ProviderID: providerID, PracticeName: user.PracticeName()}, nil
}

// byPracticeName scans every identity account with metadata and compares
// normalized practice names for exact equality; the first match in storage
// order wins. O(n) over the account table per request, acceptable at the
// current scale.
func (r *Resolver) byPracticeName(ctx context.Context, name string) (*Identity, error) {
	want := NormalizePracticeName(name)
	if want == "" {
		return nil, apierr.NotFound("Practice not found. Check the practice name and try again.")
	}
	users, err := r.directory.Users(ctx)
	if err != nil {
		return nil, err
	}
	for i := range users {
		u := &users[i]
		stored := u.PracticeName()
		if stored == "" || NormalizePracticeName(stored) != want {
			continue
		}
		providerID := u.ProviderID()
		if providerID == "" {
			providerID = u.Nickname
		}
		if providerID == "" {
			// The matching account carries no clinical id, so it cannot
			// receive patients. Later accounts with the same name never
			// shadow it.
			r.logger.Warn("practice matched an account without a provider id",
				zap.String("practice_name", name), zap.String("account_id", u.ID))
			return nil, apierr.NotFound("Practice not found. Check the practice name and try again.")
		}
		return &Identity{ProviderID: providerID, PracticeName: stored}, nil
	}
	r.logger.Info("practice name did not resolve", zap.String("practice_name", name))
	return nil, apierr.NotFound("Practice not found. Check the practice name and try again.")
}

// byPhone is the legacy strategy, superseded by practice-name lookup but
// kept for callers still submitting a provider phone number.
func (r *Resolver) byPhone(ctx context.Context, phone string) (*Identity, error) {
	want := DigitsOnly(phone)
	if want == "" {
		return nil, apierr.NotFound("Provider not found for the given phone number.")
	}
	users, err := r.directory.Users(ctx)
	if err != nil {
		return nil, err
	}
	for i := range users {
		u := &users[i]
		if DigitsOnly(u.PhoneNumber) != want {
			continue
		}
		providerID := u.ProviderID()
		if providerID == "" {
			providerID = u.Nickname
		}
		if providerID == "" {
			continue
		}
		return &Identity{ProviderID: providerID, PracticeName: u.PracticeName()}, nil
	}
	return nil, apierr.NotFound("Provider not found for the given phone number.")
}
