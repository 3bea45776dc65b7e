package provider

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/autonoos/intake-gateway/internal/apierr"
	"github.com/autonoos/intake-gateway/internal/observability/metrics"
	"github.com/autonoos/intake-gateway/internal/upstream/authorizer"
	"github.com/autonoos/intake-gateway/internal/upstream/healthie"
	"github.com/autonoos/intake-gateway/pkg/circuitbreaker"
)

// ClinicalClient creates the provider record in the clinical system.
type ClinicalClient interface {
	CreateReferringProvider(ctx context.Context, in healthie.ProviderInput) (*healthie.Result, error)
}

// IdentityClient creates the login account in the identity system.
type IdentityClient interface {
	Signup(ctx context.Context, params authorizer.SignupParams) (*authorizer.SignupResult, error)
}

// ClinicalOutcome reports what the clinical system did with the signup.
type ClinicalOutcome struct {
	Duplicated bool   `json:"duplicated"`
	ID         string `json:"id"`
	Message    string `json:"message,omitempty"`
}

// IdentityOutcome reports what the identity system did with the signup.
type IdentityOutcome struct {
	Duplicated bool `json:"duplicated"`
}

// SignupResult is the composite outcome of both upstream calls.
type SignupResult struct {
	Healthie   ClinicalOutcome `json:"healthie"`
	Authorizer IdentityOutcome `json:"authorizer"`
}

// Orchestrator sequences the two-phase provider signup. The clinical call
// runs first because the identity account embeds the clinical id; if the
// clinical call fails there is nothing to embed and the identity call is
// never attempted. The two calls are strictly sequential, never concurrent.
type Orchestrator struct {
	clinical        ClinicalClient
	identity        IdentityClient
	clinicalBreaker *circuitbreaker.CircuitBreaker
	identityBreaker *circuitbreaker.CircuitBreaker
	events          EventSink
	metrics         *metrics.Metrics
	logger          *zap.Logger
}

// NewOrchestrator wires the signup workflow. events may be nil when no
// event publishing is configured.
func NewOrchestrator(
	clinical ClinicalClient,
	identity IdentityClient,
	clinicalBreaker, identityBreaker *circuitbreaker.CircuitBreaker,
	events EventSink,
	m *metrics.Metrics,
	logger *zap.Logger,
) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		clinical:        clinical,
		identity:        identity,
		clinicalBreaker: clinicalBreaker,
		identityBreaker: identityBreaker,
		events:          events,
		metrics:         m,
		logger:          logger,
	}
}

// SignUp normalizes and validates the payload, creates the provider in the
// clinical system, then creates the identity account carrying the clinical
// id. A duplicate in either system is a non-error outcome.
func (o *Orchestrator) SignUp(ctx context.Context, raw SignupInput) (*SignupResult, error) {
	tracer := otel.Tracer("provider-orchestrator")
	ctx, span := tracer.Start(ctx, "provider_signup")
	defer span.End()

	in, err := raw.Normalize()
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("practice_name", in.PracticeName))

	clinicalRes, err := o.createClinical(ctx, in)
	if err != nil {
		o.observeSignupFailure(err)
		span.RecordError(err)
		return nil, err
	}

	identityRes, err := o.createIdentity(ctx, in, clinicalRes.ID)
	if err != nil {
		o.observeSignupFailure(err)
		span.RecordError(err)
		return nil, err
	}

	result := &SignupResult{
		Healthie: ClinicalOutcome{
			Duplicated: clinicalRes.Duplicated,
			ID:         clinicalRes.ID,
			Message:    clinicalRes.Message,
		},
		Authorizer: IdentityOutcome{Duplicated: identityRes.Duplicated},
	}

	if o.metrics != nil {
		o.metrics.SignupsCompleted.Inc()
		if result.Healthie.Duplicated || result.Authorizer.Duplicated {
			o.metrics.SignupsDuplicate.Inc()
		}
	}

	o.logger.Info("provider signup completed",
		zap.String("healthie_id", result.Healthie.ID),
		zap.Bool("healthie_duplicated", result.Healthie.Duplicated),
		zap.Bool("authorizer_duplicated", result.Authorizer.Duplicated),
	)

	// Event publication is best effort; the signup already succeeded in
	// both systems of record.
	if o.events != nil {
		ev := SignedUpEvent{
			ProviderID:         result.Healthie.ID,
			PracticeName:       in.PracticeName,
			Email:              in.Email,
			ClinicalDuplicated: result.Healthie.Duplicated,
			IdentityDuplicated: result.Authorizer.Duplicated,
		}
		if err := o.events.ProviderSignedUp(ctx, ev); err != nil {
			o.logger.Error("signup event not recorded", zap.Error(err))
		}
	}

	return result, nil
}

func (o *Orchestrator) createClinical(ctx context.Context, in SignupInput) (*healthie.Result, error) {
	start := time.Now()
	res, err := o.execute(ctx, o.clinicalBreaker, apierr.CodeHealthieError, func() (interface{}, error) {
		return o.clinical.CreateReferringProvider(ctx, healthie.ProviderInput{
			FirstName:    in.FirstName,
			LastName:     in.LastName,
			PracticeName: in.PracticeName,
			NPI:          in.NPI,
			Email:        in.Email,
			Phone:        in.Phone,
		})
	})
	o.observeUpstream("healthie", start, err)
	if err != nil {
		return nil, err
	}
	return res.(*healthie.Result), nil
}

func (o *Orchestrator) createIdentity(ctx context.Context, in SignupInput, clinicalID string) (*authorizer.SignupResult, error) {
	start := time.Now()
	res, err := o.execute(ctx, o.identityBreaker, apierr.CodeAuthorizerError, func() (interface{}, error) {
		return o.identity.Signup(ctx, authorizer.SignupParams{
			Email:    in.Email,
			Password: in.Password,
			Nickname: clinicalID,
			AppData: map[string]string{
				"practice_name":        in.PracticeName,
				"healthie_provider_id": clinicalID,
			},
		})
	})
	o.observeUpstream("authorizer", start, err)
	if err != nil {
		return nil, err
	}
	return res.(*authorizer.SignupResult), nil
}

// execute runs fn through the breaker when one is configured, translating
// a rejected call into the upstream's 502-class error code.
func (o *Orchestrator) execute(ctx context.Context, cb *circuitbreaker.CircuitBreaker, code apierr.Code, fn func() (interface{}, error)) (interface{}, error) {
	if cb == nil {
		return fn()
	}
	res, err := cb.Execute(ctx, fn)
	if err != nil && circuitbreaker.IsOpen(err) {
		return nil, apierr.Upstream(code, "upstream temporarily unavailable", err.Error())
	}
	return res, err
}

func (o *Orchestrator) observeUpstream(service string, start time.Time, err error) {
	if o.metrics == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	o.metrics.UpstreamRequests.WithLabelValues(service, outcome).Inc()
	o.metrics.UpstreamDuration.WithLabelValues(service).Observe(time.Since(start).Seconds())
}

func (o *Orchestrator) observeSignupFailure(err error) {
	if o.metrics != nil {
		o.metrics.SignupsFailed.Inc()
	}
	o.logger.Error("provider signup failed", zap.Error(err))
}
