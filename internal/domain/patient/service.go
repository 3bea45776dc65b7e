package patient

import (
	"context"
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/autonoos/intake-gateway/internal/apierr"
	"github.com/autonoos/intake-gateway/internal/observability/metrics"
)

// isiMin and isiMax bound the Insomnia Severity Index.
const (
	isiMin = 0
	isiMax = 28
)

// Recorder persists intake submissions.
type Recorder interface {
	Insert(ctx context.Context, p *Patient) error
	ListByProvider(ctx context.Context, providerID string) ([]Patient, error)
}

// IntakeInput is one intake submission with the provider id already
// resolved. ISIScore is kept raw because callers send numbers, numeric
// strings, empty strings or nothing at all.
type IntakeInput struct {
	ProviderID          string
	Name                string
	DateOfBirth         string
	Mobile              string
	Email               string
	ISIScore            json.RawMessage
	SuggestedTreatments []string
	// Flags is the discrete tx_* variant; used only when
	// SuggestedTreatments is absent.
	Flags *TreatmentFlags
}

// Service validates and records patient intake submissions.
type Service struct {
	repo    Recorder
	metrics *metrics.Metrics
	logger  *zap.Logger
}

// NewService constructs the intake service.
func NewService(repo Recorder, m *metrics.Metrics, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{repo: repo, metrics: m, logger: logger}
}

// Record validates in and inserts one patient row.
func (s *Service) Record(ctx context.Context, in IntakeInput) (*Patient, error) {
	tracer := otel.Tracer("patient-intake")
	ctx, span := tracer.Start(ctx, "record_intake")
	defer span.End()

	p, err := s.build(in)
	if err != nil {
		if s.metrics != nil {
			s.metrics.IntakesRejected.Inc()
		}
		span.RecordError(err)
		return nil, err
	}
	span.SetAttributes(attribute.String("patient_id", p.ID))

	if err := s.repo.Insert(ctx, p); err != nil {
		s.logger.Error("patient insert failed", zap.Error(err))
		span.RecordError(err)
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.IntakesRecorded.Inc()
	}
	s.logger.Info("patient intake recorded",
		zap.String("patient_id", p.ID),
		zap.String("provider_id", p.ProviderID),
	)
	return p, nil
}

// ListByProvider returns all patients recorded for one provider.
func (s *Service) ListByProvider(ctx context.Context, providerID string) ([]Patient, error) {
	return s.repo.ListByProvider(ctx, providerID)
}

func (s *Service) build(in IntakeInput) (*Patient, error) {
	p := &Patient{
		ID:          uuid.New().String(),
		ProviderID:  strings.TrimSpace(in.ProviderID),
		FullName:    strings.TrimSpace(in.Name),
		DateOfBirth: strings.TrimSpace(in.DateOfBirth),
		Mobile:      strings.TrimSpace(in.Mobile),
		CreatedAt:   time.Now().UTC(),
	}

	var missing []string
	for _, f := range []struct {
		name  string
		value string
	}{
		{"providerId", p.ProviderID},
		{"name", p.FullName},
		{"dateOfBirth", p.DateOfBirth},
		{"mobile", p.Mobile},
	} {
		if f.value == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return nil, apierr.Validation("missing required fields", missing...)
	}

	if email := strings.TrimSpace(in.Email); email != "" {
		p.Email = &email
	}

	score, err := ParseISIScore(in.ISIScore)
	if err != nil {
		return nil, err
	}
	p.ISIScore = score

	if in.SuggestedTreatments != nil {
		p.Flags = FlagsFromLabels(in.SuggestedTreatments)
	} else if in.Flags != nil {
		p.Flags = *in.Flags
	}

	return p, nil
}

// ParseISIScore interprets the raw isiScore value. Absent, null and ""
// all mean "no score"; anything else must coerce to an integer in [0,28].
func ParseISIScore(raw json.RawMessage) (*int, error) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return nil, nil
	}

	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		text = strings.TrimSpace(text)
		if text == "" {
			return nil, nil
		}
		trimmed = text
	}

	f, err := strconv.ParseFloat(trimmed, 64)
	if err != nil {
		return nil, apierr.Validation("isiScore must be an integer between 0 and 28", "isiScore")
	}
	if f != math.Trunc(f) || f < isiMin || f > isiMax {
		return nil, apierr.Validation("isiScore must be an integer between 0 and 28", "isiScore")
	}
	score := int(f)
	return &score, nil
}
