package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/autonoos/intake-gateway/internal/apierr"
	"github.com/autonoos/intake-gateway/internal/api/middleware"
	"github.com/autonoos/intake-gateway/internal/domain/patient"
	"github.com/autonoos/intake-gateway/internal/domain/provider"
)

// IntakeService validates and records patient submissions.
type IntakeService interface {
	Record(ctx context.Context, in patient.IntakeInput) (*patient.Patient, error)
	ListByProvider(ctx context.Context, providerID string) ([]patient.Patient, error)
}

// ProviderResolver resolves a provider identity for a submission.
type ProviderResolver interface {
	Resolve(ctx context.Context, l provider.Lookup) (*provider.Identity, error)
}

// PatientHandler handles patient intake endpoints
type PatientHandler struct {
	intake   IntakeService
	resolver ProviderResolver
	logger   *zap.Logger
}

// NewPatientHandler creates a new handler
func NewPatientHandler(intake IntakeService, resolver ProviderResolver, logger *zap.Logger) *PatientHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PatientHandler{intake: intake, resolver: resolver, logger: logger}
}

// Routes returns the handler routes
func (h *PatientHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Post("/public", h.CreatePublic)
	return r
}

// intakeBody carries every field variant the intake endpoints have
// historically accepted: a direct provider id under two spellings,
// discrete tx_* booleans or a suggestedTreatments list, and for the
// public path a practice name, provider phone or clinical provider id.
type intakeBody struct {
	ProviderID      string `json:"provider_id"`
	ProviderIDCamel string `json:"providerId"`

	Name        string          `json:"name"`
	DateOfBirth string          `json:"dateOfBirth"`
	Mobile      string          `json:"mobile"`
	Email       string          `json:"email"`
	ISIScore    json.RawMessage `json:"isiScore"`

	SuggestedTreatments []string `json:"suggestedTreatments"`
	TxCBTI              *bool    `json:"tx_cbti"`
	TxMedication        *bool    `json:"tx_medication"`
	TxSupplements       *bool    `json:"tx_supplements"`
	TxHygiene           *bool    `json:"tx_hygiene"`
	TxLight             *bool    `json:"tx_light"`
	TxNone              *bool    `json:"tx_none"`

	PracticeName       string `json:"practiceName"`
	ProviderPhone      string `json:"providerPhone"`
	HealthieProviderID string `json:"healthie_provider_id"`
}

func (b *intakeBody) directProviderID() string {
	if b.ProviderID != "" {
		return b.ProviderID
	}
	return b.ProviderIDCamel
}

func (b *intakeBody) intakeInput(providerID string) patient.IntakeInput {
	in := patient.IntakeInput{
		ProviderID:          providerID,
		Name:                b.Name,
		DateOfBirth:         b.DateOfBirth,
		Mobile:              b.Mobile,
		Email:               b.Email,
		ISIScore:            b.ISIScore,
		SuggestedTreatments: b.SuggestedTreatments,
	}
	if b.SuggestedTreatments == nil && b.hasDiscreteFlags() {
		in.Flags = &patient.TreatmentFlags{
			CBTI:        boolVal(b.TxCBTI),
			Medication:  boolVal(b.TxMedication),
			Supplements: boolVal(b.TxSupplements),
			Hygiene:     boolVal(b.TxHygiene),
			Light:       boolVal(b.TxLight),
			None:        boolVal(b.TxNone),
		}
	}
	return in
}

func (b *intakeBody) hasDiscreteFlags() bool {
	return b.TxCBTI != nil || b.TxMedication != nil || b.TxSupplements != nil ||
		b.TxHygiene != nil || b.TxLight != nil || b.TxNone != nil
}

func boolVal(p *bool) bool { return p != nil && *p }

type intakeResponse struct {
	PatientID    string `json:"patientId"`
	Status       string `json:"status"`
	PracticeName string `json:"practiceName,omitempty"`
	ProviderID   string `json:"providerId,omitempty"`
}

// Create handles POST /api/patients, the flow where the caller already
// holds the provider id.
func (h *PatientHandler) Create(w http.ResponseWriter, r *http.Request) {
	var body intakeBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, h.logger, apierr.Validation("invalid request body"))
		return
	}

	p, err := h.intake.Record(r.Context(), body.intakeInput(body.directProviderID()))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, intakeResponse{PatientID: p.ID, Status: "created"})
}

// CreatePublic handles POST /api/patients/public, the unauthenticated flow.
// The provider is resolved by practice name (preferred), provider phone, or
// a caller-supplied clinical provider id.
func (h *PatientHandler) CreatePublic(w http.ResponseWriter, r *http.Request) {
	var body intakeBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, h.logger, apierr.Validation("invalid request body"))
		return
	}

	var lookup provider.Lookup
	switch {
	case body.PracticeName != "":
		lookup.PracticeName = body.PracticeName
	case body.ProviderPhone != "":
		lookup.Phone = body.ProviderPhone
	case body.HealthieProviderID != "":
		lookup.DirectID = body.HealthieProviderID
	default:
		writeError(w, h.logger, apierr.Validation(
			"one of practiceName, providerPhone or healthie_provider_id is required",
			"practiceName"))
		return
	}

	identity, err := h.resolver.Resolve(r.Context(), lookup)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	p, err := h.intake.Record(r.Context(), body.intakeInput(identity.ProviderID))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, intakeResponse{
		PatientID:    p.ID,
		Status:       "created",
		PracticeName: identity.PracticeName,
		ProviderID:   identity.ProviderID,
	})
}

type listResponse struct {
	Patients   []patient.Patient `json:"patients"`
	ProviderID string            `json:"provider_id"`
}

// List handles GET /api/patients for the authenticated provider.
func (h *PatientHandler) List(w http.ResponseWriter, r *http.Request) {
	token := middleware.BearerToken(r)
	if token == "" {
		writeError(w, h.logger, apierr.Unauthorized("missing authorization"))
		return
	}

	identity, err := h.resolver.Resolve(r.Context(), provider.Lookup{Token: token})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	patients, err := h.intake.ListByProvider(r.Context(), identity.ProviderID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if patients == nil {
		patients = []patient.Patient{}
	}

	writeJSON(w, http.StatusOK, listResponse{Patients: patients, ProviderID: identity.ProviderID})
}
