// Package patient implements patient intake recording.
package patient

import "time"

// Canonical treatment labels. A submission's suggested-treatment strings
// are matched against these exactly; unrecognized labels are silently
// ignored.
const (
	LabelCBTI        = "CBT-I (Cognitive Behavioral Therapy for Insomnia)"
	LabelMedication  = "Prescription sleep medication"
	LabelSupplements = "Melatonin or other supplements"
	LabelHygiene     = "Sleep hygiene counseling"
	LabelLight       = "Light therapy"
	LabelNone        = "None of these"
)

// TreatmentFlags are the six independent booleans persisted per patient.
type TreatmentFlags struct {
	CBTI        bool `json:"tx_cbti"`
	Medication  bool `json:"tx_medication"`
	Supplements bool `json:"tx_supplements"`
	Hygiene     bool `json:"tx_hygiene"`
	Light       bool `json:"tx_light"`
	None        bool `json:"tx_none"`
}

// FlagsFromLabels sets each flag by exact membership of its canonical
// label in the caller-supplied list.
func FlagsFromLabels(labels []string) TreatmentFlags {
	var f TreatmentFlags
	for _, l := range labels {
		switch l {
		case LabelCBTI:
			f.CBTI = true
		case LabelMedication:
			f.Medication = true
		case LabelSupplements:
			f.Supplements = true
		case LabelHygiene:
			f.Hygiene = true
		case LabelLight:
			f.Light = true
		case LabelNone:
			f.None = true
		}
	}
	return f
}

// Patient is one intake submission. ProviderID references a provider
// identity living in an external system, stored as text with no foreign
// key. Rows are created once and never updated or deleted.
type Patient struct {
	ID          string         `json:"id"`
	ProviderID  string         `json:"provider_id"`
	FullName    string         `json:"full_name"`
	DateOfBirth string         `json:"date_of_birth"`
	Mobile      string         `json:"mobile"`
	Email       *string        `json:"email,omitempty"`
	ISIScore    *int           `json:"isi_score,omitempty"`
	Flags       TreatmentFlags `json:"treatments"`
	CreatedAt   time.Time      `json:"created_at"`
}
