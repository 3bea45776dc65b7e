package patient

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/autonoos/intake-gateway/internal/infrastructure/kafkax"
	"github.com/autonoos/intake-gateway/internal/infrastructure/postgres"
)

// Repository persists patients in PostgreSQL. Each insert writes the
// intake-recorded event into the outbox within the same transaction.
type Repository struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewRepository creates a new repository
func NewRepository(pool *pgxpool.Pool, logger *zap.Logger) *Repository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Repository{pool: pool, logger: logger}
}

// Insert writes one patient row plus its outbox entry atomically.
func (r *Repository) Insert(ctx context.Context, p *Patient) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO patients
		(id, provider_id, full_name, date_of_birth, mobile, email, isi_score,
		 tx_cbti, tx_medication, tx_supplements, tx_hygiene, tx_light, tx_none, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`
	_, err = tx.Exec(ctx, query,
		p.ID, p.ProviderID, p.FullName, p.DateOfBirth, p.Mobile, p.Email, p.ISIScore,
		p.Flags.CBTI, p.Flags.Medication, p.Flags.Supplements,
		p.Flags.Hygiene, p.Flags.Light, p.Flags.None, p.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert patient: %w", err)
	}

	payload, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	entry := &postgres.OutboxEntry{
		AggregateID:   p.ID,
		AggregateType: "Patient",
		EventType:     "PatientIntakeRecorded",
		Payload:       payload,
		KafkaTopic:    kafkax.TopicPatientIntakes,
		KafkaKey:      p.ProviderID,
	}
	if err := postgres.WriteEntry(ctx, tx, entry); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// ListByProvider returns all patients for one provider, newest first.
func (r *Repository) ListByProvider(ctx context.Context, providerID string) ([]Patient, error) {
	query := `
		SELECT id, provider_id, full_name, date_of_birth, mobile, email, isi_score,
		       tx_cbti, tx_medication, tx_supplements, tx_hygiene, tx_light, tx_none, created_at
		FROM patients
		WHERE provider_id = $1
		ORDER BY created_at DESC
	`

	rows, err := r.pool.Query(ctx, query, providerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var patients []Patient
	for rows.Next() {
		var p Patient
		err := rows.Scan(
			&p.ID, &p.ProviderID, &p.FullName, &p.DateOfBirth, &p.Mobile, &p.Email, &p.ISIScore,
			&p.Flags.CBTI, &p.Flags.Medication, &p.Flags.Supplements,
			&p.Flags.Hygiene, &p.Flags.Light, &p.Flags.None, &p.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		patients = append(patients, p)
	}
	return patients, rows.Err()
}
