package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/grvbrk/intra_catalog/internal/catalog"
	"github.com/grvbrk/intra_catalog/internal/models"
)

// VehicleTable is the persistent store boundary for vehicle spec cards.
type VehicleTable = catalog.Table[models.Vehicle, models.VehicleDraft]

type PostgresVehicleStore struct {
	db *sql.DB
}

func NewPostgresVehicleStore(db *sql.DB) *PostgresVehicleStore {
	if db == nil {
		panic("db cannot be nil for PostgresVehicleStore")
	}
	return &PostgresVehicleStore{db: db}
}

const vehicleColumns = `id, seq, image, name, spec_gvw, spec_payload, spec_engine, created_at, updated_at`

func scanVehicle(row rowScanner) (models.Vehicle, error) {
	var v models.Vehicle
	err := row.Scan(
		&v.ID,
		&v.Seq,
		&v.Image,
		&v.Name,
		&v.SpecGVW,
		&v.SpecPayload,
		&v.SpecEngine,
		&v.Created_At,
		&v.Updated_At,
	)
	return v, err
}

func (pg *PostgresVehicleStore) List(ctx context.Context) ([]models.Vehicle, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM vehicles
		ORDER BY created_at DESC, seq DESC
	`, vehicleColumns)

	rows, err := pg.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list vehicles: %w", err)
	}
	defer rows.Close()

	vehicles := []models.Vehicle{}
	for rows.Next() {
		v, err := scanVehicle(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan vehicle row: %w", err)
		}
		vehicles = append(vehicles, v)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over vehicle rows: %w", err)
	}

	return vehicles, nil
}

func (pg *PostgresVehicleStore) Insert(ctx context.Context, d models.VehicleDraft) (models.Vehicle, error) {
	query := fmt.Sprintf(`
		INSERT INTO vehicles (image, name, spec_gvw, spec_payload, spec_engine)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING %s
	`, vehicleColumns)

	v, err := scanVehicle(pg.db.QueryRowContext(ctx, query, d.Image, d.Name, d.SpecGVW, d.SpecPayload, d.SpecEngine))
	if err != nil {
		return models.Vehicle{}, fmt.Errorf("failed to insert vehicle: %w", err)
	}
	return v, nil
}

func (pg *PostgresVehicleStore) Update(ctx context.Context, id uuid.UUID, d models.VehicleDraft) (models.Vehicle, error) {
	query := fmt.Sprintf(`
		UPDATE vehicles
		SET image = $1, name = $2, spec_gvw = $3, spec_payload = $4, spec_engine = $5,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = $6
		RETURNING %s
	`, vehicleColumns)

	v, err := scanVehicle(pg.db.QueryRowContext(ctx, query, d.Image, d.Name, d.SpecGVW, d.SpecPayload, d.SpecEngine, id))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Vehicle{}, fmt.Errorf("vehicle %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return models.Vehicle{}, fmt.Errorf("failed to update vehicle: %w", err)
	}
	return v, nil
}

func (pg *PostgresVehicleStore) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := pg.db.ExecContext(ctx, `DELETE FROM vehicles WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete vehicle: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete vehicle: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("vehicle %s: %w", id, ErrNotFound)
	}
	return nil
}
