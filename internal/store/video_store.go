package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/grvbrk/intra_catalog/internal/catalog"
	"github.com/grvbrk/intra_catalog/internal/models"
)

// VideoTable is the persistent store boundary for customer-story videos.
type VideoTable = catalog.Table[models.Video, models.VideoDraft]

type PostgresVideoStore struct {
	db *sql.DB
}

func NewPostgresVideoStore(db *sql.DB) *PostgresVideoStore {
	if db == nil {
		panic("db cannot be nil for PostgresVideoStore")
	}
	return &PostgresVideoStore{db: db}
}

const videoColumns = `id, seq, title, video_url, caption, vehicle_model, region, application, is_short, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanVideo(row rowScanner) (models.Video, error) {
	var v models.Video
	var caption sql.NullString
	var isShort sql.NullBool
	var application string

	err := row.Scan(
		&v.ID,
		&v.Seq,
		&v.Title,
		&v.VideoURL,
		&caption,
		&v.VehicleModel,
		&v.Region,
		&application,
		&isShort,
		&v.Created_At,
		&v.Updated_At,
	)
	if err != nil {
		return models.Video{}, err
	}

	if caption.Valid {
		v.Caption = &caption.String
	}
	if isShort.Valid {
		v.IsShort = &isShort.Bool
	}
	v.Application = models.Application(application)
	return v, nil
}

// nullIfBlank stores an empty optional text field as NULL.
func nullIfBlank(s *string) sql.NullString {
	if s == nil || strings.TrimSpace(*s) == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullBool(b *bool) sql.NullBool {
	if b == nil {
		return sql.NullBool{}
	}
	return sql.NullBool{Bool: *b, Valid: true}
}

func (pg *PostgresVideoStore) List(ctx context.Context) ([]models.Video, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM videos
		ORDER BY created_at DESC, seq DESC
	`, videoColumns)

	rows, err := pg.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list videos: %w", err)
	}
	defer rows.Close()

	videos := []models.Video{}
	for rows.Next() {
		v, err := scanVideo(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan video row: %w", err)
		}
		videos = append(videos, v)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over video rows: %w", err)
	}

	return videos, nil
}

func (pg *PostgresVideoStore) Insert(ctx context.Context, d models.VideoDraft) (models.Video, error) {
	query := fmt.Sprintf(`
		INSERT INTO videos (title, video_url, caption, vehicle_model, region, application, is_short)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING %s
	`, videoColumns)

	row := pg.db.QueryRowContext(ctx, query,
		d.Title, d.VideoURL, nullIfBlank(d.Caption), d.VehicleModel, d.Region, d.Application, nullBool(d.IsShort),
	)

	v, err := scanVideo(row)
	if err != nil {
		return models.Video{}, fmt.Errorf("failed to insert video: %w", err)
	}
	return v, nil
}

func (pg *PostgresVideoStore) Update(ctx context.Context, id uuid.UUID, d models.VideoDraft) (models.Video, error) {
	query := fmt.Sprintf(`
		UPDATE videos
		SET title = $1, video_url = $2, caption = $3, vehicle_model = $4, region = $5,
			application = $6, is_short = $7, updated_at = CURRENT_TIMESTAMP
		WHERE id = $8
		RETURNING %s
	`, videoColumns)

	row := pg.db.QueryRowContext(ctx, query,
		d.Title, d.VideoURL, nullIfBlank(d.Caption), d.VehicleModel, d.Region, d.Application, nullBool(d.IsShort), id,
	)

	v, err := scanVideo(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Video{}, fmt.Errorf("video %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return models.Video{}, fmt.Errorf("failed to update video: %w", err)
	}
	return v, nil
}

func (pg *PostgresVideoStore) Delete(ctx context.Context, id uuid.UUID) error {
	query := `
	DELETE FROM videos
	WHERE id = $1
	`

	res, err := pg.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete video: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete video: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("video %s: %w", id, ErrNotFound)
	}
	return nil
}
