package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/grvbrk/intra_catalog/internal/models"
)

type UserStore interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByGoogleID(ctx context.Context, id string) (*models.User, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	SetUserRole(ctx context.Context, id uuid.UUID, role string) error
	ListUsers(ctx context.Context) ([]models.User, error)
}

type PostgresUserStore struct {
	db *sql.DB
}

func NewPostgresUserStore(db *sql.DB) *PostgresUserStore {
	return &PostgresUserStore{db: db}
}

const userColumns = `id, google_id, name, email, image, role, created_at, updated_at`

func scanUser(row rowScanner) (*models.User, error) {
	user := &models.User{}
	err := row.Scan(
		&user.ID,
		&user.GoogleID,
		&user.Name,
		&user.Email,
		&user.ImageSrc,
		&user.Role,
		&user.Created_At,
		&user.Updated_At,
	)
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (pg *PostgresUserStore) CreateUser(ctx context.Context, user *models.User) error {
	query := `
	INSERT INTO users (google_id, name, email, image, role)
	VALUES ($1, $2, $3, $4, $5)
	RETURNING id, created_at, updated_at;
	`
	err := pg.db.QueryRowContext(ctx, query, user.GoogleID, user.Name, user.Email, user.ImageSrc, user.Role).
		Scan(&user.ID, &user.Created_At, &user.Updated_At)

	if err != nil {
		return fmt.Errorf("error running create user query: %w", err)
	}

	return nil
}

func (pg *PostgresUserStore) GetUserByGoogleID(ctx context.Context, id string) (*models.User, error) {
	query := fmt.Sprintf(`
	SELECT %s
	FROM users
	WHERE google_id = $1
	`, userColumns)

	user, err := scanUser(pg.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("no user found with google id %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("error running get user by google id query: %w", err)
	}

	return user, nil
}

func (pg *PostgresUserStore) GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	query := fmt.Sprintf(`
	SELECT %s
	FROM users
	WHERE id = $1
	`, userColumns)

	user, err := scanUser(pg.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("no user found with id %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to select user: %w", err)
	}

	return user, nil
}

func (pg *PostgresUserStore) SetUserRole(ctx context.Context, id uuid.UUID, role string) error {
	query := `
		UPDATE users
		SET role = $1, updated_at = CURRENT_TIMESTAMP
		WHERE id = $2
	`

	res, err := pg.db.ExecContext(ctx, query, role, id)
	if err != nil {
		return fmt.Errorf("failed to update user role: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update user role: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("user %s: %w", id, ErrNotFound)
	}
	return nil
}

func (pg *PostgresUserStore) ListUsers(ctx context.Context) ([]models.User, error) {
	query := fmt.Sprintf(`
	SELECT %s
	FROM users
	ORDER BY created_at DESC
	`, userColumns)

	rows, err := pg.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	users := []models.User{}
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, *user)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return users, nil
}

// MemoryUserStore backs UserStore when no database is configured.
type MemoryUserStore struct {
	mu    sync.RWMutex
	users []models.User
}

func NewMemoryUserStore() *MemoryUserStore {
	return &MemoryUserStore{}
}

func (m *MemoryUserStore) CreateUser(ctx context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, u := range m.users {
		if u.GoogleID == user.GoogleID {
			return fmt.Errorf("user with google id %s already exists", user.GoogleID)
		}
	}

	now := time.Now()
	user.ID = uuid.New()
	user.Created_At = now
	user.Updated_At = now
	m.users = append(m.users, *user)
	return nil
}

func (m *MemoryUserStore) GetUserByGoogleID(ctx context.Context, id string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, u := range m.users {
		if u.GoogleID == id {
			user := u
			return &user, nil
		}
	}
	return nil, fmt.Errorf("no user found with google id %s: %w", id, ErrNotFound)
}

func (m *MemoryUserStore) GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, u := range m.users {
		if u.ID == id {
			user := u
			return &user, nil
		}
	}
	return nil, fmt.Errorf("no user found with id %s: %w", id, ErrNotFound)
}

func (m *MemoryUserStore) SetUserRole(ctx context.Context, id uuid.UUID, role string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.users {
		if m.users[i].ID == id {
			m.users[i].Role = role
			m.users[i].Updated_At = time.Now()
			return nil
		}
	}
	return fmt.Errorf("user %s: %w", id, ErrNotFound)
}

func (m *MemoryUserStore) ListUsers(ctx context.Context) ([]models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := slices.Clone(m.users)
	slices.Reverse(out)
	if out == nil {
		out = []models.User{}
	}
	return out, nil
}
