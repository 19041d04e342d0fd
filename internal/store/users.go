package store

import (
	"context"
	"database/sql"
	"fmt"

	"trade-service/internal/models"
)

// UserStore implements service.UserRepository on Postgres
type UserStore struct {
	store *Store
}

// NewUserStore creates a user repository over the store
func NewUserStore(store *Store) *UserStore {
	return &UserStore{store: store}
}

// Create inserts a new user
func (s *UserStore) Create(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (name, username, email, password_hash, photo)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`

	return s.store.db.QueryRowxContext(ctx, query,
		user.Name, user.Username, user.Email, user.PasswordHash, user.Photo,
	).Scan(&user.ID, &user.CreatedAt)
}

// GetByID retrieves a user by ID
func (s *UserStore) GetByID(ctx context.Context, id int64) (*models.User, error) {
	var user models.User
	err := s.store.db.GetContext(ctx, &user, "SELECT * FROM users WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: user %d", models.ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetByUsername retrieves a user by username
func (s *UserStore) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	err := s.store.db.GetContext(ctx, &user, "SELECT * FROM users WHERE username = $1", username)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: user %s", models.ErrNotFound, username)
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetByEmail retrieves a user by email
func (s *UserStore) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := s.store.db.GetContext(ctx, &user, "SELECT * FROM users WHERE email = $1", email)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: user %s", models.ErrNotFound, email)
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}
