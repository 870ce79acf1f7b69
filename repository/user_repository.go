package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/malekmuhammad848-blip/Smart-Music-App-Cent/model"
)

// UserRepository defines the interface for user data operations.
type UserRepository interface {
	GetByID(ctx context.Context, userID int64) (*model.User, error)
	IsPremium(ctx context.Context, userID int64) (bool, error)
	Country(ctx context.Context, userID int64) (string, error)
}

// mysqlUserRepository implements UserRepository for MySQL.
type mysqlUserRepository struct {
	DB *sql.DB
}

// NewMySQLUserRepository creates a new instance of mysqlUserRepository.
func NewMySQLUserRepository(db *sql.DB) UserRepository {
	return &mysqlUserRepository{DB: db}
}

// GetByID retrieves a user by ID. A missing user is (nil, nil).
func (r *mysqlUserRepository) GetByID(ctx context.Context, userID int64) (*model.User, error) {
	query := `SELECT id, username, email, is_premium, country, created_at, updated_at
	           FROM users WHERE id = ?`
	row := r.DB.QueryRowContext(ctx, query, userID)

	user := &model.User{}
	err := row.Scan(&user.ID, &user.Username, &user.Email, &user.IsPremium, &user.Country,
		&user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to scan user by ID %d: %w", userID, err)
	}
	return user, nil
}

// IsPremium reports whether the user has a premium subscription. Unknown
// users are not premium.
func (r *mysqlUserRepository) IsPremium(ctx context.Context, userID int64) (bool, error) {
	var premium bool
	err := r.DB.QueryRowContext(ctx, `SELECT is_premium FROM users WHERE id = ?`, userID).Scan(&premium)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("failed to read premium flag for user %d: %w", userID, err)
	}
	return premium, nil
}

// Country returns the user's resolved country code, empty when unknown.
func (r *mysqlUserRepository) Country(ctx context.Context, userID int64) (string, error) {
	var country string
	err := r.DB.QueryRowContext(ctx, `SELECT country FROM users WHERE id = ?`, userID).Scan(&country)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", nil
		}
		return "", fmt.Errorf("failed to read country for user %d: %w", userID, err)
	}
	return country, nil
}
