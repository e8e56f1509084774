package postgres

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/sparkpad-app/sparkpad/backend/internal/domain"
)

type UserRepo struct {
	DB *sql.DB
}

func NewUserRepo(db *sql.DB) *UserRepo {
	return &UserRepo{DB: db}
}

const userSelectFields = `id, email, COALESCE(name, '') as name, COALESCE(avatar_url, '') as avatar_url, google_id, is_verified, COALESCE(password_hash, '') as password_hash, plan, plan_renews_at, created_at`

// scanUser is a helper that scans a row into a domain.User
func scanUser(row interface{ Scan(dest ...any) error }) (*domain.User, error) {
	var user domain.User
	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.Name,
		&user.AvatarURL,
		&user.GoogleID,
		&user.IsVerified,
		&user.PasswordHash,
		&user.Plan,
		&user.PlanRenewsAt,
		&user.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// CreateUser creates a new user on the free plan with optional google_id/avatar
func (r *UserRepo) CreateUser(email, name, passwordHash, googleID, avatarURL string) (int64, error) {
	var googleIDParam interface{}
	if googleID != "" {
		googleIDParam = googleID
	}

	query := `
	INSERT INTO users (email, name, password_hash, google_id, avatar_url, plan, plan_renews_at)
	VALUES ($1, $2, $3, $4, $5, 'free', NOW() + INTERVAL '1 month')
	RETURNING id;
	`
	var userID int64
	err := r.DB.QueryRow(query, email, name, passwordHash, googleIDParam, avatarURL).Scan(&userID)
	if err != nil {
		return 0, fmt.Errorf("failed to create user: %v", err)
	}
	return userID, nil
}

// GetUserByEmail retrieves a user by email
func (r *UserRepo) GetUserByEmail(email string) (*domain.User, error) {
	query := `SELECT ` + userSelectFields + ` FROM users WHERE email = $1;`
	user, err := scanUser(r.DB.QueryRow(query, email))
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %v", err)
	}
	return user, nil
}

// GetUserByID retrieves a user by ID
func (r *UserRepo) GetUserByID(userID int64) (*domain.User, error) {
	query := `SELECT ` + userSelectFields + ` FROM users WHERE id = $1;`
	user, err := scanUser(r.DB.QueryRow(query, userID))
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %v", err)
	}
	return user, nil
}

// GetUserByGoogleID retrieves a user by Google ID
func (r *UserRepo) GetUserByGoogleID(googleID string) (*domain.User, error) {
	query := `SELECT ` + userSelectFields + ` FROM users WHERE google_id = $1;`
	user, err := scanUser(r.DB.QueryRow(query, googleID))
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %v", err)
	}
	return user, nil
}

// UpdateUserGoogleID links a Google account to an existing email user
func (r *UserRepo) UpdateUserGoogleID(email, googleID string) error {
	query := `
	UPDATE users
	SET google_id = $2, is_verified = TRUE
	WHERE email = $1;
	`
	_, err := r.DB.Exec(query, email, googleID)
	if err != nil {
		return fmt.Errorf("failed to update google id: %v", err)
	}
	return nil
}

// UpdateProfile updates a user's display name
func (r *UserRepo) UpdateProfile(userID int64, name string) error {
	query := `UPDATE users SET name = $2 WHERE id = $1;`
	_, err := r.DB.Exec(query, userID, name)
	if err != nil {
		return fmt.Errorf("failed to update profile: %v", err)
	}
	return nil
}

// UpdatePlan changes a user's subscription plan and period anchor
func (r *UserRepo) UpdatePlan(userID int64, plan domain.PlanID, renewsAt time.Time) error {
	query := `UPDATE users SET plan = $2, plan_renews_at = $3 WHERE id = $1;`
	_, err := r.DB.Exec(query, userID, plan, renewsAt)
	if err != nil {
		return fmt.Errorf("failed to update plan: %v", err)
	}
	return nil
}
