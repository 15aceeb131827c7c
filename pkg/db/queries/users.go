package queries

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/Asaad942/VidFold/pkg/db"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	log "github.com/sirupsen/logrus"
)

type UserRepository struct {
	db *sqlx.DB
}

func NewUserRepository(conn *sqlx.DB) *UserRepository {
	return &UserRepository{db: conn}
}

// CreateUser inserts a new user. ID and timestamps are assigned here so the
// same statement works on Postgres and SQLite.
func (r *UserRepository) CreateUser(ctx context.Context, user *db.User) (*db.User, error) {
	user.ID = uuid.New()
	now := time.Now().UTC().Truncate(time.Microsecond)
	user.CreatedAt = now
	user.UpdatedAt = now

	query := `
		INSERT INTO users (id, username, email, password_hash, created_at, updated_at)
		VALUES (:id, :username, :email, :password_hash, :created_at, :updated_at)`

	if _, err := r.db.NamedExecContext(ctx, query, user); err != nil {
		log.Errorf("CreateUser: error creating user: %v", err)
		return nil, err
	}

	log.Infof("CreateUser: user %s created with ID: %s", user.Email, user.ID.String())
	return user, nil
}

// FindUserByEmail retrieves a user by email. A missing user is nil, nil.
func (r *UserRepository) FindUserByEmail(ctx context.Context, email string) (*db.User, error) {
	user := &db.User{}
	query := r.db.Rebind(`SELECT id, username, email, password_hash, created_at, updated_at FROM users WHERE email = ?`)
	err := r.db.GetContext(ctx, user, query, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debugf("FindUserByEmail: user with email '%s' not found.", email)
			return nil, nil
		}
		log.Errorf("FindUserByEmail: error finding user by email '%s': %v", email, err)
		return nil, err
	}
	return user, nil
}

// FindUserByID retrieves a user by ID. A missing user is nil, nil.
func (r *UserRepository) FindUserByID(ctx context.Context, id uuid.UUID) (*db.User, error) {
	user := &db.User{}
	query := r.db.Rebind(`SELECT id, username, email, password_hash, created_at, updated_at FROM users WHERE id = ?`)
	err := r.db.GetContext(ctx, user, query, id.String())
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debugf("FindUserByID: user with ID '%s' not found.", id.String())
			return nil, nil
		}
		log.Errorf("FindUserByID: error finding user by ID '%s': %v", id.String(), err)
		return nil, err
	}
	return user, nil
}

// DeleteUser deletes a user and their videos.
func (r *UserRepository) DeleteUser(ctx context.Context, id uuid.UUID) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmts := []string{
		`DELETE FROM video_analysis WHERE video_id IN (SELECT id FROM videos WHERE user_id = ?)`,
		`DELETE FROM videos WHERE user_id = ?`,
	}
	for _, stmt := range stmts {
		if _, err := tx.ExecContext(ctx, tx.Rebind(stmt), id.String()); err != nil {
			log.Errorf("DeleteUser: error deleting content of user '%s': %v", id.String(), err)
			return err
		}
	}

	result, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM users WHERE id = ?`), id.String())
	if err != nil {
		log.Errorf("DeleteUser: error deleting user with ID '%s': %v", id.String(), err)
		return err
	}
	if n, _ := result.RowsAffected(); n == 0 {
		log.Warnf("DeleteUser: no user found with ID '%s' for deletion.", id.String())
		return sql.ErrNoRows
	}
	if err := tx.Commit(); err != nil {
		return err
	}

	log.Infof("DeleteUser: user with ID '%s' deleted.", id.String())
	return nil
}
