package sqldb

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/accessible-chennai/internal/apperror"
	"github.com/sakif/accessible-chennai/internal/model"
	"github.com/sakif/accessible-chennai/internal/repository"
)

// compile-time check that *DB implements repository.UserRepository
var _ repository.UserRepository = (*DB)(nil)

const userColumns = `id, email, password_hash, external_id, preferences, saved_places, created_at, updated_at`

// CreateUser inserts a new user, assigning its ID and timestamps.
//
// Email and external_id carry UNIQUE constraints. A collision surfaces as
// apperror.ErrDuplicateKey with Field set to the offending column; the raw
// driver error is not returned.
func (db *DB) CreateUser(ctx context.Context, user *model.User) error {
	prefs, places, err := encodeUserJSON(user)
	if err != nil {
		return fmt.Errorf("sqldb: creating user: %w", err)
	}

	now := time.Now().UTC()
	id := xid.New().String()

	_, err = db.conn.ExecContext(ctx, db.rebind(
		`INSERT INTO users (`+userColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`),
		id,
		user.Email,
		nullString(user.PasswordHash),
		nullString(user.ExternalID),
		prefs,
		places,
		now,
		now,
	)
	if err != nil {
		if kind, column := classify(err); kind == uniqueViolation {
			return apperror.DuplicateKey("user", column)
		}
		return fmt.Errorf("sqldb: creating user: %w", err)
	}

	// Only fill the caller's struct once the row exists.
	user.ID = id
	user.CreatedAt = now
	user.UpdatedAt = now
	return nil
}

// GetUserByID retrieves a user by their internal ID.
// Returns apperror.ErrNotFound if no user exists with that ID.
func (db *DB) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	row := db.conn.QueryRowContext(ctx, db.rebind(
		`SELECT `+userColumns+` FROM users WHERE id = ?`), id)

	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("user", id)
		}
		return nil, fmt.Errorf("sqldb: getting user %s: %w", id, err)
	}
	return u, nil
}

// GetUserByEmail looks a user up by exact (case-sensitive) email.
func (db *DB) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	row := db.conn.QueryRowContext(ctx, db.rebind(
		`SELECT `+userColumns+` FROM users WHERE email = ?`), email)

	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &apperror.AppError{
				Err:     apperror.ErrNotFound,
				Message: "user not found for the given email",
			}
		}
		return nil, fmt.Errorf("sqldb: getting user by email: %w", err)
	}
	return u, nil
}

// GetUserByExternalID looks a user up by identity-provider subject. The
// empty string names no account.
func (db *DB) GetUserByExternalID(ctx context.Context, externalID string) (*model.User, error) {
	notFound := &apperror.AppError{
		Err:     apperror.ErrNotFound,
		Message: "user not found for the given external id",
	}
	if externalID == "" {
		return nil, notFound
	}

	row := db.conn.QueryRowContext(ctx, db.rebind(
		`SELECT `+userColumns+` FROM users WHERE external_id = ?`), externalID)

	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound
		}
		return nil, fmt.Errorf("sqldb: getting user by external id: %w", err)
	}
	return u, nil
}

// UpdateUser persists the mutable fields: password hash, external id,
// preferences and saved places. Email, id and created_at never change.
//
// There is no version column: concurrent updates to one user are
// last-writer-wins.
func (db *DB) UpdateUser(ctx context.Context, user *model.User) error {
	prefs, places, err := encodeUserJSON(user)
	if err != nil {
		return fmt.Errorf("sqldb: updating user %s: %w", user.ID, err)
	}

	updatedAt := time.Now().UTC()

	result, err := db.conn.ExecContext(ctx, db.rebind(
		`UPDATE users
		 SET password_hash = ?, external_id = ?, preferences = ?, saved_places = ?, updated_at = ?
		 WHERE id = ?`),
		nullString(user.PasswordHash),
		nullString(user.ExternalID),
		prefs,
		places,
		updatedAt,
		user.ID,
	)
	if err != nil {
		if kind, column := classify(err); kind == uniqueViolation {
			return apperror.DuplicateKey("user", column)
		}
		return fmt.Errorf("sqldb: updating user %s: %w", user.ID, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqldb: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("user", user.ID)
	}

	user.UpdatedAt = updatedAt
	return nil
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*model.User, error) {
	var (
		u                   model.User
		passwordHash, extID sql.NullString
		prefsRaw, placesRaw []byte
	)

	if err := row.Scan(
		&u.ID,
		&u.Email,
		&passwordHash,
		&extID,
		&prefsRaw,
		&placesRaw,
		&u.CreatedAt,
		&u.UpdatedAt,
	); err != nil {
		return nil, err
	}

	u.PasswordHash = passwordHash.String
	u.ExternalID = extID.String

	if err := decodeJSON(prefsRaw, &u.Preferences); err != nil {
		return nil, fmt.Errorf("decoding preferences: %w", err)
	}
	if u.Preferences == nil {
		u.Preferences = model.Preferences{}
	}
	if err := decodeJSON(placesRaw, &u.SavedPlaces); err != nil {
		return nil, fmt.Errorf("decoding saved places: %w", err)
	}
	if u.SavedPlaces == nil {
		u.SavedPlaces = []any{}
	}

	return &u, nil
}

// encodeUserJSON serialises the two JSON columns. Nil values are stored as
// an empty object/array so reads never see SQL NULL.
func encodeUserJSON(user *model.User) (string, string, error) {
	prefs := user.Preferences
	if prefs == nil {
		prefs = model.Preferences{}
	}
	places := user.SavedPlaces
	if places == nil {
		places = []any{}
	}

	prefsJSON, err := json.Marshal(prefs)
	if err != nil {
		return "", "", fmt.Errorf("encoding preferences: %w", err)
	}
	placesJSON, err := json.Marshal(places)
	if err != nil {
		return "", "", fmt.Errorf("encoding saved places: %w", err)
	}
	return string(prefsJSON), string(placesJSON), nil
}

func decodeJSON(raw []byte, v any) error {
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, v)
}
