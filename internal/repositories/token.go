package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/mixtape/internal/models"
	"github.com/desertthunder/mixtape/internal/shared"
	"golang.org/x/oauth2"
)

// TokenRepository persists [models.SessionToken] records.
type TokenRepository struct {
	db *sql.DB
}

// NewTokenRepository creates a new [TokenRepository] with the given database connection
func NewTokenRepository(db *sql.DB) *TokenRepository {
	return &TokenRepository{db: db}
}

// Save inserts the token or replaces the one already stored for the same session and platform.
func (r *TokenRepository) Save(record *models.SessionToken) error {
	if err := record.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	query := `
		INSERT INTO session_tokens (
			session_id, platform, access_token, refresh_token, token_type,
			expires_at, created_at, updated_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (session_id, platform) DO UPDATE SET
			access_token = excluded.access_token,
			refresh_token = CASE WHEN excluded.refresh_token = '' THEN session_tokens.refresh_token ELSE excluded.refresh_token END,
			token_type = excluded.token_type,
			expires_at = excluded.expires_at,
			updated_at = excluded.updated_at
	`

	token := record.Token()
	var expiresAt any
	if !token.Expiry.IsZero() {
		expiresAt = token.Expiry.UTC()
	}

	_, err := r.db.Exec(query,
		record.ID(),
		string(record.Platform()),
		token.AccessToken,
		token.RefreshToken,
		token.TokenType,
		expiresAt,
		record.CreatedAt().UTC(),
		record.UpdatedAt().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to save token: %w", err)
	}

	return nil
}

// Get returns the token stored for sessionID on platform, or [shared.ErrTokenNotFound].
func (r *TokenRepository) Get(sessionID string, platform models.Platform) (*models.SessionToken, error) {
	query := `
		SELECT access_token, refresh_token, token_type, expires_at, created_at, updated_at
		FROM session_tokens
		WHERE session_id = ? AND platform = ?
	`

	var (
		token     oauth2.Token
		expiresAt sql.NullTime
		createdAt time.Time
		updatedAt time.Time
	)

	err := r.db.QueryRow(query, sessionID, string(platform)).Scan(
		&token.AccessToken, &token.RefreshToken, &token.TokenType, &expiresAt, &createdAt, &updatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: session %s", shared.ErrTokenNotFound, sessionID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query token: %w", err)
	}

	if expiresAt.Valid {
		token.Expiry = expiresAt.Time
	}

	record := models.NewSessionToken(sessionID, platform, &token)
	record.SetCreatedAt(createdAt)
	record.SetUpdatedAt(updatedAt)
	return record, nil
}

// Delete removes the token for sessionID on platform. Deleting a missing token is not an error.
func (r *TokenRepository) Delete(sessionID string, platform models.Platform) error {
	query := `DELETE FROM session_tokens WHERE session_id = ? AND platform = ?`

	if _, err := r.db.Exec(query, sessionID, string(platform)); err != nil {
		return fmt.Errorf("failed to delete token: %w", err)
	}
	return nil
}

// Prune deletes tokens not updated since cutoff and returns how many were removed.
func (r *TokenRepository) Prune(cutoff time.Time) (int64, error) {
	result, err := r.db.Exec(`DELETE FROM session_tokens WHERE updated_at < ?`, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to prune tokens: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get affected rows: %w", err)
	}
	return rows, nil
}
