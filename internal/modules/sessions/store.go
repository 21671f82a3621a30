// Package sessions keeps server-side login sessions in cache.db.
package sessions

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"
)

// ErrSessionNotFound is returned for unknown or expired tokens
var ErrSessionNotFound = errors.New("session not found")

// Data is the payload stored for a session
type Data struct {
	CreatedAt time.Time `msgpack:"created_at"`
	Username  string    `msgpack:"username"`
	Flashes   []string  `msgpack:"flashes,omitempty"`
	AccountID int64     `msgpack:"account_id"`
}

// Store persists sessions as msgpack blobs keyed by a random token
type Store struct {
	cacheDB *sql.DB
	log     zerolog.Logger
	ttl     time.Duration
	now     func() time.Time
}

// NewStore creates a session store
func NewStore(cacheDB *sql.DB, ttl time.Duration, log zerolog.Logger) *Store {
	return &Store{
		cacheDB: cacheDB,
		ttl:     ttl,
		log:     log.With().Str("repo", "session").Logger(),
		now:     time.Now,
	}
}

// Create stores data under a new token and returns the token
func (s *Store) Create(ctx context.Context, data Data) (string, error) {
	token := uuid.NewString()
	if data.CreatedAt.IsZero() {
		data.CreatedAt = s.now().UTC()
	}

	blob, err := msgpack.Marshal(&data)
	if err != nil {
		return "", fmt.Errorf("failed to encode session: %w", err)
	}

	expiresAt := s.now().Add(s.ttl).Unix()
	if _, err := s.cacheDB.ExecContext(ctx,
		`INSERT INTO sessions (token, data, expires_at) VALUES (?, ?, ?)`,
		token, blob, expiresAt,
	); err != nil {
		return "", fmt.Errorf("failed to create session: %w", err)
	}

	return token, nil
}

// Get returns the session for token or ErrSessionNotFound
func (s *Store) Get(ctx context.Context, token string) (*Data, error) {
	if _, err := uuid.Parse(token); err != nil {
		return nil, ErrSessionNotFound
	}

	var blob []byte
	err := s.cacheDB.QueryRowContext(ctx,
		`SELECT data FROM sessions WHERE token = ? AND expires_at > ?`,
		token, s.now().Unix(),
	).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	var data Data
	if err := msgpack.Unmarshal(blob, &data); err != nil {
		s.log.Warn().Err(err).Msg("Discarding unreadable session")
		return nil, ErrSessionNotFound
	}
	return &data, nil
}

// Save replaces the payload of an existing session without extending its lifetime
func (s *Store) Save(ctx context.Context, token string, data *Data) error {
	blob, err := msgpack.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}

	res, err := s.cacheDB.ExecContext(ctx, `UPDATE sessions SET data = ? WHERE token = ?`, blob, token)
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrSessionNotFound
	}
	return nil
}

// Delete removes a session. Deleting an unknown token is not an error.
func (s *Store) Delete(ctx context.Context, token string) error {
	if _, err := s.cacheDB.ExecContext(ctx, `DELETE FROM sessions WHERE token = ?`, token); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// DeleteForAccount removes every session of an account
func (s *Store) DeleteForAccount(ctx context.Context, accountID int64) (int, error) {
	rows, err := s.cacheDB.QueryContext(ctx, `SELECT token, data FROM sessions`)
	if err != nil {
		return 0, fmt.Errorf("failed to list sessions: %w", err)
	}

	var tokens []string
	for rows.Next() {
		var (
			token string
			blob  []byte
			data  Data
		)
		if err := rows.Scan(&token, &blob); err != nil {
			rows.Close()
			return 0, fmt.Errorf("failed to scan session: %w", err)
		}
		if msgpack.Unmarshal(blob, &data) == nil && data.AccountID == accountID {
			tokens = append(tokens, token)
		}
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return 0, fmt.Errorf("error iterating sessions: %w", err)
	}
	rows.Close()

	for _, token := range tokens {
		if err := s.Delete(ctx, token); err != nil {
			return 0, err
		}
	}
	return len(tokens), nil
}
