// Package sessions stores refresh tokens in an embedded Badger database.
// Tokens are opaque random values; only their SHA-256 digest is persisted, so
// a copied database file cannot be replayed.
package sessions

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"

	"github.com/dgraph-io/badger/v4"
)

// ErrInvalidToken is returned for unknown, expired or revoked refresh tokens.
var ErrInvalidToken = errors.New("sessions: invalid refresh token")

type record struct {
	UserID    string    `json:"user_id"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Store issues and validates refresh tokens.
type Store struct {
	db  *badger.DB
	ttl time.Duration
}

// Open opens (or creates) the session database at path. ttl is the refresh
// token lifetime; Badger expires entries itself.
func Open(path string, ttl time.Duration) (*Store, error) {
	opts := badger.DefaultOptions(path).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}
	return &Store{db: db, ttl: ttl}, nil
}

func (s *Store) Close() error { return s.db.Close() }

func tokenKey(token string) []byte {
	sum := sha256.Sum256([]byte(token))
	return []byte("rt:" + hex.EncodeToString(sum[:]))
}

func newToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// Issue creates a refresh token for the user and returns it with its expiry.
func (s *Store) Issue(_ context.Context, userID string) (string, time.Time, error) {
	token, err := newToken()
	if err != nil {
		return "", time.Time{}, err
	}
	now := time.Now()
	rec := record{UserID: userID, IssuedAt: now, ExpiresAt: now.Add(s.ttl)}
	buf, err := json.Marshal(rec)
	if err != nil {
		return "", time.Time{}, err
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry(tokenKey(token), buf).WithTTL(s.ttl)
		return txn.SetEntry(entry)
	})
	if err != nil {
		return "", time.Time{}, err
	}
	return token, rec.ExpiresAt, nil
}

// Rotate consumes a refresh token and issues a replacement for the same user.
// The old token is deleted in the same transaction so it cannot be replayed.
func (s *Store) Rotate(ctx context.Context, token string) (string, string, time.Time, error) {
	key := tokenKey(token)
	var rec record
	err := s.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		if err := item.Value(func(val []byte) error {
			return json.Unmarshal(val, &rec)
		}); err != nil {
			return err
		}
		return txn.Delete(key)
	})
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return "", "", time.Time{}, ErrInvalidToken
		}
		return "", "", time.Time{}, err
	}
	if time.Now().After(rec.ExpiresAt) {
		return "", "", time.Time{}, ErrInvalidToken
	}
	next, exp, err := s.Issue(ctx, rec.UserID)
	if err != nil {
		return "", "", time.Time{}, err
	}
	return next, rec.UserID, exp, nil
}

// Revoke deletes a refresh token. Revoking an unknown token is not an error.
func (s *Store) Revoke(_ context.Context, token string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		err := txn.Delete(tokenKey(token))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		return err
	})
}

// RevokeUser deletes every refresh token issued to the user. Used when an
// account is deleted or its password changes.
func (s *Store) RevokeUser(ctx context.Context, userID string) (int, error) {
	prefix := []byte("rt:")
	var keys [][]byte
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			item := it.Item()
			var rec record
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &rec)
			}); err != nil {
				continue
			}
			if rec.UserID == userID {
				keys = append(keys, item.KeyCopy(nil))
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	for _, key := range keys {
		if err := s.db.Update(func(txn *badger.Txn) error {
			return txn.Delete(key)
		}); err != nil {
			return 0, err
		}
	}
	return len(keys), nil
}
