// internal/submission/profile/store.go

// Package profile resolves a lender id into a validated SubmissionProfile.
package profile

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"lender-submission-workers/internal/common/logger"
)

// ErrLenderNotFound is returned by a Store when the lender has no row.
var ErrLenderNotFound = errors.New("lender not found")

// LenderRecord is one raw row of lender submission configuration.
type LenderRecord struct {
	ID               string          `json:"id"`
	Name             string          `json:"name"`
	SubmissionMethod string          `json:"submissionMethod"`
	SubmissionEmail  string          `json:"submissionEmail"`
	SubmissionConfig json.RawMessage `json:"submissionConfig"`
}

// HasConfig reports whether a non-null submission config is present.
func (r *LenderRecord) HasConfig() bool {
	trimmed := bytes.TrimSpace(r.SubmissionConfig)
	return len(trimmed) > 0 && !bytes.Equal(trimmed, []byte("null"))
}

// Store looks up lender rows.
type Store interface {
	GetLender(ctx context.Context, lenderID string) (*LenderRecord, error)
}

const lenderQuery = `SELECT name, submission_method, submission_email, submission_config FROM lenders WHERE id = $1`

// PostgresStore reads the lenders table.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) GetLender(ctx context.Context, lenderID string) (*LenderRecord, error) {
	var (
		name   sql.NullString
		method sql.NullString
		email  sql.NullString
		config []byte
	)
	err := s.db.QueryRowContext(ctx, lenderQuery, lenderID).Scan(&name, &method, &email, &config)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrLenderNotFound
		}
		return nil, fmt.Errorf("query lender %s: %w", lenderID, err)
	}

	return &LenderRecord{
		ID:               lenderID,
		Name:             name.String,
		SubmissionMethod: method.String,
		SubmissionEmail:  email.String,
		SubmissionConfig: json.RawMessage(config),
	}, nil
}

const cacheKeyPrefix = "lender:submission_profile:"

// CachedStore keeps raw lender rows in Redis in front of another Store. Rows are
// cached unvalidated so a fixed lender record takes effect once the entry
// expires. Cache failures never fail a lookup.
type CachedStore struct {
	next   Store
	redis  *redis.Client
	ttl    time.Duration
	logger logger.Logger
}

// NewCachedStore returns next unchanged when redis is nil or ttl is not positive.
func NewCachedStore(next Store, redisClient *redis.Client, ttl time.Duration, log logger.Logger) Store {
	if redisClient == nil || ttl <= 0 {
		return next
	}
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &CachedStore{next: next, redis: redisClient, ttl: ttl, logger: log}
}

func (s *CachedStore) GetLender(ctx context.Context, lenderID string) (*LenderRecord, error) {
	key := cacheKeyPrefix + lenderID

	val, err := s.redis.Get(ctx, key).Result()
	switch {
	case err == nil:
		var rec LenderRecord
		if jsonErr := json.Unmarshal([]byte(val), &rec); jsonErr == nil {
			return &rec, nil
		}
		s.logger.Warn("Discarding unreadable cached lender", map[string]interface{}{"lenderId": lenderID})
	case !errors.Is(err, redis.Nil):
		s.logger.WithError(err).Warn("Lender cache read failed", map[string]interface{}{
			"lenderId": lenderID,
		})
	}

	rec, err := s.next.GetLender(ctx, lenderID)
	if err != nil {
		return nil, err
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return rec, nil
	}
	if err := s.redis.Set(ctx, key, data, s.ttl).Err(); err != nil {
		s.logger.WithError(err).Warn("Lender cache write failed", map[string]interface{}{
			"lenderId": lenderID,
		})
	}
	return rec, nil
}
