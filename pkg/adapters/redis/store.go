package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aretw0/stepflow/pkg/domain"
	backend "github.com/redis/go-redis/v9"
)

// DefaultPrefix namespaces every key written by the store.
const DefaultPrefix = "stepflow:run:"

const (
	fieldGraph   = "graph_id"
	fieldStatus  = "status"
	fieldError   = "error"
	fieldState   = "state"
	fieldStarted = "started_at"
	fieldUpdated = "updated_at"
)

// Store implements ports.RunStore using Redis.
// Each run is a hash (metadata + state JSON) plus a list holding the compact log.
type Store struct {
	client *backend.Client
	prefix string
	ttl    time.Duration
}

type Option func(*Store)

// WithTTL sets the expiration for runs. Zero keeps them until deleted.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		s.ttl = ttl
	}
}

// WithPrefix sets the key prefix for runs.
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = prefix
	}
}

// New creates a new Redis store with options.
func New(address, password string, db int, opts ...Option) *Store {
	rdb := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewFromClient(rdb, opts...)
}

// NewFromClient creates a new Redis store from an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *Store {
	store := &Store{
		client: client,
		prefix: DefaultPrefix,
		ttl:    0, // No expiration by default
	}

	for _, opt := range opts {
		opt(store)
	}

	return store
}

func (s *Store) key(runID string) string {
	return s.prefix + runID
}

func (s *Store) logKey(runID string) string {
	return s.prefix + runID + ":log"
}

func (s *Store) indexKey() string {
	return s.prefix + "index"
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Create registers the run hash and adds it to the index.
func (s *Store) Create(ctx context.Context, run *domain.Run) error {
	state, err := json.Marshal(run.State)
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.Del(ctx, s.logKey(run.ID))
	pipe.HSet(ctx, s.key(run.ID),
		fieldGraph, run.GraphID,
		fieldStatus, string(run.Status),
		fieldError, run.Error,
		fieldState, state,
		fieldStarted, run.StartedAt.UTC().Format(time.RFC3339Nano),
		fieldUpdated, run.UpdatedAt.UTC().Format(time.RFC3339Nano),
	)
	for _, entry := range run.Log {
		data, err := json.Marshal(entry)
		if err != nil {
			return fmt.Errorf("failed to marshal log entry: %w", err)
		}
		pipe.RPush(ctx, s.logKey(run.ID), data)
	}
	s.expire(ctx, pipe, run.ID)

	// Score = Now + TTL. If TTL = 0, Score = +Inf (approx).
	score := float64(time.Now().Add(s.ttl).Unix())
	if s.ttl == 0 {
		score = 4102444800 // 2100-01-01
	}
	pipe.ZAdd(ctx, s.indexKey(), backend.Z{Score: score, Member: run.ID})

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to create run in redis: %w", err)
	}
	return nil
}

func (s *Store) expire(ctx context.Context, pipe backend.Pipeliner, runID string) {
	if s.ttl <= 0 {
		return
	}
	pipe.Expire(ctx, s.key(runID), s.ttl)
	pipe.Expire(ctx, s.logKey(runID), s.ttl)
}

func (s *Store) exists(ctx context.Context, runID string) error {
	n, err := s.client.Exists(ctx, s.key(runID)).Result()
	if err != nil {
		return fmt.Errorf("failed to check run existence: %w", err)
	}
	if n == 0 {
		return domain.ErrRunNotFound
	}
	return nil
}

func (s *Store) setFields(ctx context.Context, runID string, values ...any) error {
	if err := s.exists(ctx, runID); err != nil {
		return err
	}
	values = append(values, fieldUpdated, time.Now().UTC().Format(time.RFC3339Nano))

	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, s.key(runID), values...)
	s.expire(ctx, pipe, runID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to update run in redis: %w", err)
	}
	return nil
}

// SaveSnapshot overwrites the state field of the run.
func (s *Store) SaveSnapshot(ctx context.Context, runID string, state *domain.State) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}
	return s.setFields(ctx, runID, fieldState, data)
}

// AppendLog pushes an entry onto the compact log list.
func (s *Store) AppendLog(ctx context.Context, runID string, entry domain.LogEntry) error {
	if err := s.exists(ctx, runID); err != nil {
		return err
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal log entry: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.RPush(ctx, s.logKey(runID), data)
	pipe.HSet(ctx, s.key(runID), fieldUpdated, time.Now().UTC().Format(time.RFC3339Nano))
	s.expire(ctx, pipe, runID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to append log in redis: %w", err)
	}
	return nil
}

// Finish records the terminal status.
func (s *Store) Finish(ctx context.Context, runID string, status domain.RunStatus, errMsg string) error {
	return s.setFields(ctx, runID, fieldStatus, string(status), fieldError, errMsg)
}

// Load retrieves the run hash and its compact log.
func (s *Store) Load(ctx context.Context, runID string) (*domain.Run, error) {
	pipe := s.client.Pipeline()
	hash := pipe.HGetAll(ctx, s.key(runID))
	logs := pipe.LRange(ctx, s.logKey(runID), 0, -1)
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, backend.Nil) {
		return nil, fmt.Errorf("failed to get from redis: %w", err)
	}

	fields := hash.Val()
	if len(fields) == 0 {
		return nil, domain.ErrRunNotFound
	}

	run := &domain.Run{
		ID:      runID,
		GraphID: fields[fieldGraph],
		Status:  domain.RunStatus(fields[fieldStatus]),
		Error:   fields[fieldError],
		Log:     []domain.LogEntry{},
	}
	if err := json.Unmarshal([]byte(fields[fieldState]), &run.State); err != nil {
		return nil, fmt.Errorf("failed to unmarshal state: %w", err)
	}
	run.StartedAt, _ = time.Parse(time.RFC3339Nano, fields[fieldStarted])
	run.UpdatedAt, _ = time.Parse(time.RFC3339Nano, fields[fieldUpdated])

	for _, raw := range logs.Val() {
		var entry domain.LogEntry
		if err := json.Unmarshal([]byte(raw), &entry); err != nil {
			return nil, fmt.Errorf("failed to unmarshal log entry: %w", err)
		}
		run.Log = append(run.Log, entry)
	}
	return run, nil
}

// List returns known runs, lazily pruning expired ones from the index.
func (s *Store) List(ctx context.Context) ([]string, error) {
	now := float64(time.Now().Unix())

	// ZREMRANGEBYSCORE key -inf (now)
	err := s.client.ZRemRangeByScore(ctx, s.indexKey(), "-inf", fmt.Sprintf("%f", now)).Err()
	if err != nil {
		return nil, fmt.Errorf("failed to prune expired runs: %w", err)
	}

	runs, err := s.client.ZRange(ctx, s.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	return runs, nil
}

// Close closes the redis client.
func (s *Store) Close() error {
	return s.client.Close()
}
