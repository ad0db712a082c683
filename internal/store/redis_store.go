package store

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	redis "github.com/redis/go-redis/v9"

	"pivothunt/pkg/models"
)

// ErrNotFound marks a missing baseline or saved search.
var ErrNotFound = errors.New("not found")

// RedisConfig configures Redis access for baseline persistence.
type RedisConfig struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
}

// RedisStore persists baselines and saved searches as JSON blobs with a
// set-based index per kind.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore constructs a Redis-backed store.
func NewRedisStore(cfg RedisConfig) (*RedisStore, error) {
	if strings.TrimSpace(cfg.Addr) == "" {
		cfg.Addr = "127.0.0.1:6379"
	}
	if strings.TrimSpace(cfg.KeyPrefix) == "" {
		cfg.KeyPrefix = "pivothunt"
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis store: %w", err)
	}

	return &RedisStore{client: client, prefix: strings.TrimSpace(cfg.KeyPrefix)}, nil
}

// SaveBaseline stores a baseline. Baselines are immutable after save.
func (s *RedisStore) SaveBaseline(ctx context.Context, b *models.Baseline) error {
	payload, err := json.Marshal(b)
	if err != nil {
		return fmt.Errorf("marshal baseline: %w", err)
	}
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.baselineKey(b.ID), payload, 0)
	pipe.SAdd(ctx, s.baselineIndexKey(), b.ID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("save baseline: %w", err)
	}
	return nil
}

// GetBaseline loads one baseline with its snapshot payload.
func (s *RedisStore) GetBaseline(ctx context.Context, id string) (*models.Baseline, error) {
	raw, err := s.client.Get(ctx, s.baselineKey(id)).Result()
	if err == redis.Nil {
		return nil, fmt.Errorf("baseline %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load baseline: %w", err)
	}
	var b models.Baseline
	if err := json.Unmarshal([]byte(raw), &b); err != nil {
		return nil, fmt.Errorf("decode baseline: %w", err)
	}
	return &b, nil
}

// ListBaselines returns baseline metadata, newest first, without loading
// snapshot payloads into the response.
func (s *RedisStore) ListBaselines(ctx context.Context) ([]models.BaselineInfo, error) {
	ids, err := s.client.SMembers(ctx, s.baselineIndexKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("list baselines: %w", err)
	}

	infos := make([]models.BaselineInfo, 0, len(ids))
	for _, id := range ids {
		b, err := s.GetBaseline(ctx, id)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				continue
			}
			return nil, err
		}
		infos = append(infos, models.BaselineInfo{
			ID:          b.ID,
			Name:        b.Name,
			Description: b.Description,
			AgentIDs:    b.AgentIDs,
			CreatedAt:   b.CreatedAt,
		})
	}
	sort.Slice(infos, func(i, j int) bool {
		if !infos[i].CreatedAt.Equal(infos[j].CreatedAt) {
			return infos[i].CreatedAt.After(infos[j].CreatedAt)
		}
		return infos[i].ID < infos[j].ID
	})
	return infos, nil
}

// DeleteBaseline removes one baseline.
func (s *RedisStore) DeleteBaseline(ctx context.Context, id string) error {
	removed, err := s.client.Del(ctx, s.baselineKey(id)).Result()
	if err != nil {
		return fmt.Errorf("delete baseline: %w", err)
	}
	if err := s.client.SRem(ctx, s.baselineIndexKey(), id).Err(); err != nil {
		return fmt.Errorf("delete baseline index entry: %w", err)
	}
	if removed == 0 {
		return fmt.Errorf("baseline %s: %w", id, ErrNotFound)
	}
	return nil
}

// SaveSearch stores a named indicator query.
func (s *RedisStore) SaveSearch(ctx context.Context, search *models.SavedSearch) error {
	payload, err := json.Marshal(search)
	if err != nil {
		return fmt.Errorf("marshal saved search: %w", err)
	}
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.searchKey(search.ID), payload, 0)
	pipe.SAdd(ctx, s.searchIndexKey(), search.ID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("save search: %w", err)
	}
	return nil
}

// ListSearches returns all saved searches, newest first.
func (s *RedisStore) ListSearches(ctx context.Context) ([]models.SavedSearch, error) {
	ids, err := s.client.SMembers(ctx, s.searchIndexKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("list searches: %w", err)
	}

	searches := make([]models.SavedSearch, 0, len(ids))
	for _, id := range ids {
		raw, err := s.client.Get(ctx, s.searchKey(id)).Result()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("load search: %w", err)
		}
		var search models.SavedSearch
		if err := json.Unmarshal([]byte(raw), &search); err != nil {
			return nil, fmt.Errorf("decode search: %w", err)
		}
		searches = append(searches, search)
	}
	sort.Slice(searches, func(i, j int) bool {
		if !searches[i].CreatedAt.Equal(searches[j].CreatedAt) {
			return searches[i].CreatedAt.After(searches[j].CreatedAt)
		}
		return searches[i].ID < searches[j].ID
	})
	return searches, nil
}

// DeleteSearch removes one saved search.
func (s *RedisStore) DeleteSearch(ctx context.Context, id string) error {
	removed, err := s.client.Del(ctx, s.searchKey(id)).Result()
	if err != nil {
		return fmt.Errorf("delete search: %w", err)
	}
	if err := s.client.SRem(ctx, s.searchIndexKey(), id).Err(); err != nil {
		return fmt.Errorf("delete search index entry: %w", err)
	}
	if removed == 0 {
		return fmt.Errorf("search %s: %w", id, ErrNotFound)
	}
	return nil
}

// Close closes Redis resources.
func (s *RedisStore) Close() error {
	if s == nil || s.client == nil {
		return nil
	}
	return s.client.Close()
}

// NewID returns a random identifier for stored objects.
func NewID() string {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return time.Now().UTC().Format("20060102150405.000000000")
	}
	return hex.EncodeToString(buf)
}

func (s *RedisStore) baselineKey(id string) string {
	return s.prefix + ":baseline:" + id
}

func (s *RedisStore) baselineIndexKey() string {
	return s.prefix + ":baselines"
}

func (s *RedisStore) searchKey(id string) string {
	return s.prefix + ":search:" + id
}

func (s *RedisStore) searchIndexKey() string {
	return s.prefix + ":searches"
}
