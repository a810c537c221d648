package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// ErrBindingsNotFound is returned when no bindings are stored under a key
var ErrBindingsNotFound = errors.New("bindings not found")

// BindingsStore keeps named variable bindings in Redis as JSON documents
type BindingsStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	logger *zap.Logger
}

// NewBindingsStore creates a new Redis bindings store. A zero ttl keeps
// bindings until they are deleted.
func NewBindingsStore(client *redis.Client, prefix string, ttl time.Duration, logger *zap.Logger) *BindingsStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BindingsStore{
		client: client,
		prefix: prefix,
		ttl:    ttl,
		logger: logger,
	}
}

func (s *BindingsStore) key(name string) string {
	return s.prefix + name
}

// Save saves bindings under name
func (s *BindingsStore) Save(ctx context.Context, name string, bindings map[string]interface{}) error {
	data, err := json.Marshal(bindings)
	if err != nil {
		return fmt.Errorf("failed to marshal bindings: %w", err)
	}

	if err := s.client.Set(ctx, s.key(name), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save bindings: %w", err)
	}

	s.logger.Debug("saved bindings", zap.String("key", name), zap.Int("variables", len(bindings)))
	return nil
}

// Load loads the bindings stored under name
func (s *BindingsStore) Load(ctx context.Context, name string) (map[string]interface{}, error) {
	data, err := s.client.Get(ctx, s.key(name)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("%w: %s", ErrBindingsNotFound, name)
		}
		return nil, fmt.Errorf("failed to load bindings: %w", err)
	}

	bindings, err := DecodeBindings(data)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal bindings %s: %w", name, err)
	}
	return bindings, nil
}

// Delete deletes the bindings stored under name
func (s *BindingsStore) Delete(ctx context.Context, name string) error {
	if err := s.client.Del(ctx, s.key(name)).Err(); err != nil {
		return fmt.Errorf("failed to delete bindings: %w", err)
	}
	return nil
}

// Exists checks if bindings are stored under name
func (s *BindingsStore) Exists(ctx context.Context, name string) (bool, error) {
	n, err := s.client.Exists(ctx, s.key(name)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check existence: %w", err)
	}
	return n > 0, nil
}

// SetTTL sets a time-to-live for the bindings stored under name
func (s *BindingsStore) SetTTL(ctx context.Context, name string, ttl time.Duration) error {
	if err := s.client.Expire(ctx, s.key(name), ttl).Err(); err != nil {
		return fmt.Errorf("failed to set TTL: %w", err)
	}
	return nil
}

// List returns the names of all stored bindings
func (s *BindingsStore) List(ctx context.Context) ([]string, error) {
	var names []string
	iter := s.client.Scan(ctx, 0, s.prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		names = append(names, strings.TrimPrefix(iter.Val(), s.prefix))
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to list keys: %w", err)
	}
	return names, nil
}

// DecodeBindings decodes a JSON object into bindings. Integral numbers
// become int64 so they meet int arithmetic in expressions; all others
// become float64.
func DecodeBindings(data []byte) (map[string]interface{}, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var bindings map[string]interface{}
	if err := dec.Decode(&bindings); err != nil {
		return nil, err
	}
	return normalizeNumbers(bindings).(map[string]interface{}), nil
}

func normalizeNumbers(v interface{}) interface{} {
	switch v := v.(type) {
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return i
		}
		f, _ := v.Float64()
		return f
	case map[string]interface{}:
		for k, e := range v {
			v[k] = normalizeNumbers(e)
		}
		if v == nil {
			return map[string]interface{}{}
		}
		return v
	case []interface{}:
		for i, e := range v {
			v[i] = normalizeNumbers(e)
		}
		return v
	default:
		return v
	}
}
