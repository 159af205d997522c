package stores

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultTempDataPrefix = "slt"

var (
	ErrTempDataNotFound = errors.New("temp data not found")
	ErrTempDataBackend  = errors.New("temp data backend unavailable")
	ErrUnknownNamespace = errors.New("unknown temp data namespace")
)

// TempDataStore is a put/get/delete-with-TTL store over opaque blobs,
// namespaced per action type. The namespace set is fixed at construction;
// an unknown namespace fails fast instead of writing under a stray key.
type TempDataStore struct {
	redis      redis.UniversalClient
	prefix     string
	timeout    time.Duration
	namespaces map[string]struct{}
}

func NewTempDataStore(
	redisClient redis.UniversalClient,
	prefix string,
	opTimeout time.Duration,
	namespaces []string,
) *TempDataStore {
	if prefix == "" {
		prefix = defaultTempDataPrefix
	}

	allowed := make(map[string]struct{}, len(namespaces))
	for _, ns := range namespaces {
		allowed[ns] = struct{}{}
	}

	return &TempDataStore{
		redis:      redisClient,
		prefix:     prefix,
		timeout:    opTimeout,
		namespaces: allowed,
	}
}

func (s *TempDataStore) key(namespace, tenantID, subject string) (string, error) {
	if _, ok := s.namespaces[namespace]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownNamespace, namespace)
	}
	return s.prefix + ":" + namespace + ":" + normalizeTenantID(tenantID) + ":" + subject, nil
}

func (s *TempDataStore) opContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.timeout)
}

// Put stores value for ttl, replacing any prior blob under the same key.
func (s *TempDataStore) Put(
	ctx context.Context,
	namespace, tenantID, subject string,
	value []byte,
	ttl time.Duration,
) error {
	key, err := s.key(namespace, tenantID, subject)
	if err != nil {
		return err
	}

	ctx, cancel := s.opContext(ctx)
	defer cancel()

	if err := s.redis.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrTempDataBackend, err)
	}
	return nil
}

// Get returns the stored blob. An expired blob is reported exactly like a
// never-written one.
func (s *TempDataStore) Get(ctx context.Context, namespace, tenantID, subject string) ([]byte, error) {
	key, err := s.key(namespace, tenantID, subject)
	if err != nil {
		return nil, err
	}

	ctx, cancel := s.opContext(ctx)
	defer cancel()

	data, err := s.redis.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrTempDataNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrTempDataBackend, err)
	}
	return data, nil
}

// Delete removes the blob. Deleting an absent key is a no-op.
func (s *TempDataStore) Delete(ctx context.Context, namespace, tenantID, subject string) error {
	key, err := s.key(namespace, tenantID, subject)
	if err != nil {
		return err
	}

	ctx, cancel := s.opContext(ctx)
	defer cancel()

	if err := s.redis.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrTempDataBackend, err)
	}
	return nil
}

func normalizeTenantID(tenantID string) string {
	if tenantID == "" {
		return "0"
	}
	return tenantID
}
