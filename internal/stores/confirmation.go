package stores

import (
	"bytes"
	"context"
	"crypto/subtle"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	confirmationRecordVersionV1 = 1

	defaultConfirmationPrefix = "slc"
)

var (
	ErrConfirmationNotFound     = errors.New("confirmation record not found")
	ErrConfirmationCodeMismatch = errors.New("confirmation code mismatch")
	ErrConfirmationBackend      = errors.New("confirmation backend unavailable")
)

// consumeConfirmationLua atomically performs GET→validate→DEL on a
// confirmation record.
// KEYS[1] = record key
// ARGV[1] = provided code hash (32 bytes)
// ARGV[2] = current unix timestamp (int string)
//
// Returns:
//
//	record bytes on success
//	error string: "not_found", "code_mismatch"
//
// A mismatch does NOT delete the record: the caller may retry with the
// correct code until the TTL elapses.
var consumeConfirmationLua = redis.NewScript(`
local data = redis.call('GET', KEYS[1])
if not data then
  return {err='not_found'}
end

local providedHash = ARGV[1]
local nowUnix = tonumber(ARGV[2])

-- Layout: version(1) issuedAt(8 big-endian) expiresAt(8 big-endian) codeHash(32)
local version = string.byte(data, 1)
if version ~= 1 then
  redis.call('DEL', KEYS[1])
  return {err='not_found'}
end

local e0,e1,e2,e3,e4,e5,e6,e7 = string.byte(data, 10, 17)
local expiresAt = e0
for _, b in ipairs({e1,e2,e3,e4,e5,e6,e7}) do
  expiresAt = expiresAt * 256 + b
end

if nowUnix > expiresAt then
  redis.call('DEL', KEYS[1])
  return {err='not_found'}
end

local storedHash = string.sub(data, 18, 49)
if storedHash ~= providedHash then
  return {err='code_mismatch'}
end

redis.call('DEL', KEYS[1])
return data
`)

// ConfirmationRecord is the stored form of an issued code. The plaintext
// code never touches Redis; only its SHA-256 hash does.
type ConfirmationRecord struct {
	CodeHash  [32]byte
	IssuedAt  int64
	ExpiresAt int64
}

// ConfirmationStore keeps at most one live record per
// (namespace, tenant, subject) triple. Save unconditionally supersedes.
type ConfirmationStore struct {
	redis   redis.UniversalClient
	prefix  string
	timeout time.Duration
}

func NewConfirmationStore(redisClient redis.UniversalClient, prefix string, opTimeout time.Duration) *ConfirmationStore {
	if prefix == "" {
		prefix = defaultConfirmationPrefix
	}
	return &ConfirmationStore{
		redis:   redisClient,
		prefix:  prefix,
		timeout: opTimeout,
	}
}

func (s *ConfirmationStore) key(namespace, tenantID, subject string) string {
	return s.prefix + ":" + namespace + ":" + normalizeTenantID(tenantID) + ":" + subject
}

func (s *ConfirmationStore) opContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.timeout)
}

// Save writes the record under its TTL, silently replacing any prior
// unconsumed record for the same triple. The superseded code is dead from
// this point on, well before its own TTL would have elapsed.
func (s *ConfirmationStore) Save(
	ctx context.Context,
	namespace, tenantID, subject string,
	record *ConfirmationRecord,
	ttl time.Duration,
) error {
	encoded, err := encodeConfirmationRecord(record)
	if err != nil {
		return err
	}

	ctx, cancel := s.opContext(ctx)
	defer cancel()

	if err := s.redis.Set(ctx, s.key(namespace, tenantID, subject), encoded, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrConfirmationBackend, err)
	}
	return nil
}

// Consume validates the provided hash against the live record and deletes
// it in the same atomic server-side step. now drives the embedded expiry
// check so tests can inject a clock; the Redis TTL covers real time.
func (s *ConfirmationStore) Consume(
	ctx context.Context,
	namespace, tenantID, subject string,
	providedHash [32]byte,
	now time.Time,
) (*ConfirmationRecord, error) {
	key := s.key(namespace, tenantID, subject)

	ctx, cancel := s.opContext(ctx)
	defer cancel()

	result, err := consumeConfirmationLua.Run(ctx, s.redis,
		[]string{key},
		string(providedHash[:]),
		now.Unix(),
	).Result()

	if err != nil {
		switch err.Error() {
		case "not_found":
			return nil, ErrConfirmationNotFound
		case "code_mismatch":
			return nil, ErrConfirmationCodeMismatch
		default:
			return nil, fmt.Errorf("%w: %v", ErrConfirmationBackend, err)
		}
	}

	data, ok := result.(string)
	if !ok {
		return nil, fmt.Errorf("%w: unexpected lua result type", ErrConfirmationBackend)
	}

	record, decErr := decodeConfirmationRecord([]byte(data))
	if decErr != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfirmationBackend, decErr)
	}

	// Final constant-time comparison in Go as defense-in-depth
	// (Lua already checked, but Lua string comparison is not constant-time)
	if subtle.ConstantTimeCompare(record.CodeHash[:], providedHash[:]) != 1 {
		return nil, ErrConfirmationCodeMismatch
	}

	return record, nil
}

// Delete removes a record without validation. Deleting an absent key is a
// no-op.
func (s *ConfirmationStore) Delete(ctx context.Context, namespace, tenantID, subject string) error {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	if err := s.redis.Del(ctx, s.key(namespace, tenantID, subject)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrConfirmationBackend, err)
	}
	return nil
}

func encodeConfirmationRecord(record *ConfirmationRecord) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteByte(confirmationRecordVersionV1)
	if err := binary.Write(&buf, binary.BigEndian, record.IssuedAt); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.BigEndian, record.ExpiresAt); err != nil {
		return nil, err
	}
	buf.Write(record.CodeHash[:])

	return buf.Bytes(), nil
}

func decodeConfirmationRecord(data []byte) (*ConfirmationRecord, error) {
	reader := bytes.NewReader(data)

	version, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	if version != confirmationRecordVersionV1 {
		return nil, errors.New("invalid confirmation record version")
	}

	record := &ConfirmationRecord{}
	if err := binary.Read(reader, binary.BigEndian, &record.IssuedAt); err != nil {
		return nil, err
	}
	if err := binary.Read(reader, binary.BigEndian, &record.ExpiresAt); err != nil {
		return nil, err
	}
	if _, err := io.ReadFull(reader, record.CodeHash[:]); err != nil {
		return nil, err
	}

	return record, nil
}
