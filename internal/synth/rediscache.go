package synth

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"dubber/internal/audio"
)

const (
	defaultRedisPrefix = "dubber:tts:"
	redisMagic         = "DUB1"
	redisHeaderLen     = len(redisMagic) + 4
)

var errRedisPayload = errors.New("redis cache: malformed payload")

// RedisClient is the subset of *redis.Client used by RedisCache.
type RedisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
}

// RedisCache shares synthesized clips between hosts. Entries expire after TTL
// when it is positive.
type RedisCache struct {
	client RedisClient
	prefix string
	ttl    time.Duration
}

// RedisOptions configures DialRedis.
type RedisOptions struct {
	Addr        string
	Password    string
	DB          int
	DialTimeout time.Duration
}

// DialRedis connects and pings the server.
func DialRedis(ctx context.Context, opts RedisOptions) (*redis.Client, error) {
	if strings.TrimSpace(opts.Addr) == "" {
		return nil, errors.New("redis cache: address required")
	}
	if opts.DialTimeout <= 0 {
		opts.DialTimeout = 5 * time.Second
	}
	client := redis.NewClient(&redis.Options{
		Addr:        opts.Addr,
		Password:    opts.Password,
		DB:          opts.DB,
		DialTimeout: opts.DialTimeout,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis cache: ping %s: %w", opts.Addr, err)
	}
	return client, nil
}

// NewRedisCache wraps client. An empty prefix uses "dubber:tts:".
func NewRedisCache(client RedisClient, prefix string, ttl time.Duration) *RedisCache {
	if prefix == "" {
		prefix = defaultRedisPrefix
	}
	return &RedisCache{client: client, prefix: prefix, ttl: ttl}
}

func (c *RedisCache) redisKey(key Key) string {
	return c.prefix + string(key)
}

func (c *RedisCache) Get(ctx context.Context, key Key) (audio.Clip, bool, error) {
	data, err := c.client.Get(ctx, c.redisKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return audio.Clip{}, false, nil
	}
	if err != nil {
		return audio.Clip{}, false, fmt.Errorf("redis cache: get: %w", err)
	}
	clip, err := decodeRedisClip(data)
	if err != nil {
		return audio.Clip{}, false, nil
	}
	return clip, true, nil
}

func (c *RedisCache) Put(ctx context.Context, key Key, clip audio.Clip) error {
	if err := c.client.Set(ctx, c.redisKey(key), encodeRedisClip(clip), c.ttl).Err(); err != nil {
		return fmt.Errorf("redis cache: set: %w", err)
	}
	return nil
}

func encodeRedisClip(clip audio.Clip) []byte {
	var buf bytes.Buffer
	buf.Grow(redisHeaderLen + len(clip.Samples)*2)
	buf.WriteString(redisMagic)
	var rate [4]byte
	binary.LittleEndian.PutUint32(rate[:], uint32(clip.SampleRate))
	buf.Write(rate[:])
	buf.Write(audio.EncodeS16LE(clip))
	return buf.Bytes()
}

func decodeRedisClip(data []byte) (audio.Clip, error) {
	if len(data) < redisHeaderLen || string(data[:len(redisMagic)]) != redisMagic {
		return audio.Clip{}, errRedisPayload
	}
	rate := int(binary.LittleEndian.Uint32(data[len(redisMagic):redisHeaderLen]))
	if rate <= 0 {
		return audio.Clip{}, errRedisPayload
	}
	return audio.DecodeS16LE(data[redisHeaderLen:], rate)
}
