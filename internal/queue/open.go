package queue

import (
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

// Backend names accepted by Open.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
	BackendKafka  = "kafka"
)

// Options selects and configures an outcome stream backend.
type Options struct {
	Backend string
	Redis   *redis.Client
	Key     string // redis list key or kafka topic
	Brokers []string
	GroupID string
	Size    int // in-memory buffer
	Logger  *slog.Logger
}

// Open returns the queue for opts.Backend and a close func for it.
func Open(opts Options) (Queue, func() error, error) {
	noop := func() error { return nil }
	switch opts.Backend {
	case "", BackendMemory:
		size := opts.Size
		if size <= 0 {
			size = 64
		}
		return NewInMemory(size), noop, nil
	case BackendRedis:
		if opts.Redis == nil {
			return nil, nil, fmt.Errorf("redis backend needs a client")
		}
		q := NewRedisQueue(opts.Redis, opts.Key)
		if opts.Logger != nil {
			q.log = opts.Logger
		}
		return q, noop, nil
	case BackendKafka:
		if len(opts.Brokers) == 0 {
			return nil, nil, fmt.Errorf("kafka backend needs brokers")
		}
		q := NewKafkaQueue(opts.Brokers, opts.Key, opts.GroupID, opts.Logger)
		return q, q.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown queue backend %q", opts.Backend)
	}
}
