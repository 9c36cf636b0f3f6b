package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"fulfillment-service/internal/service"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// снимаем блокировку только своим токеном
var unlockScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// продлеваем только свою блокировку
var refreshScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("pexpire", KEYS[1], ARGV[2])
end
return 0
`)

type RedisClient struct {
	client  *redis.Client
	log     *zap.Logger
	lockTTL time.Duration
	// сколько ждать занятую блокировку, прежде чем вернуть ErrLockBusy
	lockWait time.Duration
}

var _ service.Locker = (*RedisClient)(nil)

func NewRedisClient(addr, password string, db int, lockTTL time.Duration, log *zap.Logger) (*RedisClient, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	log.Info("Redis connected successfully", zap.String("addr", addr))

	if lockTTL <= 0 {
		lockTTL = 30 * time.Second
	}
	return &RedisClient{
		client:   rdb,
		log:      log,
		lockTTL:  lockTTL,
		lockWait: 10 * time.Second,
	}, nil
}

func (r *RedisClient) Close() error {
	return r.client.Close()
}

// Lock: распределённая блокировка SET NX PX. TTL защищает от зависшего владельца.
func (r *RedisClient) Lock(ctx context.Context, key string) (func(), error) {
	k := "lock:" + key
	token := uuid.NewString()

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 25 * time.Millisecond
	b.MaxInterval = 500 * time.Millisecond
	b.MaxElapsedTime = r.lockWait

	err := backoff.Retry(func() error {
		ok, err := r.client.SetNX(ctx, k, token, r.lockTTL).Result()
		if err != nil {
			return backoff.Permanent(err)
		}
		if !ok {
			return service.ErrLockBusy
		}
		return nil
	}, backoff.WithContext(b, ctx))
	if err != nil {
		if errors.Is(err, service.ErrLockBusy) {
			r.log.Warn("lock is busy", zap.String("key", key))
		}
		return nil, err
	}

	// пока блокировка у нас, TTL продлевается: вызовы Stripe под ней могут идти дольше lockTTL
	stop := make(chan struct{})
	done := make(chan struct{})
	go r.keepAlive(k, token, stop, done)

	var once sync.Once
	return func() {
		once.Do(func() {
			close(stop)
			<-done

			// исходный ctx мог быть уже отменён
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if err := unlockScript.Run(ctx, r.client, []string{k}, token).Err(); err != nil {
				r.log.Warn("failed to release lock", zap.String("key", key), zap.Error(err))
			}
		})
	}, nil
}

func (r *RedisClient) keepAlive(k, token string, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	t := time.NewTicker(r.lockTTL / 3)
	defer t.Stop()
	for {
		select {
		case <-stop:
			return
		case <-t.C:
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			n, err := refreshScript.Run(ctx, r.client, []string{k}, token, r.lockTTL.Milliseconds()).Int()
			cancel()
			if err != nil {
				r.log.Warn("failed to extend lock", zap.String("key", k), zap.Error(err))
				continue
			}
			if n == 0 {
				r.log.Error("lock lost before release", zap.String("key", k))
				return
			}
		}
	}
}
