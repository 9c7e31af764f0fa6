package utils

import (
	"context"
	"errors"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"time"

	"github.com/bsm/redislock"
	"github.com/mmdatafocus/returns_backend/config"
	"github.com/sirupsen/logrus"
)

func GetCacheLifespan() time.Duration {
	lifespan, err := strconv.Atoi(os.Getenv("CACHE_LIFESPAN"))
	if err != nil {
		lifespan = 1
	}
	return time.Duration(lifespan) * time.Hour
}

/* generic functions */

func GetTypeName[T any]() string {
	var v T
	typeOfT := reflect.TypeOf(v)
	return typeOfT.Name()
}

/* Redis */

// store instance under Type:$key
func StoreRedis[T any](obj *T, key string) error {
	return config.SetRedisObject(GetTypeName[T]()+":"+key, obj, GetCacheLifespan())
}

// get from redis
// returns nil if does not exist
func RetrieveRedis[T any](key string) (*T, error) {
	var result *T
	exists, err := config.GetRedisObject(GetTypeName[T]()+":"+key, &result)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, nil
	}
	return result, nil
}

// remove an instance, Type:$key
func RemoveRedisItem[T any](keys ...string) error {
	full := make([]string, 0, len(keys))
	for _, k := range keys {
		full = append(full, GetTypeName[T]()+":"+k)
	}
	return config.RemoveRedisKey(full...)
}

// KeyLock is a held Redis lock; Release is safe on a nil lock.
type KeyLock struct {
	lock *redislock.Lock
}

func (l *KeyLock) Release(ctx context.Context) {
	if l == nil || l.lock == nil {
		return
	}
	if err := l.lock.Release(ctx); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
		config.GetLogger().WithFields(logrus.Fields{
			"field": "KeyLock",
			"key":   l.lock.Key(),
		}).Warn("failed to release redis lock: " + err.Error())
	}
}

// TryKeyLock obtains a best-effort Redis lock, retrying for up to wait.
// A nil lock with a nil error means Redis is not connected and the caller
// relies on the database for serialization.
func TryKeyLock(ctx context.Context, key string, ttl time.Duration, wait time.Duration) (*KeyLock, error) {
	locker := config.GetRedisLock()
	if locker == nil {
		return nil, nil
	}
	var opts *redislock.Options
	if wait > 0 {
		attempts := int(wait / (100 * time.Millisecond))
		opts = &redislock.Options{
			RetryStrategy: redislock.LimitRetry(redislock.LinearBackoff(100*time.Millisecond), attempts),
		}
	}
	lock, err := locker.Obtain(ctx, key, ttl, opts)
	if err != nil {
		if errors.Is(err, redislock.ErrNotObtained) {
			return nil, fmt.Errorf("could not obtain lock %s: %w", key, err)
		}
		return nil, err
	}
	return &KeyLock{lock: lock}, nil
}
