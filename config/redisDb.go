package config

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"strings"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
)

var (
	rdb    *redis.Client
	locker *redislock.Client
)
var rctx = context.Background()

func GetRedisDB() *redis.Client {
	return rdb
}

func GetRedisLock() *redislock.Client {
	return locker
}

// ConnectRedisWithRetry connects and sets the global Redis client + lock client.
// Redis is a best-effort dependency here (cache + job locks); if REDIS_ADDRESS is
// unset the app runs without it and every helper below degrades to a no-op.
func ConnectRedisWithRetry() {
	address := strings.TrimSpace(os.Getenv("REDIS_ADDRESS"))
	if address == "" {
		log.Println("REDIS_ADDRESS not set; running without Redis cache/locks")
		return
	}

	client := redis.NewClient(&redis.Options{
		Addr:     address,
		Password: os.Getenv("REDIS_PASSWORD"),
	})

	var attempt int
	for {
		attempt++
		err := client.Ping(rctx).Err()
		if err == nil {
			rdb = client
			locker = redislock.New(client)
			log.Println("Connected to Redis")
			return
		}
		if attempt >= 5 {
			log.Printf("redis unreachable after %d attempts: %v; continuing without Redis", attempt, err)
			return
		}
		sleep := backoff(attempt)
		log.Printf("redis connect attempt %d failed: %v; retrying in %s", attempt, err, sleep)
		time.Sleep(sleep)
	}
}

func GetRedisObject(key string, dest interface{}) (bool, error) {
	if rdb == nil {
		return false, nil
	}
	val, err := rdb.Get(rctx, key).Result()
	if err != nil {
		if err == redis.Nil {
			return false, nil
		}
		return false, err
	}
	err = json.Unmarshal([]byte(val), &dest)
	if err != nil {
		return false, err
	}
	return true, nil
}

func SetRedisObject(key string, obj interface{}, exp time.Duration) error {
	if rdb == nil {
		return nil
	}
	objInByte, err := json.Marshal(obj)
	if err != nil {
		return err
	}
	if err = rdb.Set(rctx, key, objInByte, exp).Err(); err != nil {
		return err
	}
	return nil
}

func DeleteRedisKeys(keys ...string) error {
	if rdb == nil || len(keys) == 0 {
		return nil
	}
	return rdb.Del(rctx, keys...).Err()
}
