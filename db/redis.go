package db

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"marketSimServer/config"
	"marketSimServer/engine"
	"marketSimServer/state"

	"github.com/redis/go-redis/v9"
)

var (
	// RedisClient is the global Redis client instance
	RedisClient *redis.Client
)

// InitRedis initializes the Redis client connection
func InitRedis(addr, password string, dbIndex int) error {
	log.Println("🔌 Connecting to Redis...")

	if addr == "" {
		addr = "localhost:6379"
	}

	RedisClient = redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           dbIndex,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := RedisClient.Ping(ctx).Err(); err != nil {
		RedisClient.Close()
		RedisClient = nil
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}

	log.Printf("✅ Redis connected successfully - URL: %s", addr)
	return nil
}

// CloseRedis closes the Redis connection
func CloseRedis() error {
	if RedisClient != nil {
		log.Println("🔌 Closing Redis connection...")
		return RedisClient.Close()
	}
	return nil
}

// HealthCheck performs a Redis health check
func HealthCheck(ctx context.Context) error {
	if RedisClient == nil {
		return fmt.Errorf("redis not initialized")
	}
	return RedisClient.Ping(ctx).Err()
}

/* =========================
   EVENT MIRROR
   PUBLISH market:events        <- broadcast events
   PUBLISH market:user:{name}   <- per-participant events
   ZSET    market:leaderboard   <- latest valuations
========================= */

type redisMessage struct {
	channel     string
	payload     []byte
	leaderboard []state.LeaderboardEntry
}

// RedisPublisher mirrors engine events onto Redis. Events are queued and
// written by one background goroutine; a full queue drops the event.
type RedisPublisher struct {
	client  *redis.Client
	queue   chan redisMessage
	dropped atomic.Int64

	closeOnce sync.Once
	done      chan struct{}
}

// NewRedisPublisher starts the writer goroutine.
func NewRedisPublisher(client *redis.Client) *RedisPublisher {
	p := &RedisPublisher{
		client: client,
		queue:  make(chan redisMessage, config.RedisPublishBuffer),
		done:   make(chan struct{}),
	}
	go p.run()
	return p
}

// UserChannel returns the pub/sub channel for one participant.
func UserChannel(username string) string {
	return fmt.Sprintf(config.RedisUserChannel, username)
}

// Broadcast queues ev for the shared events channel.
func (p *RedisPublisher) Broadcast(ev engine.Event) {
	p.enqueue(config.RedisEventsChannel, ev)
}

// SendTo queues ev for username's channel.
func (p *RedisPublisher) SendTo(username string, ev engine.Event) {
	p.enqueue(UserChannel(username), ev)
}

// Dropped returns how many events were discarded because the queue was full.
func (p *RedisPublisher) Dropped() int64 { return p.dropped.Load() }

func (p *RedisPublisher) enqueue(channel string, ev engine.Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		log.Printf("❌ Failed to marshal %s event for Redis: %v", ev.Type, err)
		return
	}
	msg := redisMessage{channel: channel, payload: data}
	if ev.Type == engine.EventLeaderboardUpdate {
		if board, ok := ev.Data.([]state.LeaderboardEntry); ok {
			msg.leaderboard = board
		}
	}

	select {
	case p.queue <- msg:
	default:
		if p.dropped.Add(1)%100 == 1 {
			log.Printf("⚠️  Redis publish queue full, dropping %s (total dropped: %d)", ev.Type, p.dropped.Load())
		}
	}
}

func (p *RedisPublisher) run() {
	defer close(p.done)
	for msg := range p.queue {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		if err := p.write(ctx, msg); err != nil {
			log.Printf("⚠️  Redis publish to %s failed: %v", msg.channel, err)
		}
		cancel()
	}
}

func (p *RedisPublisher) write(ctx context.Context, msg redisMessage) error {
	if err := p.client.Publish(ctx, msg.channel, msg.payload).Err(); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	if msg.leaderboard == nil {
		return nil
	}

	// Replace the whole set so departed names never linger.
	pipe := p.client.TxPipeline()
	pipe.Del(ctx, config.RedisLeaderboardKey)
	if members := leaderboardMembers(msg.leaderboard); len(members) > 0 {
		pipe.ZAdd(ctx, config.RedisLeaderboardKey, members...)
		pipe.Expire(ctx, config.RedisLeaderboardKey, config.RedisLeaderboardTTL)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to store leaderboard: %w", err)
	}
	return nil
}

func leaderboardMembers(board []state.LeaderboardEntry) []redis.Z {
	members := make([]redis.Z, 0, len(board))
	for _, e := range board {
		members = append(members, redis.Z{Score: e.Value, Member: e.Name})
	}
	return members
}

// Close waits for the queue to drain. The engine must have stopped first.
func (p *RedisPublisher) Close() {
	p.closeOnce.Do(func() {
		close(p.queue)
	})
	<-p.done
}

// GetLeaderboard reads the mirrored leaderboard, highest value first. A
// non-positive limit returns every entry.
func GetLeaderboard(ctx context.Context, limit int) ([]state.LeaderboardEntry, error) {
	if RedisClient == nil {
		return []state.LeaderboardEntry{}, nil
	}

	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit) - 1
	}
	zs, err := RedisClient.ZRevRangeWithScores(ctx, config.RedisLeaderboardKey, 0, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read leaderboard: %w", err)
	}

	out := make([]state.LeaderboardEntry, 0, len(zs))
	for _, z := range zs {
		name, ok := z.Member.(string)
		if !ok {
			continue
		}
		out = append(out, state.LeaderboardEntry{Name: name, Value: z.Score})
	}
	return out, nil
}
