package db

import (
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	"marketSimServer/config"
	"marketSimServer/engine"
	"marketSimServer/state"

	"github.com/joho/godotenv"
)

func TestUserChannel(t *testing.T) {
	if got := UserChannel("alice"); got != "market:user:alice" {
		t.Errorf("unexpected channel %q", got)
	}
}

func TestLeaderboardMembers(t *testing.T) {
	members := leaderboardMembers([]state.LeaderboardEntry{
		{Name: "alice", Value: 1000500},
		{Name: "bob", Value: 999500.25},
	})
	if len(members) != 2 {
		t.Fatalf("expected 2 members, got %d", len(members))
	}
	if members[0].Member != "alice" || members[0].Score != 1000500 {
		t.Errorf("unexpected member %+v", members[0])
	}
	if members[1].Score != 999500.25 {
		t.Errorf("unexpected score %v", members[1].Score)
	}
}

func TestRedisPublisher(t *testing.T) {
	_ = godotenv.Load("../.env")

	addr := os.Getenv("REDIS_URL")
	if addr == "" {
		t.Skip("REDIS_URL not set")
	}
	if err := InitRedis(addr, os.Getenv("REDIS_PASSWORD"), 0); err != nil {
		t.Fatalf("Failed to init redis: %v", err)
	}
	defer func() {
		CloseRedis()
		RedisClient = nil
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	sub := RedisClient.Subscribe(ctx, config.RedisEventsChannel, UserChannel("alice"))
	defer sub.Close()
	if _, err := sub.Receive(ctx); err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}

	p := NewRedisPublisher(RedisClient)
	board := []state.LeaderboardEntry{{Name: "alice", Value: 1000500}, {Name: "bob", Value: 999000}}
	p.Broadcast(engine.Event{Type: engine.EventLeaderboardUpdate, Data: board})
	p.SendTo("alice", engine.Event{Type: engine.EventOrderResult, Data: engine.OrderResultPayload{Message: engine.MsgFilled}})
	p.Close()

	seen := map[string]engine.EventType{}
	for len(seen) < 2 {
		msg, err := sub.ReceiveMessage(ctx)
		if err != nil {
			t.Fatalf("receive failed: %v", err)
		}
		var ev struct {
			Type engine.EventType `json:"type"`
		}
		if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
			t.Fatalf("bad payload %q: %v", msg.Payload, err)
		}
		seen[msg.Channel] = ev.Type
	}
	if seen[config.RedisEventsChannel] != engine.EventLeaderboardUpdate {
		t.Errorf("expected leaderboard on the events channel, got %v", seen)
	}
	if seen[UserChannel("alice")] != engine.EventOrderResult {
		t.Errorf("expected order_result on alice's channel, got %v", seen)
	}

	got, err := GetLeaderboard(ctx, 10)
	if err != nil {
		t.Fatalf("GetLeaderboard failed: %v", err)
	}
	if len(got) != 2 || got[0].Name != "alice" || got[1].Value != 999000 {
		t.Errorf("unexpected mirrored leaderboard %+v", got)
	}
}
