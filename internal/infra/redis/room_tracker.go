package redis

import (
	"context"
	"log/slog"
	"sort"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const activeRoomsKey = "live:rooms"

// RoomTracker records which competition rooms have connections. Rooms live in
// the live:rooms set, and each room also gets a live:room:{id} marker with a
// TTL. Instances refresh the markers of their open rooms by calling RoomOpened
// again; a room whose marker expired (its instance crashed) is dropped from
// the set on the next ActiveRooms.
type RoomTracker struct {
	client *redis.Client
	ttl    time.Duration
	log    *slog.Logger
}

func NewRoomTracker(client *redis.Client, ttl time.Duration, log *slog.Logger) *RoomTracker {
	if log == nil {
		log = slog.Default()
	}
	return &RoomTracker{client: client, ttl: ttl, log: log}
}

func (t *RoomTracker) RoomOpened(ctx context.Context, competitionID int64) {
	id := strconv.FormatInt(competitionID, 10)
	pipe := t.client.TxPipeline()
	pipe.SAdd(ctx, activeRoomsKey, id)
	pipe.Set(ctx, roomKey(id), "1", t.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		t.log.Warn("track room opened", slog.Int64("competition_id", competitionID), slog.Any("error", err))
	}
}

func (t *RoomTracker) RoomClosed(ctx context.Context, competitionID int64) {
	id := strconv.FormatInt(competitionID, 10)
	pipe := t.client.TxPipeline()
	pipe.SRem(ctx, activeRoomsKey, id)
	pipe.Del(ctx, roomKey(id))
	if _, err := pipe.Exec(ctx); err != nil {
		t.log.Warn("track room closed", slog.Int64("competition_id", competitionID), slog.Any("error", err))
	}
}

func (t *RoomTracker) ActiveRooms(ctx context.Context) ([]int64, error) {
	members, err := t.client.SMembers(ctx, activeRoomsKey).Result()
	if err != nil {
		return nil, err
	}
	if len(members) == 0 {
		return []int64{}, nil
	}

	pipe := t.client.Pipeline()
	markers := make([]*redis.IntCmd, len(members))
	for i, m := range members {
		markers[i] = pipe.Exists(ctx, roomKey(m))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, err
	}

	out := make([]int64, 0, len(members))
	var expired []interface{}
	for i, m := range members {
		if markers[i].Val() == 0 {
			expired = append(expired, m)
			continue
		}
		id, err := strconv.ParseInt(m, 10, 64)
		if err != nil {
			continue
		}
		out = append(out, id)
	}
	if len(expired) > 0 {
		if err := t.client.SRem(ctx, activeRoomsKey, expired...).Err(); err != nil {
			t.log.Warn("prune expired rooms", slog.Any("error", err))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

func roomKey(id string) string {
	return "live:room:" + id
}
