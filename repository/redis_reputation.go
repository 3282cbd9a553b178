package repository

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/kushal-naga-sai-balaji/Phishing-detection-system/models"
)

const (
	reputationKeyPrefix = "rep:ip:"
	reputationIndexKey  = "rep:index"
)

// RedisReputationStore keeps one hash per source plus a set indexing every
// known source, so LoadAll needs no SCAN.
type RedisReputationStore struct {
	client *redis.Client
}

func NewRedisReputationStore(client *redis.Client) *RedisReputationStore {
	return &RedisReputationStore{client: client}
}

func reputationKey(ip string) string {
	return reputationKeyPrefix + ip
}

func (s *RedisReputationStore) LoadAll(ctx context.Context) ([]models.IPRecord, error) {
	ips, err := s.client.SMembers(ctx, reputationIndexKey).Result()
	if err != nil {
		return nil, fmt.Errorf("read reputation index: %w", err)
	}
	if len(ips) == 0 {
		return nil, nil
	}

	pipe := s.client.Pipeline()
	cmds := make([]*redis.MapStringStringCmd, len(ips))
	for i, ip := range ips {
		cmds[i] = pipe.HGetAll(ctx, reputationKey(ip))
	}
	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		return nil, fmt.Errorf("read reputation records: %w", err)
	}

	recs := make([]models.IPRecord, 0, len(ips))
	for i, ip := range ips {
		fields, err := cmds[i].Result()
		if err != nil || len(fields) == 0 {
			continue
		}
		rec, err := parseReputation(ip, fields)
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	return recs, nil
}

func parseReputation(ip string, fields map[string]string) (models.IPRecord, error) {
	rec := models.IPRecord{SourceID: ip}
	var err error
	if rec.Attempts, err = strconv.Atoi(fields["attempts"]); err != nil {
		return rec, fmt.Errorf("record %s: attempts: %w", ip, err)
	}
	if rec.BlockedUntil, err = strconv.ParseFloat(fields["blocked_until"], 64); err != nil {
		return rec, fmt.Errorf("record %s: blocked_until: %w", ip, err)
	}
	if rec.LastSeen, err = strconv.ParseFloat(fields["last_seen"], 64); err != nil {
		return rec, fmt.Errorf("record %s: last_seen: %w", ip, err)
	}
	return rec, nil
}

func (s *RedisReputationStore) Upsert(ctx context.Context, rec models.IPRecord) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, reputationKey(rec.SourceID),
			"attempts", rec.Attempts,
			"blocked_until", strconv.FormatFloat(rec.BlockedUntil, 'f', -1, 64),
			"last_seen", strconv.FormatFloat(rec.LastSeen, 'f', -1, 64),
		)
		pipe.SAdd(ctx, reputationIndexKey, rec.SourceID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("write reputation for %s: %w", rec.SourceID, err)
	}
	return nil
}

func (s *RedisReputationStore) Delete(ctx context.Context, ip string) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, reputationKey(ip))
		pipe.SRem(ctx, reputationIndexKey, ip)
		return nil
	})
	if err != nil {
		return fmt.Errorf("delete reputation for %s: %w", ip, err)
	}
	return nil
}

func (s *RedisReputationStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
