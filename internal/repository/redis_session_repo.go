package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hitoshi/gameforum/internal/model"
	"github.com/redis/go-redis/v9"
)

// redisSessionRecord はRedisに保存するセッションのJSON表現。
type redisSessionRecord struct {
	UserID    string          `json:"user_id"`
	Data      json.RawMessage `json:"data"`
	ExpiresAt time.Time       `json:"expires_at"`
	CreatedAt time.Time       `json:"created_at"`
}

// RedisSessionRepo はRedisを使用したセッションリポジトリ。
// セッション本体はTTL付きのキーに、ユーザーごとのセッションIDはSETに保存する。
type RedisSessionRepo struct {
	client redis.UniversalClient
	prefix string
	now    func() time.Time
}

// NewRedisSessionRepo はRedisSessionRepoを生成する。
// prefixはキーの名前空間（例: "gameforum"）。
func NewRedisSessionRepo(client redis.UniversalClient, prefix string) *RedisSessionRepo {
	if prefix == "" {
		prefix = "gameforum"
	}
	return &RedisSessionRepo{client: client, prefix: prefix, now: time.Now}
}

func (r *RedisSessionRepo) sessionKey(id string) string {
	return r.prefix + ":session:" + id
}

func (r *RedisSessionRepo) userKey(userID string) string {
	return r.prefix + ":user_sessions:" + userID
}

// Create はセッションを作成する。キーのTTLはExpiresAtまでの残り時間。
func (r *RedisSessionRepo) Create(ctx context.Context, session *model.Session) error {
	ttl := session.ExpiresAt.Sub(r.now())
	if ttl <= 0 {
		return fmt.Errorf("failed to create session: already expired")
	}

	payload, err := encodeRedisSession(session)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, r.sessionKey(session.ID), payload, ttl)
		pipe.SAdd(ctx, r.userKey(session.UserID), session.ID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}

	if err := r.pruneIndex(ctx, session.UserID); err != nil {
		return fmt.Errorf("failed to prune user sessions: %w", err)
	}
	if err := r.extendIndex(ctx, session.UserID, ttl); err != nil {
		return fmt.Errorf("failed to index session: %w", err)
	}
	return nil
}

// FindByID は指定IDのセッションを取得する。期限切れまたは存在しない場合はnilを返す。
func (r *RedisSessionRepo) FindByID(ctx context.Context, id string) (*model.Session, error) {
	record, err := r.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if record == nil || !r.now().Before(record.ExpiresAt) {
		return nil, nil
	}

	return &model.Session{
		ID:        id,
		UserID:    record.UserID,
		Data:      []byte(record.Data),
		ExpiresAt: record.ExpiresAt,
		CreatedAt: record.CreatedAt,
	}, nil
}

// Touch はセッションの有効期限を延長する。存在しないセッションは延長しない。
func (r *RedisSessionRepo) Touch(ctx context.Context, id string, expiresAt time.Time) error {
	record, err := r.get(ctx, id)
	if err != nil {
		return err
	}
	if record == nil {
		return nil
	}

	ttl := expiresAt.Sub(r.now())
	if ttl <= 0 {
		return nil
	}
	record.ExpiresAt = expiresAt

	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}

	// XX: 並行してログアウトされたセッションを復活させない
	if err := r.client.SetXX(ctx, r.sessionKey(id), payload, ttl).Err(); err != nil {
		return fmt.Errorf("failed to touch session: %w", err)
	}
	if err := r.extendIndex(ctx, record.UserID, ttl); err != nil {
		return fmt.Errorf("failed to index session: %w", err)
	}
	return nil
}

// DeleteByID は指定IDのセッションを削除する。存在しない場合は何もしない。
func (r *RedisSessionRepo) DeleteByID(ctx context.Context, id string) error {
	record, err := r.get(ctx, id)
	if err != nil {
		return err
	}
	if record == nil {
		return nil
	}

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, r.sessionKey(id))
		pipe.SRem(ctx, r.userKey(record.UserID), id)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// DeleteByUserID は指定ユーザーの全セッションを削除する。
func (r *RedisSessionRepo) DeleteByUserID(ctx context.Context, userID string) error {
	ids, err := r.client.SMembers(ctx, r.userKey(userID)).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("failed to list user sessions: %w", err)
	}

	keys := make([]string, 0, len(ids)+1)
	for _, id := range ids {
		keys = append(keys, r.sessionKey(id))
	}
	keys = append(keys, r.userKey(userID))

	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to delete user sessions: %w", err)
	}
	return nil
}

// extendIndex はユーザーのセッションIDセットのTTLを、最も遅く失効するセッションまで延ばす。
func (r *RedisSessionRepo) extendIndex(ctx context.Context, userID string, ttl time.Duration) error {
	key := r.userKey(userID)
	current, err := r.client.TTL(ctx, key).Result()
	if err != nil {
		return err
	}
	// 負の値はTTLなし(-1)またはキーなし(-2)
	if current >= ttl {
		return nil
	}
	return r.client.Expire(ctx, key, ttl).Err()
}

// pruneIndex はユーザーのセッションIDセットから失効済みのIDを取り除く。
func (r *RedisSessionRepo) pruneIndex(ctx context.Context, userID string) error {
	key := r.userKey(userID)
	ids, err := r.client.SMembers(ctx, key).Result()
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}

	exists := make([]*redis.IntCmd, len(ids))
	_, err = r.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, id := range ids {
			exists[i] = pipe.Exists(ctx, r.sessionKey(id))
		}
		return nil
	})
	if err != nil {
		return err
	}

	stale := make([]any, 0, len(ids))
	for i, cmd := range exists {
		if cmd.Val() == 0 {
			stale = append(stale, ids[i])
		}
	}
	if len(stale) == 0 {
		return nil
	}
	return r.client.SRem(ctx, key, stale...).Err()
}

// get はセッションレコードを読み取る。存在しない場合はnilを返す。
func (r *RedisSessionRepo) get(ctx context.Context, id string) (*redisSessionRecord, error) {
	data, err := r.client.Get(ctx, r.sessionKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find session: %w", err)
	}

	var record redisSessionRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("failed to decode session: %w", err)
	}
	return &record, nil
}

func encodeRedisSession(session *model.Session) ([]byte, error) {
	data := session.Data
	if len(data) == 0 {
		data = []byte("{}")
	}
	return json.Marshal(redisSessionRecord{
		UserID:    session.UserID,
		Data:      json.RawMessage(data),
		ExpiresAt: session.ExpiresAt,
		CreatedAt: session.CreatedAt,
	})
}

// compile-time interface check
var _ SessionRepository = (*RedisSessionRepo)(nil)
