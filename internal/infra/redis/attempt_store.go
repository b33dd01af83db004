package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"interview-quiz-service/internal/domain"
)

// AttemptStore keeps attempts in Redis with the answer mapping as an explicit
// key-value association per attempt:
//
//	HSET attempt:{id}          data {json} completedAt {rfc3339} score {n}
//	HSET attempt:{id}:mapping  {questionID} {json index list}
//
// Both keys expire together after ttl.
type AttemptStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewAttemptStore(client *redis.Client, ttl time.Duration) *AttemptStore {
	return &AttemptStore{client: client, ttl: ttl}
}

type attemptRecord struct {
	ID          string    `json:"id"`
	UserID      string    `json:"userId"`
	RoleID      string    `json:"roleId,omitempty"`
	QuestionIDs []string  `json:"questionIds"`
	RetryOf     string    `json:"retryOf,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

func (s *AttemptStore) Save(ctx context.Context, attempt domain.Attempt) error {
	data, err := json.Marshal(attemptRecord{
		ID:          attempt.ID,
		UserID:      attempt.UserID,
		RoleID:      attempt.RoleID,
		QuestionIDs: attempt.QuestionIDs,
		RetryOf:     attempt.RetryOf,
		CreatedAt:   attempt.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("marshal attempt: %w", err)
	}

	mapping := make(map[string]interface{}, len(attempt.AnswerMapping))
	for questionID, indexes := range attempt.AnswerMapping {
		raw, err := json.Marshal(indexes)
		if err != nil {
			return fmt.Errorf("marshal mapping: %w", err)
		}
		mapping[questionID] = string(raw)
	}

	key, mappingKey := s.key(attempt.ID), s.mappingKey(attempt.ID)
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, key, mappingKey)
	pipe.HSet(ctx, key, "data", string(data))
	if len(mapping) > 0 {
		pipe.HSet(ctx, mappingKey, mapping)
	}
	if s.ttl > 0 {
		pipe.Expire(ctx, key, s.ttl)
		pipe.Expire(ctx, mappingKey, s.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("save attempt: %w", err)
	}
	return nil
}

func (s *AttemptStore) Get(ctx context.Context, attemptID string) (domain.Attempt, error) {
	fields, err := s.client.HGetAll(ctx, s.key(attemptID)).Result()
	if err != nil {
		return domain.Attempt{}, fmt.Errorf("load attempt: %w", err)
	}
	raw, ok := fields["data"]
	if !ok {
		return domain.Attempt{}, domain.ErrAttemptNotFound
	}
	var rec attemptRecord
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return domain.Attempt{}, fmt.Errorf("unmarshal attempt: %w", err)
	}

	attempt := domain.Attempt{
		ID:            rec.ID,
		UserID:        rec.UserID,
		RoleID:        rec.RoleID,
		QuestionIDs:   rec.QuestionIDs,
		RetryOf:       rec.RetryOf,
		CreatedAt:     rec.CreatedAt,
		AnswerMapping: domain.AnswerMapping{},
	}
	if v, ok := fields["completedAt"]; ok {
		if at, err := time.Parse(time.RFC3339Nano, v); err == nil {
			attempt.CompletedAt = &at
		}
	}
	if v, ok := fields["score"]; ok {
		if score, err := strconv.Atoi(v); err == nil {
			attempt.Score = &score
		}
	}

	mapping, err := s.client.HGetAll(ctx, s.mappingKey(attemptID)).Result()
	if err != nil {
		return domain.Attempt{}, fmt.Errorf("load mapping: %w", err)
	}
	for questionID, rawIndexes := range mapping {
		var indexes []int
		if err := json.Unmarshal([]byte(rawIndexes), &indexes); err != nil {
			return domain.Attempt{}, fmt.Errorf("unmarshal mapping for %s: %w", questionID, err)
		}
		attempt.AnswerMapping[questionID] = indexes
	}
	return attempt, nil
}

// completeScript sets completedAt and score in one step. It returns -1 for a
// missing attempt and 0 when completedAt was already set.
var completeScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
	return -1
end
if redis.call('HSETNX', KEYS[1], 'completedAt', ARGV[1]) == 0 then
	return 0
end
redis.call('HSET', KEYS[1], 'score', ARGV[2])
return 1
`)

// Complete grades an attempt once; concurrent submits see ErrAlreadySubmitted.
func (s *AttemptStore) Complete(ctx context.Context, attemptID string, score int, at time.Time) error {
	res, err := completeScript.Run(ctx, s.client, []string{s.key(attemptID)},
		at.UTC().Format(time.RFC3339Nano), score).Int()
	if err != nil {
		return fmt.Errorf("complete attempt: %w", err)
	}
	switch res {
	case -1:
		return domain.ErrAttemptNotFound
	case 0:
		return domain.ErrAlreadySubmitted
	}
	return nil
}

func (s *AttemptStore) key(attemptID string) string {
	return "attempt:" + attemptID
}

func (s *AttemptStore) mappingKey(attemptID string) string {
	return "attempt:" + attemptID + ":mapping"
}
