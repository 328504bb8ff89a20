// Copyright 2026 gorse Project Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package cache

import (
	"context"
	"strconv"

	"github.com/gorse-io/tabletop/storage"
	"github.com/juju/errors"
	"github.com/redis/go-redis/v9"
	"github.com/samber/lo"
)

// Redis stores recommendation lists in sorted sets.
type Redis struct {
	storage.TablePrefix
	client *redis.Client
}

func (r *Redis) recommendKey(userId int64) string {
	return r.RecommendTable() + "/" + strconv.FormatInt(userId, 10)
}

// Init nothing.
func (r *Redis) Init() error {
	return nil
}

func (r *Redis) Close() error {
	return r.client.Close()
}

func (r *Redis) Ping() error {
	return r.client.Ping(context.Background()).Err()
}

// Purge deletes every recommendation list.
func (r *Redis) Purge() error {
	ctx := context.Background()
	iter := r.client.Scan(ctx, 0, r.RecommendTable()+"/*", 0).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return errors.Trace(err)
	}
	for _, chunk := range lo.Chunk(keys, 1000) {
		if err := r.client.Del(ctx, chunk...).Err(); err != nil {
			return errors.Trace(err)
		}
	}
	return nil
}

func (r *Redis) SetRecommend(ctx context.Context, userId int64, scores []Score) error {
	key := r.recommendKey(userId)
	members := lo.Map(scores, func(s Score, _ int) redis.Z {
		return redis.Z{Member: strconv.FormatInt(s.ItemId, 10), Score: s.Score}
	})
	_, err := r.client.TxPipelined(ctx, func(pipeline redis.Pipeliner) error {
		pipeline.Del(ctx, key)
		if len(members) > 0 {
			pipeline.ZAdd(ctx, key, members...)
		}
		return nil
	})
	return errors.Trace(err)
}

// GetRecommend reads the whole sorted set since Redis breaks ties in reverse
// lexicographic order of members.
func (r *Redis) GetRecommend(ctx context.Context, userId int64, n int) ([]Score, error) {
	members, err := r.client.ZRevRangeWithScores(ctx, r.recommendKey(userId), 0, -1).Result()
	if err != nil {
		return nil, errors.Trace(err)
	}
	scores := make([]Score, 0, len(members))
	for _, member := range members {
		itemId, err := strconv.ParseInt(member.Member.(string), 10, 64)
		if err != nil {
			return nil, errors.Trace(err)
		}
		scores = append(scores, Score{ItemId: itemId, Score: member.Score})
	}
	SortScores(scores)
	if n > 0 && len(scores) > n {
		scores = scores[:n]
	}
	return scores, nil
}

func (r *Redis) DeleteRecommend(ctx context.Context, userId int64) error {
	return errors.Trace(r.client.Del(ctx, r.recommendKey(userId)).Err())
}
