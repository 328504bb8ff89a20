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

package logics

import (
	"sort"

	"github.com/gorse-io/tabletop/common/log"
	"github.com/gorse-io/tabletop/dataset"
	"go.uber.org/zap"
)

// Score is the aggregated rating of a recommended item.
type Score struct {
	ItemId int64
	Score  float64
}

// RecommendationList is ordered by descending score.
type RecommendationList []Score

// Top returns the first n recommendations. A non-positive n keeps all.
func (l RecommendationList) Top(n int) RecommendationList {
	if n <= 0 || n >= len(l) {
		return l
	}
	return l[:n]
}

// Recommend collects the items each peer rated above likeThreshold and scores
// every item by the mean rating of the peers who loved it. Items already rated
// by target never appear in the result. Ties are broken by ascending item id.
func Recommend(target int64, peers PeerList, table *dataset.Table, likeThreshold float64) RecommendationList {
	if len(peers) == 0 {
		return RecommendationList{}
	}
	rated := table.RatedItems(target)
	sum := make(map[int64]float64)
	count := make(map[int64]int)
	for _, peer := range peers {
		// the last rating of a duplicated pair wins
		loved := make(map[int64]float64)
		for _, r := range table.UserRatings(peer.UserId) {
			loved[r.ItemId] = r.Value
		}
		for itemId, value := range loved {
			if value <= likeThreshold || rated.Contains(itemId) {
				continue
			}
			sum[itemId] += value
			count[itemId]++
		}
	}
	result := make(RecommendationList, 0, len(sum))
	for itemId, total := range sum {
		result = append(result, Score{ItemId: itemId, Score: total / float64(count[itemId])})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Score != result[j].Score {
			return result[i].Score > result[j].Score
		}
		return result[i].ItemId < result[j].ItemId
	})
	log.Logger().Debug("recommend items",
		zap.Int64("user_id", target),
		zap.Int("n_peers", len(peers)),
		zap.Int("n_items", len(result)))
	return result
}
