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

package model

import (
	"math"

	"github.com/gorse-io/tabletop/common/log"
	"github.com/gorse-io/tabletop/dataset"
	"go.uber.org/zap"
)

// Split is a partition of ratings into a train set and a test set.
type Split struct {
	Train *dataset.Table
	Test  *dataset.Table
}

// HoldOutProbability is the chance that a rating of a user with n ratings is
// held out for testing: sqrt(n)/1000, bounded to [0, 1].
func HoldOutProbability(n int) float64 {
	return math.Max(0, math.Min(1, math.Sqrt(float64(n))/1000))
}

// SplitRatings holds out ratings of users who rated more than one item. Each
// of their rows is drawn once, in table order, with HoldOutProbability. Users
// with a single rating always stay in the train set.
func SplitRatings(table *dataset.Table, rng RandomGenerator) Split {
	counts := table.CountPerUser()
	var train, test []dataset.Rating
	for i := 0; i < table.Len(); i++ {
		r := table.Get(i)
		if n := counts[r.UserId]; n > 1 && rng.Bernoulli(HoldOutProbability(n)) {
			test = append(test, r)
		} else {
			train = append(train, r)
		}
	}
	log.Logger().Debug("split ratings",
		zap.Int("n_train", len(train)),
		zap.Int("n_test", len(test)))
	return Split{
		Train: dataset.NewTable(train),
		Test:  dataset.NewTable(test),
	}
}
