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
	"context"
	"math"
	"sync"

	"github.com/gorse-io/tabletop/common/log"
	"github.com/gorse-io/tabletop/dataset"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/stat"
)

// PeerPredictor predicts a rating as the mean rating given to the item by the
// closest peers who rated it. Users without such peers get their own mean
// rating, unknown users get the global mean.
type PeerPredictor struct {
	floor float64
	topK  int
	jobs  int

	mu    sync.Mutex
	train *dataset.Table
	table *CorrelationTable
}

func NewPeerPredictor(floor float64, topK, jobs int) *PeerPredictor {
	return &PeerPredictor{floor: floor, topK: topK, jobs: jobs}
}

// Predict matches the signature of model.PredictFunc. Correlations are
// computed once per training table.
func (p *PeerPredictor) Predict(train *dataset.Table, userId, itemId int64) float64 {
	table := p.fit(train)
	if table != nil {
		var values []float64
		for _, peer := range RankPeers(table, userId, 0) {
			if value := train.GetRating(peer.UserId, itemId); !math.IsNaN(value) {
				values = append(values, value)
				if p.topK > 0 && len(values) >= p.topK {
					break
				}
			}
		}
		if len(values) > 0 {
			return stat.Mean(values, nil)
		}
	}
	if mean := train.MeanRating(userId); !math.IsNaN(mean) {
		return mean
	}
	return train.GlobalMean()
}

func (p *PeerPredictor) fit(train *dataset.Table) *CorrelationTable {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.train == train {
		return p.table
	}
	table, err := CorrelateLiked(context.Background(), train, p.floor, p.jobs)
	if err != nil {
		log.Logger().Error("failed to correlate training ratings", zap.Error(err))
		table = nil
	}
	p.train, p.table = train, table
	return table
}
