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
	"math"
	"sort"

	"github.com/gorse-io/tabletop/common/log"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

// Peer is a user whose taste correlates with a target user.
type Peer struct {
	UserId      int64
	Coefficient float64
}

// PeerList is ordered by descending coefficient.
type PeerList []Peer

func (l PeerList) UserIds() []int64 {
	return lo.Map(l, func(p Peer, _ int) int64 {
		return p.UserId
	})
}

type PeerOptions struct {
	Threshold    float64
	HasThreshold bool
}

type PeerOption func(*PeerOptions)

// WithThreshold drops peers whose coefficient is below threshold.
func WithThreshold(threshold float64) PeerOption {
	return func(o *PeerOptions) {
		o.Threshold = threshold
		o.HasThreshold = true
	}
}

func NewPeerOptions(opts ...PeerOption) PeerOptions {
	var opt PeerOptions
	for _, o := range opts {
		o(&opt)
	}
	return opt
}

// RankPeers returns up to topK peers of target. The target itself and every
// user with a coefficient of 1 or more are excluded, since identical taste has
// nothing to exchange. Undefined coefficients are skipped. Ties are broken by
// ascending user id. A non-positive topK keeps all peers.
func RankPeers(table *CorrelationTable, target int64, topK int, opts ...PeerOption) PeerList {
	opt := NewPeerOptions(opts...)
	peers := make(PeerList, 0)
	for _, row := range table.Of(target) {
		if row.UserB == target || math.IsNaN(row.Coefficient) || row.Coefficient >= 1 {
			continue
		}
		if opt.HasThreshold && row.Coefficient < opt.Threshold {
			continue
		}
		peers = append(peers, Peer{UserId: row.UserB, Coefficient: row.Coefficient})
	}
	sort.Slice(peers, func(i, j int) bool {
		if peers[i].Coefficient != peers[j].Coefficient {
			return peers[i].Coefficient > peers[j].Coefficient
		}
		return peers[i].UserId < peers[j].UserId
	})
	if topK > 0 && len(peers) > topK {
		peers = peers[:topK]
	}
	if len(peers) == 0 {
		log.Logger().Debug("no peers found", zap.Int64("user_id", target))
	}
	return peers
}

// MostCorrelated returns every pair with a coefficient above threshold and
// below 1, ordered by descending coefficient. Each unordered pair appears once
// with UserA < UserB.
func MostCorrelated(table *CorrelationTable, threshold float64) []Correlation {
	rows := lo.Filter(table.Rows(), func(row Correlation, _ int) bool {
		return row.UserA < row.UserB &&
			!math.IsNaN(row.Coefficient) &&
			row.Coefficient > threshold &&
			row.Coefficient < 1
	})
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].Coefficient > rows[j].Coefficient
	})
	return rows
}
