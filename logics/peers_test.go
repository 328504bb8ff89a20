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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	userU = 1
	userA = 2
	userB = 3
	userC = 4
)

func TestRankPeers(t *testing.T) {
	table := NewCorrelationTable([]Correlation{
		{UserA: userU, UserB: userA, Coefficient: 0.9},
		{UserA: userU, UserB: userB, Coefficient: 0.95},
		{UserA: userU, UserB: userU, Coefficient: 1.0},
		{UserA: userU, UserB: userC, Coefficient: 1.0},
	})
	peers := RankPeers(table, userU, 2)
	assert.Equal(t, PeerList{
		{UserId: userB, Coefficient: 0.95},
		{UserId: userA, Coefficient: 0.9},
	}, peers)
	assert.Equal(t, []int64{userB, userA}, peers.UserIds())
}

func TestRankPeers_Filter(t *testing.T) {
	table := NewCorrelationTable([]Correlation{
		{UserA: 1, UserB: 5, Coefficient: 0.3},
		{UserA: 1, UserB: 4, Coefficient: 0.3},
		{UserA: 1, UserB: 3, Coefficient: math.NaN()},
		{UserA: 1, UserB: 2, Coefficient: -0.4},
		{UserA: 1, UserB: 6, Coefficient: 1.0000001},
		{UserA: 2, UserB: 1, Coefficient: -0.4},
	})
	// ties are broken by ascending user id
	assert.Equal(t, PeerList{
		{UserId: 4, Coefficient: 0.3},
		{UserId: 5, Coefficient: 0.3},
		{UserId: 2, Coefficient: -0.4},
	}, RankPeers(table, 1, 0))
	assert.Equal(t, PeerList{
		{UserId: 4, Coefficient: 0.3},
		{UserId: 5, Coefficient: 0.3},
	}, RankPeers(table, 1, 10, WithThreshold(0)))
	assert.Equal(t, PeerList{
		{UserId: 4, Coefficient: 0.3},
	}, RankPeers(table, 1, 1, WithThreshold(0.3)))
	assert.Empty(t, RankPeers(table, 1, 5, WithThreshold(0.5)))
	assert.Empty(t, RankPeers(table, 100, 5))
}

func TestRankPeers_Exclusion(t *testing.T) {
	correlations, err := CorrelateLiked(context.Background(), randomTable(1, 30, 20, 0.5), 3, 4)
	require.NoError(t, err)
	for _, userId := range correlations.Users() {
		for _, peer := range RankPeers(correlations, userId, 0) {
			assert.NotEqual(t, userId, peer.UserId)
			assert.Less(t, peer.Coefficient, 1.0)
			assert.False(t, math.IsNaN(peer.Coefficient))
		}
	}
}

func TestMostCorrelated(t *testing.T) {
	table := NewCorrelationTable([]Correlation{
		{UserA: 1, UserB: 1, Coefficient: 1},
		{UserA: 1, UserB: 2, Coefficient: 0.8},
		{UserA: 1, UserB: 3, Coefficient: 0.95},
		{UserA: 2, UserB: 1, Coefficient: 0.8},
		{UserA: 2, UserB: 3, Coefficient: math.NaN()},
		{UserA: 3, UserB: 1, Coefficient: 0.95},
		{UserA: 3, UserB: 4, Coefficient: 0.5},
	})
	assert.Equal(t, []Correlation{
		{UserA: 1, UserB: 3, Coefficient: 0.95},
		{UserA: 1, UserB: 2, Coefficient: 0.8},
	}, MostCorrelated(table, 0.6))
}
