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
	"math/rand"
	"testing"

	"github.com/gorse-io/tabletop/dataset"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

func randomTable(seed int64, nUsers, nItems int, density float64) *dataset.Table {
	rng := rand.New(rand.NewSource(seed))
	var ratings []dataset.Rating
	for u := 0; u < nUsers; u++ {
		for i := 0; i < nItems; i++ {
			if rng.Float64() < density {
				ratings = append(ratings, dataset.Rating{
					UserId: int64(u),
					ItemId: int64(i),
					Value:  float64(rng.Intn(11)),
				})
			}
		}
	}
	return dataset.NewTable(ratings)
}

// sameCoefficient treats two NaN as equal.
func sameCoefficient(a, b float64) bool {
	return a == b || (math.IsNaN(a) && math.IsNaN(b))
}

type CorrelateTestSuite struct {
	suite.Suite
	table *dataset.Table
	pivot *Pivot
}

func (suite *CorrelateTestSuite) SetupSuite() {
	var err error
	suite.table = randomTable(0, 40, 30, 0.4)
	suite.pivot, err = BuildPivot(suite.table)
	suite.NoError(err)
}

func (suite *CorrelateTestSuite) TestShape() {
	table, err := Correlate(context.Background(), suite.pivot, 4)
	suite.NoError(err)
	n := suite.pivot.CountUsers()
	suite.Equal(n*n, table.Len())
	suite.Equal(suite.pivot.Users(), table.Users())
	for _, userId := range table.Users() {
		suite.Len(table.Of(userId), n)
	}
}

func (suite *CorrelateTestSuite) TestSymmetry() {
	table, err := Correlate(context.Background(), suite.pivot, 4)
	suite.NoError(err)
	for _, row := range table.Rows() {
		reverse, ok := table.Get(row.UserB, row.UserA)
		suite.True(ok)
		suite.True(sameCoefficient(row.Coefficient, reverse), "(%d, %d)", row.UserA, row.UserB)
	}
}

func (suite *CorrelateTestSuite) TestSelfIdentity() {
	table, err := Correlate(context.Background(), suite.pivot, 4)
	suite.NoError(err)
	for _, userId := range suite.table.Users() {
		coefficient, ok := table.Get(userId, userId)
		suite.True(ok)
		suite.Equal(1.0, coefficient)
	}
}

func (suite *CorrelateTestSuite) TestRange() {
	table, err := Correlate(context.Background(), suite.pivot, 4)
	suite.NoError(err)
	for _, row := range table.Rows() {
		if !math.IsNaN(row.Coefficient) {
			suite.GreaterOrEqual(row.Coefficient, -1.0)
			suite.LessOrEqual(row.Coefficient, 1.0)
		}
	}
}

func (suite *CorrelateTestSuite) TestDeterministic() {
	serial, err := Correlate(context.Background(), suite.pivot, 1)
	suite.NoError(err)
	again, err := Correlate(context.Background(), suite.pivot, 8)
	suite.NoError(err)
	a, b := serial.Rows(), again.Rows()
	suite.Equal(len(a), len(b))
	for i := range a {
		suite.Equal(a[i].UserA, b[i].UserA)
		suite.Equal(a[i].UserB, b[i].UserB)
		suite.True(sameCoefficient(a[i].Coefficient, b[i].Coefficient))
	}
}

func (suite *CorrelateTestSuite) TestCancel() {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Correlate(ctx, suite.pivot, 4)
	suite.ErrorIs(err, context.Canceled)
}

func TestCorrelate(t *testing.T) {
	suite.Run(t, new(CorrelateTestSuite))
}

func TestCorrelateLiked_SparseOverlap(t *testing.T) {
	// (1,10,9), (2,10,8) and (3,11,9) remain above 5
	table, err := CorrelateLiked(context.Background(), sampleTable(), 5, 2)
	require.NoError(t, err)
	assert.Equal(t, 9, table.Len())
	coefficient, ok := table.Get(1, 2)
	assert.True(t, ok)
	assert.True(t, math.IsNaN(coefficient))
	coefficient, _ = table.Get(1, 3)
	assert.True(t, math.IsNaN(coefficient))
	coefficient, _ = table.Get(2, 2)
	assert.Equal(t, 1.0, coefficient)
}

func TestCorrelate_Values(t *testing.T) {
	pivot, err := BuildPivot(sampleTable())
	require.NoError(t, err)
	table, err := Correlate(context.Background(), pivot, 2)
	require.NoError(t, err)
	coefficient, _ := table.Get(1, 2)
	assert.InDelta(t, 1.0, coefficient, 1e-12)
	assert.LessOrEqual(t, coefficient, 1.0)
	coefficient, _ = table.Get(1, 3)
	assert.InDelta(t, -1.0, coefficient, 1e-12)
	assert.GreaterOrEqual(t, coefficient, -1.0)
}

func TestPearson(t *testing.T) {
	nan := math.NaN()
	assert.InDelta(t, 0.980609, pearson([]float64{9, 2, 5}, []float64{8, 3, 6}), 1e-5)
	// pairwise complete observations only
	assert.InDelta(t, 0.980609, pearson([]float64{9, 2, 5, nan, 1}, []float64{8, 3, 6, 4, nan}), 1e-5)
	// fewer than two shared items
	assert.True(t, math.IsNaN(pearson([]float64{9, nan}, []float64{8, 3})))
	// zero variance
	assert.True(t, math.IsNaN(pearson([]float64{7, 7, 7}, []float64{1, 2, 3})))
	assert.True(t, math.IsNaN(pearson([]float64{1, 2, 3}, []float64{4, 4, 4})))
}

func TestNewCorrelationTable(t *testing.T) {
	table := NewCorrelationTable([]Correlation{
		{UserA: 2, UserB: 1, Coefficient: 0.5},
		{UserA: 1, UserB: 2, Coefficient: 0.5},
		{UserA: 1, UserB: 3, Coefficient: -0.2},
	})
	assert.Equal(t, []int64{1, 2}, table.Users())
	assert.Equal(t, 3, table.Len())
	assert.Equal(t, []Correlation{
		{UserA: 1, UserB: 2, Coefficient: 0.5},
		{UserA: 1, UserB: 3, Coefficient: -0.2},
		{UserA: 2, UserB: 1, Coefficient: 0.5},
	}, table.Rows())
	_, ok := table.Get(3, 1)
	assert.False(t, ok)
}
