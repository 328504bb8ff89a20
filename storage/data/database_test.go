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

package data

import (
	"context"

	"github.com/gorse-io/tabletop/dataset"
	"github.com/stretchr/testify/suite"
)

type baseTestSuite struct {
	suite.Suite
	Database
}

func (suite *baseTestSuite) SetupTest() {
	err := suite.Database.Purge()
	suite.NoError(err)
}

func (suite *baseTestSuite) TearDownSuite() {
	err := suite.Database.Close()
	suite.NoError(err)
}

func (suite *baseTestSuite) TestPing() {
	suite.NoError(suite.Database.Ping())
}

func (suite *baseTestSuite) TestRatings() {
	ctx := context.Background()
	err := suite.Database.BatchInsertRatings(ctx, []dataset.Rating{
		{UserId: 2, ItemId: 11, Value: 3},
		{UserId: 1, ItemId: 11, Value: 2},
		{UserId: 1, ItemId: 10, Value: 9},
		{UserId: 2, ItemId: 10, Value: 8},
	})
	suite.NoError(err)
	count, err := suite.Database.CountRatings(ctx)
	suite.NoError(err)
	suite.Equal(4, count)

	table, err := suite.Database.GetRatings(ctx)
	suite.NoError(err)
	suite.Equal([]dataset.Rating{
		{UserId: 1, ItemId: 10, Value: 9},
		{UserId: 1, ItemId: 11, Value: 2},
		{UserId: 2, ItemId: 10, Value: 8},
		{UserId: 2, ItemId: 11, Value: 3},
	}, table.Ratings())

	ratings, err := suite.Database.GetUserRatings(ctx, 2)
	suite.NoError(err)
	suite.Equal([]dataset.Rating{
		{UserId: 2, ItemId: 10, Value: 8},
		{UserId: 2, ItemId: 11, Value: 3},
	}, ratings)
	ratings, err = suite.Database.GetUserRatings(ctx, 100)
	suite.NoError(err)
	suite.Empty(ratings)
}

func (suite *baseTestSuite) TestOverwrite() {
	ctx := context.Background()
	err := suite.Database.BatchInsertRatings(ctx, []dataset.Rating{
		{UserId: 1, ItemId: 10, Value: 9},
		{UserId: 1, ItemId: 10, Value: 7.5},
	})
	suite.NoError(err)
	err = suite.Database.BatchInsertRatings(ctx, []dataset.Rating{
		{UserId: 1, ItemId: 11, Value: 6},
		{UserId: 1, ItemId: 11, Value: 5},
	})
	suite.NoError(err)
	err = suite.Database.BatchInsertRatings(ctx, []dataset.Rating{
		{UserId: 1, ItemId: 11, Value: 4},
	})
	suite.NoError(err)
	ratings, err := suite.Database.GetUserRatings(ctx, 1)
	suite.NoError(err)
	suite.Equal([]dataset.Rating{
		{UserId: 1, ItemId: 10, Value: 7.5},
		{UserId: 1, ItemId: 11, Value: 4},
	}, ratings)
}

func (suite *baseTestSuite) TestRatingStream() {
	ctx := context.Background()
	var ratings []dataset.Rating
	for i := 0; i < 25; i++ {
		ratings = append(ratings, dataset.Rating{UserId: int64(i / 5), ItemId: int64(i % 5), Value: float64(i % 11)})
	}
	suite.NoError(suite.Database.BatchInsertRatings(ctx, ratings))
	ratingChan, errChan := suite.Database.GetRatingStream(ctx, 10)
	var (
		sizes    []int
		streamed []dataset.Rating
	)
	for batch := range ratingChan {
		sizes = append(sizes, len(batch))
		streamed = append(streamed, batch...)
	}
	suite.NoError(<-errChan)
	suite.Equal([]int{10, 10, 5}, sizes)
	suite.Equal(ratings, streamed)
}

func (suite *baseTestSuite) TestPurge() {
	ctx := context.Background()
	err := suite.Database.BatchInsertRatings(ctx, []dataset.Rating{{UserId: 1, ItemId: 10, Value: 9}})
	suite.NoError(err)
	suite.NoError(suite.Database.Purge())
	count, err := suite.Database.CountRatings(ctx)
	suite.NoError(err)
	suite.Zero(count)
	// empty insert
	suite.NoError(suite.Database.BatchInsertRatings(ctx, nil))
}
