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

package main

import (
	"bytes"
	"context"
	"io"
	"path/filepath"
	"testing"

	"github.com/gorse-io/tabletop/config"
	"github.com/gorse-io/tabletop/dataset"
	"github.com/gorse-io/tabletop/logics"
	"github.com/gorse-io/tabletop/model"
	"github.com/gorse-io/tabletop/storage"
	"github.com/gorse-io/tabletop/storage/cache"
	"github.com/juju/errors"
	"github.com/schollz/progressbar/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *config.Config {
	conf := config.GetDefaultConfig()
	dir := t.TempDir()
	conf.Database.DataStore = storage.SQLitePrefix + filepath.Join(dir, "data.db")
	conf.Database.CacheStore = storage.SQLitePrefix + filepath.Join(dir, "cache.db")
	conf.Similarity.LikeFloor = 0
	conf.Similarity.Jobs = 2
	conf.Recommend.LikeThreshold = 8
	require.NoError(t, conf.Validate())
	return conf
}

func testTable() *dataset.Table {
	return dataset.NewTable([]dataset.Rating{
		{UserId: 1, ItemId: 1, Value: 2},
		{UserId: 1, ItemId: 2, Value: 4},
		{UserId: 1, ItemId: 3, Value: 6},
		{UserId: 2, ItemId: 1, Value: 3},
		{UserId: 2, ItemId: 2, Value: 4},
		{UserId: 2, ItemId: 3, Value: 8},
		{UserId: 2, ItemId: 4, Value: 9},
		{UserId: 3, ItemId: 1, Value: 6},
		{UserId: 3, ItemId: 2, Value: 4},
		{UserId: 3, ItemId: 3, Value: 2},
		{UserId: 3, ItemId: 5, Value: 9},
	})
}

func TestImportRatings(t *testing.T) {
	conf := testConfig(t)
	database, err := openDataStore(conf)
	require.NoError(t, err)
	defer database.Close()

	table := testTable()
	bar := progressbar.NewOptions(table.Len(), progressbar.OptionSetWriter(io.Discard))
	err = importRatings(context.Background(), database, table, 2, bar)
	require.NoError(t, err)
	count, err := database.CountRatings(context.Background())
	require.NoError(t, err)
	assert.Equal(t, table.Len(), count)
	stored, err := database.GetRatings(context.Background())
	require.NoError(t, err)
	assert.Equal(t, table.Ratings(), stored.Ratings())
}

func TestRecommendUsers(t *testing.T) {
	conf := testConfig(t)
	results, err := recommendUsers(context.Background(), conf, testTable(), nil)
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, int64(1), results[0].UserId)
	assert.Equal(t, []int64{2}, results[0].Peers.UserIds())
	assert.Equal(t, logics.RecommendationList{{ItemId: 4, Score: 9}}, results[0].Items)
	assert.Equal(t, []int64{1}, results[1].Peers.UserIds())
	assert.Empty(t, results[1].Items)
	// user 3 is anti-correlated with everyone
	assert.Empty(t, results[2].Peers)
	assert.Empty(t, results[2].Items)

	results, err = recommendUsers(context.Background(), conf, testTable(), []int64{1})
	require.NoError(t, err)
	require.Len(t, results, 1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = recommendUsers(ctx, conf, testTable(), nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSaveRecommendations(t *testing.T) {
	conf := testConfig(t)
	results, err := recommendUsers(context.Background(), conf, testTable(), nil)
	require.NoError(t, err)
	cacheStore, err := openCacheStore(conf)
	require.NoError(t, err)
	require.NoError(t, saveRecommendations(context.Background(), cacheStore, results))

	cacheStore, err = openCacheStore(conf)
	require.NoError(t, err)
	defer cacheStore.Close()
	scores, err := cacheStore.GetRecommend(context.Background(), 1, 0)
	require.NoError(t, err)
	assert.Equal(t, []cache.Score{{ItemId: 4, Score: 9}}, scores)

	// no cache store
	conf.Database.CacheStore = ""
	cacheStore, err = openCacheStore(conf)
	require.NoError(t, err)
	assert.IsType(t, cache.NoDatabase{}, cacheStore)
	assert.NoError(t, saveRecommendations(context.Background(), cacheStore, results))
}

func TestPrintRecommendations(t *testing.T) {
	conf := testConfig(t)
	results, err := recommendUsers(context.Background(), conf, testTable(), []int64{1})
	require.NoError(t, err)
	var buf bytes.Buffer
	require.NoError(t, printRecommendations(&buf, results, 10))
	assert.Contains(t, buf.String(), "9.000")
}

func TestEvaluate(t *testing.T) {
	conf := testConfig(t)
	conf.Evaluate.Predictor = config.PredictorConstant
	table := testTable()
	report, err := evaluate(conf, table)
	if err != nil {
		// few ratings per user rarely hold anything out
		assert.ErrorIs(t, err, model.ErrEmptyTestSet)
	}
	assert.Equal(t, table.Len(), report.NumTrain+report.NumTest)
	again, err2 := evaluate(conf, table)
	assert.Equal(t, err == nil, err2 == nil)
	assert.Equal(t, report.NumTest, again.NumTest)

	var buf bytes.Buffer
	require.NoError(t, printReport(&buf, conf.Evaluate.Predictor, report))
	assert.Contains(t, buf.String(), "constant")
}

func TestNewPredictor(t *testing.T) {
	conf := testConfig(t)
	conf.Evaluate.Predictor = config.PredictorConstant
	conf.Evaluate.Constant = 7.25
	assert.Equal(t, 7.25, newPredictor(conf)(testTable(), 1, 4))

	conf.Evaluate.Predictor = config.PredictorPeer
	// user 2 is the only correlated player who rated item 4
	assert.Equal(t, 9.0, newPredictor(conf)(testTable(), 1, 4))
}

func TestPrintSummary(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printSummary(&buf, testTable().Summarize()))
	assert.Contains(t, buf.String(), "11")
	buf.Reset()
	require.NoError(t, printCorrelations(&buf, []logics.Correlation{{UserA: 1, UserB: 2, Coefficient: 0.9449}}))
	assert.Contains(t, buf.String(), "0.9449")
}

func TestParseIds(t *testing.T) {
	ids, err := parseIds([]string{"3", "1"})
	require.NoError(t, err)
	assert.Equal(t, []int64{3, 1}, ids)
	_, err = parseIds([]string{"x"})
	assert.True(t, errors.IsNotValid(err))
}
