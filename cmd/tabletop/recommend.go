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
	"context"
	"io"
	"os"
	"strconv"

	"github.com/gorse-io/tabletop/common/log"
	"github.com/gorse-io/tabletop/common/parallel"
	"github.com/gorse-io/tabletop/config"
	"github.com/gorse-io/tabletop/dataset"
	"github.com/gorse-io/tabletop/logics"
	"github.com/gorse-io/tabletop/storage/cache"
	"github.com/juju/errors"
	"github.com/olekukonko/tablewriter"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var recommendCommand = &cobra.Command{
	Use:   "recommend [user_id...]",
	Short: "Recommend board games to users from their most correlated peers",
	RunE: func(cmd *cobra.Command, args []string) error {
		conf, err := loadConfig(cmd)
		if err != nil {
			return errors.Trace(err)
		}
		users, err := parseIds(args)
		if err != nil {
			return errors.Trace(err)
		}
		top, _ := cmd.Flags().GetInt("top")

		database, err := openDataStore(conf)
		if err != nil {
			return errors.Trace(err)
		}
		defer database.Close()
		table, err := database.GetRatings(cmd.Context())
		if err != nil {
			return errors.Trace(err)
		}
		results, err := recommendUsers(cmd.Context(), conf, table, users)
		if err != nil {
			return errors.Trace(err)
		}

		cacheStore, err := openCacheStore(conf)
		if err != nil {
			return errors.Trace(err)
		}
		if err = saveRecommendations(cmd.Context(), cacheStore, results); err != nil {
			return errors.Trace(err)
		}
		if len(users) > 0 {
			return errors.Trace(printRecommendations(os.Stdout, results, top))
		}
		return nil
	},
}

func init() {
	recommendCommand.Flags().Int("top", 10, "number of recommendations printed per user")
}

// userRecommendation is the recommendation list of a user along with the
// peers it was aggregated from.
type userRecommendation struct {
	UserId int64
	Peers  logics.PeerList
	Items  logics.RecommendationList
}

// recommendUsers correlates all users once and recommends games to users. If
// users is empty, every user in table gets a list.
func recommendUsers(ctx context.Context, conf *config.Config, table *dataset.Table, users []int64) ([]userRecommendation, error) {
	var pivotOptions []logics.PivotOption
	if conf.Recommend.StrictPivot {
		pivotOptions = append(pivotOptions, logics.WithStrict())
	}
	correlations, err := logics.CorrelateLiked(ctx, table, conf.Similarity.LikeFloor, conf.Similarity.Jobs, pivotOptions...)
	if err != nil {
		return nil, errors.Trace(err)
	}
	if len(users) == 0 {
		users = table.Users()
	}
	results := make([]userRecommendation, len(users))
	err = parallel.For(ctx, len(users), conf.Similarity.Jobs, func(i int) {
		peers := logics.RankPeers(correlations, users[i], conf.Recommend.Peers,
			logics.WithThreshold(conf.Recommend.PeerThreshold))
		items := logics.Recommend(users[i], peers, table, conf.Recommend.LikeThreshold).
			Top(conf.Recommend.CacheSize)
		results[i] = userRecommendation{UserId: users[i], Peers: peers, Items: items}
	})
	if err != nil {
		return nil, errors.Trace(err)
	}
	log.Logger().Info("recommend board games",
		zap.Int("n_users", len(results)),
		zap.Int("n_correlated_users", len(correlations.Users())))
	return results, nil
}

func saveRecommendations(ctx context.Context, database cache.Database, results []userRecommendation) error {
	if _, ok := database.(cache.NoDatabase); ok {
		log.Logger().Debug("skip saving recommendations without cache store")
		return nil
	}
	defer database.Close()
	for _, result := range results {
		scores := lo.Map(result.Items, func(s logics.Score, _ int) cache.Score {
			return cache.Score{ItemId: s.ItemId, Score: s.Score}
		})
		if err := database.SetRecommend(ctx, result.UserId, scores); err != nil {
			return errors.Trace(err)
		}
	}
	return nil
}

func printRecommendations(w io.Writer, results []userRecommendation, top int) error {
	table := tablewriter.NewWriter(w)
	table.Header([]string{"User", "Rank", "Game", "Score", "Peers"})
	for _, result := range results {
		for rank, item := range result.Items.Top(top) {
			if err := table.Append([]string{
				strconv.FormatInt(result.UserId, 10),
				strconv.Itoa(rank + 1),
				strconv.FormatInt(item.ItemId, 10),
				strconv.FormatFloat(item.Score, 'f', 3, 64),
				strconv.Itoa(len(result.Peers)),
			}); err != nil {
				return errors.Trace(err)
			}
		}
	}
	return errors.Trace(table.Render())
}

func parseIds(args []string) ([]int64, error) {
	ids := make([]int64, 0, len(args))
	for _, arg := range args {
		id, err := strconv.ParseInt(arg, 10, 64)
		if err != nil {
			return nil, errors.NotValidf("user id %q", arg)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
