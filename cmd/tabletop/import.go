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

	"github.com/gorse-io/tabletop/common/log"
	"github.com/gorse-io/tabletop/dataset"
	"github.com/gorse-io/tabletop/storage/data"
	"github.com/juju/errors"
	"github.com/samber/lo"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var importCommand = &cobra.Command{
	Use:   "import <ratings.csv>",
	Short: "Import ratings from a CSV file into the data store",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		conf, err := loadConfig(cmd)
		if err != nil {
			return errors.Trace(err)
		}
		sep, _ := cmd.Flags().GetString("sep")
		batchSize, _ := cmd.Flags().GetInt("batch-size")
		purge, _ := cmd.Flags().GetBool("purge")

		table, err := dataset.LoadCSVFile(args[0], sep)
		if err != nil {
			return errors.Trace(err)
		}
		database, err := openDataStore(conf)
		if err != nil {
			return errors.Trace(err)
		}
		defer database.Close()
		if purge {
			if err = database.Purge(); err != nil {
				return errors.Trace(err)
			}
		}
		bar := progressbar.Default(int64(table.Len()), "import ratings")
		if err = importRatings(cmd.Context(), database, table, batchSize, bar); err != nil {
			return errors.Trace(err)
		}
		log.Logger().Info("import ratings",
			zap.String("file", args[0]),
			zap.Int("n_ratings", table.Len()),
			zap.Int("n_users", table.CountUsers()),
			zap.Int("n_items", table.CountItems()))
		return nil
	},
}

func init() {
	importCommand.Flags().String("sep", ",", "field separator of the CSV file")
	importCommand.Flags().Int("batch-size", 1000, "number of ratings inserted per batch")
	importCommand.Flags().Bool("purge", false, "delete existing ratings before importing")
}

// importRatings inserts ratings in batches and advances bar by written rows.
func importRatings(ctx context.Context, database data.Database, table *dataset.Table, batchSize int, bar *progressbar.ProgressBar) error {
	if batchSize <= 0 {
		batchSize = max(table.Len(), 1)
	}
	for _, batch := range lo.Chunk(table.Ratings(), batchSize) {
		if err := database.BatchInsertRatings(ctx, batch); err != nil {
			return errors.Trace(err)
		}
		_ = bar.Add(len(batch))
	}
	return errors.Trace(bar.Finish())
}
