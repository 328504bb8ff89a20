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
	"fmt"
	"io"
	"os"

	"github.com/gorse-io/tabletop/dataset"
	"github.com/gorse-io/tabletop/logics"
	"github.com/juju/errors"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

var summaryCommand = &cobra.Command{
	Use:   "summary",
	Short: "Show an overview of stored ratings and the most correlated players",
	RunE: func(cmd *cobra.Command, args []string) error {
		conf, err := loadConfig(cmd)
		if err != nil {
			return errors.Trace(err)
		}
		threshold, _ := cmd.Flags().GetFloat64("threshold")
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
		if err = printSummary(os.Stdout, table.Summarize()); err != nil {
			return errors.Trace(err)
		}
		correlations, err := logics.CorrelateLiked(cmd.Context(), table, conf.Similarity.LikeFloor, conf.Similarity.Jobs)
		if err != nil {
			return errors.Trace(err)
		}
		pairs := logics.MostCorrelated(correlations, threshold)
		if top > 0 && len(pairs) > top {
			pairs = pairs[:top]
		}
		return errors.Trace(printCorrelations(os.Stdout, pairs))
	},
}

func init() {
	summaryCommand.Flags().Float64("threshold", 0.5, "minimal coefficient of listed player pairs")
	summaryCommand.Flags().Int("top", 20, "number of listed player pairs")
}

func printSummary(w io.Writer, summary dataset.Summary) error {
	table := tablewriter.NewWriter(w)
	table.Header([]string{"Users", "Games", "Ratings", "Min", "Max", "Mean", "Max per user", "Max per game"})
	if err := table.Append([]string{
		fmt.Sprint(summary.NumUsers),
		fmt.Sprint(summary.NumItems),
		fmt.Sprint(summary.NumRatings),
		fmt.Sprintf("%g", summary.MinRating),
		fmt.Sprintf("%g", summary.MaxRating),
		fmt.Sprintf("%.3f", summary.MeanRating),
		fmt.Sprint(summary.MaxUserCount),
		fmt.Sprint(summary.MaxItemCount),
	}); err != nil {
		return errors.Trace(err)
	}
	return errors.Trace(table.Render())
}

func printCorrelations(w io.Writer, pairs []logics.Correlation) error {
	table := tablewriter.NewWriter(w)
	table.Header([]string{"User A", "User B", "Coefficient"})
	for _, pair := range pairs {
		if err := table.Append([]string{
			fmt.Sprint(pair.UserA),
			fmt.Sprint(pair.UserB),
			fmt.Sprintf("%.4f", pair.Coefficient),
		}); err != nil {
			return errors.Trace(err)
		}
	}
	return errors.Trace(table.Render())
}
