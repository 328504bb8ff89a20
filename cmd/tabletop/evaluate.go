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

	"github.com/gorse-io/tabletop/config"
	"github.com/gorse-io/tabletop/dataset"
	"github.com/gorse-io/tabletop/logics"
	"github.com/gorse-io/tabletop/model"
	"github.com/juju/errors"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

var evaluateCommand = &cobra.Command{
	Use:   "evaluate [ratings.csv]",
	Short: "Evaluate rating predictions on held-out ratings",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		conf, err := loadConfig(cmd)
		if err != nil {
			return errors.Trace(err)
		}
		if cmd.Flags().Changed("predictor") {
			conf.Evaluate.Predictor, _ = cmd.Flags().GetString("predictor")
		}
		if cmd.Flags().Changed("seed") {
			conf.Evaluate.Seed, _ = cmd.Flags().GetInt64("seed")
		}
		if err = conf.Validate(); err != nil {
			return errors.Trace(err)
		}

		var table *dataset.Table
		if len(args) > 0 {
			sep, _ := cmd.Flags().GetString("sep")
			if table, err = dataset.LoadCSVFile(args[0], sep); err != nil {
				return errors.Trace(err)
			}
		} else {
			database, err := openDataStore(conf)
			if err != nil {
				return errors.Trace(err)
			}
			defer database.Close()
			if table, err = database.GetRatings(cmd.Context()); err != nil {
				return errors.Trace(err)
			}
		}

		report, err := evaluate(conf, table)
		if err != nil && !errors.Is(err, model.ErrEmptyTestSet) {
			return errors.Trace(err)
		}
		return errors.Trace(printReport(os.Stdout, conf.Evaluate.Predictor, report))
	},
}

func init() {
	evaluateCommand.Flags().String("sep", ",", "field separator of the CSV file")
	evaluateCommand.Flags().String("predictor", config.PredictorPeer, "rating predictor (peer or constant)")
	evaluateCommand.Flags().Int64("seed", 0, "random seed of the hold-out split")
}

// newPredictor builds the prediction function named by the config.
func newPredictor(conf *config.Config) model.PredictFunc {
	switch conf.Evaluate.Predictor {
	case config.PredictorConstant:
		return model.Constant(conf.Evaluate.Constant)
	default:
		return logics.NewPeerPredictor(conf.Similarity.LikeFloor, conf.Recommend.Peers, conf.Similarity.Jobs).Predict
	}
}

func evaluate(conf *config.Config, table *dataset.Table) (model.Report, error) {
	rng := model.NewRandomGenerator(conf.Evaluate.Seed)
	return model.Evaluate(table, rng, newPredictor(conf))
}

func printReport(w io.Writer, predictor string, report model.Report) error {
	table := tablewriter.NewWriter(w)
	table.Header([]string{"Predictor", "Train", "Test", "RMSE", "Median AD", "Mean AD"})
	if err := table.Append([]string{
		predictor,
		fmt.Sprint(report.NumTrain),
		fmt.Sprint(report.NumTest),
		fmt.Sprintf("%.4f", report.RMSE),
		fmt.Sprintf("%.4f", report.MedianAbsDev),
		fmt.Sprintf("%.4f", report.MeanAbsDev),
	}); err != nil {
		return errors.Trace(err)
	}
	return errors.Trace(table.Render())
}
