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

package model

import (
	"github.com/gorse-io/tabletop/common/log"
	"github.com/gorse-io/tabletop/dataset"
	"github.com/juju/errors"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

// ErrEmptyTestSet is returned with NaN metrics if no rating was held out.
var ErrEmptyTestSet = errors.New("empty test set")

// PredictFunc predicts the rating of an item by a user from training ratings.
type PredictFunc func(train *dataset.Table, userId, itemId int64) float64

// Constant predicts the same rating for every pair.
func Constant(value float64) PredictFunc {
	return func(*dataset.Table, int64, int64) float64 {
		return value
	}
}

// PredictRatings predicts every (user, item) pair of test. The result is
// aligned with test row by row.
func PredictRatings(train, test *dataset.Table, predict PredictFunc) *dataset.Table {
	return dataset.NewTable(lo.Map(test.Ratings(), func(r dataset.Rating, _ int) dataset.Rating {
		return dataset.Rating{
			UserId: r.UserId,
			ItemId: r.ItemId,
			Value:  predict(train, r.UserId, r.ItemId),
		}
	}))
}

// Pair is a predicted rating next to the actual one.
type Pair struct {
	UserId    int64
	ItemId    int64
	Predicted float64
	Actual    float64
}

// Report is the result of an evaluation run.
type Report struct {
	Metrics
	NumTrain int
	NumTest  int
	Pairs    []Pair
}

type State int

const (
	Idle State = iota
	Splitted
	Predicted
	Scored
	Done
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Splitted:
		return "split"
	case Predicted:
		return "predict"
	case Scored:
		return "score"
	case Done:
		return "done"
	}
	return "unknown"
}

// Evaluator runs one evaluation: Split, Predict, Score and Report, in this
// order. Calling a step out of order returns a NotValid error.
type Evaluator struct {
	ratings   *dataset.Table
	state     State
	split     Split
	predicted *dataset.Table
	report    Report
}

func NewEvaluator(ratings *dataset.Table) *Evaluator {
	return &Evaluator{ratings: ratings}
}

func (e *Evaluator) State() State {
	return e.state
}

func (e *Evaluator) transit(from, to State) error {
	if e.state != from {
		return errors.NotValidf("%s in state %s", to, e.state)
	}
	e.state = to
	return nil
}

// Split holds out test ratings.
func (e *Evaluator) Split(rng RandomGenerator) (Split, error) {
	if err := e.transit(Idle, Splitted); err != nil {
		return Split{}, errors.Trace(err)
	}
	e.split = SplitRatings(e.ratings, rng)
	return e.split, nil
}

// Predict predicts every held out rating.
func (e *Evaluator) Predict(predict PredictFunc) (*dataset.Table, error) {
	if err := e.transit(Splitted, Predicted); err != nil {
		return nil, errors.Trace(err)
	}
	e.predicted = PredictRatings(e.split.Train, e.split.Test, predict)
	return e.predicted, nil
}

// Score computes error metrics. ErrEmptyTestSet is returned together with NaN
// metrics if the test set is empty.
func (e *Evaluator) Score() (Metrics, error) {
	if err := e.transit(Predicted, Scored); err != nil {
		return Metrics{}, errors.Trace(err)
	}
	metrics, err := ComputeErrorMetrics(e.predicted, e.split.Test)
	if err != nil {
		return Metrics{}, errors.Trace(err)
	}
	e.report = Report{
		Metrics:  metrics,
		NumTrain: e.split.Train.Len(),
		NumTest:  e.split.Test.Len(),
		Pairs: lo.Map(e.split.Test.Ratings(), func(r dataset.Rating, i int) Pair {
			return Pair{
				UserId:    r.UserId,
				ItemId:    r.ItemId,
				Predicted: e.predicted.Get(i).Value,
				Actual:    r.Value,
			}
		}),
	}
	if e.split.Test.Len() == 0 {
		return metrics, ErrEmptyTestSet
	}
	return metrics, nil
}

// Report finishes the run.
func (e *Evaluator) Report() (Report, error) {
	if err := e.transit(Scored, Done); err != nil {
		return Report{}, errors.Trace(err)
	}
	EvaluationRMSE.Set(e.report.RMSE)
	EvaluationMedianAbsDev.Set(e.report.MedianAbsDev)
	EvaluationMeanAbsDev.Set(e.report.MeanAbsDev)
	EvaluationTestRatings.Set(float64(e.report.NumTest))
	log.Logger().Info("evaluation done",
		zap.Int("n_train", e.report.NumTrain),
		zap.Int("n_test", e.report.NumTest),
		zap.Float64("rmse", e.report.RMSE),
		zap.Float64("median_abs_dev", e.report.MedianAbsDev),
		zap.Float64("mean_abs_dev", e.report.MeanAbsDev))
	return e.report, nil
}

// Evaluate runs every step. The report is returned along with ErrEmptyTestSet
// if no rating was held out.
func Evaluate(ratings *dataset.Table, rng RandomGenerator, predict PredictFunc) (Report, error) {
	e := NewEvaluator(ratings)
	if _, err := e.Split(rng); err != nil {
		return Report{}, errors.Trace(err)
	}
	if _, err := e.Predict(predict); err != nil {
		return Report{}, errors.Trace(err)
	}
	_, scoreErr := e.Score()
	if scoreErr != nil && !errors.Is(scoreErr, ErrEmptyTestSet) {
		return Report{}, errors.Trace(scoreErr)
	}
	report, err := e.Report()
	if err != nil {
		return Report{}, errors.Trace(err)
	}
	return report, scoreErr
}
