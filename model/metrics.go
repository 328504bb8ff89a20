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
	"math"
	"sort"

	"github.com/gorse-io/tabletop/dataset"
	"github.com/juju/errors"
	"github.com/samber/lo"
	"gonum.org/v1/gonum/floats"
)

// Metrics are errors of predicted ratings against actual ratings.
type Metrics struct {
	RMSE         float64
	MedianAbsDev float64
	MeanAbsDev   float64
}

// NaNMetrics are reported for an empty test set.
func NaNMetrics() Metrics {
	return Metrics{RMSE: math.NaN(), MedianAbsDev: math.NaN(), MeanAbsDev: math.NaN()}
}

// IsNaN reports whether the metrics are undefined.
func (m Metrics) IsNaN() bool {
	return math.IsNaN(m.RMSE)
}

// ComputeErrorMetrics compares predicted ratings with actual ratings row by
// row. Both tables must list the same (user, item) pairs in the same order.
func ComputeErrorMetrics(predicted, actual *dataset.Table) (Metrics, error) {
	if predicted.Len() != actual.Len() {
		return Metrics{}, errors.Errorf("expect %d predictions, but got %d", actual.Len(), predicted.Len())
	}
	for i := 0; i < actual.Len(); i++ {
		p, a := predicted.Get(i), actual.Get(i)
		if p.UserId != a.UserId || p.ItemId != a.ItemId {
			return Metrics{}, errors.Errorf("row %d: prediction of (%d, %d) is aligned with rating of (%d, %d)",
				i, p.UserId, p.ItemId, a.UserId, a.ItemId)
		}
	}
	return errorMetrics(predicted.Values(), actual.Values()), nil
}

func errorMetrics(predicted, actual []float64) Metrics {
	n := len(actual)
	if n == 0 {
		return NaNMetrics()
	}
	deviations := lo.Map(predicted, func(p float64, i int) float64 {
		return math.Abs(p - actual[i])
	})
	return Metrics{
		RMSE:         floats.Distance(predicted, actual, 2) / math.Sqrt(float64(n)),
		MedianAbsDev: median(deviations),
		MeanAbsDev:   floats.Sum(deviations) / float64(n),
	}
}

// median averages the two middle values of an even-length sample.
func median(x []float64) float64 {
	sorted := append([]float64(nil), x...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}
