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
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	CorrelateSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "tabletop",
		Subsystem: "logics",
		Name:      "correlate_seconds",
		Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
	})
	CorrelatedPairsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "tabletop",
		Subsystem: "logics",
		Name:      "correlated_pairs_total",
	})
	DegeneratePairsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "tabletop",
		Subsystem: "logics",
		Name:      "degenerate_pairs_total",
	})
)
