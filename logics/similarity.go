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
	"sort"
	"time"

	"github.com/gorse-io/tabletop/common/log"
	"github.com/gorse-io/tabletop/common/parallel"
	"github.com/gorse-io/tabletop/dataset"
	"github.com/juju/errors"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Correlation is the Pearson coefficient between two users. Coefficient is NaN
// if the pair shares fewer than two items or either side has no variance.
type Correlation struct {
	UserA       int64
	UserB       int64
	Coefficient float64
}

// CorrelationTable is a collection of correlations grouped by UserA.
type CorrelationTable struct {
	users []int64
	rows  map[int64][]Correlation
}

// NewCorrelationTable groups rows by UserA. Rows of the same UserA keep their
// input order.
func NewCorrelationTable(rows []Correlation) *CorrelationTable {
	t := &CorrelationTable{rows: make(map[int64][]Correlation)}
	for _, row := range rows {
		if _, exist := t.rows[row.UserA]; !exist {
			t.users = append(t.users, row.UserA)
		}
		t.rows[row.UserA] = append(t.rows[row.UserA], row)
	}
	sort.Slice(t.users, func(i, j int) bool { return t.users[i] < t.users[j] })
	return t
}

// Users returns every UserA in ascending order.
func (t *CorrelationTable) Users() []int64 {
	return append([]int64(nil), t.users...)
}

// Len returns the number of rows.
func (t *CorrelationTable) Len() int {
	n := 0
	for _, rows := range t.rows {
		n += len(rows)
	}
	return n
}

// Rows returns all rows ordered by UserA.
func (t *CorrelationTable) Rows() []Correlation {
	rows := make([]Correlation, 0, t.Len())
	for _, userId := range t.users {
		rows = append(rows, t.rows[userId]...)
	}
	return rows
}

// Of returns rows whose UserA is the given user.
func (t *CorrelationTable) Of(userId int64) []Correlation {
	return t.rows[userId]
}

// Get returns the coefficient between two users and whether the row exists.
func (t *CorrelationTable) Get(userA, userB int64) (float64, bool) {
	for _, row := range t.rows[userA] {
		if row.UserB == userB {
			return row.Coefficient, true
		}
	}
	return math.NaN(), false
}

// Correlate computes the Pearson correlation of every pair of users in the
// pivot over items both of them rated. The result contains a row for every
// ordered pair, including (u, u) with coefficient 1.
//
// The cost is O(U²·I) for U users and I items. Rows of the upper triangle are
// distributed among jobs workers, each unordered pair is computed exactly once
// and written to both of its cells.
func Correlate(ctx context.Context, pivot *Pivot, jobs int) (*CorrelationTable, error) {
	start := time.Now()
	n := len(pivot.users)
	matrix := make([][]float64, n)
	for i := range matrix {
		matrix[i] = make([]float64, n)
		matrix[i][i] = 1
	}
	err := parallel.Parallel(ctx, n, jobs, func(_, a int) error {
		for b := a + 1; b < n; b++ {
			coefficient := pearson(pivot.columns[a], pivot.columns[b])
			matrix[a][b] = coefficient
			matrix[b][a] = coefficient
		}
		return nil
	})
	if err != nil {
		return nil, errors.Trace(err)
	}

	t := &CorrelationTable{
		users: pivot.Users(),
		rows:  make(map[int64][]Correlation, n),
	}
	degenerate := 0
	for a, userA := range pivot.users {
		rows := make([]Correlation, n)
		for b, userB := range pivot.users {
			rows[b] = Correlation{UserA: userA, UserB: userB, Coefficient: matrix[a][b]}
			if b > a && math.IsNaN(matrix[a][b]) {
				degenerate++
			}
		}
		t.rows[userA] = rows
	}
	pairs := n * (n - 1) / 2
	CorrelateSeconds.Observe(time.Since(start).Seconds())
	CorrelatedPairsTotal.Add(float64(pairs))
	DegeneratePairsTotal.Add(float64(degenerate))
	log.Logger().Debug("correlate users",
		zap.Int("n_users", n),
		zap.Int("n_pairs", pairs),
		zap.Int("n_degenerate", degenerate),
		zap.Duration("elapsed", time.Since(start)))
	return t, nil
}

// CorrelateLiked correlates users over the items they rated above floor.
func CorrelateLiked(ctx context.Context, table *dataset.Table, floor float64, jobs int, opts ...PivotOption) (*CorrelationTable, error) {
	pivot, err := LikeFilteredPivot(table, floor, opts...)
	if err != nil {
		return nil, errors.Trace(err)
	}
	return Correlate(ctx, pivot, jobs)
}

// pearson computes the correlation over positions where neither x nor y is NaN.
func pearson(x, y []float64) float64 {
	var a, b []float64
	for i := range x {
		if !math.IsNaN(x[i]) && !math.IsNaN(y[i]) {
			a = append(a, x[i])
			b = append(b, y[i])
		}
	}
	if len(a) < 2 {
		return math.NaN()
	}
	if floats.Max(a) == floats.Min(a) || floats.Max(b) == floats.Min(b) {
		return math.NaN()
	}
	return clamp(stat.Correlation(a, b, nil), -1, 1)
}

func clamp(x, low, high float64) float64 {
	return math.Max(low, math.Min(high, x))
}
