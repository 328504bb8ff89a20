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
	"fmt"
	"math"

	"github.com/gorse-io/tabletop/common/log"
	"github.com/gorse-io/tabletop/dataset"
	"github.com/juju/errors"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

// DuplicateEntryError is returned by a strict pivot if a user rated the same
// item more than once.
type DuplicateEntryError struct {
	UserId int64
	ItemId int64
}

func (e *DuplicateEntryError) Error() string {
	return fmt.Sprintf("duplicate rating of item %d by user %d", e.ItemId, e.UserId)
}

type PivotOptions struct {
	Strict bool
}

type PivotOption func(*PivotOptions)

// WithStrict rejects duplicate (user, item) pairs instead of keeping the last one.
func WithStrict() PivotOption {
	return func(o *PivotOptions) {
		o.Strict = true
	}
}

func NewPivotOptions(opts ...PivotOption) PivotOptions {
	var opt PivotOptions
	for _, o := range opts {
		o(&opt)
	}
	return opt
}

// Pivot is an item by user matrix. Missing ratings are stored as NaN, so that
// "not rated" is never confused with a rating of zero.
type Pivot struct {
	items     []int64
	users     []int64
	itemIndex map[int64]int
	userIndex map[int64]int
	// columns[u][i] is the rating of items[i] by users[u]
	columns [][]float64
}

// BuildPivot reshapes ratings into a pivot. Items and users are kept in
// ascending id order.
func BuildPivot(table *dataset.Table, opts ...PivotOption) (*Pivot, error) {
	opt := NewPivotOptions(opts...)
	p := &Pivot{
		items: table.Items(),
		users: table.Users(),
	}
	p.itemIndex = indexOf(p.items)
	p.userIndex = indexOf(p.users)
	p.columns = make([][]float64, len(p.users))
	for u := range p.columns {
		p.columns[u] = lo.RepeatBy(len(p.items), func(_ int) float64 { return math.NaN() })
	}
	for i := 0; i < table.Len(); i++ {
		r := table.Get(i)
		u, j := p.userIndex[r.UserId], p.itemIndex[r.ItemId]
		if opt.Strict && !math.IsNaN(p.columns[u][j]) {
			return nil, errors.Trace(&DuplicateEntryError{UserId: r.UserId, ItemId: r.ItemId})
		}
		p.columns[u][j] = r.Value
	}
	log.Logger().Debug("build pivot",
		zap.Int("n_users", len(p.users)),
		zap.Int("n_items", len(p.items)),
		zap.Bool("strict", opt.Strict))
	return p, nil
}

// LikeFilteredPivot pivots only the ratings strictly above floor.
func LikeFilteredPivot(table *dataset.Table, floor float64, opts ...PivotOption) (*Pivot, error) {
	p, err := BuildPivot(table.Above(floor), opts...)
	if err != nil {
		return nil, errors.Trace(err)
	}
	return p, nil
}

func indexOf(ids []int64) map[int64]int {
	index := make(map[int64]int, len(ids))
	for i, id := range ids {
		index[id] = i
	}
	return index
}

// Users returns user ids in ascending order.
func (p *Pivot) Users() []int64 {
	return append([]int64(nil), p.users...)
}

// Items returns item ids in ascending order.
func (p *Pivot) Items() []int64 {
	return append([]int64(nil), p.items...)
}

func (p *Pivot) CountUsers() int {
	return len(p.users)
}

func (p *Pivot) CountItems() int {
	return len(p.items)
}

// Get returns the rating of an item by a user and whether it exists.
func (p *Pivot) Get(itemId, userId int64) (float64, bool) {
	u, ok := p.userIndex[userId]
	if !ok {
		return math.NaN(), false
	}
	i, ok := p.itemIndex[itemId]
	if !ok {
		return math.NaN(), false
	}
	value := p.columns[u][i]
	return value, !math.IsNaN(value)
}

// Column returns the ratings of a user aligned with Items. Missing ratings are NaN.
func (p *Pivot) Column(userId int64) []float64 {
	u, ok := p.userIndex[userId]
	if !ok {
		return nil
	}
	return append([]float64(nil), p.columns[u]...)
}

// Row returns the ratings of an item keyed by user.
func (p *Pivot) Row(itemId int64) map[int64]float64 {
	i, ok := p.itemIndex[itemId]
	if !ok {
		return nil
	}
	row := make(map[int64]float64)
	for u, column := range p.columns {
		if !math.IsNaN(column[i]) {
			row[p.users[u]] = column[i]
		}
	}
	return row
}
