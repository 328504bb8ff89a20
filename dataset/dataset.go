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

package dataset

import (
	"math"
	"sort"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/samber/lo"
)

// Rating is the rating given to an item by a user.
type Rating struct {
	UserId int64
	ItemId int64
	Value  float64
}

// Table is an ordered collection of ratings. A table is never modified after
// it has been created, derived tables are built by copying.
type Table struct {
	ratings []Rating
	users   map[int64][]int
	items   map[int64][]int
}

// NewTable creates a table from ratings. The slice is copied.
func NewTable(ratings []Rating) *Table {
	t := &Table{
		ratings: make([]Rating, len(ratings)),
		users:   make(map[int64][]int),
		items:   make(map[int64][]int),
	}
	copy(t.ratings, ratings)
	for i, r := range t.ratings {
		t.users[r.UserId] = append(t.users[r.UserId], i)
		t.items[r.ItemId] = append(t.items[r.ItemId], i)
	}
	return t
}

// Len returns the number of ratings.
func (t *Table) Len() int {
	return len(t.ratings)
}

// Get returns the i-th rating.
func (t *Table) Get(i int) Rating {
	return t.ratings[i]
}

// Ratings returns a copy of all ratings in order.
func (t *Table) Ratings() []Rating {
	return append([]Rating(nil), t.ratings...)
}

// Values returns rating values in order.
func (t *Table) Values() []float64 {
	return lo.Map(t.ratings, func(r Rating, _ int) float64 {
		return r.Value
	})
}

// Users returns distinct user ids in ascending order.
func (t *Table) Users() []int64 {
	users := lo.Keys(t.users)
	sort.Slice(users, func(i, j int) bool { return users[i] < users[j] })
	return users
}

// Items returns distinct item ids in ascending order.
func (t *Table) Items() []int64 {
	items := lo.Keys(t.items)
	sort.Slice(items, func(i, j int) bool { return items[i] < items[j] })
	return items
}

// CountUsers returns the number of distinct users.
func (t *Table) CountUsers() int {
	return len(t.users)
}

// CountItems returns the number of distinct items.
func (t *Table) CountItems() int {
	return len(t.items)
}

// UserRatings returns ratings of a user in table order.
func (t *Table) UserRatings(userId int64) []Rating {
	return lo.Map(t.users[userId], func(i int, _ int) Rating {
		return t.ratings[i]
	})
}

// ItemRatings returns ratings of an item in table order.
func (t *Table) ItemRatings(itemId int64) []Rating {
	return lo.Map(t.items[itemId], func(i int, _ int) Rating {
		return t.ratings[i]
	})
}

// CountUserRatings returns the number of ratings given by a user.
func (t *Table) CountUserRatings(userId int64) int {
	return len(t.users[userId])
}

// CountPerUser returns the number of ratings given by each user.
func (t *Table) CountPerUser() map[int64]int {
	return lo.MapValues(t.users, func(indices []int, _ int64) int {
		return len(indices)
	})
}

// CountPerItem returns the number of ratings received by each item.
func (t *Table) CountPerItem() map[int64]int {
	return lo.MapValues(t.items, func(indices []int, _ int64) int {
		return len(indices)
	})
}

// RatedItems returns the set of items rated by a user.
func (t *Table) RatedItems(userId int64) mapset.Set[int64] {
	set := mapset.NewThreadUnsafeSet[int64]()
	for _, i := range t.users[userId] {
		set.Add(t.ratings[i].ItemId)
	}
	return set
}

// GetRating returns the rating of an item given by a user. NaN is returned if
// the user has not rated the item. The last rating wins for duplicates.
func (t *Table) GetRating(userId, itemId int64) float64 {
	value := math.NaN()
	for _, i := range t.users[userId] {
		if t.ratings[i].ItemId == itemId {
			value = t.ratings[i].Value
		}
	}
	return value
}

// MeanRating returns the mean rating of a user, NaN for unknown users.
func (t *Table) MeanRating(userId int64) float64 {
	indices := t.users[userId]
	if len(indices) == 0 {
		return math.NaN()
	}
	return lo.SumBy(indices, func(i int) float64 { return t.ratings[i].Value }) / float64(len(indices))
}

// GlobalMean returns the mean of all ratings, NaN for an empty table.
func (t *Table) GlobalMean() float64 {
	if len(t.ratings) == 0 {
		return math.NaN()
	}
	return lo.SumBy(t.ratings, func(r Rating) float64 { return r.Value }) / float64(len(t.ratings))
}

// ListItems returns items rated by a user in ascending order.
func (t *Table) ListItems(userId int64) []int64 {
	items := lo.Uniq(lo.Map(t.users[userId], func(i int, _ int) int64 {
		return t.ratings[i].ItemId
	}))
	sort.Slice(items, func(i, j int) bool { return items[i] < items[j] })
	return items
}

// ListUsers returns users who rated an item in ascending order.
func (t *Table) ListUsers(itemId int64) []int64 {
	users := lo.Uniq(lo.Map(t.items[itemId], func(i int, _ int) int64 {
		return t.ratings[i].UserId
	}))
	sort.Slice(users, func(i, j int) bool { return users[i] < users[j] })
	return users
}

// Filter returns a new table with ratings matching the predicate.
func (t *Table) Filter(predicate func(Rating) bool) *Table {
	return NewTable(lo.Filter(t.ratings, func(r Rating, _ int) bool {
		return predicate(r)
	}))
}

// Above returns a new table with ratings strictly above threshold.
func (t *Table) Above(threshold float64) *Table {
	return t.Filter(func(r Rating) bool {
		return r.Value > threshold
	})
}

// ItemsUserLoves returns ratings of a user strictly above threshold, highest first.
func (t *Table) ItemsUserLoves(userId int64, threshold float64) []Rating {
	loves := lo.Filter(t.UserRatings(userId), func(r Rating, _ int) bool {
		return r.Value > threshold
	})
	sortByValue(loves, true)
	return loves
}

// UsersLoveItem returns ratings of an item strictly above threshold, highest first.
func (t *Table) UsersLoveItem(itemId int64, threshold float64) []Rating {
	loves := lo.Filter(t.ItemRatings(itemId), func(r Rating, _ int) bool {
		return r.Value > threshold
	})
	sortByValue(loves, true)
	return loves
}

// ItemsUserHates returns ratings of a user strictly below threshold, lowest first.
func (t *Table) ItemsUserHates(userId int64, threshold float64) []Rating {
	hates := lo.Filter(t.UserRatings(userId), func(r Rating, _ int) bool {
		return r.Value < threshold
	})
	sortByValue(hates, false)
	return hates
}

// UsersHateItem returns ratings of an item strictly below threshold, lowest first.
func (t *Table) UsersHateItem(itemId int64, threshold float64) []Rating {
	hates := lo.Filter(t.ItemRatings(itemId), func(r Rating, _ int) bool {
		return r.Value < threshold
	})
	sortByValue(hates, false)
	return hates
}

func sortByValue(ratings []Rating, descending bool) {
	sort.SliceStable(ratings, func(i, j int) bool {
		if descending {
			return ratings[i].Value > ratings[j].Value
		}
		return ratings[i].Value < ratings[j].Value
	})
}

// Summary is an overall look at a table.
type Summary struct {
	NumUsers     int
	NumItems     int
	NumRatings   int
	UserRatings  map[int64]int
	ItemRatings  map[int64]int
	MinRating    float64
	MaxRating    float64
	MeanRating   float64
	MaxUserCount int
	MaxItemCount int
}

// Summarize counts ratings per user and per item.
func (t *Table) Summarize() Summary {
	s := Summary{
		NumUsers:    len(t.users),
		NumItems:    len(t.items),
		NumRatings:  len(t.ratings),
		UserRatings: t.CountPerUser(),
		ItemRatings: t.CountPerItem(),
		MinRating:   math.NaN(),
		MaxRating:   math.NaN(),
		MeanRating:  t.GlobalMean(),
	}
	for _, count := range s.UserRatings {
		s.MaxUserCount = max(s.MaxUserCount, count)
	}
	for _, count := range s.ItemRatings {
		s.MaxItemCount = max(s.MaxItemCount, count)
	}
	if len(t.ratings) > 0 {
		values := t.Values()
		s.MinRating, s.MaxRating = lo.Min(values), lo.Max(values)
	}
	return s
}
