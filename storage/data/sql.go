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

package data

import (
	"context"
	"database/sql"

	"github.com/gorse-io/tabletop/common/log"
	"github.com/gorse-io/tabletop/dataset"
	"github.com/gorse-io/tabletop/storage"
	"github.com/juju/errors"
	"github.com/samber/lo"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const batchSize = 1000

type SQLRating struct {
	UserId int64   `gorm:"column:user_id;primaryKey;autoIncrement:false"`
	ItemId int64   `gorm:"column:item_id;primaryKey;autoIncrement:false;index"`
	Value  float64 `gorm:"column:rating;not null"`
}

func toSQLRating(r dataset.Rating) SQLRating {
	return SQLRating{UserId: r.UserId, ItemId: r.ItemId, Value: r.Value}
}

func (r SQLRating) toRating() dataset.Rating {
	return dataset.Rating{UserId: r.UserId, ItemId: r.ItemId, Value: r.Value}
}

// SQLDatabase stores ratings in MySQL, Postgres or SQLite.
type SQLDatabase struct {
	storage.TablePrefix
	gormDB *gorm.DB
	client *sql.DB
	driver storage.SQLDriver
}

// Init tables and indices.
func (d *SQLDatabase) Init() error {
	return errors.Trace(d.gormDB.Table(d.RatingsTable()).AutoMigrate(&SQLRating{}))
}

func (d *SQLDatabase) Close() error {
	return d.client.Close()
}

func (d *SQLDatabase) Ping() error {
	return d.client.Ping()
}

// Purge deletes all ratings.
func (d *SQLDatabase) Purge() error {
	if d.gormDB.Migrator().HasTable(d.RatingsTable()) {
		err := d.gormDB.Session(&gorm.Session{AllowGlobalUpdate: true}).
			Table(d.RatingsTable()).Delete(&SQLRating{}).Error
		if err != nil {
			return errors.Trace(err)
		}
	}
	return nil
}

func (d *SQLDatabase) BatchInsertRatings(ctx context.Context, ratings []dataset.Rating) error {
	rows := lo.Map(dedupRatings(ratings), func(r dataset.Rating, _ int) SQLRating {
		return toSQLRating(r)
	})
	if len(rows) == 0 {
		return nil
	}
	err := d.gormDB.WithContext(ctx).Table(d.RatingsTable()).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "item_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"rating"}),
	}).CreateInBatches(rows, batchSize).Error
	return errors.Trace(err)
}

// dedupRatings keeps the last rating of each (user, item) pair at the position
// of its first occurrence.
func dedupRatings(ratings []dataset.Rating) []dataset.Rating {
	type key struct{ userId, itemId int64 }
	index := make(map[key]int, len(ratings))
	result := make([]dataset.Rating, 0, len(ratings))
	for _, r := range ratings {
		k := key{r.UserId, r.ItemId}
		if i, exist := index[k]; exist {
			result[i] = r
		} else {
			index[k] = len(result)
			result = append(result, r)
		}
	}
	return result
}

func (d *SQLDatabase) GetRatings(ctx context.Context) (*dataset.Table, error) {
	ratingChan, errChan := d.GetRatingStream(ctx, batchSize)
	var ratings []dataset.Rating
	for batch := range ratingChan {
		ratings = append(ratings, batch...)
	}
	if err := <-errChan; err != nil {
		return nil, errors.Trace(err)
	}
	log.Logger().Debug("load ratings", zap.Int("n_ratings", len(ratings)))
	return dataset.NewTable(ratings), nil
}

// GetRatingStream reads ratings in batches ordered by user and item.
func (d *SQLDatabase) GetRatingStream(ctx context.Context, batchSize int) (chan []dataset.Rating, chan error) {
	ratingChan := make(chan []dataset.Rating, 1)
	errChan := make(chan error, 1)
	go func() {
		defer close(ratingChan)
		defer close(errChan)
		rows, err := d.gormDB.WithContext(ctx).Table(d.RatingsTable()).
			Select("user_id, item_id, rating").
			Order("user_id, item_id").Rows()
		if err != nil {
			errChan <- errors.Trace(err)
			return
		}
		defer rows.Close()
		batch := make([]dataset.Rating, 0, batchSize)
		for rows.Next() {
			var row SQLRating
			if err = d.gormDB.ScanRows(rows, &row); err != nil {
				errChan <- errors.Trace(err)
				return
			}
			batch = append(batch, row.toRating())
			if len(batch) == batchSize {
				ratingChan <- batch
				batch = make([]dataset.Rating, 0, batchSize)
			}
		}
		if err = rows.Err(); err != nil {
			errChan <- errors.Trace(err)
			return
		}
		if len(batch) > 0 {
			ratingChan <- batch
		}
		errChan <- nil
	}()
	return ratingChan, errChan
}

func (d *SQLDatabase) GetUserRatings(ctx context.Context, userId int64) ([]dataset.Rating, error) {
	var rows []SQLRating
	err := d.gormDB.WithContext(ctx).Table(d.RatingsTable()).
		Where("user_id = ?", userId).
		Order("item_id").Find(&rows).Error
	if err != nil {
		return nil, errors.Trace(err)
	}
	return lo.Map(rows, func(r SQLRating, _ int) dataset.Rating {
		return r.toRating()
	}), nil
}

func (d *SQLDatabase) CountRatings(ctx context.Context) (int, error) {
	var count int64
	err := d.gormDB.WithContext(ctx).Table(d.RatingsTable()).Count(&count).Error
	if err != nil {
		return 0, errors.Trace(err)
	}
	return int(count), nil
}
