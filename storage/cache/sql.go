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

package cache

import (
	"context"
	"database/sql"

	"github.com/gorse-io/tabletop/storage"
	"github.com/juju/errors"
	"github.com/samber/lo"
	"gorm.io/gorm"
)

type SQLRecommend struct {
	UserId int64   `gorm:"column:user_id;primaryKey;autoIncrement:false"`
	Rank   int     `gorm:"column:item_rank;primaryKey;autoIncrement:false"`
	ItemId int64   `gorm:"column:item_id;not null"`
	Score  float64 `gorm:"column:score;not null"`
}

// SQLDatabase stores recommendation lists in MySQL, Postgres or SQLite.
type SQLDatabase struct {
	storage.TablePrefix
	gormDB *gorm.DB
	client *sql.DB
}

func (db *SQLDatabase) Init() error {
	return errors.Trace(db.gormDB.Table(db.RecommendTable()).AutoMigrate(&SQLRecommend{}))
}

func (db *SQLDatabase) Close() error {
	return db.client.Close()
}

func (db *SQLDatabase) Ping() error {
	return db.client.Ping()
}

func (db *SQLDatabase) Purge() error {
	if db.gormDB.Migrator().HasTable(db.RecommendTable()) {
		err := db.gormDB.Session(&gorm.Session{AllowGlobalUpdate: true}).
			Table(db.RecommendTable()).Delete(&SQLRecommend{}).Error
		if err != nil {
			return errors.Trace(err)
		}
	}
	return nil
}

func (db *SQLDatabase) SetRecommend(ctx context.Context, userId int64, scores []Score) error {
	rows := lo.Map(scores, func(s Score, rank int) SQLRecommend {
		return SQLRecommend{UserId: userId, Rank: rank, ItemId: s.ItemId, Score: s.Score}
	})
	return db.gormDB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Table(db.RecommendTable()).Where("user_id = ?", userId).Delete(&SQLRecommend{}).Error; err != nil {
			return errors.Trace(err)
		}
		if len(rows) == 0 {
			return nil
		}
		return errors.Trace(tx.Table(db.RecommendTable()).Create(&rows).Error)
	})
}

func (db *SQLDatabase) GetRecommend(ctx context.Context, userId int64, n int) ([]Score, error) {
	tx := db.gormDB.WithContext(ctx).Table(db.RecommendTable()).
		Where("user_id = ?", userId).
		Order("item_rank")
	if n > 0 {
		tx = tx.Limit(n)
	}
	var rows []SQLRecommend
	if err := tx.Find(&rows).Error; err != nil {
		return nil, errors.Trace(err)
	}
	return lo.Map(rows, func(r SQLRecommend, _ int) Score {
		return Score{ItemId: r.ItemId, Score: r.Score}
	}), nil
}

func (db *SQLDatabase) DeleteRecommend(ctx context.Context, userId int64) error {
	err := db.gormDB.WithContext(ctx).Table(db.RecommendTable()).
		Where("user_id = ?", userId).Delete(&SQLRecommend{}).Error
	return errors.Trace(err)
}
