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
	"sort"
	"strings"

	"github.com/gorse-io/tabletop/common/log"
	"github.com/gorse-io/tabletop/storage"
	"github.com/juju/errors"
	"github.com/redis/go-redis/extra/redisotel/v9"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

var ErrNoDatabase = errors.NotAssignedf("cache database")

// Score is a recommended item of a user.
type Score struct {
	ItemId int64
	Score  float64
}

// SortScores orders scores by descending score, ties by ascending item id.
func SortScores(scores []Score) {
	sort.SliceStable(scores, func(i, j int) bool {
		if scores[i].Score != scores[j].Score {
			return scores[i].Score > scores[j].Score
		}
		return scores[i].ItemId < scores[j].ItemId
	})
}

// Database stores recommendation lists of users.
type Database interface {
	Init() error
	Close() error
	Ping() error
	Purge() error
	// SetRecommend replaces the recommendation list of a user.
	SetRecommend(ctx context.Context, userId int64, scores []Score) error
	// GetRecommend returns at most n recommended items of a user. All items
	// are returned if n <= 0.
	GetRecommend(ctx context.Context, userId int64, n int) ([]Score, error)
	DeleteRecommend(ctx context.Context, userId int64) error
}

// Open a connection to a cache database.
func Open(path, tablePrefix string) (Database, error) {
	if strings.HasPrefix(path, storage.RedisPrefix) || strings.HasPrefix(path, storage.RedissPrefix) {
		opt, err := redis.ParseURL(path)
		if err != nil {
			return nil, errors.Trace(err)
		}
		database := new(Redis)
		database.client = redis.NewClient(opt)
		database.TablePrefix = storage.TablePrefix(tablePrefix)
		if err = redisotel.InstrumentTracing(database.client); err != nil {
			log.Logger().Error("failed to add tracing for redis")
			return nil, errors.Trace(err)
		}
		return database, nil
	}
	client, driver, err := storage.OpenSQL(path)
	if err != nil {
		return nil, errors.Trace(err)
	}
	database := new(SQLDatabase)
	database.client = client
	database.TablePrefix = storage.TablePrefix(tablePrefix)
	var dialector gorm.Dialector
	switch driver {
	case storage.MySQL:
		dialector = mysql.New(mysql.Config{Conn: client})
	case storage.Postgres:
		dialector = postgres.New(postgres.Config{Conn: client})
	case storage.SQLite:
		dialector = sqlite.Dialector{Conn: client}
	}
	database.gormDB, err = gorm.Open(dialector, storage.NewGORMConfig(tablePrefix))
	if err != nil {
		return nil, errors.Trace(err)
	}
	return database, nil
}
