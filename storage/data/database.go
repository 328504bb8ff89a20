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

	"github.com/gorse-io/tabletop/dataset"
	"github.com/gorse-io/tabletop/storage"
	"github.com/juju/errors"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

var ErrNoDatabase = errors.NotAssignedf("database")

// Database stores ratings of board games.
type Database interface {
	Init() error
	Close() error
	Ping() error
	Purge() error
	// BatchInsertRatings inserts ratings. A rating of an existing (user, item)
	// pair overwrites the old one.
	BatchInsertRatings(ctx context.Context, ratings []dataset.Rating) error
	// GetRatings returns all ratings ordered by user and item.
	GetRatings(ctx context.Context) (*dataset.Table, error)
	GetRatingStream(ctx context.Context, batchSize int) (chan []dataset.Rating, chan error)
	GetUserRatings(ctx context.Context, userId int64) ([]dataset.Rating, error)
	CountRatings(ctx context.Context) (int, error)
}

// Open a connection to a database.
func Open(path, tablePrefix string) (Database, error) {
	client, driver, err := storage.OpenSQL(path)
	if err != nil {
		return nil, errors.Trace(err)
	}
	database := new(SQLDatabase)
	database.driver = driver
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
