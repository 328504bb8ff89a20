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

package storage

import (
	"database/sql"
	"net/url"
	"strings"
	"time"

	"github.com/XSAM/otelsql"
	"github.com/go-sql-driver/mysql"
	"github.com/gorse-io/tabletop/common/log"
	"github.com/juju/errors"
	_ "github.com/lib/pq"
	"github.com/samber/lo"
	"go.opentelemetry.io/otel/attribute"
	semconv "go.opentelemetry.io/otel/semconv/v1.12.0"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/gorm/schema"
	_ "modernc.org/sqlite"
)

const (
	MySQLPrefix      = "mysql://"
	PostgresPrefix   = "postgres://"
	PostgreSQLPrefix = "postgresql://"
	SQLitePrefix     = "sqlite://"
	RedisPrefix      = "redis://"
	RedissPrefix     = "rediss://"
)

func AppendURLParams(rawURL string, params []lo.Tuple2[string, string]) (string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", errors.Trace(err)
	}
	q := parsed.Query()
	for _, tuple := range params {
		q.Add(tuple.A, tuple.B)
	}
	parsed.RawQuery = q.Encode()
	return parsed.String(), nil
}

func AppendMySQLParams(dsn string, params map[string]string) (string, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return "", errors.Trace(err)
	}
	if cfg.Params == nil {
		cfg.Params = make(map[string]string)
	}
	for key, value := range params {
		if _, exist := cfg.Params[key]; !exist {
			cfg.Params[key] = value
		}
	}
	return cfg.FormatDSN(), nil
}

type TablePrefix string

func (tp TablePrefix) RatingsTable() string {
	return string(tp) + "ratings"
}

func (tp TablePrefix) RecommendTable() string {
	return string(tp) + "recommend"
}

// SQLDriver is the dialect of a SQL connection.
type SQLDriver int

const (
	MySQL SQLDriver = iota
	Postgres
	SQLite
)

// OpenSQL opens an instrumented connection for a data store URL.
func OpenSQL(path string) (*sql.DB, SQLDriver, error) {
	var (
		driverName string
		dsn        string
		driver     SQLDriver
		system     attribute.KeyValue
		err        error
	)
	switch {
	case strings.HasPrefix(path, MySQLPrefix):
		if dsn, err = AppendMySQLParams(path[len(MySQLPrefix):], map[string]string{
			"parseTime": "true",
		}); err != nil {
			return nil, 0, errors.Trace(err)
		}
		driverName, driver, system = "mysql", MySQL, semconv.DBSystemMySQL
	case strings.HasPrefix(path, PostgresPrefix), strings.HasPrefix(path, PostgreSQLPrefix):
		driverName, dsn, driver, system = "postgres", path, Postgres, semconv.DBSystemPostgreSQL
	case strings.HasPrefix(path, SQLitePrefix):
		if dsn, err = AppendURLParams(path[len(SQLitePrefix):], []lo.Tuple2[string, string]{
			{A: "_pragma", B: "busy_timeout(10000)"},
			{A: "_pragma", B: "journal_mode(wal)"},
		}); err != nil {
			return nil, 0, errors.Trace(err)
		}
		driverName, driver, system = "sqlite", SQLite, semconv.DBSystemSqlite
	default:
		return nil, 0, errors.NotSupportedf("database %s", log.RedactDBURL(path))
	}
	client, err := otelsql.Open(driverName, dsn,
		otelsql.WithAttributes(system),
		otelsql.WithSpanOptions(otelsql.SpanOptions{DisableErrSkip: true}),
	)
	if err != nil {
		return nil, 0, errors.Trace(err)
	}
	return client, driver, nil
}

func NewGORMConfig(tablePrefix string) *gorm.Config {
	return &gorm.Config{
		Logger: logger.New(zap.NewStdLog(log.Logger()), logger.Config{
			SlowThreshold:             10 * time.Second,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
		}),
		CreateBatchSize:        1000,
		SkipDefaultTransaction: true,
		NamingStrategy: schema.NamingStrategy{
			TablePrefix:   tablePrefix,
			SingularTable: true,
			NameReplacer: strings.NewReplacer(
				"SQLRating", "Ratings",
				"SQLRecommend", "Recommend",
			),
		},
	}
}
