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

package config

import (
	"reflect"
	"runtime"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/juju/errors"
	"github.com/spf13/viper"
)

const (
	PredictorPeer     = "peer"
	PredictorConstant = "constant"
)

// Config is the configuration for tabletop.
type Config struct {
	Database   DatabaseConfig   `mapstructure:"database"`
	Similarity SimilarityConfig `mapstructure:"similarity"`
	Recommend  RecommendConfig  `mapstructure:"recommend"`
	Evaluate   EvaluateConfig   `mapstructure:"evaluate"`
}

// DatabaseConfig is the configuration for the rating store and the score cache.
type DatabaseConfig struct {
	DataStore   string `mapstructure:"data_store" validate:"required,data_store"`
	CacheStore  string `mapstructure:"cache_store" validate:"omitempty,cache_store"`
	TablePrefix string `mapstructure:"table_prefix"`
}

// SimilarityConfig is the configuration for user correlation.
type SimilarityConfig struct {
	LikeFloor float64 `mapstructure:"like_floor"`
	Jobs      int     `mapstructure:"jobs" validate:"gt=0"`
}

// RecommendConfig is the configuration for peer ranking and recommendation.
type RecommendConfig struct {
	Peers         int     `mapstructure:"peers" validate:"gte=0"`
	PeerThreshold float64 `mapstructure:"peer_threshold" validate:"gte=-1,lte=1"`
	LikeThreshold float64 `mapstructure:"like_threshold"`
	CacheSize     int     `mapstructure:"cache_size" validate:"gt=0"`
	StrictPivot   bool    `mapstructure:"strict_pivot"`
}

// EvaluateConfig is the configuration for the evaluation harness.
type EvaluateConfig struct {
	Seed      int64   `mapstructure:"seed"`
	Constant  float64 `mapstructure:"constant"`
	Predictor string  `mapstructure:"predictor" validate:"oneof=peer constant"`
}

func GetDefaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			DataStore: "sqlite://tabletop.db",
		},
		Similarity: SimilarityConfig{
			LikeFloor: 7,
			Jobs:      runtime.NumCPU(),
		},
		Recommend: RecommendConfig{
			Peers:         5,
			PeerThreshold: 0,
			LikeThreshold: 8,
			CacheSize:     100,
		},
		Evaluate: EvaluateConfig{
			Seed:      0,
			Constant:  7.25,
			Predictor: PredictorPeer,
		},
	}
}

func (config *Config) Validate() error {
	validate := validator.New()
	validate.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("mapstructure"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	if err := validate.RegisterValidation("data_store", func(fl validator.FieldLevel) bool {
		return hasPrefix(fl.Field().String(), dataStorePrefixes)
	}); err != nil {
		return errors.Trace(err)
	}
	if err := validate.RegisterValidation("cache_store", func(fl validator.FieldLevel) bool {
		return hasPrefix(fl.Field().String(), cacheStorePrefixes)
	}); err != nil {
		return errors.Trace(err)
	}
	return errors.Trace(validate.Struct(config))
}

var (
	dataStorePrefixes  = []string{"sqlite://", "mysql://", "postgres://", "postgresql://"}
	cacheStorePrefixes = []string{"sqlite://", "mysql://", "postgres://", "postgresql://", "redis://", "rediss://"}
)

func hasPrefix(s string, prefixes []string) bool {
	for _, prefix := range prefixes {
		if strings.HasPrefix(s, prefix) {
			return true
		}
	}
	return false
}

func setDefault() {
	defaultConfig := GetDefaultConfig()
	// [database]
	viper.SetDefault("database.data_store", defaultConfig.Database.DataStore)
	viper.SetDefault("database.cache_store", defaultConfig.Database.CacheStore)
	viper.SetDefault("database.table_prefix", defaultConfig.Database.TablePrefix)
	// [similarity]
	viper.SetDefault("similarity.like_floor", defaultConfig.Similarity.LikeFloor)
	viper.SetDefault("similarity.jobs", defaultConfig.Similarity.Jobs)
	// [recommend]
	viper.SetDefault("recommend.peers", defaultConfig.Recommend.Peers)
	viper.SetDefault("recommend.peer_threshold", defaultConfig.Recommend.PeerThreshold)
	viper.SetDefault("recommend.like_threshold", defaultConfig.Recommend.LikeThreshold)
	viper.SetDefault("recommend.cache_size", defaultConfig.Recommend.CacheSize)
	viper.SetDefault("recommend.strict_pivot", defaultConfig.Recommend.StrictPivot)
	// [evaluate]
	viper.SetDefault("evaluate.seed", defaultConfig.Evaluate.Seed)
	viper.SetDefault("evaluate.constant", defaultConfig.Evaluate.Constant)
	viper.SetDefault("evaluate.predictor", defaultConfig.Evaluate.Predictor)
}

type configBinding struct {
	key string
	env string
}

// LoadConfig loads configuration from a TOML file. Environment variables
// override values in the file. An empty path loads defaults only.
func LoadConfig(path string) (*Config, error) {
	// set default config
	setDefault()

	// bind environment bindings
	bindings := []configBinding{
		{"database.data_store", "TABLETOP_DATA_STORE"},
		{"database.cache_store", "TABLETOP_CACHE_STORE"},
		{"database.table_prefix", "TABLETOP_TABLE_PREFIX"},
		{"similarity.jobs", "TABLETOP_JOBS"},
	}
	for _, binding := range bindings {
		if err := viper.BindEnv(binding.key, binding.env); err != nil {
			return nil, errors.Trace(err)
		}
	}

	// load config file
	if path != "" {
		viper.SetConfigType("toml")
		viper.SetConfigFile(path)
		if err := viper.ReadInConfig(); err != nil {
			return nil, errors.Trace(err)
		}
	}

	// unmarshal config file
	var conf Config
	if err := viper.Unmarshal(&conf); err != nil {
		return nil, errors.Trace(err)
	}
	if err := conf.Validate(); err != nil {
		return nil, errors.Trace(err)
	}
	return &conf, nil
}
