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

package main

import (
	"fmt"

	"github.com/gorse-io/tabletop/cmd/version"
	"github.com/gorse-io/tabletop/common/log"
	"github.com/gorse-io/tabletop/config"
	"github.com/gorse-io/tabletop/storage/cache"
	"github.com/gorse-io/tabletop/storage/data"
	"github.com/juju/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var rootCommand = &cobra.Command{
	Use:   "tabletop",
	Short: "Board game recommender based on correlated players.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		debug, _ := cmd.Flags().GetBool("debug")
		log.SetLogger(cmd.Flags(), debug)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		log.CloseLogger()
	},
}

var versionCommand = &cobra.Command{
	Use:   "version",
	Short: "Show the version of tabletop",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Print(version.BuildInfo())
	},
}

func init() {
	log.AddFlags(rootCommand.PersistentFlags())
	rootCommand.PersistentFlags().Bool("debug", false, "use debug log mode")
	rootCommand.PersistentFlags().StringP("config", "c", "", "configuration file path")
	rootCommand.AddCommand(versionCommand, importCommand, recommendCommand, evaluateCommand, summaryCommand)
}

func main() {
	if err := rootCommand.Execute(); err != nil {
		log.Logger().Fatal("failed to execute", zap.Error(err))
	}
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	configPath, _ := cmd.Flags().GetString("config")
	log.Logger().Info("load config", zap.String("config", configPath))
	conf, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, errors.Trace(err)
	}
	return conf, nil
}

func openDataStore(conf *config.Config) (data.Database, error) {
	database, err := data.Open(conf.Database.DataStore, conf.Database.TablePrefix)
	if err != nil {
		return nil, errors.Annotatef(err, "failed to connect data store %s", log.RedactDBURL(conf.Database.DataStore))
	}
	if err = database.Init(); err != nil {
		return nil, errors.Trace(err)
	}
	log.Logger().Info("connect data store", zap.String("data_store", log.RedactDBURL(conf.Database.DataStore)))
	return database, nil
}

// openCacheStore returns NoDatabase if no cache store is configured.
func openCacheStore(conf *config.Config) (cache.Database, error) {
	if conf.Database.CacheStore == "" {
		return cache.NoDatabase{}, nil
	}
	database, err := cache.Open(conf.Database.CacheStore, conf.Database.TablePrefix)
	if err != nil {
		return nil, errors.Annotatef(err, "failed to connect cache store %s", log.RedactDBURL(conf.Database.CacheStore))
	}
	if err = database.Init(); err != nil {
		return nil, errors.Trace(err)
	}
	log.Logger().Info("connect cache store", zap.String("cache_store", log.RedactDBURL(conf.Database.CacheStore)))
	return database, nil
}
