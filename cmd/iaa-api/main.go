/*
 * Copyright 2022 Medicines Discovery Catapult
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *     http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"gitlab.mdcatapult.io/informatics/software-engineering/annotator-agreement/lib"
	"gitlab.mdcatapult.io/informatics/software-engineering/annotator-agreement/lib/blocklist"
	"gitlab.mdcatapult.io/informatics/software-engineering/annotator-agreement/lib/cache"
	"gitlab.mdcatapult.io/informatics/software-engineering/annotator-agreement/lib/cache/local"
	"gitlab.mdcatapult.io/informatics/software-engineering/annotator-agreement/lib/cache/remote"
	"gitlab.mdcatapult.io/informatics/software-engineering/annotator-agreement/lib/schema"
)

// config structure
type apiConfig struct {
	lib.BaseConfig `mapstructure:",squash"`
	Server         struct {
		HttpPort       int      `mapstructure:"http_port"`
		AllowedOrigins []string `mapstructure:"allowed_origins"`
	}
	MaxBytes    int64 `mapstructure:"max_bytes"`
	Schema      string
	Blocklist   string
	ReportCache cache.Type `mapstructure:"report_cache"`
	CacheSize   int        `mapstructure:"cache_size"`
	Redis       remote.RedisConfig
}

var config apiConfig

func initConfig() {
	// initialise config with defaults.
	err := lib.InitializeConfig("./config/iaa-api.yml", map[string]interface{}{
		"log_level": "info",
		"server": map[string]interface{}{
			"http_port": 8080,
		},
		"max_bytes":    32 << 20,
		"report_cache": cache.Local,
		"cache_size":   1000,
		"redis": map[string]interface{}{
			"host": "localhost",
			"port": 6379,
			"ttl":  "24h",
		},
	}, &config)
	if err != nil {
		log.Fatal().Err(err).Send()
	}
}

func newCache(conf apiConfig) (cache.Client, error) {
	switch conf.ReportCache {
	case cache.Local:
		return local.New(conf.CacheSize), nil
	case cache.Redis:
		return remote.NewRedisClient(conf.Redis), nil
	case cache.None, "":
		return nil, nil
	default:
		return nil, fmt.Errorf("invalid report cache type %q", conf.ReportCache)
	}
}

func main() {
	initConfig()

	c := controller{maxBytes: config.MaxBytes}
	var err error
	if config.Schema != "" {
		if c.schema, err = schema.Load(config.Schema); err != nil {
			log.Fatal().Err(err).Send()
		}
	}
	if config.Blocklist != "" {
		if c.blocklist, err = blocklist.Load(config.Blocklist); err != nil {
			log.Fatal().Err(err).Send()
		}
	}
	if c.cache, err = newCache(config); err != nil {
		log.Fatal().Err(err).Send()
	}

	gin.SetMode(gin.ReleaseMode)
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", config.Server.HttpPort),
		Handler: newRouter(server{controller: c}, config.Server.AllowedOrigins),
	}

	ctx := lib.HandleInterrupt(context.Background())
	go func() {
		<-ctx.Done()
		shutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdown); err != nil {
			log.Error().Err(err).Msg("shutdown")
		}
	}()

	log.Info().
		Int("port", config.Server.HttpPort).
		Str("report_cache", string(config.ReportCache)).
		Msg("ready to accept requests")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Send()
	}
}
