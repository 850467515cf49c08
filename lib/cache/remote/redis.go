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

package remote

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis"
	"gitlab.mdcatapult.io/informatics/software-engineering/annotator-agreement/lib/cache"
)

type RedisConfig struct {
	Host string
	Port int
	// TTL is how long a report is kept. Zero keeps it until redis evicts it.
	TTL time.Duration
}

type Client interface {
	cache.Client
	Ready() bool
}

func NewRedisClient(conf RedisConfig) Client {
	return &redisClient{
		Client: redis.NewClient(&redis.Options{
			Addr: fmt.Sprintf("%s:%d", conf.Host, conf.Port)}),
		ttl: conf.TTL,
	}
}

type redisClient struct {
	*redis.Client
	ttl time.Duration
}

func (r *redisClient) Ready() bool {
	return r.Ping().Err() == nil
}

func (r *redisClient) Get(key string) (*cache.Entry, error) {
	b, err := r.Client.Get(key).Bytes()
	if err == redis.Nil {
		return nil, nil
	} else if err != nil {
		return nil, err
	}

	var entry cache.Entry
	if err = json.Unmarshal(b, &entry); err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *redisClient) Set(key string, entry *cache.Entry) error {
	b, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	return r.Client.Set(key, b, r.ttl).Err()
}
