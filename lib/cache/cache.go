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

package cache

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
)

// Entry is a rendered report, the value we will store in the cache.
type Entry struct {
	ContentType string `json:"content_type"`
	Body        []byte `json:"body"`
}

type Type string

const (
	None  Type = "none"
	Local Type = "local"
	Redis Type = "redis"
)

// Client stores rendered reports. Get returns nil, nil on a miss.
type Client interface {
	Get(key string) (*Entry, error)
	Set(key string, entry *Entry) error
}

// Key hashes request parameters and the export body into a cache key. Parts are
// length prefixed so that ("ab", "c") and ("a", "bc") hash differently.
func Key(parts ...[]byte) string {
	h := sha256.New()
	var size [8]byte
	for _, p := range parts {
		binary.BigEndian.PutUint64(size[:], uint64(len(p)))
		h.Write(size[:])
		h.Write(p)
	}
	return "iaa:" + hex.EncodeToString(h.Sum(nil))
}
