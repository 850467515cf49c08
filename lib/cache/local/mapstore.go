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

package local

import (
	"sync"

	"gitlab.mdcatapult.io/informatics/software-engineering/annotator-agreement/lib/cache"
)

// New returns an in-process cache holding at most size entries. When it is
// full an arbitrary entry is evicted. A size of zero or less is unbounded.
func New(size int) Client {
	return &local{
		store: make(map[string]*cache.Entry),
		mut:   &sync.RWMutex{},
		size:  size,
	}
}

type Client interface {
	cache.Client
	Delete(key string)
	Len() int
}

type local struct {
	store map[string]*cache.Entry
	mut   *sync.RWMutex
	size  int
}

func (l *local) Get(key string) (*cache.Entry, error) {
	l.mut.RLock()
	defer l.mut.RUnlock()

	entry, ok := l.store[key]
	if !ok {
		return nil, nil
	}

	return entry, nil
}

func (l *local) Set(key string, entry *cache.Entry) error {
	l.mut.Lock()
	defer l.mut.Unlock()

	if _, ok := l.store[key]; !ok && l.size > 0 && len(l.store) >= l.size {
		for k := range l.store {
			delete(l.store, k)
			break
		}
	}
	l.store[key] = entry
	return nil
}

func (l *local) Delete(key string) {
	l.mut.Lock()
	defer l.mut.Unlock()

	delete(l.store, key)
}

func (l *local) Len() int {
	l.mut.RLock()
	defer l.mut.RUnlock()

	return len(l.store)
}
