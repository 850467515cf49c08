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
	"bytes"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"
	"gitlab.mdcatapult.io/informatics/software-engineering/annotator-agreement/lib/blocklist"
	"gitlab.mdcatapult.io/informatics/software-engineering/annotator-agreement/lib/cache"
	"gitlab.mdcatapult.io/informatics/software-engineering/annotator-agreement/lib/export"
	"gitlab.mdcatapult.io/informatics/software-engineering/annotator-agreement/lib/iaa"
	"gitlab.mdcatapult.io/informatics/software-engineering/annotator-agreement/lib/report"
	"gitlab.mdcatapult.io/informatics/software-engineering/annotator-agreement/lib/schema"
)

type controller struct {
	schema    *schema.Schema
	blocklist *blocklist.Blocklist
	maxBytes  int64
	// cache is optional.
	cache cache.Client
}

// Agreement computes and renders the report for an export body. The second
// return value is true when the report came from the cache.
func (c controller) Agreement(requestID string, body []byte, mode export.Mode, format report.Format) (*cache.Entry, bool, error) {
	key := cache.Key([]byte(mode), []byte(format), body)
	if c.cache != nil {
		entry, err := c.cache.Get(key)
		if err != nil {
			log.Warn().Err(err).Str("request_id", requestID).Msg("report cache unavailable")
		} else if entry != nil {
			return entry, true, nil
		}
	}

	res, err := iaa.Run(bytes.NewReader(body), iaa.Options{
		Mode:      mode,
		Schema:    c.schema,
		Blocklist: c.blocklist,
		MaxBytes:  c.maxBytes,
	})
	if err != nil {
		var malformed *export.MalformedExport
		switch {
		case errors.Is(err, export.ErrTooLarge):
			return nil, false, NewHttpError(http.StatusRequestEntityTooLarge, err)
		case errors.As(err, &malformed):
			return nil, false, NewHttpError(http.StatusBadRequest, err)
		default:
			return nil, false, err
		}
	}

	var buf bytes.Buffer
	if err := report.Render(&buf, report.New(res), format); err != nil {
		return nil, false, err
	}
	entry := &cache.Entry{ContentType: format.ContentType(), Body: buf.Bytes()}

	if c.cache != nil {
		if err := c.cache.Set(key, entry); err != nil {
			log.Warn().Err(err).Str("request_id", requestID).Msg("could not cache report")
		}
	}
	return entry, false, nil
}

// Ready reports whether the report cache can be reached.
func (c controller) Ready() bool {
	if r, ok := c.cache.(interface{ Ready() bool }); ok {
		return r.Ready()
	}
	return true
}
