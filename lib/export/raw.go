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

package export

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Label Studio export records. Fields not listed here are ignored.

type rawTask struct {
	ID          json.RawMessage `json:"id"`
	Data        *rawData        `json:"data"`
	Annotations []rawAnnotation `json:"annotations"`
}

type rawData struct {
	Text json.RawMessage `json:"text"`
}

type rawAnnotation struct {
	ID           json.RawMessage `json:"id"`
	CompletedBy  json.RawMessage `json:"completed_by"`
	WasCancelled bool            `json:"was_cancelled"`
	Result       []rawResult     `json:"result"`
}

// rawResult keeps its value undecoded. Only the result types the run reads are
// decoded, so other tools' values (xpath offsets, audio seconds) never fail a load.
type rawResult struct {
	Type  string          `json:"type"`
	Value json.RawMessage `json:"value"`
}

type rawValue struct {
	Choices         []string    `json:"choices"`
	Taxonomy        [][]string  `json:"taxonomy"`
	Labels          []string    `json:"labels"`
	ParagraphLabels []string    `json:"paragraphlabels"`
	Start           optionalInt `json:"start"`
	End             optionalInt `json:"end"`
	StartOffset     optionalInt `json:"startOffset"`
	EndOffset       optionalInt `json:"endOffset"`
}

type rawParagraph struct {
	Author string `json:"author"`
	Text   string `json:"text"`
}

// optionalInt is an integer field whose presence is tracked separately from its
// value, so that an explicit 0 is never mistaken for an absent field. Label
// Studio writes paragraph indices as strings, so numeric strings are accepted.
type optionalInt struct {
	Value int
	Set   bool
}

func (o *optionalInt) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*o = optionalInt{}
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		v, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil {
			return fmt.Errorf("offset %q is not an integer", s)
		}
		*o = optionalInt{Value: v, Set: true}
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return err
	}
	if f != math.Trunc(f) || math.Abs(f) > math.MaxInt32 {
		return fmt.Errorf("offset %s is not an integer", b)
	}
	*o = optionalInt{Value: int(f), Set: true}
	return nil
}

// firstSet returns the first present value.
func firstSet(values ...optionalInt) optionalInt {
	for _, v := range values {
		if v.Set {
			return v
		}
	}
	return optionalInt{}
}

// identifier decodes an id that may be written as a number or a string. The
// boolean is false when the field is absent, null or empty.
func identifier(raw json.RawMessage) (string, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", false
	}
	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", false
		}
		s = strings.TrimSpace(s)
		return s, s != ""
	case '{', '[':
		return "", false
	default:
		var n json.Number
		if err := json.Unmarshal(raw, &n); err != nil {
			return "", false
		}
		return n.String(), true
	}
}

// annotator decodes completed_by, which is a user id in project exports and a
// user object ({"id", "email"}) in some export variants. The email wins when present.
func annotator(raw json.RawMessage) (string, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) > 0 && raw[0] == '{' {
		var user struct {
			ID    json.RawMessage `json:"id"`
			Email string          `json:"email"`
		}
		if err := json.Unmarshal(raw, &user); err != nil {
			return "", false
		}
		if email := strings.TrimSpace(user.Email); email != "" {
			return email, true
		}
		return identifier(user.ID)
	}
	return identifier(raw)
}

var errTextShape = errors.New("must be a string or a list of paragraphs")

// taskText decodes data.text, which is a string for document tasks and a list of
// {author, text} objects (or plain strings) for sentence tasks.
func taskText(raw json.RawMessage) (text string, paragraphs []string, isList bool, err error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", nil, false, ErrMissingField
	}
	switch raw[0] {
	case '"':
		err = json.Unmarshal(raw, &text)
		return text, nil, false, err
	case '[':
		var elems []json.RawMessage
		if err = json.Unmarshal(raw, &elems); err != nil {
			return "", nil, true, err
		}
		paragraphs = make([]string, len(elems))
		for i, e := range elems {
			e = bytes.TrimSpace(e)
			if len(e) > 0 && e[0] == '"' {
				err = json.Unmarshal(e, &paragraphs[i])
			} else {
				var p rawParagraph
				err = json.Unmarshal(e, &p)
				paragraphs[i] = p.Text
			}
			if err != nil {
				return "", nil, true, fmt.Errorf("paragraph %d: %w", i, err)
			}
		}
		return strings.Join(paragraphs, "\n"), paragraphs, true, nil
	default:
		return "", nil, false, errTextShape
	}
}
