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
	"errors"
	"fmt"
)

var (
	ErrMissingField = errors.New("required field missing")
	ErrTooLarge     = errors.New("export exceeds size limit")
	ErrNotArray     = errors.New("export must be a JSON array of tasks")
	ErrDuplicateID  = errors.New("duplicate task id")
)

// MalformedExport is returned when the document cannot be read into the expected
// shape. Index is the position of the offending task, or -1 when it cannot be
// determined.
type MalformedExport struct {
	Index int
	Field string
	Err   error
}

func (e *MalformedExport) Error() string {
	switch {
	case e.Index < 0:
		return fmt.Sprintf("malformed export: %v", e.Err)
	case e.Field == "":
		return fmt.Sprintf("malformed export: task %d: %v", e.Index, e.Err)
	default:
		return fmt.Sprintf("malformed export: task %d: %s: %v", e.Index, e.Field, e.Err)
	}
}

func (e *MalformedExport) Unwrap() error {
	return e.Err
}

// InvalidSpan describes a span whose offsets are inverted or fall outside the
// item's text. It is recovered locally: the item is excluded from span metrics.
type InvalidSpan struct {
	ItemID    string
	Annotator string
	Start     int
	End       int
	// Length is the item text length in runes, or the paragraph count in sentence mode.
	Length int
}

func (e *InvalidSpan) Error() string {
	if e.Start >= e.End {
		return fmt.Sprintf("invalid span [%d,%d) on item %s by %s: start must be before end", e.Start, e.End, e.ItemID, e.Annotator)
	}
	return fmt.Sprintf("invalid span [%d,%d) on item %s by %s: outside text of length %d", e.Start, e.End, e.ItemID, e.Annotator, e.Length)
}
