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

package dataset

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/juju/errors"
	"github.com/samber/lo"
)

var (
	userColumns   = []string{"user_id", "userid", "user"}
	itemColumns   = []string{"item_id", "itemid", "game_id", "gameid", "item", "game"}
	ratingColumns = []string{"rating", "value", "score"}
)

// MalformedRowError is returned when a row of a rating file can't be parsed.
type MalformedRowError struct {
	Line   int
	Reason string
}

func (e *MalformedRowError) Error() string {
	return fmt.Sprintf("malformed row at line %d: %s", e.Line, e.Reason)
}

// LoadCSVFile loads ratings from a CSV file with a header line.
func LoadCSVFile(path, sep string) (*Table, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Trace(err)
	}
	defer file.Close()
	return LoadCSV(file, sep)
}

// LoadCSV loads ratings from CSV. The first line is a header naming the user,
// item (or game) and rating columns. If any of them can't be recognized, the
// first three columns are used in that order.
func LoadCSV(r io.Reader, sep string) (*Table, error) {
	var (
		ratings  []Rating
		columns  []int
		parseErr error
	)
	err := ReadLines(bufio.NewScanner(r), sep, func(line int, fields []string) bool {
		if line == 0 {
			columns = resolveColumns(fields)
			return true
		}
		if len(fields) == 1 && strings.TrimSpace(fields[0]) == "" {
			return true
		}
		rating, err := parseRating(fields, columns)
		if err != nil {
			parseErr = &MalformedRowError{Line: line + 1, Reason: err.Error()}
			return false
		}
		ratings = append(ratings, rating)
		return true
	})
	if err != nil {
		return nil, errors.Trace(err)
	}
	if parseErr != nil {
		return nil, errors.Trace(parseErr)
	}
	return NewTable(ratings), nil
}

func resolveColumns(header []string) []int {
	names := lo.Map(header, func(name string, _ int) string {
		return strings.ToLower(strings.TrimSpace(name))
	})
	find := func(aliases []string) int {
		for i, name := range names {
			if lo.Contains(aliases, name) {
				return i
			}
		}
		return -1
	}
	columns := []int{find(userColumns), find(itemColumns), find(ratingColumns)}
	if lo.Contains(columns, -1) || len(lo.Uniq(columns)) != len(columns) {
		return []int{0, 1, 2}
	}
	return columns
}

func parseRating(fields []string, columns []int) (Rating, error) {
	if len(fields) <= lo.Max(columns) {
		return Rating{}, fmt.Errorf("expect at least %d fields, but got %d", lo.Max(columns)+1, len(fields))
	}
	userId, err := strconv.ParseInt(strings.TrimSpace(fields[columns[0]]), 10, 64)
	if err != nil {
		return Rating{}, fmt.Errorf("invalid user id %q", fields[columns[0]])
	}
	itemId, err := strconv.ParseInt(strings.TrimSpace(fields[columns[1]]), 10, 64)
	if err != nil {
		return Rating{}, fmt.Errorf("invalid item id %q", fields[columns[1]])
	}
	value, err := strconv.ParseFloat(strings.TrimSpace(fields[columns[2]]), 64)
	if err != nil {
		return Rating{}, fmt.Errorf("invalid rating %q", fields[columns[2]])
	}
	return Rating{UserId: userId, ItemId: itemId, Value: value}, nil
}

// WriteCSV writes ratings with a user_id,item_id,rating header.
func WriteCSV(w io.Writer, table *Table) error {
	buf := bufio.NewWriter(w)
	if _, err := buf.WriteString("user_id,item_id,rating\n"); err != nil {
		return errors.Trace(err)
	}
	for _, r := range table.ratings {
		if _, err := fmt.Fprintf(buf, "%d,%d,%s\n", r.UserId, r.ItemId,
			strconv.FormatFloat(r.Value, 'g', -1, 64)); err != nil {
			return errors.Trace(err)
		}
	}
	return errors.Trace(buf.Flush())
}

// ReadLines parse fields of each line for csv file.
func ReadLines(sc *bufio.Scanner, sep string, handler func(int, []string) bool) error {
	lineCount := 0               // line number of current position
	fields := make([]string, 0)  // fields for current line
	builder := strings.Builder{} // string builder for current field
	quoted := false              // whether current position in quote
	for sc.Scan() {
		lineStr := strings.TrimSuffix(sc.Text(), "\r")
		line := []rune(lineStr)
		if quoted {
			builder.WriteString("\r\n")
		}
		for i := 0; i < len(line); i++ {
			if string(line[i]) == sep && !quoted {
				// end of field
				fields = append(fields, builder.String())
				builder.Reset()
			} else if line[i] == '"' {
				if quoted {
					if i+1 >= len(line) || line[i+1] != '"' {
						// end of quoted
						quoted = false
					} else {
						i++
						builder.WriteRune('"')
					}
				} else {
					// start of quoted
					quoted = true
				}
			} else {
				builder.WriteRune(line[i])
			}
		}
		// end of line
		if !quoted {
			fields = append(fields, builder.String())
			builder.Reset()
			if !handler(lineCount, fields) {
				return nil
			}
			fields = []string{}
		}
		lineCount++
	}
	return sc.Err()
}
