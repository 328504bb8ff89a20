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

package data

import (
	"context"

	"github.com/gorse-io/tabletop/dataset"
)

// NoDatabase means that no database used.
type NoDatabase struct{}

func (NoDatabase) Init() error {
	return ErrNoDatabase
}

func (NoDatabase) Close() error {
	return ErrNoDatabase
}

func (NoDatabase) Ping() error {
	return ErrNoDatabase
}

func (NoDatabase) Purge() error {
	return ErrNoDatabase
}

func (NoDatabase) BatchInsertRatings(context.Context, []dataset.Rating) error {
	return ErrNoDatabase
}

func (NoDatabase) GetRatings(context.Context) (*dataset.Table, error) {
	return nil, ErrNoDatabase
}

func (NoDatabase) GetRatingStream(context.Context, int) (chan []dataset.Rating, chan error) {
	ratingChan := make(chan []dataset.Rating, 1)
	errChan := make(chan error, 1)
	go func() {
		defer close(ratingChan)
		defer close(errChan)
		errChan <- ErrNoDatabase
	}()
	return ratingChan, errChan
}

func (NoDatabase) GetUserRatings(context.Context, int64) ([]dataset.Rating, error) {
	return nil, ErrNoDatabase
}

func (NoDatabase) CountRatings(context.Context) (int, error) {
	return 0, ErrNoDatabase
}
