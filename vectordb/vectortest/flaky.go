// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package vectortest

import (
	"context"
	"fmt"
	"sync"

	"github.com/poiesic/docchat/core"
	"github.com/poiesic/docchat/vectordb"
)

// Flaky wraps a Client and fails selected operations a set number of times
// before delegating. It records every call for assertions.
type Flaky struct {
	vectordb.Client

	mu          sync.Mutex
	upsertFails int
	upsertErr   error
	listFails   int
	listErr     error
	countFails  int
	countErr    error
	upsertCalls int
	upsertedIDs [][]string
	listCalls   int
	createCalls int
	deleteCalls int
	existsCalls int
	closeCalls  int
}

var _ vectordb.Client = (*Flaky)(nil)

// NewFlaky wraps inner. With no Fail* calls it behaves exactly like inner.
func NewFlaky(inner vectordb.Client) *Flaky {
	return &Flaky{Client: inner}
}

// FailUpserts makes the next n Upsert calls return err without writing.
func (f *Flaky) FailUpserts(n int, err error) *Flaky {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.upsertFails = n
	f.upsertErr = err
	return f
}

// FailLists makes the next n ListCollections calls return err.
func (f *Flaky) FailLists(n int, err error) *Flaky {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listFails = n
	f.listErr = err
	return f
}

// FailCounts makes the next n Count calls return err.
func (f *Flaky) FailCounts(n int, err error) *Flaky {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.countFails = n
	f.countErr = err
	return f
}

// Transient returns an error classified as core.ErrTransientTransport.
func Transient(msg string) error {
	return fmt.Errorf("%w: %s", core.ErrTransientTransport, msg)
}

func (f *Flaky) ListCollections(ctx context.Context) ([]string, error) {
	f.mu.Lock()
	f.listCalls++
	if f.listFails > 0 {
		f.listFails--
		err := f.listErr
		f.mu.Unlock()
		return nil, err
	}
	f.mu.Unlock()
	return f.Client.ListCollections(ctx)
}

func (f *Flaky) CollectionExists(ctx context.Context, name string) (bool, error) {
	f.mu.Lock()
	f.existsCalls++
	f.mu.Unlock()
	return f.Client.CollectionExists(ctx, name)
}

func (f *Flaky) CreateCollection(ctx context.Context, params vectordb.CollectionParams) error {
	f.mu.Lock()
	f.createCalls++
	f.mu.Unlock()
	return f.Client.CreateCollection(ctx, params)
}

func (f *Flaky) DeleteCollection(ctx context.Context, name string) error {
	f.mu.Lock()
	f.deleteCalls++
	f.mu.Unlock()
	return f.Client.DeleteCollection(ctx, name)
}

func (f *Flaky) Upsert(ctx context.Context, collection string, points []core.Point, wait bool) error {
	ids := make([]string, len(points))
	for i, p := range points {
		ids[i] = p.ID
	}

	f.mu.Lock()
	f.upsertCalls++
	f.upsertedIDs = append(f.upsertedIDs, ids)
	if f.upsertFails > 0 {
		f.upsertFails--
		err := f.upsertErr
		f.mu.Unlock()
		return err
	}
	f.mu.Unlock()
	return f.Client.Upsert(ctx, collection, points, wait)
}

func (f *Flaky) Count(ctx context.Context, collection string) (uint64, error) {
	f.mu.Lock()
	if f.countFails > 0 {
		f.countFails--
		err := f.countErr
		f.mu.Unlock()
		return 0, err
	}
	f.mu.Unlock()
	return f.Client.Count(ctx, collection)
}

func (f *Flaky) Close() error {
	f.mu.Lock()
	f.closeCalls++
	f.mu.Unlock()
	return f.Client.Close()
}

// Calls reports how many times each operation was invoked.
func (f *Flaky) Calls() Calls {
	f.mu.Lock()
	defer f.mu.Unlock()
	return Calls{
		List:   f.listCalls,
		Exists: f.existsCalls,
		Create: f.createCalls,
		Delete: f.deleteCalls,
		Upsert: f.upsertCalls,
		Close:  f.closeCalls,
	}
}

// UpsertedIDs returns the point IDs sent with each Upsert attempt, in order.
func (f *Flaky) UpsertedIDs() [][]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([][]string, len(f.upsertedIDs))
	copy(out, f.upsertedIDs)
	return out
}

// Calls is a snapshot of Flaky's call counters.
type Calls struct {
	List   int
	Exists int
	Create int
	Delete int
	Upsert int
	Close  int
}
