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

package storage

import (
	"fmt"
	"time"

	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/varint"
	"github.com/poiesic/docchat/core"
)

// sessionVersion is the first byte of every encoded session.
const sessionVersion byte = 1

// MarshalSession serializes a Session to bytes.
//
// Layout: version, ID, updated-at (unix micro), turn count, long-term
// summary, short-term length, then role and content of each turn.
func MarshalSession(session *Session) []byte {
	buf := make([]byte, sessionSize(session))
	n := copy(buf, []byte{sessionVersion})
	n += ord.String.Marshal(session.ID, buf[n:])
	n += varint.Int64.Marshal(session.UpdatedAt.UnixMicro(), buf[n:])
	n += varint.Int.Marshal(session.State.TurnCount, buf[n:])
	n += ord.String.Marshal(session.State.LongTerm, buf[n:])
	n += varint.Int.Marshal(len(session.State.ShortTerm), buf[n:])
	for _, turn := range session.State.ShortTerm {
		n += ord.String.Marshal(string(turn.Role), buf[n:])
		n += ord.String.Marshal(turn.Content, buf[n:])
	}
	return buf[:n]
}

func sessionSize(session *Session) int {
	size := 1
	size += ord.String.Size(session.ID)
	size += varint.Int64.Size(session.UpdatedAt.UnixMicro())
	size += varint.Int.Size(session.State.TurnCount)
	size += ord.String.Size(session.State.LongTerm)
	size += varint.Int.Size(len(session.State.ShortTerm))
	for _, turn := range session.State.ShortTerm {
		size += ord.String.Size(string(turn.Role))
		size += ord.String.Size(turn.Content)
	}
	return size
}

// UnmarshalSession deserializes a Session from bytes.
func UnmarshalSession(data []byte) (*Session, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty session", ErrTruncatedData)
	}
	if data[0] != sessionVersion {
		return nil, fmt.Errorf("%w: unknown session version %d", ErrSerializationFailed, data[0])
	}

	d := decoder{data: data, n: 1}
	session := &Session{}
	session.ID = d.string()
	micros := d.int64()
	session.State.TurnCount = d.int()
	session.State.LongTerm = d.string()
	count := d.int()
	if d.err != nil {
		return nil, d.err
	}
	if count < 0 || count > len(data) {
		return nil, fmt.Errorf("%w: invalid turn count %d", ErrSerializationFailed, count)
	}

	session.State.ShortTerm = make([]core.Turn, 0, count)
	for range count {
		role := d.string()
		content := d.string()
		if d.err != nil {
			return nil, d.err
		}
		session.State.ShortTerm = append(session.State.ShortTerm, core.Turn{Role: core.Role(role), Content: content})
	}
	if d.n != len(data) {
		return nil, fmt.Errorf("%w: %d trailing bytes", ErrSerializationFailed, len(data)-d.n)
	}

	session.UpdatedAt = time.UnixMicro(micros).UTC()
	return session, nil
}

// decoder reads consecutive fields and keeps the first error.
type decoder struct {
	data []byte
	n    int
	err  error
}

func (d *decoder) string() string {
	if d.err != nil {
		return ""
	}
	v, n, err := ord.String.Unmarshal(d.data[d.n:])
	d.advance(n, err)
	return v
}

func (d *decoder) int() int {
	if d.err != nil {
		return 0
	}
	v, n, err := varint.Int.Unmarshal(d.data[d.n:])
	d.advance(n, err)
	return v
}

func (d *decoder) int64() int64 {
	if d.err != nil {
		return 0
	}
	v, n, err := varint.Int64.Unmarshal(d.data[d.n:])
	d.advance(n, err)
	return v
}

func (d *decoder) advance(n int, err error) {
	if err != nil {
		d.err = fmt.Errorf("%w: at byte %d: %w", ErrTruncatedData, d.n, err)
		return
	}
	d.n += n
}
