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
	"sort"
	"time"

	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/raw"
	"github.com/mus-format/mus-go/varint"

	"github.com/poiesic/retrievio/core"
)

// Record layouts are field sequences of mus scalar encodings. Strings use
// ord.String, lengths use varint.PositiveInt, vector components use
// raw.Float32 and timestamps are UnixMicro values in varint.Int64.

func MarshalVectorRecord(record *core.VectorRecord) []byte {
	buf := make([]byte, sizeVectorRecord(record))
	n := ord.String.Marshal(record.Id, buf)
	n += ord.String.Marshal(record.Text, buf[n:])
	n += marshalVector(record.Vector, buf[n:])
	n += marshalMetadata(record.Metadata, buf[n:])
	n += marshalTime(record.InsertedAt, buf[n:])
	marshalTime(record.UpdatedAt, buf[n:])
	return buf
}

func UnmarshalVectorRecord(data []byte) (*core.VectorRecord, error) {
	d := decoder{bs: data}
	record := &core.VectorRecord{
		Id:         d.string(),
		Text:       d.string(),
		Vector:     d.vector(),
		Metadata:   d.metadata(),
		InsertedAt: d.time(),
		UpdatedAt:  d.time(),
	}
	if d.err != nil {
		return nil, fmt.Errorf("%w: vector record: %w", ErrSerializationFailed, d.err)
	}
	return record, nil
}

func MarshalFlow(f *core.Flow) []byte {
	buf := make([]byte, sizeFlow(f))
	n := ord.String.Marshal(f.ID, buf)
	n += ord.String.Marshal(f.Subject, buf[n:])
	n += ord.String.Marshal(f.Status, buf[n:])
	n += marshalStrings(f.StepsCompleted, buf[n:])
	n += ord.String.Marshal(f.CurrentStep, buf[n:])
	n += marshalTime(f.StartedAt, buf[n:])
	marshalTime(f.UpdatedAt, buf[n:])
	return buf
}

func UnmarshalFlow(data []byte) (*core.Flow, error) {
	d := decoder{bs: data}
	f := &core.Flow{
		ID:             d.string(),
		Subject:        d.string(),
		Status:         d.string(),
		StepsCompleted: d.strings(),
		CurrentStep:    d.string(),
		StartedAt:      d.time(),
		UpdatedAt:      d.time(),
	}
	if d.err != nil {
		return nil, fmt.Errorf("%w: flow: %w", ErrSerializationFailed, d.err)
	}
	return f, nil
}

func sizeVectorRecord(r *core.VectorRecord) int {
	return ord.String.Size(r.Id) +
		ord.String.Size(r.Text) +
		sizeVector(r.Vector) +
		sizeMetadata(r.Metadata) +
		sizeTime(r.InsertedAt) +
		sizeTime(r.UpdatedAt)
}

func sizeFlow(f *core.Flow) int {
	return ord.String.Size(f.ID) +
		ord.String.Size(f.Subject) +
		ord.String.Size(f.Status) +
		sizeStrings(f.StepsCompleted) +
		ord.String.Size(f.CurrentStep) +
		sizeTime(f.StartedAt) +
		sizeTime(f.UpdatedAt)
}

func sizeVector(v []float32) int {
	size := varint.PositiveInt.Size(len(v))
	for _, f := range v {
		size += raw.Float32.Size(f)
	}
	return size
}

func marshalVector(v []float32, bs []byte) int {
	n := varint.PositiveInt.Marshal(len(v), bs)
	for _, f := range v {
		n += raw.Float32.Marshal(f, bs[n:])
	}
	return n
}

func sizeStrings(ss []string) int {
	size := varint.PositiveInt.Size(len(ss))
	for _, s := range ss {
		size += ord.String.Size(s)
	}
	return size
}

func marshalStrings(ss []string, bs []byte) int {
	n := varint.PositiveInt.Marshal(len(ss), bs)
	for _, s := range ss {
		n += ord.String.Marshal(s, bs[n:])
	}
	return n
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sizeMetadata(m map[string]string) int {
	size := varint.PositiveInt.Size(len(m))
	for k, v := range m {
		size += ord.String.Size(k) + ord.String.Size(v)
	}
	return size
}

// marshalMetadata writes keys in sorted order so equal maps encode identically.
func marshalMetadata(m map[string]string, bs []byte) int {
	n := varint.PositiveInt.Marshal(len(m), bs)
	for _, k := range sortedKeys(m) {
		n += ord.String.Marshal(k, bs[n:])
		n += ord.String.Marshal(m[k], bs[n:])
	}
	return n
}

func sizeTime(t time.Time) int {
	return varint.Int64.Size(t.UnixMicro())
}

func marshalTime(t time.Time, bs []byte) int {
	return varint.Int64.Marshal(t.UnixMicro(), bs)
}

// decoder reads fields in order and keeps the first error.
type decoder struct {
	bs  []byte
	n   int
	err error
}

func (d *decoder) string() string {
	if d.err != nil {
		return ""
	}
	v, n, err := ord.String.Unmarshal(d.bs[d.n:])
	d.n += n
	d.err = err
	return v
}

func (d *decoder) length() int {
	if d.err != nil {
		return 0
	}
	v, n, err := varint.PositiveInt.Unmarshal(d.bs[d.n:])
	d.n += n
	d.err = err
	return v
}

func (d *decoder) vector() []float32 {
	l := d.length()
	if d.err != nil || l == 0 {
		return nil
	}
	out := make([]float32, l)
	for i := range out {
		v, n, err := raw.Float32.Unmarshal(d.bs[d.n:])
		if err != nil {
			d.err = err
			return nil
		}
		d.n += n
		out[i] = v
	}
	return out
}

func (d *decoder) strings() []string {
	l := d.length()
	if d.err != nil {
		return nil
	}
	out := make([]string, 0, l)
	for range l {
		s := d.string()
		if d.err != nil {
			return nil
		}
		out = append(out, s)
	}
	return out
}

func (d *decoder) metadata() map[string]string {
	l := d.length()
	if d.err != nil || l == 0 {
		return nil
	}
	out := make(map[string]string, l)
	for range l {
		k := d.string()
		v := d.string()
		if d.err != nil {
			return nil
		}
		out[k] = v
	}
	return out
}

func (d *decoder) time() time.Time {
	if d.err != nil {
		return time.Time{}
	}
	v, n, err := varint.Int64.Unmarshal(d.bs[d.n:])
	d.n += n
	d.err = err
	return time.UnixMicro(v).UTC()
}
