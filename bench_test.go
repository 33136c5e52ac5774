// Copyright 2024 The Cockroach Authors
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

package generations

import (
	"fmt"
	"io"
	"math/rand"
	"strconv"
	"testing"

	"github.com/aclements/go-perfevent/perfbench"
	"github.com/cockroachdb/swiss"
)

// scratchTable is the workload shared by every implementation benchmarked
// here: a table keyed by [0, capacity) that is filled, probed and cleared
// over and over.
type scratchTable interface {
	set(key, value int)
	get(key int) (int, bool)
	reset()
}

type runtimeMapTable map[int]int

func (t runtimeMapTable) set(key, value int) { t[key] = value }
func (t runtimeMapTable) get(key int) (int, bool) {
	v, ok := t[key]
	return v, ok
}
func (t runtimeMapTable) reset() { clear(t) }

type swissMapTable struct {
	m *swiss.Map[int, int]
}

func (t swissMapTable) set(key, value int)      { t.m.Put(key, value) }
func (t swissMapTable) get(key int) (int, bool) { return t.m.Get(key) }
func (t swissMapTable) reset()                  { t.m.Clear() }

// arrayTable is a plain reusable array whose presence bits are cleared on
// every reset.
type arrayTable struct {
	values  []int
	present []bool
}

func (t *arrayTable) set(key, value int) {
	t.values[key] = value
	t.present[key] = true
}
func (t *arrayTable) get(key int) (int, bool) { return t.values[key], t.present[key] }
func (t *arrayTable) reset()                  { clear(t.present) }

// sparseTable is a sparse-dense array: sparse[key] is an index into dense,
// and an entry is present iff that index is in use and points back at key.
// Every operation touches both arrays.
type sparseTable struct {
	sparse []int32
	dense  []sparseEntry
	size   int32
}

type sparseEntry struct {
	key   int32
	value int
}

func (t *sparseTable) set(key, value int) {
	i := t.sparse[key]
	if i < t.size && t.dense[i].key == int32(key) {
		t.dense[i].value = value
		return
	}
	t.sparse[key] = t.size
	t.dense[t.size] = sparseEntry{key: int32(key), value: value}
	t.size++
}

func (t *sparseTable) get(key int) (int, bool) {
	i := t.sparse[key]
	if i < t.size && t.dense[i].key == int32(key) {
		return t.dense[i].value, true
	}
	return 0, false
}

func (t *sparseTable) reset() { t.size = 0 }

type generationsTable[G Generation] struct {
	m *Map[int, G]
}

func (t generationsTable[G]) set(key, value int)      { t.m.Set(key, value) }
func (t generationsTable[G]) get(key int) (int, bool) { return t.m.Get(key) }
func (t generationsTable[G]) reset()                  { t.m.Reset() }

type tableImpl struct {
	name string
	new  func(capacity int) scratchTable
}

var tableImpls = []tableImpl{
	{"runtimeMap", func(n int) scratchTable { return make(runtimeMapTable, n) }},
	{"swissMap", func(n int) scratchTable { return swissMapTable{swiss.New[int, int](n)} }},
	{"array", func(n int) scratchTable {
		return &arrayTable{values: make([]int, n), present: make([]bool, n)}
	}},
	{"sparseSet", func(n int) scratchTable {
		return &sparseTable{sparse: make([]int32, n), dense: make([]sparseEntry, n)}
	}},
	{"generations8", func(n int) scratchTable { return generationsTable[uint8]{New[int, uint8](n)} }},
	{"generations16", func(n int) scratchTable { return generationsTable[uint16]{New[int, uint16](n)} }},
	{"generations32", func(n int) scratchTable { return generationsTable[uint32]{New[int, uint32](n)} }},
	{"generations64", func(n int) scratchTable { return generationsTable[uint64]{New[int, uint64](n)} }},
}

func TestScratchTables(t *testing.T) {
	// Sanity check the benchmark implementations against each other.
	const capacity = 100
	for _, impl := range tableImpls {
		t.Run(impl.name, func(t *testing.T) {
			tbl := impl.new(capacity)
			keys := genKeys(capacity, capacity/4)
			for round := 0; round < 3; round++ {
				for _, k := range keys {
					tbl.set(k, k+round)
				}
				for k := 0; k < capacity; k++ {
					v, ok := tbl.get(k)
					if contains(keys, k) {
						if !ok || v != k+round {
							t.Fatalf("get(%d) = %d, %t; want %d, true", k, v, ok, k+round)
						}
					} else if ok {
						t.Fatalf("get(%d) = %d, true; want absent", k, v)
					}
				}
				tbl.reset()
			}
		})
	}
}

func contains(keys []int, k int) bool {
	for _, x := range keys {
		if x == k {
			return true
		}
	}
	return false
}

// genKeys returns n distinct pseudo-random keys in [0, capacity).
func genKeys(capacity, n int) []int {
	rng := rand.New(rand.NewSource(int64(capacity)))
	return rng.Perm(capacity)[:n]
}

func benchSizes(f func(b *testing.B, impl tableImpl, capacity int)) func(*testing.B) {
	var cases = []int{
		64,
		512,
		4096,
		1 << 16,
		1 << 20,
	}

	return func(b *testing.B) {
		for _, impl := range tableImpls {
			b.Run("impl="+impl.name, func(b *testing.B) {
				for _, n := range cases {
					b.Run("cap="+strconv.Itoa(n), func(b *testing.B) { f(b, impl, n) })
				}
			})
		}
	}
}

// BenchmarkFillProbeReset models a graph search: a quarter of the keys are
// written, each written key is probed along with a miss, and the table is
// reset for the next query.
func BenchmarkFillProbeReset(b *testing.B) {
	benchSizes(func(b *testing.B, impl tableImpl, capacity int) {
		tbl := impl.new(capacity)
		perm := genKeys(capacity, capacity)
		keys, misses := perm[:capacity/4], perm[capacity/4:capacity/2]
		cs := perfbench.Open(b)
		b.ResetTimer()
		cs.Reset()
		var hits int
		for i := 0; i < b.N; i++ {
			for _, k := range keys {
				tbl.set(k, i)
			}
			for j, k := range keys {
				if _, ok := tbl.get(k); ok {
					hits++
				}
				if _, ok := tbl.get(misses[j]); ok {
					hits++
				}
			}
			tbl.reset()
		}
		b.StopTimer()
		fmt.Fprint(io.Discard, hits)
	})(b)
}

func BenchmarkGetHit(b *testing.B) {
	benchSizes(func(b *testing.B, impl tableImpl, capacity int) {
		tbl := impl.new(capacity)
		keys := genKeys(capacity, capacity)
		for _, k := range keys {
			tbl.set(k, k)
		}
		cs := perfbench.Open(b)
		b.ResetTimer()
		cs.Reset()
		var ok bool
		for i := 0; i < b.N; i++ {
			_, ok = tbl.get(keys[i&(capacity-1)])
		}
		b.StopTimer()
		fmt.Fprint(io.Discard, ok)
	})(b)
}

func BenchmarkSet(b *testing.B) {
	benchSizes(func(b *testing.B, impl tableImpl, capacity int) {
		tbl := impl.new(capacity)
		keys := genKeys(capacity, capacity)
		cs := perfbench.Open(b)
		b.ResetTimer()
		cs.Reset()
		for i := 0; i < b.N; i++ {
			tbl.set(keys[i&(capacity-1)], i)
		}
	})(b)
}

// BenchmarkReset measures Reset alone, including the amortized cost of the
// wraparound clear for narrow generations.
func BenchmarkReset(b *testing.B) {
	b.Run("t=Uint8", benchmarkReset[uint8])
	b.Run("t=Uint16", benchmarkReset[uint16])
	b.Run("t=Uint32", benchmarkReset[uint32])
	b.Run("t=Uint64", benchmarkReset[uint64])
}

func benchmarkReset[G Generation](b *testing.B) {
	for _, n := range []int{64, 4096, 1 << 20} {
		b.Run("cap="+strconv.Itoa(n), func(b *testing.B) {
			s := NewSet[G](n)
			cs := perfbench.Open(b)
			b.ResetTimer()
			cs.Reset()
			for i := 0; i < b.N; i++ {
				s.Insert(i & (n - 1))
				s.Reset()
			}
		})
	}
}

func BenchmarkUnchecked(b *testing.B) {
	const capacity = 4096
	keys := genKeys(capacity, capacity)
	b.Run("checked", func(b *testing.B) {
		m := New[int, uint32](capacity)
		var ok bool
		for i := 0; i < b.N; i++ {
			k := keys[i&(capacity-1)]
			m.Set(k, i)
			_, ok = m.Get(k)
		}
		fmt.Fprint(io.Discard, ok)
	})
	b.Run("unchecked", func(b *testing.B) {
		m := New[int, uint32](capacity)
		var ok bool
		for i := 0; i < b.N; i++ {
			k := keys[i&(capacity-1)]
			m.UncheckedSet(k, i)
			_, ok = m.UncheckedGet(k)
		}
		fmt.Fprint(io.Discard, ok)
	})
}
