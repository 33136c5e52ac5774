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
	"unsafe"

	"gopkg.in/gholt/brimtext.v1"
)

// Stats is a snapshot of a Map or Set.
type Stats struct {
	// Capacity is the number of addressable keys.
	Capacity int
	// Generation is the current generation.
	Generation uint64
	// GenerationBits is the width of the generation tag.
	GenerationBits int
	// Resets is the number of calls to Reset.
	Resets uint64
	// Wraparounds is the number of Resets that had to clear every slot
	// because the generation reached its maximum value.
	Wraparounds uint64
	// SlotBytes is the size of the slot memory.
	SlotBytes uint64

	slotSize   uintptr
	statsDebug bool
	// The following are only populated when the map was constructed with
	// WithStatsDebug.
	live       int
	stale      int
	empty      int
}

// Stats returns a snapshot of the map's statistics. With WithStatsDebug the
// snapshot includes counts obtained by scanning every slot.
func (m *Map[V, G]) Stats() *Stats {
	var slot Slot[V, G]
	s := &Stats{
		Capacity:       len(m.slots),
		Generation:     uint64(m.gen),
		GenerationBits: generationBits[G](),
		Resets:         m.resets,
		Wraparounds:    m.wraparounds,
		SlotBytes:      uint64(len(m.slots)) * uint64(unsafe.Sizeof(slot)),
		statsDebug:     m.statsDebug,
		slotSize:       unsafe.Sizeof(slot),
	}
	if m.statsDebug {
		for i := range m.slots {
			switch g := m.slots[i].gen; {
			case g == m.gen:
				s.live++
			case g == 0:
				s.empty++
			default:
				s.stale++
			}
		}
	}
	return s
}

func (s *Stats) String() string {
	report := [][]string{
		{"Capacity", fmt.Sprintf("%d", s.Capacity)},
		{"Generation", fmt.Sprintf("%d", s.Generation)},
		{"GenerationBits", fmt.Sprintf("%d", s.GenerationBits)},
		{"Resets", fmt.Sprintf("%d", s.Resets)},
		{"Wraparounds", fmt.Sprintf("%d", s.Wraparounds)},
		{"SlotBytes", fmt.Sprintf("%d", s.SlotBytes)},
	}
	if s.statsDebug {
		report = append(report, [][]string{
			{"slotSize", fmt.Sprintf("%d bytes", s.slotSize)},
			{"live", fmt.Sprintf("%d %.1f%%", s.live, percent(s.live, s.Capacity))},
			{"stale", fmt.Sprintf("%d %.1f%%", s.stale, percent(s.stale, s.Capacity))},
			{"empty", fmt.Sprintf("%d %.1f%%", s.empty, percent(s.empty, s.Capacity))},
		}...)
	}
	return brimtext.Align(report, nil)
}

func percent(n, d int) float64 {
	if d == 0 {
		return 0
	}
	return 100 * float64(n) / float64(d)
}
