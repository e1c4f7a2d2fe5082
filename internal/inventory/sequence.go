// internal/inventory/sequence.go
package inventory

import "sync/atomic"

// Sequencer provides monotonically increasing sequence numbers.
type Sequencer struct{ n atomic.Uint64 }

// Next returns the next sequence number.
func (s *Sequencer) Next() uint64 { return s.n.Add(1) }

// Seed moves the sequencer past n so numbers already persisted are not reused.
func (s *Sequencer) Seed(n uint64) {
	for {
		cur := s.n.Load()
		if cur >= n || s.n.CompareAndSwap(cur, n) {
			return
		}
	}
}

// Current returns the last issued number.
func (s *Sequencer) Current() uint64 { return s.n.Load() }
