// Package eval runs a compiled machine over a symbol stream. Evaluation
// is strictly sequential and causal: each symbol's state and register
// effects are committed before the next symbol is considered, and an
// evaluator's memory footprint is fixed by the machine's register count,
// independent of how many symbols it has consumed.
package eval

import (
	"context"

	"github.com/pflow-xyz/go-qre/cra"
)

// Source yields input symbols one at a time. Next returns ok=false on a
// clean end of stream; an error abandons the run and is surfaced to the
// caller untouched. Adapters own their I/O failures, the evaluator only
// needs the termination signal.
type Source interface {
	Next(ctx context.Context) (cra.Symbol, bool, error)
}

// SliceSource replays an in-memory symbol sequence.
type SliceSource struct {
	syms []cra.Symbol
	pos  int
}

// FromSlice returns a source over the given symbols.
func FromSlice(syms ...cra.Symbol) *SliceSource {
	return &SliceSource{syms: syms}
}

// Next yields the next symbol, honoring context cancellation.
func (s *SliceSource) Next(ctx context.Context) (cra.Symbol, bool, error) {
	if err := ctx.Err(); err != nil {
		return cra.Symbol{}, false, err
	}
	if s.pos >= len(s.syms) {
		return cra.Symbol{}, false, nil
	}
	sym := s.syms[s.pos]
	s.pos++
	return sym, true, nil
}

// Rewind resets the source to the start of its sequence.
func (s *SliceSource) Rewind() { s.pos = 0 }

// ChanSource adapts a symbol channel. The stream ends when the channel
// closes.
type ChanSource struct {
	ch <-chan cra.Symbol
}

// FromChan returns a source draining the given channel.
func FromChan(ch <-chan cra.Symbol) *ChanSource {
	return &ChanSource{ch: ch}
}

// Next blocks for the next symbol or context cancellation.
func (s *ChanSource) Next(ctx context.Context) (cra.Symbol, bool, error) {
	select {
	case <-ctx.Done():
		return cra.Symbol{}, false, ctx.Err()
	case sym, ok := <-s.ch:
		if !ok {
			return cra.Symbol{}, false, nil
		}
		return sym, true, nil
	}
}
