package eval

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/pflow-xyz/go-qre/cra"
	"github.com/pflow-xyz/go-qre/value"
)

// Evaluator drives one machine instance over a stream. Instances never
// share configurations: each owns its state and registers, so concurrent
// evaluators of the same machine are independent.
type Evaluator struct {
	id      string
	machine *cra.Machine
	config  *cra.Config
	seq     uint64
	log     zerolog.Logger
}

// Option configures an Evaluator.
type Option func(*Evaluator)

// WithLogger attaches a structured logger; by default nothing is logged.
func WithLogger(l zerolog.Logger) Option {
	return func(e *Evaluator) { e.log = l }
}

// WithID overrides the generated evaluator ID.
func WithID(id string) Option {
	return func(e *Evaluator) { e.id = id }
}

// New returns a fresh evaluator positioned at the machine's initial
// configuration.
func New(m *cra.Machine, opts ...Option) *Evaluator {
	e := &Evaluator{
		id:      uuid.NewString(),
		machine: m,
		config:  m.NewConfig(),
		log:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ID returns the evaluator's identifier.
func (e *Evaluator) ID() string { return e.id }

// Machine returns the machine being evaluated.
func (e *Evaluator) Machine() *cra.Machine { return e.machine }

// Seq returns the number of symbols consumed since the last reset.
func (e *Evaluator) Seq() uint64 { return e.seq }

// Rejected reports whether the evaluator has entered the absorbing
// reject state; if so it will never emit again during this run.
func (e *Evaluator) Rejected() bool { return e.config.State == e.machine.Reject }

// Config returns a copy of the current configuration.
func (e *Evaluator) Config() *cra.Config { return e.config.Clone() }

// Step consumes one symbol and returns the machine's output for the new
// configuration, if the reached state has one. Step never fails: symbols
// outside the alphabet route to the reject state.
func (e *Evaluator) Step(s cra.Symbol) (value.Value, bool) {
	e.machine.Step(e.config, s)
	e.seq++
	return e.machine.Emit(e.config)
}

// Out returns the output for the current configuration without consuming
// a symbol, or ok=false when the current state has none yet.
func (e *Evaluator) Out() (value.Value, bool) {
	return e.machine.Emit(e.config)
}

// Reset returns the evaluator to the machine's initial configuration.
func (e *Evaluator) Reset() {
	e.config = e.machine.NewConfig()
	e.seq = 0
}

// Run consumes the source to its end and returns the final output, with
// ok=false when the stream ended in a state with no output. The source's
// error, if any, abandons the run and is returned as-is.
func (e *Evaluator) Run(ctx context.Context, src Source) (value.Value, bool, error) {
	e.log.Debug().Str("evaluator", e.id).Str("machine", e.machine.Name).Msg("run start")
	for {
		sym, ok, err := src.Next(ctx)
		if err != nil {
			e.log.Debug().Str("evaluator", e.id).Uint64("seq", e.seq).Err(err).Msg("run abandoned")
			return value.Value{}, false, err
		}
		if !ok {
			v, has := e.Out()
			e.log.Debug().Str("evaluator", e.id).Uint64("seq", e.seq).Bool("output", has).Msg("run end")
			return v, has, nil
		}
		e.Step(sym)
	}
}

// RunIncremental consumes the source, invoking fn after every symbol that
// leaves the machine in a state with an output. A non-nil error from fn
// stops the run and is returned.
func (e *Evaluator) RunIncremental(ctx context.Context, src Source, fn func(seq uint64, v value.Value) error) error {
	for {
		sym, ok, err := src.Next(ctx)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		if v, has := e.Step(sym); has {
			if err := fn(e.seq, v); err != nil {
				return err
			}
		}
	}
}

// Result is a point-in-time snapshot of an evaluation, suitable for
// persistence or inspection.
type Result struct {
	ID         string                 `json:"id"`
	MachineCID string                 `json:"machine_cid"`
	Seq        uint64                 `json:"seq"`
	State      string                 `json:"state"`
	Registers  map[string]value.Value `json:"registers"`
	Output     *value.Value           `json:"output,omitempty"`
	Rejected   bool                   `json:"rejected"`
}

// Result snapshots the evaluator's current progress and outcome.
func (e *Evaluator) Result() *Result {
	regs := make(map[string]value.Value, len(e.machine.Registers))
	for i, r := range e.machine.Registers {
		regs[r.Name] = e.config.Registers[i]
	}
	res := &Result{
		ID:         e.id,
		MachineCID: e.machine.CID(),
		Seq:        e.seq,
		State:      e.machine.States[e.config.State],
		Registers:  regs,
		Rejected:   e.Rejected(),
	}
	if v, ok := e.Out(); ok {
		res.Output = &v
	}
	return res
}
