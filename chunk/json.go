package chunk

import (
	"encoding/json"
	"fmt"

	"github.com/pflow-xyz/go-qre/cra"
	"github.com/pflow-xyz/go-qre/value"
)

// The wire form names states and registers instead of using indices, so a
// persisted table stays readable and survives being checked against a
// recompiled machine: decoding verifies the CID and re-resolves names.

type runResultJSON struct {
	CID     string       `json:"cid"`
	Len     uint64       `json:"len"`
	Effects []effectJSON `json:"effects"`
}

type effectJSON struct {
	Start string    `json:"start"`
	End   string    `json:"end"`
	Regs  []regJSON `json:"regs"`
}

type regJSON struct {
	Name    string      `json:"name"`
	Value   value.Value `json:"value"`
	Touched bool        `json:"touched"`
}

// Encode serializes the table against its machine.
func (r *RunResult) Encode(m *cra.Machine) ([]byte, error) {
	if r.CID != m.CID() {
		return nil, ErrMismatch
	}
	out := runResultJSON{CID: r.CID, Len: r.Len, Effects: make([]effectJSON, len(r.Effects))}
	for q, e := range r.Effects {
		ej := effectJSON{
			Start: m.States[q],
			End:   m.States[e.End],
			Regs:  make([]regJSON, len(e.Regs)),
		}
		for i, v := range e.Regs {
			ej.Regs[i] = regJSON{Name: m.Registers[i].Name, Value: v, Touched: e.Touched[i]}
		}
		out.Effects[q] = ej
	}
	return json.Marshal(out)
}

// Decode reconstructs a table from its wire form, verifying that it was
// built against the given machine.
func Decode(m *cra.Machine, data []byte) (*RunResult, error) {
	var in runResultJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return nil, fmt.Errorf("chunk: decode: %w", err)
	}
	if in.CID != m.CID() {
		return nil, ErrMismatch
	}
	if len(in.Effects) != len(m.States) {
		return nil, fmt.Errorf("chunk: decode: %d effects for %d states", len(in.Effects), len(m.States))
	}
	r := &RunResult{CID: in.CID, Len: in.Len, Effects: make([]Effect, len(m.States))}
	for _, ej := range in.Effects {
		start := m.StateIndex(ej.Start)
		end := m.StateIndex(ej.End)
		if start < 0 || end < 0 {
			return nil, fmt.Errorf("chunk: decode: unknown state %q or %q", ej.Start, ej.End)
		}
		if len(ej.Regs) != len(m.Registers) {
			return nil, fmt.Errorf("chunk: decode: %d registers for state %q, machine has %d",
				len(ej.Regs), ej.Start, len(m.Registers))
		}
		e := Effect{End: end, Regs: make([]value.Value, len(m.Registers)), Touched: make([]bool, len(m.Registers))}
		for _, rj := range ej.Regs {
			i := m.RegisterIndex(rj.Name)
			if i < 0 {
				return nil, fmt.Errorf("chunk: decode: unknown register %q", rj.Name)
			}
			e.Regs[i] = rj.Value
			e.Touched[i] = rj.Touched
		}
		r.Effects[start] = e
	}
	return r, nil
}
