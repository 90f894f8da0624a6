package cra

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// CID computes the content-addressed identifier of the compiled machine.
// Any change to states, registers, classes, transitions or outputs
// changes the CID. It is the key under which run results are persisted.
func (m *Machine) CID() string {
	data, err := json.Marshal(m.normalize())
	if err != nil {
		return ""
	}
	hash := sha256.Sum256(data)
	return "cid:" + hex.EncodeToString(hash[:])
}

type machineNorm struct {
	Name      string     `json:"name"`
	States    []string   `json:"states"`
	Initial   int        `json:"initial"`
	Reject    int        `json:"reject"`
	Registers []string   `json:"registers"`
	Classes   []string   `json:"classes"`
	Trans     [][]string `json:"trans"`
	Outputs   []string   `json:"outputs"`
	OutType   string     `json:"out_type"`
}

func (m *Machine) normalize() machineNorm {
	regs := make([]string, len(m.Registers))
	for i, r := range m.Registers {
		rule := "rightmost"
		if r.Rule == CombineFold {
			rule = "fold:" + r.Fold.String()
		}
		regs[i] = fmt.Sprintf("%s:%s=%s[%s]", r.Name, r.Type, r.Initial, rule)
	}
	classes := make([]string, len(m.Classes))
	for i, p := range m.Classes {
		classes[i] = p.String()
	}
	trans := make([][]string, len(m.Trans))
	for s, row := range m.Trans {
		trans[s] = make([]string, len(row))
		for c, e := range row {
			if e == nil {
				trans[s][c] = "-"
				continue
			}
			trans[s][c] = fmt.Sprintf("%d%s", e.Target, renderProgram(e.Update))
		}
	}
	outs := make([]string, len(m.Outputs))
	for s, o := range m.Outputs {
		outs[s] = renderOutput(o)
	}
	return machineNorm{
		Name:      m.Name,
		States:    m.States,
		Initial:   m.Initial,
		Reject:    m.Reject,
		Registers: regs,
		Classes:   classes,
		Trans:     trans,
		Outputs:   outs,
		OutType:   m.OutType.String(),
	}
}

func renderProgram(p Program) string {
	s := ""
	for _, a := range p {
		s += fmt.Sprintf(";r%d=%s%s", a.Dst, a.Op, renderOperands(a.Args))
	}
	return s
}

func renderOperands(args []Operand) string {
	s := "("
	for i, a := range args {
		if i > 0 {
			s += ","
		}
		switch a.Kind {
		case OperandReg:
			s += fmt.Sprintf("r%d", a.Reg)
		case OperandSym:
			s += "sym"
		case OperandLit:
			s += a.Lit.String()
		}
	}
	return s + ")"
}

func renderOutput(o *Output) string {
	if o == nil {
		return "-"
	}
	if len(o.Kids) == 0 {
		return o.Op.String() + renderOperands(o.Args)
	}
	s := o.Op.String() + "("
	for i, kid := range o.Kids {
		if i > 0 {
			s += ","
		}
		s += renderOutput(kid)
	}
	return s + ")"
}

// Equal reports whether two machines have the same CID.
func (m *Machine) Equal(other *Machine) bool {
	if other == nil {
		return false
	}
	return m.CID() == other.CID()
}
