package cra

import "github.com/pflow-xyz/go-qre/value"

// Config is one machine instance's runtime configuration: the current
// state and the current register values. Configs are never shared between
// evaluators; each instance owns its own.
type Config struct {
	State     int
	Registers []value.Value
}

// NewConfig returns a fresh configuration: the initial state with every
// register at its declared initial value.
func (m *Machine) NewConfig() *Config {
	regs := make([]value.Value, len(m.Registers))
	for i, r := range m.Registers {
		regs[i] = r.Initial
	}
	return &Config{State: m.Initial, Registers: regs}
}

// Clone returns a deep copy of the configuration.
func (c *Config) Clone() *Config {
	regs := make([]value.Value, len(c.Registers))
	copy(regs, c.Registers)
	return &Config{State: c.State, Registers: regs}
}

// Equal reports whether two configurations have the same state and
// register values.
func (c *Config) Equal(o *Config) bool {
	if c.State != o.State || len(c.Registers) != len(o.Registers) {
		return false
	}
	for i := range c.Registers {
		if !c.Registers[i].Equal(o.Registers[i]) {
			return false
		}
	}
	return true
}

// Register returns the value of the named register.
func (c *Config) Register(m *Machine, name string) (value.Value, bool) {
	i := m.RegisterIndex(name)
	if i < 0 {
		return value.Value{}, false
	}
	return c.Registers[i], true
}
