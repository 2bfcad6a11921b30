package cpu

// NumRegs is the number of general-purpose registers.
const NumRegs = 32

// RegisterFile holds x0..x31 and the program counter. Set is the only write
// path to the general registers and it drops writes to x0, so x0 reads as
// zero at all times.
type RegisterFile struct {
	regs [NumRegs]uint32
	pc   uint32
}

// Get returns register i. Only the low 5 bits of i are used, matching the
// width of the rd/rs1/rs2 fields.
func (r *RegisterFile) Get(i uint32) uint32 {
	return r.regs[i&(NumRegs-1)]
}

// Set writes v to register i. Writes to x0 are discarded.
func (r *RegisterFile) Set(i, v uint32) {
	if i &= NumRegs - 1; i != 0 {
		r.regs[i] = v
	}
}

// PC returns the program counter.
func (r *RegisterFile) PC() uint32 { return r.pc }

// SetPC sets the program counter.
func (r *RegisterFile) SetPC(pc uint32) { r.pc = pc }

// Snapshot returns a copy of the general registers.
func (r *RegisterFile) Snapshot() [NumRegs]uint32 { return r.regs }

// Reset zeroes every register and the PC.
func (r *RegisterFile) Reset() { *r = RegisterFile{} }
