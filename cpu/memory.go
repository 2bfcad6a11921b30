package cpu

import (
	"encoding/binary"
	"fmt"
)

// InstructionStore is the read-only program memory, a flat array of words
// indexed by PC/4.
type InstructionStore struct {
	words []uint32
}

// NewInstructionStore creates a zeroed store of n words.
func NewInstructionStore(n int) *InstructionStore {
	return &InstructionStore{words: make([]uint32, n)}
}

// Load copies words into the store starting at byte address base, which
// must be word aligned.
func (s *InstructionStore) Load(base uint32, words []uint32) error {
	if base&3 != 0 {
		return fmt.Errorf("%w: load base 0x%08x", ErrMisalignedFetch, base)
	}
	start := uint64(base >> 2)
	if start+uint64(len(words)) > uint64(len(s.words)) {
		return fmt.Errorf("%w: %d words at 0x%08x, store holds %d",
			ErrProgramTooLarge, len(words), base, len(s.words))
	}
	copy(s.words[start:], words)
	return nil
}

// Fetch returns the word at byte address pc.
func (s *InstructionStore) Fetch(pc uint32) (uint32, error) {
	if pc&3 != 0 {
		return 0, fmt.Errorf("%w: pc 0x%08x", ErrMisalignedFetch, pc)
	}
	i := pc >> 2
	if uint64(i) >= uint64(len(s.words)) {
		return 0, fmt.Errorf("%w: pc 0x%08x beyond %d-word instruction store",
			ErrAddressRange, pc, len(s.words))
	}
	return s.words[i], nil
}

// Word returns the i-th word, or 0 if i is out of range.
func (s *InstructionStore) Word(i int) uint32 {
	if i < 0 || i >= len(s.words) {
		return 0
	}
	return s.words[i]
}

// Len returns the number of words in the store.
func (s *InstructionStore) Len() int { return len(s.words) }

// DataMemory is byte-addressed little-endian memory backed by words. Aligned
// half and word accesses touch one backing word; misaligned ones are split
// into byte accesses.
type DataMemory struct {
	words []uint32
	size  uint32
}

// NewDataMemory creates zeroed memory of size bytes, rounded up to a whole
// word.
func NewDataMemory(size uint32) *DataMemory {
	n := (uint64(size) + 3) / 4
	return &DataMemory{words: make([]uint32, n), size: uint32(n * 4)}
}

// Size returns the memory size in bytes.
func (m *DataMemory) Size() uint32 { return m.size }

// Word returns the i-th backing word, or 0 if i is out of range.
func (m *DataMemory) Word(i int) uint32 {
	if i < 0 || i >= len(m.words) {
		return 0
	}
	return m.words[i]
}

func (m *DataMemory) check(addr, n uint32) error {
	if uint64(addr)+uint64(n) > uint64(m.size) {
		return fmt.Errorf("%w: %d-byte access at 0x%08x, memory is %d bytes",
			ErrAddressRange, n, addr, m.size)
	}
	return nil
}

func (m *DataMemory) byteAt(addr uint32) uint8 {
	return uint8(m.words[addr>>2] >> ((addr & 3) * 8))
}

func (m *DataMemory) setByte(addr uint32, v uint8) {
	shift := (addr & 3) * 8
	w := &m.words[addr>>2]
	*w = *w&^(0xFF<<shift) | uint32(v)<<shift
}

// LoadByte reads one byte.
func (m *DataMemory) LoadByte(addr uint32) (uint8, error) {
	if err := m.check(addr, 1); err != nil {
		return 0, err
	}
	return m.byteAt(addr), nil
}

// LoadHalf reads a little-endian halfword.
func (m *DataMemory) LoadHalf(addr uint32) (uint16, error) {
	if err := m.check(addr, 2); err != nil {
		return 0, err
	}
	if addr&1 == 0 {
		return uint16(m.words[addr>>2] >> ((addr & 2) * 8)), nil
	}
	return uint16(m.byteAt(addr)) | uint16(m.byteAt(addr+1))<<8, nil
}

// LoadWord reads a little-endian word.
func (m *DataMemory) LoadWord(addr uint32) (uint32, error) {
	if err := m.check(addr, 4); err != nil {
		return 0, err
	}
	if addr&3 == 0 {
		return m.words[addr>>2], nil
	}
	var b [4]byte
	for i := range b {
		b[i] = m.byteAt(addr + uint32(i))
	}
	return binary.LittleEndian.Uint32(b[:]), nil
}

// StoreByte writes one byte.
func (m *DataMemory) StoreByte(addr uint32, v uint8) error {
	if err := m.check(addr, 1); err != nil {
		return err
	}
	m.setByte(addr, v)
	return nil
}

// StoreHalf writes a little-endian halfword.
func (m *DataMemory) StoreHalf(addr uint32, v uint16) error {
	if err := m.check(addr, 2); err != nil {
		return err
	}
	m.setByte(addr, uint8(v))
	m.setByte(addr+1, uint8(v>>8))
	return nil
}

// StoreWord writes a little-endian word.
func (m *DataMemory) StoreWord(addr, v uint32) error {
	if err := m.check(addr, 4); err != nil {
		return err
	}
	if addr&3 == 0 {
		m.words[addr>>2] = v
		return nil
	}
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	for i, x := range b {
		m.setByte(addr+uint32(i), x)
	}
	return nil
}

// LoadSegment copies raw bytes into memory at addr.
func (m *DataMemory) LoadSegment(addr uint32, data []byte) error {
	if uint64(len(data)) > uint64(m.size) {
		return fmt.Errorf("%w: %d-byte segment, memory is %d bytes", ErrAddressRange, len(data), m.size)
	}
	if err := m.check(addr, uint32(len(data))); err != nil {
		return err
	}
	for i, b := range data {
		m.setByte(addr+uint32(i), b)
	}
	return nil
}

// Reset zeroes the memory.
func (m *DataMemory) Reset() { clear(m.words) }
