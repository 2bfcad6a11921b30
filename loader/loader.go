// Package loader reads program images for the simulator: raw little-endian
// binaries, hex word listings and 32-bit RISC-V ELF executables.
package loader

import (
	"bufio"
	"bytes"
	"debug/elf"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/rv32sim/rv32sim/cpu"
)

// Loader errors.
var (
	ErrUnknownFormat = errors.New("loader: unknown image format")
	ErrPartialWord   = errors.New("loader: image length is not a multiple of 4")
	ErrBadHexWord    = errors.New("loader: malformed hex word")
	ErrNotRV32       = errors.New("loader: not a 32-bit little-endian RISC-V ELF")
	ErrNoCode        = errors.New("loader: image contains no code")
)

// Format names an image encoding.
type Format string

const (
	FormatAuto Format = "auto"
	FormatBin  Format = "bin"
	FormatHex  Format = "hex"
	FormatELF  Format = "elf"
)

// ParseFormat parses auto, bin, hex or elf.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatAuto, FormatBin, FormatHex, FormatELF:
		return f, nil
	case "":
		return FormatAuto, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
}

// CodeSegment is a run of instruction words at a byte address in the
// instruction store.
type CodeSegment struct {
	Addr  uint32
	Words []uint32
}

// DataSegment is initialised data at a byte address in data memory.
type DataSegment struct {
	Addr  uint32
	Bytes []byte
}

// Image is a loaded program.
type Image struct {
	Code  []CodeSegment
	Data  []DataSegment
	Entry uint32
}

// Words returns the number of instruction words in the image.
func (img *Image) Words() int {
	n := 0
	for _, s := range img.Code {
		n += len(s.Words)
	}
	return n
}

// Install copies the image into m and points the PC at the entry.
func (img *Image) Install(m *cpu.Machine) error {
	for _, s := range img.Code {
		if err := m.LoadProgram(s.Addr, s.Words); err != nil {
			return fmt.Errorf("loader: code at 0x%08x: %w", s.Addr, err)
		}
	}
	for _, s := range img.Data {
		if err := m.LoadData(s.Addr, s.Bytes); err != nil {
			return fmt.Errorf("loader: data at 0x%08x: %w", s.Addr, err)
		}
	}
	m.SetPC(img.Entry)
	return nil
}

// Load reads the image at path. FormatAuto picks ELF by magic number, hex by
// a .hex or .txt extension, and raw binary otherwise.
func Load(path string, format Format) (*Image, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("loader: %w", err)
	}
	if format == FormatAuto || format == "" {
		format = Detect(path, raw)
	}
	switch format {
	case FormatBin:
		return LoadBinary(bytes.NewReader(raw))
	case FormatHex:
		return ParseHex(bytes.NewReader(raw))
	case FormatELF:
		return LoadELF(bytes.NewReader(raw))
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
}

// Detect guesses the format of an image from its name and contents.
func Detect(path string, raw []byte) Format {
	if bytes.HasPrefix(raw, []byte(elf.ELFMAG)) {
		return FormatELF
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".hex", ".txt":
		return FormatHex
	case ".elf":
		return FormatELF
	}
	return FormatBin
}

// LoadBinary reads a flat little-endian image. Code is placed at address 0
// and execution starts there.
func LoadBinary(r io.Reader) (*Image, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("loader: %w", err)
	}
	if len(raw)%4 != 0 {
		return nil, fmt.Errorf("%w: %d bytes", ErrPartialWord, len(raw))
	}
	if len(raw) == 0 {
		return nil, ErrNoCode
	}
	return &Image{Code: []CodeSegment{{Words: wordsLE(raw)}}}, nil
}

// ParseHex reads one instruction word per line, written most significant
// digit first with an optional 0x prefix. Blank lines and text after '#' or
// "//" are ignored.
func ParseHex(r io.Reader) (*Image, error) {
	var words []uint32
	sc := bufio.NewScanner(r)
	for line := 1; sc.Scan(); line++ {
		text := sc.Text()
		if i := strings.Index(text, "#"); i >= 0 {
			text = text[:i]
		}
		if i := strings.Index(text, "//"); i >= 0 {
			text = text[:i]
		}
		for _, field := range strings.Fields(text) {
			w, err := ParseWord(field)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", line, err)
			}
			words = append(words, w)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("loader: %w", err)
	}
	if len(words) == 0 {
		return nil, ErrNoCode
	}
	return &Image{Code: []CodeSegment{{Words: words}}}, nil
}

// ParseWord parses an instruction word of exactly eight hex digits, with or
// without a 0x prefix.
func ParseWord(s string) (uint32, error) {
	if !strings.HasPrefix(s, "0x") && !strings.HasPrefix(s, "0X") {
		s = "0x" + s
	}
	b, err := hexutil.Decode("0x" + s[2:])
	if err != nil {
		return 0, fmt.Errorf("%w: %q: %v", ErrBadHexWord, s, err)
	}
	if len(b) != 4 {
		return 0, fmt.Errorf("%w: %q is %d bytes, want 4", ErrBadHexWord, s, len(b))
	}
	return binary.BigEndian.Uint32(b), nil
}

// LoadELF reads a 32-bit little-endian RISC-V executable. Allocated
// executable sections go to the instruction store and the other allocated
// sections with file contents go to data memory, each at its section
// address. NOBITS sections are left to the zeroed memory.
func LoadELF(r io.ReaderAt) (*Image, error) {
	f, err := elf.NewFile(r)
	if err != nil {
		return nil, fmt.Errorf("loader: %w", err)
	}
	defer f.Close()

	if f.Class != elf.ELFCLASS32 || f.Data != elf.ELFDATA2LSB || f.Machine != elf.EM_RISCV {
		return nil, fmt.Errorf("%w: class=%v data=%v machine=%v", ErrNotRV32, f.Class, f.Data, f.Machine)
	}

	img := &Image{Entry: uint32(f.Entry)}
	for _, s := range f.Sections {
		if s.Flags&elf.SHF_ALLOC == 0 || s.Type == elf.SHT_NOBITS || s.Size == 0 {
			continue
		}
		data, err := s.Data()
		if err != nil {
			return nil, fmt.Errorf("loader: section %s (addr 0x%x): %w", s.Name, s.Addr, err)
		}
		if s.Flags&elf.SHF_EXECINSTR != 0 {
			if len(data)%4 != 0 {
				return nil, fmt.Errorf("%w: section %s is %d bytes", ErrPartialWord, s.Name, len(data))
			}
			img.Code = append(img.Code, CodeSegment{Addr: uint32(s.Addr), Words: wordsLE(data)})
			continue
		}
		img.Data = append(img.Data, DataSegment{Addr: uint32(s.Addr), Bytes: data})
	}
	if len(img.Code) == 0 {
		return nil, ErrNoCode
	}
	return img, nil
}

func wordsLE(raw []byte) []uint32 {
	words := make([]uint32, len(raw)/4)
	for i := range words {
		words[i] = binary.LittleEndian.Uint32(raw[i*4:])
	}
	return words
}
