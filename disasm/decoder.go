package disasm

import (
	"encoding/binary"
	"fmt"

	"golang.org/x/arch/arm/armasm"
	"golang.org/x/arch/arm64/arm64asm"
	"golang.org/x/arch/x86/x86asm"

	"github.com/pattyshack/elfscope/elf"
)

var (
	ErrFunctionNotFound        = fmt.Errorf("function not found")
	ErrUnsupportedArchitecture = fmt.Errorf("unsupported architecture")
)

// SymbolLookup returns the name and start address of the symbol containing
// the address, or "" if there is none.
type SymbolLookup func(address uint64) (string, uint64)

type Decoder interface {
	// Minimum instruction unit in bytes.
	MinLength() int

	// Decode decodes the first instruction in code.
	Decode(code []byte, address uint64) (Instruction, error)
}

type Mode int

const (
	ModeDefault = Mode(0)
	ModeThumb   = Mode(1) // arm only
)

type decoderFactory func(
	file *elf.File,
	mode Mode,
	symbols SymbolLookup,
) Decoder

var decoderFactories = map[elf.MachineArchitecture]decoderFactory{
	elf.MachineArchitectureX86_64: func(
		file *elf.File,
		mode Mode,
		symbols SymbolLookup,
	) Decoder {
		return &x86Decoder{mode: 64, symbols: symbols}
	},
	elf.MachineArchitecture386: func(
		file *elf.File,
		mode Mode,
		symbols SymbolLookup,
	) Decoder {
		return &x86Decoder{mode: 32, symbols: symbols}
	},
	elf.MachineArchitectureARM: func(
		file *elf.File,
		mode Mode,
		symbols SymbolLookup,
	) Decoder {
		order := armInstructionByteOrder(file)
		if mode == ModeThumb {
			return &thumbDecoder{order: order}
		}
		return &armDecoder{order: order}
	},
	elf.MachineArchitectureAArch64: func(
		file *elf.File,
		mode Mode,
		symbols SymbolLookup,
	) Decoder {
		return &arm64Decoder{}
	},
	elf.MachineArchitectureAVR: func(
		file *elf.File,
		mode Mode,
		symbols SymbolLookup,
	) Decoder {
		return &avrDecoder{}
	},
}

// NewDecoder selects the decoder for the file's machine architecture.
func NewDecoder(
	file *elf.File,
	mode Mode,
	symbols SymbolLookup,
) (
	Decoder,
	error,
) {
	factory, ok := decoderFactories[file.MachineArchitecture]
	if !ok {
		return nil, fmt.Errorf(
			"%w: %s",
			ErrUnsupportedArchitecture,
			file.MachineArchitecture)
	}

	return factory(file, mode, symbols), nil
}

// Instructions are little endian except in legacy big endian (BE-32)
// images.
func armInstructionByteOrder(file *elf.File) binary.ByteOrder {
	if file.ByteOrder() == binary.BigEndian &&
		file.ArchitectureFlags&elf.ARMFlagsBE8 == 0 {

		return binary.BigEndian
	}
	return binary.LittleEndian
}

type x86Decoder struct {
	mode    int
	symbols SymbolLookup
}

func (x86Decoder) MinLength() int {
	return 1
}

func (decoder *x86Decoder) Decode(
	code []byte,
	address uint64,
) (
	Instruction,
	error,
) {
	inst, err := x86asm.Decode(code, decoder.mode)
	if err != nil {
		return Instruction{}, err
	}

	var symname x86asm.SymLookup
	if decoder.symbols != nil {
		symname = x86asm.SymLookup(decoder.symbols)
	}

	mnemonic, operands := splitText(x86asm.GNUSyntax(inst, address, symname))
	result := Instruction{
		Address:  address,
		Bytes:    code[:inst.Len],
		Mnemonic: mnemonic,
		Operands: operands,
	}

	for _, arg := range inst.Args {
		rel, ok := arg.(x86asm.Rel)
		if ok {
			result.Target = address + uint64(inst.Len) + uint64(int64(rel))
			result.HasTarget = true
		}
	}

	return result, nil
}

type armDecoder struct {
	order binary.ByteOrder
}

func (armDecoder) MinLength() int {
	return 4
}

func (decoder *armDecoder) Decode(
	code []byte,
	address uint64,
) (
	Instruction,
	error,
) {
	if len(code) < 4 {
		return Instruction{}, fmt.Errorf("truncated instruction")
	}

	word := code[:4]
	if decoder.order == binary.BigEndian {
		word = []byte{code[3], code[2], code[1], code[0]}
	}

	inst, err := armasm.Decode(word, armasm.ModeARM)
	if err != nil {
		return Instruction{}, err
	}

	mnemonic, operands := splitText(armasm.GNUSyntax(inst))
	result := Instruction{
		Address:  address,
		Bytes:    code[:4],
		Mnemonic: mnemonic,
		Operands: operands,
	}

	for _, arg := range inst.Args {
		rel, ok := arg.(armasm.PCRel)
		if ok {
			// NOTE: arm state pc reads as the instruction address + 8.
			result.Target = uint64(int64(address) + 8 + int64(rel))
			result.HasTarget = true
		}
	}

	return result, nil
}

type arm64Decoder struct{}

func (arm64Decoder) MinLength() int {
	return 4
}

func (arm64Decoder) Decode(code []byte, address uint64) (Instruction, error) {
	if len(code) < 4 {
		return Instruction{}, fmt.Errorf("truncated instruction")
	}

	inst, err := arm64asm.Decode(code[:4])
	if err != nil {
		return Instruction{}, err
	}

	mnemonic, operands := splitText(arm64asm.GNUSyntax(inst))
	result := Instruction{
		Address:  address,
		Bytes:    code[:4],
		Mnemonic: mnemonic,
		Operands: operands,
	}

	for _, arg := range inst.Args {
		rel, ok := arg.(arm64asm.PCRel)
		if ok {
			result.Target = uint64(int64(address) + int64(rel))
			result.HasTarget = true
		}
	}

	return result, nil
}
