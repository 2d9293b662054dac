package disasm

import (
	"encoding/binary"
	"errors"
	"strings"
	"testing"

	"github.com/pattyshack/gt/testing/expect"
	"github.com/pattyshack/gt/testing/suite"

	"github.com/pattyshack/elfscope/elf"
	"github.com/pattyshack/elfscope/elf/elftest"
	"github.com/pattyshack/elfscope/symtab"
)

type DisasmSuite struct{}

func TestDisasm(t *testing.T) {
	suite.RunTests(t, &DisasmSuite{})
}

type testFunction struct {
	name  string
	value uint64
	size  uint64
}

func (DisasmSuite) build(
	t *testing.T,
	class elf.Class,
	machine elf.MachineArchitecture,
	code []byte,
	functions ...testFunction,
) (
	*elf.File,
	*symtab.Table,
) {
	builder := elftest.NewBuilder(class, binary.LittleEndian, machine)
	builder.AddSection(
		elftest.Section{
			Name:    ".text",
			Type:    elf.SectionTypeProgramDefinedInfo,
			Flags:   elf.SectionOccupiesMemory | elf.SectionContainsInstructions,
			Address: 0x1000,
			Content: code,
		})

	for _, function := range functions {
		builder.AddSymbol(
			elftest.Symbol{
				Name:    function.name,
				Value:   function.value,
				Size:    function.size,
				Type:    elf.SymbolTypeFunction,
				Binding: elf.SymbolBindingGlobal,
				Section: ".text",
			})
	}

	file := builder.Parse()
	table, err := symtab.Extract(file)
	expect.Nil(t, err)

	return file, table
}

func mnemonics(instructions []Instruction) []string {
	result := []string{}
	for _, inst := range instructions {
		result = append(result, inst.Mnemonic)
	}
	return result
}

func (s DisasmSuite) TestX86_64(t *testing.T) {
	code := []byte{
		0x55,             // push %rbp
		0x48, 0x89, 0xe5, // mov %rsp,%rbp
		0x5d, // pop %rbp
		0xc3, // ret
		0x90, // nop (next function)
	}
	file, table := s.build(
		t,
		elf.Class64,
		elf.MachineArchitectureX86_64,
		code,
		testFunction{"frame", 0x1000, 6},
		testFunction{"spin", 0x1006, 1})

	instructions, err := Disassemble(file, table, "frame")
	expect.Nil(t, err)
	expect.Equal(t, 4, len(instructions))

	expect.True(t, strings.HasPrefix(instructions[0].Mnemonic, "push"))
	expect.True(t, strings.HasPrefix(instructions[1].Mnemonic, "mov"))
	expect.True(t, strings.HasPrefix(instructions[2].Mnemonic, "pop"))
	expect.True(t, strings.HasPrefix(instructions[3].Mnemonic, "ret"))

	expectedAddresses := []uint64{0x1000, 0x1001, 0x1004, 0x1005}
	expectedLengths := []int{1, 3, 1, 1}
	for idx, inst := range instructions {
		expect.Equal(t, expectedAddresses[idx], inst.Address)
		expect.Equal(t, expectedLengths[idx], inst.Length())
		expect.False(t, inst.Unknown)
	}
	expect.Equal(t, []byte{0x48, 0x89, 0xe5}, instructions[1].Bytes)
}

func (s DisasmSuite) TestX86TruncatedBytes(t *testing.T) {
	file, table := s.build(
		t,
		elf.Class64,
		elf.MachineArchitectureX86_64,
		[]byte{0x55, 0x48, 0x89},
		testFunction{"broken", 0x1000, 3})

	instructions, err := Disassemble(file, table, "broken")
	expect.Nil(t, err)
	expect.Equal(t, 3, len(instructions))
	expect.False(t, instructions[0].Unknown)
	expect.True(t, instructions[1].Unknown)
	expect.Equal(t, 1, instructions[1].Length())
	expect.Equal(t, uint64(0x1001), instructions[1].Address)
	expect.True(t, instructions[2].Unknown)
	expect.Equal(t, uint64(0x1002), instructions[2].Address)
}

func (s DisasmSuite) TestZeroSizedFunction(t *testing.T) {
	file, table := s.build(
		t,
		elf.Class32,
		elf.MachineArchitecture386,
		[]byte{0x90, 0x90, 0xc3, 0x55, 0xc3},
		testFunction{"start", 0x1000, 0},
		testFunction{"next", 0x1003, 0})

	instructions, err := Disassemble(file, table, "start")
	expect.Nil(t, err)
	expect.Equal(t, 3, len(instructions))
	expect.Equal(t, "nop", instructions[0].Mnemonic)

	// Extends to the section end.
	instructions, err = Disassemble(file, table, "next")
	expect.Nil(t, err)
	expect.Equal(t, 2, len(instructions))
}

func (s DisasmSuite) TestThumb(t *testing.T) {
	code := []byte{
		0x80, 0xb5, // push {r7, lr}
		0x00, 0xaf, // add r7, sp, #0
		0x01, 0x20, // movs r0, #1
		0x00, 0xf0, 0x02, 0xf8, // bl helper
		0x80, 0xbd, // pop {r7, pc}
		0x00, 0xb6, // (bad)
		0x70, 0x47, // helper: bx lr
		0x00, 0xe8, 0x00, 0x00, // (bad) 32-bit
	}
	file, table := s.build(
		t,
		elf.Class32,
		elf.MachineArchitectureARM,
		code,
		testFunction{"blink", 0x1001, 14},
		testFunction{"helper", 0x100f, 2},
		testFunction{"trap", 0x1011, 4})

	instructions, err := Disassemble(file, table, "blink")
	expect.Nil(t, err)
	expect.Equal(
		t,
		[]string{"push", "add", "movs", "bl", "pop", "(bad)"},
		mnemonics(instructions))

	expect.Equal(t, uint64(0x1000), instructions[0].Address)
	expect.Equal(t, "{r7, lr}", instructions[0].Operands)
	expect.Equal(t, "r7, sp, #0", instructions[1].Operands)
	expect.Equal(t, "r0, #1", instructions[2].Operands)

	bl := instructions[3]
	expect.Equal(t, uint64(0x1006), bl.Address)
	expect.Equal(t, 4, bl.Length())
	expect.True(t, bl.HasTarget)
	expect.Equal(t, uint64(0x100e), bl.Target)
	expect.Equal(t, "helper", bl.TargetSymbol)

	expect.Equal(t, "{r7, pc}", instructions[4].Operands)

	expect.True(t, instructions[5].Unknown)
	expect.Equal(t, 2, instructions[5].Length())

	instructions, err = Disassemble(file, table, "helper")
	expect.Nil(t, err)
	expect.Equal(t, 1, len(instructions))
	expect.Equal(t, "bx lr", instructions[0].Text())

	instructions, err = Disassemble(file, table, "trap")
	expect.Nil(t, err)
	expect.Equal(t, 1, len(instructions))
	expect.True(t, instructions[0].Unknown)
	expect.Equal(t, 4, instructions[0].Length())

	// odd address selects thumb state.
	instructions, err = DisassembleRange(file, 0x1001, 6)
	expect.Nil(t, err)
	expect.Equal(t, []string{"push", "add", "movs"}, mnemonics(instructions))
}

func (DisasmSuite) TestThumbEncodings(t *testing.T) {
	decoder := &thumbDecoder{order: binary.LittleEndian}

	type testCase struct {
		halfwords []uint16
		text      string
	}

	cases := []testCase{
		{[]uint16{0x4770}, "bx lr"},
		{[]uint16{0x0048}, "lsls r0, r1, #1"},
		{[]uint16{0x1888}, "adds r0, r1, r2"},
		{[]uint16{0x4008}, "ands r0, r1"},
		{[]uint16{0x4348}, "muls r0, r1, r0"},
		{[]uint16{0x6848}, "ldr r0, [r1, #4]"},
		{[]uint16{0x7008}, "strb r0, [r1, #0]"},
		{[]uint16{0xb082}, "sub sp, #8"},
		{[]uint16{0xb672}, "cpsid i"},
		{[]uint16{0xbf00}, "nop"},
		{[]uint16{0xbf30}, "wfi"},
		{[]uint16{0xbf08}, "it eq"},
		{[]uint16{0xbf04}, "itt eq"},
		{[]uint16{0xdf01}, "svc #1"},
		{[]uint16{0xbe00}, "bkpt 0x0000"},
		{[]uint16{0xe92d, 0x4ff0}, "push.w {r4, r5, r6, r7, r8, r9, r10, r11, lr}"},
		{[]uint16{0xe8bd, 0x8ff0}, "pop.w {r4, r5, r6, r7, r8, r9, r10, r11, pc}"},
		{[]uint16{0xf240, 0x0001}, "movw r0, #1"},
		{[]uint16{0xf04f, 0x0001}, "mov.w r0, #1"},
		{[]uint16{0xf8d1, 0x0004}, "ldr.w r0, [r1, #4]"},
		{[]uint16{0xfbb1, 0xf0f2}, "udiv r0, r1, r2"},
		{[]uint16{0xf3bf, 0x8f4f}, "dsb sy"},
		{[]uint16{0xf3ef, 0x8010}, "mrs r0, primask"},
		{[]uint16{0xee30, 0x0a20}, "vadd.f32 s0, s0, s1"},
	}

	for _, tc := range cases {
		code := []byte{}
		for _, hw := range tc.halfwords {
			code = binary.LittleEndian.AppendUint16(code, hw)
		}

		inst, err := decoder.Decode(code, 0x2000)
		expect.Nil(t, err)
		expect.False(t, inst.Unknown)
		expect.Equal(t, 2*len(tc.halfwords), inst.Length())
		expect.Equal(t, tc.text, inst.Text())
	}
}

func (s DisasmSuite) TestARM(t *testing.T) {
	code := []byte{
		0x01, 0x00, 0xa0, 0xe3, // mov r0, #1
		0x1e, 0xff, 0x2f, 0xe1, // bx lr
		0x00, 0x00, // truncated
	}
	file, table := s.build(
		t,
		elf.Class32,
		elf.MachineArchitectureARM,
		code,
		testFunction{"one", 0x1000, 10})

	instructions, err := Disassemble(file, table, "one")
	expect.Nil(t, err)
	expect.Equal(t, 3, len(instructions))
	expect.Equal(t, "mov", instructions[0].Mnemonic)
	expect.Equal(t, "bx lr", instructions[1].Text())
	expect.Equal(t, uint64(0x1004), instructions[1].Address)
	expect.True(t, instructions[2].Unknown)
	expect.Equal(t, 2, instructions[2].Length())
}

func (s DisasmSuite) TestARM64(t *testing.T) {
	code := []byte{
		0x1f, 0x20, 0x03, 0xd5, // nop
		0xc0, 0x03, 0x5f, 0xd6, // ret
	}
	file, table := s.build(
		t,
		elf.Class64,
		elf.MachineArchitectureAArch64,
		code,
		testFunction{"idle", 0x1000, 8})

	instructions, err := Disassemble(file, table, "idle")
	expect.Nil(t, err)
	expect.Equal(t, []string{"nop", "ret"}, mnemonics(instructions))
	expect.Equal(t, 4, instructions[1].Length())
}

func (s DisasmSuite) TestAVR(t *testing.T) {
	code := []byte{
		0x11, 0x24, // clr r1
		0x81, 0xe0, // ldi r24, 0x01
		0x0f, 0xbe, // out 0x3F, r0
		0x0e, 0x94, 0x80, 0x00, // call 0x100
		0xf1, 0xf7, // brne .-4
		0xff, 0xcf, // rjmp .-2
		0xff, 0xff, // (bad)
		0x08, 0x95, // ret
		0x00, // (bad) trailing byte
	}
	file, table := s.build(
		t,
		elf.Class32,
		elf.MachineArchitectureAVR,
		code,
		testFunction{"main", 0x1000, uint64(len(code))})

	instructions, err := Disassemble(file, table, "main")
	expect.Nil(t, err)
	expect.Equal(
		t,
		[]string{
			"clr", "ldi", "out", "call", "brne", "rjmp", "(bad)", "ret", "(bad)",
		},
		mnemonics(instructions))

	expect.Equal(t, "r1", instructions[0].Operands)
	expect.Equal(t, "r24, 0x01", instructions[1].Operands)
	expect.Equal(t, "0x3F, r0", instructions[2].Operands)

	call := instructions[3]
	expect.Equal(t, 4, call.Length())
	expect.Equal(t, uint64(0x100), call.Target)

	brne := instructions[4]
	expect.Equal(t, uint64(0x100a), brne.Address)
	expect.Equal(t, uint64(0x1008), brne.Target)

	rjmp := instructions[5]
	expect.Equal(t, rjmp.Address, rjmp.Target)
	expect.Equal(t, "main+0xc", rjmp.TargetSymbol)

	expect.True(t, instructions[6].Unknown)
	expect.Equal(t, 2, instructions[6].Length())
	expect.True(t, instructions[8].Unknown)
	expect.Equal(t, 1, instructions[8].Length())
}

func (s DisasmSuite) TestFunctionNotFound(t *testing.T) {
	file, table := s.build(
		t,
		elf.Class64,
		elf.MachineArchitectureX86_64,
		[]byte{0xc3},
		testFunction{"ret", 0x1000, 1})

	_, err := Disassemble(file, table, "nonexistent_fn")
	expect.Error(t, err, "nonexistent_fn")
	expect.True(t, errors.Is(err, ErrFunctionNotFound))
}

func (s DisasmSuite) TestUnsupportedArchitecture(t *testing.T) {
	file, table := s.build(
		t,
		elf.Class32,
		elf.MachineArchitectureMIPS,
		[]byte{0x00, 0x00, 0x00, 0x00},
		testFunction{"start", 0x1000, 4})

	_, err := Disassemble(file, table, "start")
	expect.True(t, errors.Is(err, ErrUnsupportedArchitecture))
}

func (s DisasmSuite) TestRepeatableAndComplete(t *testing.T) {
	type testCase struct {
		class    elf.Class
		machine  elf.MachineArchitecture
		code     []byte
		function testFunction
	}

	cases := []testCase{
		{
			class:    elf.Class64,
			machine:  elf.MachineArchitectureX86_64,
			code:     []byte{0x55, 0x48, 0x89, 0xe5, 0x5d, 0xc3, 0x06},
			function: testFunction{"frame", 0x1000, 7},
		},
		{
			class:   elf.Class32,
			machine: elf.MachineArchitectureARM,
			code: []byte{
				0x01, 0x00, 0xa0, 0xe3,
				0x1e, 0xff, 0x2f, 0xe1,
				0xff, 0xff, 0xff, 0xff,
			},
			function: testFunction{"one", 0x1000, 12},
		},
		{
			class:   elf.Class32,
			machine: elf.MachineArchitectureARM,
			code: []byte{
				0x80, 0xb5,
				0x00, 0xf0, 0x02, 0xf8,
				0x00, 0xb6,
				0x00, 0xe8, 0x00, 0x00,
				0x80, 0xbd,
			},
			function: testFunction{"blink", 0x1001, 14},
		},
		{
			class:    elf.Class32,
			machine:  elf.MachineArchitectureAVR,
			code:     []byte{0x11, 0x24, 0x0e, 0x94, 0x80, 0x00, 0xff, 0xff, 0x08, 0x95},
			function: testFunction{"main", 0x1000, 10},
		},
	}

	for _, tc := range cases {
		file, table := s.build(t, tc.class, tc.machine, tc.code, tc.function)

		first, err := Disassemble(file, table, tc.function.name)
		expect.Nil(t, err)

		second, err := Disassemble(file, table, tc.function.name)
		expect.Nil(t, err)
		expect.Equal(t, first, second)

		total := 0
		address := tc.function.value &^ 1
		for _, inst := range first {
			expect.Equal(t, address, inst.Address)
			address += uint64(inst.Length())
			total += inst.Length()
		}
		expect.Equal(t, int(tc.function.size), total)
	}
}

func (DisasmSuite) TestRelocatableObject(t *testing.T) {
	builder := elftest.NewBuilder(
		elf.Class64,
		binary.LittleEndian,
		elf.MachineArchitectureX86_64)
	builder.FileType = elf.FileTypeRelocatable
	builder.AddSection(
		elftest.Section{
			Name:    ".text",
			Type:    elf.SectionTypeProgramDefinedInfo,
			Flags:   elf.SectionOccupiesMemory | elf.SectionContainsInstructions,
			Content: []byte{0x90, 0x90, 0x90, 0x90},
		})
	builder.AddSection(
		elftest.Section{
			Name:    ".text.foo",
			Type:    elf.SectionTypeProgramDefinedInfo,
			Flags:   elf.SectionOccupiesMemory | elf.SectionContainsInstructions,
			Content: []byte{0xc3},
		})
	builder.AddSection(
		elftest.Section{
			Name:    ".text.spin",
			Type:    elf.SectionTypeProgramDefinedInfo,
			Flags:   elf.SectionOccupiesMemory | elf.SectionContainsInstructions,
			Content: []byte{0xeb, 0xfe},
		})
	builder.AddSymbol(
		elftest.Symbol{
			Name:    "pad",
			Size:    4,
			Type:    elf.SymbolTypeFunction,
			Binding: elf.SymbolBindingGlobal,
			Section: ".text",
		})
	builder.AddSymbol(
		elftest.Symbol{
			Name:    "foo",
			Size:    1,
			Type:    elf.SymbolTypeFunction,
			Binding: elf.SymbolBindingGlobal,
			Section: ".text.foo",
		})
	builder.AddSymbol(
		elftest.Symbol{
			Name:    "spin",
			Size:    2,
			Type:    elf.SymbolTypeFunction,
			Binding: elf.SymbolBindingGlobal,
			Section: ".text.spin",
		})

	file := builder.Parse()
	table, err := symtab.Extract(file)
	expect.Nil(t, err)

	instructions, err := Disassemble(file, table, "foo")
	expect.Nil(t, err)
	expect.Equal(t, 1, len(instructions))
	expect.True(t, strings.HasPrefix(instructions[0].Mnemonic, "ret"))
	expect.Equal(t, []byte{0xc3}, instructions[0].Bytes)

	instructions, err = Disassemble(file, table, "spin")
	expect.Nil(t, err)
	expect.Equal(t, 1, len(instructions))
	expect.True(t, strings.HasPrefix(instructions[0].Mnemonic, "jmp"))
	expect.Equal(t, uint64(0), instructions[0].Target)
	expect.Equal(t, "spin", instructions[0].TargetSymbol)

	instructions, err = Disassemble(file, table, "pad")
	expect.Nil(t, err)
	expect.Equal(t, []string{"nop", "nop", "nop", "nop"}, mnemonics(instructions))
}

func (s DisasmSuite) TestFunctionExceedsSection(t *testing.T) {
	file, table := s.build(
		t,
		elf.Class64,
		elf.MachineArchitectureX86_64,
		[]byte{0x90, 0x90, 0xc3},
		testFunction{"overrun", 0x1001, 8})

	_, err := Disassemble(file, table, "overrun")
	expect.True(t, errors.Is(err, elf.ErrOutOfBounds))
	expect.Error(t, err, ".text")

	_, err = DisassembleRange(file, 0x1002, 2)
	expect.True(t, errors.Is(err, elf.ErrOutOfBounds))

	instructions, err := DisassembleRange(file, 0x1002, 1)
	expect.Nil(t, err)
	expect.Equal(t, 1, len(instructions))
}

func (s DisasmSuite) TestX86Prefixes(t *testing.T) {
	file, table := s.build(
		t,
		elf.Class64,
		elf.MachineArchitectureX86_64,
		[]byte{
			0xf3, 0xaa, // rep stos %al,%es:(%rdi)
			0xf0, 0x0f, 0xb1, 0x0a, // lock cmpxchg %ecx,(%rdx)
		},
		testFunction{"fill", 0x1000, 6})

	instructions, err := Disassemble(file, table, "fill")
	expect.Nil(t, err)
	expect.Equal(t, 2, len(instructions))

	expect.True(t, strings.HasPrefix(instructions[0].Mnemonic, "rep stos"))
	expect.True(t, strings.Contains(instructions[0].Operands, "%al"))
	expect.False(t, strings.Contains(instructions[0].Operands, "stos"))

	expect.True(t, strings.HasPrefix(instructions[1].Mnemonic, "lock cmpxchg"))
	expect.True(t, strings.Contains(instructions[1].Operands, "%ecx"))
}

func (DisasmSuite) TestSplitText(t *testing.T) {
	type testCase struct {
		text     string
		mnemonic string
		operands string
	}

	cases := []testCase{
		{"bx lr", "bx", "lr"},
		{"ret", "ret", ""},
		{"  mov r0, #1 ", "mov", "r0, #1"},
		{"rep stos %al,%es:(%rdi)", "rep stos", "%al,%es:(%rdi)"},
		{"lock cmpxchg %ecx,(%rdx)", "lock cmpxchg", "%ecx,(%rdx)"},
		{"rex.W movsq", "rex.W movsq", ""},
		{"lock", "lock", ""},
		{"", "", ""},
	}

	for _, tc := range cases {
		mnemonic, operands := splitText(tc.text)
		expect.Equal(t, tc.mnemonic, mnemonic)
		expect.Equal(t, tc.operands, operands)
	}
}
