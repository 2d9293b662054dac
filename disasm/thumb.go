package disasm

import (
	"encoding/binary"
	"fmt"
	"strings"
)

// Thumb / Thumb-2 decoder covering the ARMv6-M and ARMv7-M instruction
// sets commonly emitted for Cortex-M targets.  golang.org/x/arch/arm/armasm
// only decodes ARM state instructions.

var armRegisterNames = []string{
	"r0", "r1", "r2", "r3", "r4", "r5", "r6", "r7",
	"r8", "r9", "r10", "r11", "r12", "sp", "lr", "pc",
}

var armConditionNames = []string{
	"eq", "ne", "cs", "cc", "mi", "pl", "vs", "vc",
	"hi", "ls", "ge", "lt", "gt", "le", "", "",
}

var armShiftNames = []string{"lsl", "lsr", "asr", "ror"}

var armSystemRegisterNames = map[uint16]string{
	0:  "apsr",
	1:  "iapsr",
	2:  "eapsr",
	3:  "xpsr",
	5:  "ipsr",
	6:  "epsr",
	7:  "iepsr",
	8:  "msp",
	9:  "psp",
	16: "primask",
	17: "basepri",
	18: "basepri_max",
	19: "faultmask",
	20: "control",
}

func armRegister(num uint16) string {
	return armRegisterNames[num&0xf]
}

func armRegisterList(list uint16) string {
	names := []string{}
	for reg := uint16(0); reg < 16; reg++ {
		if list&(1<<reg) != 0 {
			names = append(names, armRegister(reg))
		}
	}
	return "{" + strings.Join(names, ", ") + "}"
}

func signExtend(value uint32, bits uint) int64 {
	shift := 64 - bits
	return int64(uint64(value)<<shift) >> shift
}

func immediate(value uint32) string {
	return fmt.Sprintf("#%d", value)
}

type thumbDecoder struct {
	order binary.ByteOrder
}

func (thumbDecoder) MinLength() int {
	return 2
}

func (decoder *thumbDecoder) Decode(
	code []byte,
	address uint64,
) (
	Instruction,
	error,
) {
	if len(code) < 2 {
		return Instruction{}, fmt.Errorf("truncated instruction")
	}

	first := decoder.order.Uint16(code)
	if first>>11 < 0x1d { // not 0b11101, 0b11110 or 0b11111
		inst, ok := decodeThumb16(first, address)
		if !ok {
			return Instruction{}, fmt.Errorf("unknown thumb opcode %#04x", first)
		}
		inst.Bytes = code[:2]
		return inst, nil
	}

	if len(code) < 4 {
		return Instruction{}, fmt.Errorf("truncated instruction")
	}

	second := decoder.order.Uint16(code[2:])
	inst, ok := decodeThumb32(first, second, address)
	if !ok {
		// The encoding width is known even when the opcode is not, so the
		// placeholder spans the whole instruction.
		inst = Instruction{
			Mnemonic: unknownMnemonic,
			Operands: fmt.Sprintf("0x%04x%04x", first, second),
			Unknown:  true,
		}
	}
	inst.Address = address
	inst.Bytes = code[:4]
	return inst, nil
}

func thumbInstruction(mnemonic string, operands ...string) Instruction {
	return Instruction{
		Mnemonic: mnemonic,
		Operands: strings.Join(operands, ", "),
	}
}

func thumbBranch(mnemonic string, target uint64) Instruction {
	return Instruction{
		Mnemonic:  mnemonic,
		Operands:  fmt.Sprintf("0x%x", target),
		Target:    target,
		HasTarget: true,
	}
}

func decodeThumb16(hw uint16, address uint64) (Instruction, bool) {
	inst, ok := decodeThumb16Opcode(hw, address)
	inst.Address = address
	return inst, ok
}

func decodeThumb16Opcode(hw uint16, address uint64) (Instruction, bool) {
	low3 := func(shift uint) string { return armRegister((hw >> shift) & 7) }
	pc := address + 4

	switch {
	case hw>>13 == 0 && (hw>>11)&3 != 3: // shift by immediate
		imm := uint32((hw >> 6) & 0x1f)
		op := (hw >> 11) & 3
		if op == 0 && imm == 0 {
			return thumbInstruction("movs", low3(0), low3(3)), true
		}
		if op != 0 && imm == 0 {
			imm = 32
		}
		return thumbInstruction(
			armShiftNames[op]+"s",
			low3(0),
			low3(3),
			immediate(imm)), true

	case hw>>11 == 0x3: // add / sub register or 3-bit immediate
		mnemonic := "adds"
		if hw&(1<<9) != 0 {
			mnemonic = "subs"
		}
		operand := low3(6)
		if hw&(1<<10) != 0 {
			operand = immediate(uint32((hw >> 6) & 7))
		}
		return thumbInstruction(mnemonic, low3(0), low3(3), operand), true

	case hw>>13 == 1: // mov / cmp / add / sub 8-bit immediate
		mnemonics := []string{"movs", "cmp", "adds", "subs"}
		return thumbInstruction(
			mnemonics[(hw>>11)&3],
			low3(8),
			immediate(uint32(hw&0xff))), true

	case hw>>10 == 0x10: // data processing
		op := (hw >> 6) & 0xf
		mnemonics := []string{
			"ands", "eors", "lsls", "lsrs", "asrs", "adcs", "sbcs", "rors",
			"tst", "rsbs", "cmp", "cmn", "orrs", "muls", "bics", "mvns",
		}
		switch op {
		case 9:
			return thumbInstruction("rsbs", low3(0), low3(3), "#0"), true
		case 13:
			return thumbInstruction("muls", low3(0), low3(3), low3(0)), true
		}
		return thumbInstruction(mnemonics[op], low3(0), low3(3)), true

	case hw>>10 == 0x11: // special data processing / branch exchange
		rd := (hw & 7) | ((hw >> 4) & 8)
		rm := (hw >> 3) & 0xf
		switch (hw >> 8) & 3 {
		case 0:
			return thumbInstruction("add", armRegister(rd), armRegister(rm)), true
		case 1:
			return thumbInstruction("cmp", armRegister(rd), armRegister(rm)), true
		case 2:
			if rd == 8 && rm == 8 {
				return thumbInstruction("nop"), true
			}
			return thumbInstruction("mov", armRegister(rd), armRegister(rm)), true
		default:
			if hw&(1<<7) != 0 {
				return thumbInstruction("blx", armRegister(rm)), true
			}
			return thumbInstruction("bx", armRegister(rm)), true
		}

	case hw>>11 == 0x9: // ldr literal
		imm := uint64(hw&0xff) << 2
		inst := thumbInstruction(
			"ldr",
			low3(8),
			fmt.Sprintf("[pc, #%d]", imm))
		inst.Target = (pc &^ 3) + imm
		inst.HasTarget = true
		return inst, true

	case hw>>12 == 0x5: // load / store register offset
		mnemonics := []string{
			"str", "strh", "strb", "ldrsb", "ldr", "ldrh", "ldrb", "ldrsh",
		}
		return thumbInstruction(
			mnemonics[(hw>>9)&7],
			low3(0),
			fmt.Sprintf("[%s, %s]", low3(3), low3(6))), true

	case hw>>13 == 0x3: // load / store word / byte immediate
		isByte := hw&(1<<12) != 0
		isLoad := hw&(1<<11) != 0
		imm := uint32((hw >> 6) & 0x1f)
		mnemonic := "str"
		if isLoad {
			mnemonic = "ldr"
		}
		if isByte {
			mnemonic += "b"
		} else {
			imm <<= 2
		}
		return thumbInstruction(
			mnemonic,
			low3(0),
			fmt.Sprintf("[%s, #%d]", low3(3), imm)), true

	case hw>>12 == 0x8: // load / store halfword immediate
		mnemonic := "strh"
		if hw&(1<<11) != 0 {
			mnemonic = "ldrh"
		}
		return thumbInstruction(
			mnemonic,
			low3(0),
			fmt.Sprintf("[%s, #%d]", low3(3), ((hw>>6)&0x1f)<<1)), true

	case hw>>12 == 0x9: // load / store sp relative
		mnemonic := "str"
		if hw&(1<<11) != 0 {
			mnemonic = "ldr"
		}
		return thumbInstruction(
			mnemonic,
			low3(8),
			fmt.Sprintf("[sp, #%d]", (hw&0xff)<<2)), true

	case hw>>11 == 0x14: // adr
		imm := uint64(hw&0xff) << 2
		inst := thumbInstruction("add", low3(8), "pc", fmt.Sprintf("#%d", imm))
		inst.Target = (pc &^ 3) + imm
		inst.HasTarget = true
		return inst, true

	case hw>>11 == 0x15: // add sp relative
		return thumbInstruction(
			"add",
			low3(8),
			"sp",
			fmt.Sprintf("#%d", (hw&0xff)<<2)), true

	case hw>>12 == 0xb:
		return decodeThumbMiscellaneous(hw, pc)

	case hw>>12 == 0xc: // load / store multiple
		rn := (hw >> 8) & 7
		list := hw & 0xff
		if hw&(1<<11) == 0 {
			return thumbInstruction(
				"stmia",
				armRegister(rn)+"!",
				armRegisterList(list)), true
		}

		base := armRegister(rn)
		if list&(1<<rn) == 0 {
			base += "!"
		}
		return thumbInstruction("ldmia", base, armRegisterList(list)), true

	case hw>>12 == 0xd: // conditional branch / udf / svc
		cond := (hw >> 8) & 0xf
		switch cond {
		case 0xe:
			return thumbInstruction("udf", immediate(uint32(hw&0xff))), true
		case 0xf:
			return thumbInstruction("svc", immediate(uint32(hw&0xff))), true
		}
		offset := signExtend(uint32(hw&0xff)<<1, 9)
		return thumbBranch(
			"b"+armConditionNames[cond],
			uint64(int64(pc)+offset)), true

	case hw>>11 == 0x1c: // unconditional branch
		offset := signExtend(uint32(hw&0x7ff)<<1, 12)
		return thumbBranch("b", uint64(int64(pc)+offset)), true
	}

	return Instruction{}, false
}

func decodeThumbMiscellaneous(hw uint16, pc uint64) (Instruction, bool) {
	low3 := func(shift uint) string { return armRegister((hw >> shift) & 7) }

	switch (hw >> 8) & 0xf {
	case 0x0:
		mnemonic := "add"
		if hw&(1<<7) != 0 {
			mnemonic = "sub"
		}
		return thumbInstruction(
			mnemonic,
			"sp",
			fmt.Sprintf("#%d", (hw&0x7f)<<2)), true

	case 0x1, 0x3, 0x9, 0xb: // cbz / cbnz
		mnemonic := "cbz"
		if hw&(1<<11) != 0 {
			mnemonic = "cbnz"
		}
		offset := uint64((hw>>3)&0x1f)<<1 | uint64((hw>>9)&1)<<6
		inst := thumbBranch(mnemonic, pc+offset)
		inst.Operands = low3(0) + ", " + inst.Operands
		return inst, true

	case 0x2:
		mnemonics := []string{"sxth", "sxtb", "uxth", "uxtb"}
		return thumbInstruction(
			mnemonics[(hw>>6)&3],
			low3(0),
			low3(3)), true

	case 0x4, 0x5:
		list := hw & 0xff
		if hw&(1<<8) != 0 {
			list |= 1 << 14 // lr
		}
		return thumbInstruction("push", armRegisterList(list)), true

	case 0x6:
		if (hw>>5)&7 != 3 {
			return Instruction{}, false
		}

		mnemonic := "cpsie"
		if hw&(1<<4) != 0 {
			mnemonic = "cpsid"
		}
		flags := ""
		for idx, flag := range []string{"a", "i", "f"} {
			if hw&(1<<(2-idx)) != 0 {
				flags += flag
			}
		}
		return thumbInstruction(mnemonic, flags), true

	case 0xa:
		mnemonics := []string{"rev", "rev16", "", "revsh"}
		mnemonic := mnemonics[(hw>>6)&3]
		if mnemonic == "" {
			return Instruction{}, false
		}
		return thumbInstruction(mnemonic, low3(0), low3(3)), true

	case 0xc, 0xd:
		list := hw & 0xff
		if hw&(1<<8) != 0 {
			list |= 1 << 15 // pc
		}
		return thumbInstruction("pop", armRegisterList(list)), true

	case 0xe:
		return thumbInstruction("bkpt", fmt.Sprintf("0x%04x", hw&0xff)), true

	case 0xf:
		if hw&0xf != 0 {
			return decodeThumbIfThen(hw), true
		}

		hints := []string{"nop", "yield", "wfe", "wfi", "sev"}
		hint := (hw >> 4) & 0xf
		if int(hint) >= len(hints) {
			return Instruction{}, false
		}
		return thumbInstruction(hints[hint]), true
	}

	return Instruction{}, false
}

func decodeThumbIfThen(hw uint16) Instruction {
	firstCond := (hw >> 4) & 0xf
	mask := hw & 0xf

	// The lowest set bit terminates the mask.  Bits above it select then
	// (matching firstCond's low bit) or else.
	suffix := ""
	for bit := uint16(3); bit > 0; bit-- {
		if mask&((1<<bit)-1) == 0 {
			break
		}
		if (mask>>bit)&1 == firstCond&1 {
			suffix += "t"
		} else {
			suffix += "e"
		}
	}

	return thumbInstruction("it"+suffix, armConditionNames[firstCond])
}

// thumbExpandImmediate decodes a thumb-2 modified immediate constant.
func thumbExpandImmediate(imm12 uint32) uint32 {
	if imm12>>10 == 0 {
		imm8 := imm12 & 0xff
		switch (imm12 >> 8) & 3 {
		case 0:
			return imm8
		case 1:
			return imm8<<16 | imm8
		case 2:
			return imm8<<24 | imm8<<8
		default:
			return imm8<<24 | imm8<<16 | imm8<<8 | imm8
		}
	}

	unrotated := 0x80 | (imm12 & 0x7f)
	rotation := imm12 >> 7
	return unrotated>>rotation | unrotated<<(32-rotation)
}

var thumbDataProcessingNames = map[uint16]string{
	0x0: "and",
	0x1: "bic",
	0x2: "orr",
	0x3: "orn",
	0x4: "eor",
	0x8: "add",
	0xa: "adc",
	0xb: "sbc",
	0xd: "sub",
	0xe: "rsb",
}

func thumbBranchOffset(first uint16, second uint16) int64 {
	s := uint32((first >> 10) & 1)
	j1 := uint32((second >> 13) & 1)
	j2 := uint32((second >> 11) & 1)
	i1 := ^(j1 ^ s) & 1
	i2 := ^(j2 ^ s) & 1

	imm := s<<24 |
		i1<<23 |
		i2<<22 |
		uint32(first&0x3ff)<<12 |
		uint32(second&0x7ff)<<1
	return signExtend(imm, 25)
}

func decodeThumb32(
	first uint16,
	second uint16,
	address uint64,
) (
	Instruction,
	bool,
) {
	pc := address + 4
	rn := first & 0xf
	rd := (second >> 8) & 0xf

	switch {
	case first&0xf800 == 0xf000 && second&0xd000 == 0xd000: // bl
		return thumbBranch(
			"bl",
			uint64(int64(pc)+thumbBranchOffset(first, second))), true

	case first&0xf800 == 0xf000 && second&0xd001 == 0xc000: // blx
		target := int64(pc&^3) + thumbBranchOffset(first, second)
		return thumbBranch("blx", uint64(target)), true

	case first&0xf800 == 0xf000 && second&0xd000 == 0x9000: // b.w
		return thumbBranch(
			"b.w",
			uint64(int64(pc)+thumbBranchOffset(first, second))), true

	case first == 0xf3af && second == 0x8000:
		return thumbInstruction("nop.w"), true

	case first == 0xf3bf && second&0xff00 == 0x8f00: // barriers
		mnemonics := map[uint16]string{4: "dsb", 5: "dmb", 6: "isb"}
		mnemonic, ok := mnemonics[(second>>4)&0xf]
		if !ok {
			return Instruction{}, false
		}
		option := fmt.Sprintf("#%d", second&0xf)
		if second&0xf == 0xf {
			option = "sy"
		}
		return thumbInstruction(mnemonic, option), true

	case first&0xfff0 == 0xf3e0 && second&0xf000 == 0x8000: // mrs
		name, ok := armSystemRegisterNames[second&0xff]
		if !ok {
			return Instruction{}, false
		}
		return thumbInstruction("mrs", armRegister(rd), name), true

	case first&0xfff0 == 0xf380 && second&0xff00 == 0x8800: // msr
		name, ok := armSystemRegisterNames[second&0xff]
		if !ok {
			return Instruction{}, false
		}
		return thumbInstruction("msr", name, armRegister(rn)), true

	case first&0xf800 == 0xf000 && second&0xd000 == 0x8000: // b<c>.w
		cond := (first >> 6) & 0xf
		if cond >= 0xe {
			return Instruction{}, false
		}

		s := uint32((first >> 10) & 1)
		j1 := uint32((second >> 13) & 1)
		j2 := uint32((second >> 11) & 1)
		imm := s<<20 |
			j2<<19 |
			j1<<18 |
			uint32(first&0x3f)<<12 |
			uint32(second&0x7ff)<<1
		return thumbBranch(
			"b"+armConditionNames[cond]+".w",
			uint64(int64(pc)+signExtend(imm, 21))), true

	case first == 0xe92d:
		return thumbInstruction("push.w", armRegisterList(second)), true

	case first == 0xe8bd:
		return thumbInstruction("pop.w", armRegisterList(second)), true

	case first&0xff7f == 0xf85f: // ldr.w literal
		imm := uint64(second & 0xfff)
		target := pc &^ 3
		sign := "-"
		if first&(1<<7) != 0 {
			target += imm
			sign = ""
		} else {
			target -= imm
		}
		inst := thumbInstruction(
			"ldr.w",
			armRegister(second>>12),
			fmt.Sprintf("[pc, #%s%d]", sign, imm))
		inst.Target = target
		inst.HasTarget = true
		return inst, true

	case first&0xff80 == 0xf880: // load / store immediate 12
		mnemonics := map[uint16]string{
			0x0: "strb.w",
			0x1: "ldrb.w",
			0x2: "strh.w",
			0x3: "ldrh.w",
			0x4: "str.w",
			0x5: "ldr.w",
		}
		mnemonic, ok := mnemonics[(first>>4)&0x7]
		if !ok {
			return Instruction{}, false
		}
		return thumbInstruction(
			mnemonic,
			armRegister(second>>12),
			fmt.Sprintf("[%s, #%d]", armRegister(rn), second&0xfff)), true

	case first&0xfbf0 == 0xf240 && second&0x8000 == 0, // movw
		first&0xfbf0 == 0xf2c0 && second&0x8000 == 0: // movt

		imm := uint32(first&0xf)<<12 |
			uint32((first>>10)&1)<<11 |
			uint32((second>>12)&7)<<8 |
			uint32(second&0xff)
		mnemonic := "movw"
		if first&0xfbf0 == 0xf2c0 {
			mnemonic = "movt"
		}
		return thumbInstruction(
			mnemonic,
			armRegister(rd),
			fmt.Sprintf("#%d", imm)), true

	case first&0xfbf0 == 0xf200 && second&0x8000 == 0, // addw
		first&0xfbf0 == 0xf2a0 && second&0x8000 == 0: // subw

		imm := uint32((first>>10)&1)<<11 |
			uint32((second>>12)&7)<<8 |
			uint32(second&0xff)
		mnemonic := "addw"
		if first&0xfbf0 == 0xf2a0 {
			mnemonic = "subw"
		}
		return thumbInstruction(
			mnemonic,
			armRegister(rd),
			armRegister(rn),
			fmt.Sprintf("#%d", imm)), true

	case first&0xfa00 == 0xf000 && second&0x8000 == 0: // modified immediate
		imm := thumbExpandImmediate(
			uint32((first>>10)&1)<<11 |
				uint32((second>>12)&7)<<8 |
				uint32(second&0xff))
		return decodeThumbDataProcessing(
			first,
			rd,
			rn,
			fmt.Sprintf("#%d", imm))

	case first&0xfe00 == 0xea00: // shifted register
		shiftType := (second >> 4) & 3
		amount := (second>>12)&7<<2 | (second>>6)&3
		operand := armRegister(second & 0xf)
		if amount != 0 || shiftType != 0 {
			operand += fmt.Sprintf(", %s #%d", armShiftNames[shiftType], amount)
		}
		return decodeThumbDataProcessing(first, rd, rn, operand)

	case first&0xfff0 == 0xfb00 && second&0xf0 == 0: // mul / mla
		ra := second >> 12
		if ra == 0xf {
			return thumbInstruction(
				"mul",
				armRegister(rd),
				armRegister(rn),
				armRegister(second&0xf)), true
		}
		return thumbInstruction(
			"mla",
			armRegister(rd),
			armRegister(rn),
			armRegister(second&0xf),
			armRegister(ra)), true

	case first&0xfff0 == 0xfb00 && second&0xf0 == 0x10:
		return thumbInstruction(
			"mls",
			armRegister(rd),
			armRegister(rn),
			armRegister(second&0xf),
			armRegister(second>>12)), true

	case first&0xffd0 == 0xfb90 && second&0xf0f0 == 0xf0f0: // sdiv / udiv
		mnemonic := "sdiv"
		if first&0x20 != 0 {
			mnemonic = "udiv"
		}
		return thumbInstruction(
			mnemonic,
			armRegister(rd),
			armRegister(rn),
			armRegister(second&0xf)), true

	case first&0xef00 == 0xee00 || first&0xee00 == 0xec00:
		return decodeThumbFloatingPoint(first, second)
	}

	return Instruction{}, false
}

func decodeThumbDataProcessing(
	first uint16,
	rd uint16,
	rn uint16,
	operand string,
) (
	Instruction,
	bool,
) {
	op := (first >> 5) & 0xf
	setFlags := first&(1<<4) != 0

	name, ok := thumbDataProcessingNames[op]
	if !ok {
		return Instruction{}, false
	}

	suffix := ".w"
	if setFlags {
		suffix = "s.w"
	}

	// compare / test aliases discard the result.
	if rd == 0xf && setFlags {
		aliases := map[uint16]string{0x0: "tst", 0x4: "teq", 0x8: "cmn", 0xd: "cmp"}
		alias, ok := aliases[op]
		if ok {
			return thumbInstruction(alias+".w", armRegister(rn), operand), true
		}
	}

	if rn == 0xf {
		switch op {
		case 0x2:
			return thumbInstruction("mov"+suffix, armRegister(rd), operand), true
		case 0x3:
			return thumbInstruction("mvn"+suffix, armRegister(rd), operand), true
		}
	}

	return thumbInstruction(
		name+suffix,
		armRegister(rd),
		armRegister(rn),
		operand), true
}

func vfpRegister(num uint16, extra uint16, double bool) string {
	if double {
		return fmt.Sprintf("d%d", extra<<4|num)
	}
	return fmt.Sprintf("s%d", num<<1|extra)
}

// decodeThumbFloatingPoint decodes common vfp single / double precision
// arithmetic, transfer and load / store instructions.
func decodeThumbFloatingPoint(first uint16, second uint16) (Instruction, bool) {
	coprocessor := (second >> 8) & 0xf
	if coprocessor != 0xa && coprocessor != 0xb {
		return Instruction{}, false
	}
	double := coprocessor == 0xb
	precision := ".f32"
	if double {
		precision = ".f64"
	}

	vd := vfpRegister((second>>12)&0xf, (first>>6)&1, double)
	vn := vfpRegister(first&0xf, (second>>7)&1, double)
	vm := vfpRegister(second&0xf, (second>>5)&1, double)

	switch {
	case first&0xffe0 == 0xee00 && second&0x0f7f == 0x0a10: // vmov core <-> s
		sn := vfpRegister(first&0xf, (second>>7)&1, false)
		rt := armRegister(second >> 12)
		if first&0x10 != 0 {
			return thumbInstruction("vmov", rt, sn), true
		}
		return thumbInstruction("vmov", sn, rt), true

	case first&0xff20 == 0xed00 && second&0x0e00 == 0x0a00: // vldr / vstr
		mnemonic := "vstr"
		if first&0x10 != 0 {
			mnemonic = "vldr"
		}
		offset := int(second&0xff) << 2
		if first&(1<<7) == 0 {
			offset = -offset
		}
		return thumbInstruction(
			mnemonic,
			vd,
			fmt.Sprintf("[%s, #%d]", armRegister(first&0xf), offset)), true

	case first&0xffb0 == 0xee30 && second&0x0e10 == 0x0a00:
		mnemonic := "vadd"
		if second&(1<<6) != 0 {
			mnemonic = "vsub"
		}
		return thumbInstruction(mnemonic+precision, vd, vn, vm), true

	case first&0xffb0 == 0xee20 && second&0x0e50 == 0x0a00:
		return thumbInstruction("vmul"+precision, vd, vn, vm), true

	case first&0xffb0 == 0xee80 && second&0x0e50 == 0x0a00:
		return thumbInstruction("vdiv"+precision, vd, vn, vm), true
	}

	return Instruction{}, false
}
