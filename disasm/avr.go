package disasm

import (
	"encoding/binary"
	"fmt"
	"strings"
)

// AVR opcode patterns are 16 characters, most significant bit first.  '0'
// and '1' are fixed bits, letters are operand fields:
//
//	d  destination register    r  source register
//	K  immediate               k  address / branch offset
//	A  i/o address             b  bit number
//	q  displacement
//
// Operand tokens:
//
//	d / r    r<n>           Hd / Hr  r<n+16>
//	Pd / Pr  r<2n> (pair)   Wd       r<24+2n>
//	K        0x%02x          A        0x%02x
//	b        bit number     j        12-bit relative jump target
//	c        7-bit relative branch target
//	J        22-bit absolute jump target (second word)
//	m        16-bit data address (second word)
//	Yq / Zq  Y+q / Z+q
//
// Any other token is printed as is.
type avrOpcode struct {
	mnemonic string
	pattern  string
	operands string

	// Only matches when the d and r fields are equal (e.g., lsl rd is
	// add rd, rd).
	sameRegisters bool

	mask   uint16
	value  uint16
	fields map[byte][]uint // bit positions, most significant first
}

func (op *avrOpcode) words() int {
	if strings.Contains(op.operands, "J") || strings.Contains(op.operands, "m") {
		return 2
	}
	return 1
}

func (op *avrOpcode) field(word uint16, letter byte) uint32 {
	value := uint32(0)
	for _, pos := range op.fields[letter] {
		value = value<<1 | uint32((word>>pos)&1)
	}
	return value
}

func (op *avrOpcode) matches(word uint16) bool {
	if word&op.mask != op.value {
		return false
	}
	if op.sameRegisters {
		return op.field(word, 'd') == op.field(word, 'r')
	}
	return true
}

func newAVROpcode(
	mnemonic string,
	pattern string,
	operands string,
) *avrOpcode {
	if len(pattern) != 16 {
		panic("invalid avr pattern: " + pattern)
	}

	op := &avrOpcode{
		mnemonic: mnemonic,
		pattern:  pattern,
		operands: operands,
		fields:   map[byte][]uint{},
	}

	for idx := 0; idx < 16; idx++ {
		pos := uint(15 - idx)
		switch ch := pattern[idx]; ch {
		case '0':
			op.mask |= 1 << pos
		case '1':
			op.mask |= 1 << pos
			op.value |= 1 << pos
		default:
			op.fields[ch] = append(op.fields[ch], pos)
		}
	}

	return op
}

func same(op *avrOpcode) *avrOpcode {
	op.sameRegisters = true
	return op
}

// Ordered; specific encodings precede the general forms they alias.
var avrOpcodes = buildAVROpcodes()

func buildAVROpcodes() []*avrOpcode {
	ops := []*avrOpcode{
		newAVROpcode("nop", "0000000000000000", ""),
		newAVROpcode("movw", "00000001ddddrrrr", "Pd,Pr"),
		newAVROpcode("muls", "00000010ddddrrrr", "Hd,Hr"),
		newAVROpcode("mulsu", "000000110ddd0rrr", "Hd,Hr"),
		newAVROpcode("fmul", "000000110ddd1rrr", "Hd,Hr"),
		newAVROpcode("fmuls", "000000111ddd0rrr", "Hd,Hr"),
		newAVROpcode("fmulsu", "000000111ddd1rrr", "Hd,Hr"),
		newAVROpcode("cpc", "000001rdddddrrrr", "d,r"),
		newAVROpcode("sbc", "000010rdddddrrrr", "d,r"),
		same(newAVROpcode("lsl", "000011rdddddrrrr", "d")),
		newAVROpcode("add", "000011rdddddrrrr", "d,r"),
		newAVROpcode("cpse", "000100rdddddrrrr", "d,r"),
		newAVROpcode("cp", "000101rdddddrrrr", "d,r"),
		newAVROpcode("sub", "000110rdddddrrrr", "d,r"),
		same(newAVROpcode("rol", "000111rdddddrrrr", "d")),
		newAVROpcode("adc", "000111rdddddrrrr", "d,r"),
		same(newAVROpcode("tst", "001000rdddddrrrr", "d")),
		newAVROpcode("and", "001000rdddddrrrr", "d,r"),
		same(newAVROpcode("clr", "001001rdddddrrrr", "d")),
		newAVROpcode("eor", "001001rdddddrrrr", "d,r"),
		newAVROpcode("or", "001010rdddddrrrr", "d,r"),
		newAVROpcode("mov", "001011rdddddrrrr", "d,r"),
		newAVROpcode("cpi", "0011KKKKddddKKKK", "Hd,K"),
		newAVROpcode("sbci", "0100KKKKddddKKKK", "Hd,K"),
		newAVROpcode("subi", "0101KKKKddddKKKK", "Hd,K"),
		newAVROpcode("ori", "0110KKKKddddKKKK", "Hd,K"),
		newAVROpcode("andi", "0111KKKKddddKKKK", "Hd,K"),

		newAVROpcode("ld", "1000000ddddd0000", "d,Z"),
		newAVROpcode("ld", "1000000ddddd1000", "d,Y"),
		newAVROpcode("ldd", "10q0qq0ddddd0qqq", "d,Zq"),
		newAVROpcode("ldd", "10q0qq0ddddd1qqq", "d,Yq"),
		newAVROpcode("st", "1000001rrrrr0000", "Z,r"),
		newAVROpcode("st", "1000001rrrrr1000", "Y,r"),
		newAVROpcode("std", "10q0qq1rrrrr0qqq", "Zq,r"),
		newAVROpcode("std", "10q0qq1rrrrr1qqq", "Yq,r"),

		newAVROpcode("lds", "1001000ddddd0000", "d,m"),
		newAVROpcode("ld", "1001000ddddd0001", "d,Z+"),
		newAVROpcode("ld", "1001000ddddd0010", "d,-Z"),
		newAVROpcode("lpm", "1001000ddddd0100", "d,Z"),
		newAVROpcode("lpm", "1001000ddddd0101", "d,Z+"),
		newAVROpcode("elpm", "1001000ddddd0110", "d,Z"),
		newAVROpcode("elpm", "1001000ddddd0111", "d,Z+"),
		newAVROpcode("ld", "1001000ddddd1001", "d,Y+"),
		newAVROpcode("ld", "1001000ddddd1010", "d,-Y"),
		newAVROpcode("ld", "1001000ddddd1100", "d,X"),
		newAVROpcode("ld", "1001000ddddd1101", "d,X+"),
		newAVROpcode("ld", "1001000ddddd1110", "d,-X"),
		newAVROpcode("pop", "1001000ddddd1111", "d"),

		newAVROpcode("sts", "1001001rrrrr0000", "m,r"),
		newAVROpcode("st", "1001001rrrrr0001", "Z+,r"),
		newAVROpcode("st", "1001001rrrrr0010", "-Z,r"),
		newAVROpcode("xch", "1001001rrrrr0100", "Z,r"),
		newAVROpcode("las", "1001001rrrrr0101", "Z,r"),
		newAVROpcode("lac", "1001001rrrrr0110", "Z,r"),
		newAVROpcode("lat", "1001001rrrrr0111", "Z,r"),
		newAVROpcode("st", "1001001rrrrr1001", "Y+,r"),
		newAVROpcode("st", "1001001rrrrr1010", "-Y,r"),
		newAVROpcode("st", "1001001rrrrr1100", "X,r"),
		newAVROpcode("st", "1001001rrrrr1101", "X+,r"),
		newAVROpcode("st", "1001001rrrrr1110", "-X,r"),
		newAVROpcode("push", "1001001rrrrr1111", "r"),
	}

	setFlags := []string{"sec", "sez", "sen", "sev", "ses", "seh", "set", "sei"}
	clearFlags := []string{"clc", "clz", "cln", "clv", "cls", "clh", "clt", "cli"}
	for bit := 0; bit < 8; bit++ {
		bits := fmt.Sprintf("%03b", bit)
		ops = append(
			ops,
			newAVROpcode(setFlags[bit], "100101000"+bits+"1000", ""),
			newAVROpcode(clearFlags[bit], "100101001"+bits+"1000", ""))
	}

	ops = append(
		ops,
		newAVROpcode("ret", "1001010100001000", ""),
		newAVROpcode("reti", "1001010100011000", ""),
		newAVROpcode("sleep", "1001010110001000", ""),
		newAVROpcode("break", "1001010110011000", ""),
		newAVROpcode("wdr", "1001010110101000", ""),
		newAVROpcode("lpm", "1001010111001000", ""),
		newAVROpcode("elpm", "1001010111011000", ""),
		newAVROpcode("spm", "1001010111101000", ""),
		newAVROpcode("spm", "1001010111111000", "Z+"),
		newAVROpcode("ijmp", "1001010000001001", ""),
		newAVROpcode("eijmp", "1001010000011001", ""),
		newAVROpcode("icall", "1001010100001001", ""),
		newAVROpcode("eicall", "1001010100011001", ""),

		newAVROpcode("com", "1001010ddddd0000", "d"),
		newAVROpcode("neg", "1001010ddddd0001", "d"),
		newAVROpcode("swap", "1001010ddddd0010", "d"),
		newAVROpcode("inc", "1001010ddddd0011", "d"),
		newAVROpcode("asr", "1001010ddddd0101", "d"),
		newAVROpcode("lsr", "1001010ddddd0110", "d"),
		newAVROpcode("ror", "1001010ddddd0111", "d"),
		newAVROpcode("dec", "1001010ddddd1010", "d"),
		newAVROpcode("des", "10010100KKKK1011", "K"),
		newAVROpcode("jmp", "1001010kkkkk110k", "J"),
		newAVROpcode("call", "1001010kkkkk111k", "J"),

		newAVROpcode("adiw", "10010110KKddKKKK", "Wd,K"),
		newAVROpcode("sbiw", "10010111KKddKKKK", "Wd,K"),
		newAVROpcode("cbi", "10011000AAAAAbbb", "A,b"),
		newAVROpcode("sbic", "10011001AAAAAbbb", "A,b"),
		newAVROpcode("sbi", "10011010AAAAAbbb", "A,b"),
		newAVROpcode("sbis", "10011011AAAAAbbb", "A,b"),
		newAVROpcode("mul", "100111rdddddrrrr", "d,r"),
		newAVROpcode("in", "10110AAdddddAAAA", "d,A"),
		newAVROpcode("out", "10111AArrrrrAAAA", "A,r"),
		newAVROpcode("rjmp", "1100kkkkkkkkkkkk", "j"),
		newAVROpcode("rcall", "1101kkkkkkkkkkkk", "j"),
		newAVROpcode("ser", "11101111dddd1111", "Hd"),
		newAVROpcode("ldi", "1110KKKKddddKKKK", "Hd,K"))

	branchSet := []string{
		"brcs", "breq", "brmi", "brvs", "brlt", "brhs", "brts", "brie",
	}
	branchClear := []string{
		"brcc", "brne", "brpl", "brvc", "brge", "brhc", "brtc", "brid",
	}
	for bit := 0; bit < 8; bit++ {
		bits := fmt.Sprintf("%03b", bit)
		ops = append(
			ops,
			newAVROpcode(branchSet[bit], "111100kkkkkkk"+bits, "c"),
			newAVROpcode(branchClear[bit], "111101kkkkkkk"+bits, "c"))
	}

	ops = append(
		ops,
		newAVROpcode("bld", "1111100ddddd0bbb", "d,b"),
		newAVROpcode("bst", "1111101ddddd0bbb", "d,b"),
		newAVROpcode("sbrc", "1111110rrrrr0bbb", "r,b"),
		newAVROpcode("sbrs", "1111111rrrrr0bbb", "r,b"))

	return ops
}

type avrDecoder struct{}

func (avrDecoder) MinLength() int {
	return 2
}

func (avrDecoder) Decode(code []byte, address uint64) (Instruction, error) {
	if len(code) < 2 {
		return Instruction{}, fmt.Errorf("truncated instruction")
	}

	word := binary.LittleEndian.Uint16(code)
	for _, op := range avrOpcodes {
		if !op.matches(word) {
			continue
		}

		length := op.words() * 2
		if len(code) < length {
			return Instruction{}, fmt.Errorf("truncated instruction")
		}

		var next uint16
		if length == 4 {
			next = binary.LittleEndian.Uint16(code[2:])
		}

		inst := Instruction{
			Address:  address,
			Bytes:    code[:length],
			Mnemonic: op.mnemonic,
		}

		operands := []string{}
		if op.operands != "" {
			for _, token := range strings.Split(op.operands, ",") {
				operands = append(
					operands,
					op.formatOperand(token, word, next, address, &inst))
			}
		}
		inst.Operands = strings.Join(operands, ", ")

		return inst, nil
	}

	return Instruction{}, fmt.Errorf("unknown avr opcode %#04x", word)
}

func (op *avrOpcode) formatOperand(
	token string,
	word uint16,
	next uint16,
	address uint64,
	inst *Instruction,
) string {
	setTarget := func(target uint64) string {
		inst.Target = target
		inst.HasTarget = true
		return fmt.Sprintf("0x%x", target)
	}

	switch token {
	case "d", "r":
		return fmt.Sprintf("r%d", op.field(word, token[0]))
	case "Hd", "Hr":
		return fmt.Sprintf("r%d", 16+op.field(word, token[1]))
	case "Pd", "Pr":
		return fmt.Sprintf("r%d", 2*op.field(word, token[1]))
	case "Wd":
		return fmt.Sprintf("r%d", 24+2*op.field(word, 'd'))
	case "K":
		return fmt.Sprintf("0x%02X", op.field(word, 'K'))
	case "A":
		return fmt.Sprintf("0x%02X", op.field(word, 'A'))
	case "b":
		return fmt.Sprintf("%d", op.field(word, 'b'))
	case "j":
		offset := signExtend(op.field(word, 'k'), 12) * 2
		return setTarget(uint64(int64(address) + 2 + offset))
	case "c":
		offset := signExtend(op.field(word, 'k'), 7) * 2
		return setTarget(uint64(int64(address) + 2 + offset))
	case "J":
		target := (uint64(op.field(word, 'k'))<<16 | uint64(next)) * 2
		return setTarget(target)
	case "m":
		return fmt.Sprintf("0x%04X", next)
	case "Yq", "Zq":
		return fmt.Sprintf("%c+%d", token[0], op.field(word, 'q'))
	default:
		return token
	}
}
