package disasm

import (
	"fmt"
	"strings"
)

const unknownMnemonic = "(bad)"

type Instruction struct {
	Address uint64
	Bytes   []byte // shares the elf file's content

	Mnemonic string
	Operands string

	// Branch / call / literal target, when the instruction has one.
	Target       uint64
	HasTarget    bool
	TargetSymbol string

	// Set for undecodable bytes.  The placeholder spans the decoder's
	// minimum instruction unit.
	Unknown bool
}

func (inst Instruction) Length() int {
	return len(inst.Bytes)
}

// Text returns the assembly text (mnemonic followed by operands).
func (inst Instruction) Text() string {
	if inst.Operands == "" {
		return inst.Mnemonic
	}
	return inst.Mnemonic + " " + inst.Operands
}

func (inst Instruction) String() string {
	raw := make([]string, 0, len(inst.Bytes))
	for _, b := range inst.Bytes {
		raw = append(raw, fmt.Sprintf("%02x", b))
	}

	text := fmt.Sprintf(
		"%8x:\t%-24s\t%s",
		inst.Address,
		strings.Join(raw, " "),
		inst.Text())

	if inst.TargetSymbol != "" {
		text += " <" + inst.TargetSymbol + ">"
	}

	return text
}

func unknownInstruction(code []byte, address uint64, length int) Instruction {
	if length > len(code) {
		length = len(code)
	}

	return Instruction{
		Address:  address,
		Bytes:    code[:length],
		Mnemonic: unknownMnemonic,
		Unknown:  true,
	}
}

// x86 prefixes which x86asm prints as separate words before the opcode.
var instructionPrefixes = map[string]struct{}{
	"lock":     {},
	"rep":      {},
	"repe":     {},
	"repz":     {},
	"repne":    {},
	"repnz":    {},
	"data16":   {},
	"data32":   {},
	"addr16":   {},
	"addr32":   {},
	"xacquire": {},
	"xrelease": {},
	"bnd":      {},
	"notrack":  {},
	"cs":       {},
	"ds":       {},
	"es":       {},
	"fs":       {},
	"gs":       {},
	"ss":       {},
}

func isInstructionPrefix(word string) bool {
	_, ok := instructionPrefixes[word]
	return ok || strings.HasPrefix(word, "rex.") || word == "rex"
}

// splitText splits "mnemonic operands" text produced by the x/arch
// formatters.  Prefixes stay with the mnemonic (e.g., "rep stos").
func splitText(text string) (string, string) {
	words := strings.Fields(text)
	if len(words) == 0 {
		return "", ""
	}

	idx := 0
	for idx < len(words)-1 && isInstructionPrefix(words[idx]) {
		idx++
	}

	mnemonic := strings.Join(words[:idx+1], " ")
	operands := strings.Join(words[idx+1:], " ")
	return mnemonic, operands
}
