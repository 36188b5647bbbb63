package pump

import (
	"bytes"
	"fmt"

	bin "github.com/gagliardetto/binary"

	"pumpscope/internal/model"
)

// InstructionKind classifies a decoded program instruction.
type InstructionKind int

const (
	// InstructionOther is a recognized opcode the monitor names but does
	// not model further.
	InstructionOther InstructionKind = iota
	InstructionBuy
	InstructionSell
)

// Anchor instruction discriminators for the program's opcode set.
var instructionDiscriminators = []struct {
	discm [8]byte
	name  string
	kind  InstructionKind
}{
	{[8]byte{102, 6, 61, 18, 1, 218, 235, 234}, "buy", InstructionBuy},
	{[8]byte{51, 230, 133, 164, 1, 127, 131, 173}, "sell", InstructionSell},
	{[8]byte{24, 30, 200, 40, 5, 28, 7, 119}, "create", InstructionOther},
	{[8]byte{175, 175, 109, 31, 13, 152, 155, 237}, "initialize", InstructionOther},
	{[8]byte{27, 234, 178, 52, 147, 2, 187, 141}, "setParams", InstructionOther},
	{[8]byte{183, 18, 70, 156, 148, 109, 161, 34}, "withdraw", InstructionOther},
}

// Instruction is a decoded program instruction. For buy and sell, Amount
// is the token amount and SolLimit the SOL-denominated bound (max cost
// for buys, min output for sells).
type Instruction struct {
	Kind     InstructionKind
	Name     string
	Amount   uint64
	SolLimit uint64
}

type tradeArgs struct {
	Amount   uint64
	SolLimit uint64
}

// DecodeInstruction decodes an instruction data buffer. Unknown opcodes
// and malformed argument bytes fail with an error the caller is expected
// to skip silently.
func DecodeInstruction(data []byte) (Instruction, error) {
	if len(data) < discriminatorLen {
		return Instruction{}, &model.DecodeError{
			Kind:   "instruction",
			Reason: fmt.Sprintf("buffer too short for discriminator: %d bytes", len(data)),
		}
	}

	discm := data[:discriminatorLen]
	for _, entry := range instructionDiscriminators {
		if !bytes.Equal(discm, entry.discm[:]) {
			continue
		}
		ix := Instruction{Kind: entry.kind, Name: entry.name}
		if entry.kind == InstructionBuy || entry.kind == InstructionSell {
			var args tradeArgs
			if err := bin.NewBorshDecoder(data[discriminatorLen:]).Decode(&args); err != nil {
				return Instruction{}, &model.DecodeError{
					Kind:   "instruction",
					Reason: fmt.Sprintf("deserialize %s args: %v", entry.name, err),
				}
			}
			ix.Amount = args.Amount
			ix.SolLimit = args.SolLimit
		}
		return ix, nil
	}

	return Instruction{}, &model.DecodeError{
		Kind:   "instruction",
		Reason: "no matching discriminator",
	}
}
