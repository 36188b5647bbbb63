// Package spltoken names SPL Token program instructions by their
// single-byte tag, for the token transaction monitoring feature.
package spltoken

import (
	"encoding/binary"
	"fmt"

	"github.com/gagliardetto/solana-go"

	"pumpscope/internal/model"
)

// ProgramID is the SPL Token program.
var ProgramID = solana.MustPublicKeyFromBase58("TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA")

var instructionNames = map[byte]string{
	0:  "initializeMint",
	1:  "initializeAccount",
	2:  "initializeMultisig",
	3:  "transfer",
	4:  "approve",
	5:  "revoke",
	6:  "setAuthority",
	7:  "mintTo",
	8:  "burn",
	9:  "closeAccount",
	10: "freezeAccount",
	11: "thawAccount",
	12: "transferChecked",
	13: "approveChecked",
	14: "mintToChecked",
	15: "burnChecked",
	16: "initializeAccount2",
	17: "syncNative",
	18: "initializeAccount3",
	19: "initializeMultisig2",
	20: "initializeMint2",
}

// Instruction is a named token instruction. Amount is populated for the
// transfer variants only.
type Instruction struct {
	Name   string
	Amount uint64
}

// Decode names a token instruction from its data buffer.
func Decode(data []byte) (Instruction, error) {
	if len(data) == 0 {
		return Instruction{}, &model.DecodeError{Kind: "token", Reason: "empty instruction data"}
	}
	name, ok := instructionNames[data[0]]
	if !ok {
		return Instruction{}, &model.DecodeError{
			Kind:   "token",
			Reason: fmt.Sprintf("unknown instruction tag %d", data[0]),
		}
	}
	ix := Instruction{Name: name}
	switch data[0] {
	case 3, 12: // transfer, transferChecked
		if len(data) < 9 {
			return Instruction{}, &model.DecodeError{
				Kind:   "token",
				Reason: fmt.Sprintf("%s: truncated amount", name),
			}
		}
		ix.Amount = binary.LittleEndian.Uint64(data[1:9])
	}
	return ix, nil
}
