// Package idl loads an account-role descriptor (an Anchor-style IDL) and
// maps instruction accounts to their semantic names.
package idl

import (
	"encoding/json"
	"fmt"
	"os"

	"pumpscope/internal/model"
)

type idlAccount struct {
	Name string `json:"name"`
	// Two historical key conventions exist for the same flags; accept both.
	IsMut    bool `json:"isMut"`
	IsSigner bool `json:"isSigner"`
	Writable bool `json:"writable"`
	Signer   bool `json:"signer"`
}

type idlInstruction struct {
	Name     string       `json:"name"`
	Accounts []idlAccount `json:"accounts"`
}

// Idl is the parsed account-role descriptor.
type Idl struct {
	Instructions []idlInstruction `json:"instructions"`
}

// Load reads and parses a descriptor file.
func Load(path string) (*Idl, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read idl: %w", err)
	}
	var parsed Idl
	if err := json.Unmarshal(content, &parsed); err != nil {
		return nil, fmt.Errorf("parse idl: %w", err)
	}
	return &parsed, nil
}

// MapAccounts walks an instruction's declared accounts positionally
// against the supplied account list, assigning each its semantic name.
// Accounts beyond the declared count are labeled "remaining account N";
// an unknown instruction name fails the mapping. The input roles carry
// the transaction-level pubkey and signer/writable observations; the
// descriptor's flags are OR-ed on top.
func (i *Idl) MapAccounts(accounts []model.AccountRole, instructionName string) ([]model.AccountRole, error) {
	var declared []idlAccount
	found := false
	for _, ix := range i.Instructions {
		if ix.Name == instructionName {
			declared = ix.Accounts
			found = true
			break
		}
	}
	if !found {
		return nil, fmt.Errorf("unknown instruction: %s", instructionName)
	}

	roles := make([]model.AccountRole, 0, len(accounts))
	for idx, account := range accounts {
		role := account
		if idx < len(declared) {
			decl := declared[idx]
			role.Name = decl.Name
			role.IsWritable = role.IsWritable || decl.IsMut || decl.Writable
			role.IsSigner = role.IsSigner || decl.IsSigner || decl.Signer
		} else {
			role.Name = fmt.Sprintf("remaining account %d", idx-len(declared)+1)
		}
		roles = append(roles, role)
	}
	return roles, nil
}
