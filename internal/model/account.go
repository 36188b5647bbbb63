package model

import "time"

// AccountType names the decoded account variants of the watched program.
type AccountType string

const (
	AccountBondingCurve AccountType = "BondingCurve"
	AccountGlobal       AccountType = "Global"
)

// BondingCurveState is the decoded bonding-curve account payload.
type BondingCurveState struct {
	VirtualTokenReserves uint64 `json:"virtual_token_reserves"`
	VirtualSolReserves   uint64 `json:"virtual_sol_reserves"`
	RealTokenReserves    uint64 `json:"real_token_reserves"`
	RealSolReserves      uint64 `json:"real_sol_reserves"`
	TokenTotalSupply     uint64 `json:"token_total_supply"`
	Complete             bool   `json:"complete"`
}

// GlobalState is the decoded global configuration account payload.
type GlobalState struct {
	Initialized                 bool   `json:"initialized"`
	Authority                   string `json:"authority"`
	FeeRecipient                string `json:"fee_recipient"`
	InitialVirtualTokenReserves uint64 `json:"initial_virtual_token_reserves"`
	InitialVirtualSolReserves   uint64 `json:"initial_virtual_sol_reserves"`
	InitialRealTokenReserves    uint64 `json:"initial_real_token_reserves"`
	TokenTotalSupply            uint64 `json:"token_total_supply"`
	FeeBasisPoints              uint64 `json:"fee_basis_points"`
}

// AccountSnapshot is a decoded, typed account snapshot. Exactly one of
// Curve and Global is non-nil, matching Type.
type AccountSnapshot struct {
	Type       AccountType        `json:"type"`
	Pubkey     string             `json:"pubkey"`
	Curve      *BondingCurveState `json:"curve,omitempty"`
	Global     *GlobalState       `json:"global,omitempty"`
	ObservedAt time.Time          `json:"observed_at"`
}
