package model

// Vault resolution provenance, recorded so consumers can tell a labeled
// account from a heuristic guess.
const (
	VaultSourceLabeled        = "labeled"
	VaultSourceAccountOrder   = "account_order"
	VaultSourceMislabeledRent = "mislabeled_rent"
	VaultSourceFeeRecipient   = "fee_recipient_guess"
)

// CpiLogEntry is the enrichment output for one buy/sell instruction.
// TransactionType, Mint, Signature and Time are always set; every other
// field is best-effort and omitted when unknown.
type CpiLogEntry struct {
	TransactionType string `json:"transaction_type"`
	Mint            string `json:"mint"`
	TokenAmount     uint64 `json:"token_amount"`
	SolAmount       float64 `json:"sol_amount"`
	Time            string `json:"time"`
	Signature       string `json:"signature"`
	Signer          string `json:"signer,omitempty"`

	Price                *float64 `json:"price,omitempty"`
	VirtualTokenReserves *uint64  `json:"virtual_token_reserves,omitempty"`
	VirtualSolReserves   *uint64  `json:"virtual_sol_reserves,omitempty"`
	RealTokenReserves    *uint64  `json:"real_token_reserves,omitempty"`
	RealSolReserves      *uint64  `json:"real_sol_reserves,omitempty"`

	CurveAccount string `json:"curve_account,omitempty"`
	Creator      string `json:"creator,omitempty"`
	CreatorVault string `json:"creator_vault,omitempty"`
	VaultSource  string `json:"vault_source,omitempty"`

	FeeRecipient          string  `json:"fee_recipient,omitempty"`
	FeeBasisPoints        *uint64 `json:"fee_basis_points,omitempty"`
	FeeAmount             *uint64 `json:"fee_amount,omitempty"`
	CreatorFeeBasisPoints *uint64 `json:"creator_fee_basis_points,omitempty"`
	CreatorFee            *uint64 `json:"creator_fee,omitempty"`

	Timestamp int64 `json:"timestamp"`
}
