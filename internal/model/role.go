package model

// AccountRole is one instruction account with its semantic name from the
// account-role descriptor.
type AccountRole struct {
	Name       string `json:"name"`
	Pubkey     string `json:"pubkey"`
	Index      int    `json:"index"`
	IsSigner   bool   `json:"is_signer"`
	IsWritable bool   `json:"is_writable"`
}
