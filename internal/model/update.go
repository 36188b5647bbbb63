package model

// UpdateKind tags the variants of a StreamUpdate envelope.
type UpdateKind int

const (
	UpdateEmpty UpdateKind = iota
	UpdateTransaction
	UpdateAccount
	UpdatePing
	UpdatePong
)

// StreamUpdate is one envelope from the upstream feed. Exactly one of
// Transaction and Account is set, depending on Kind.
type StreamUpdate struct {
	Kind        UpdateKind
	Transaction *TransactionEvent
	Account     *AccountEvent
	PingID      int32
}

// RawInstruction is a compiled instruction as delivered on the wire:
// indexes into the transaction's account key list plus opaque data.
type RawInstruction struct {
	ProgramIDIndex int
	AccountIndexes []int
	Data           []byte
}

// TransactionEvent is a transaction as delivered by the feed. AccountKeys
// are base58 strings in message order; Signature is the base58-rendered
// first signature used as the cache key.
type TransactionEvent struct {
	Signature             string
	Slot                  uint64
	AccountKeys           []string
	Instructions          []RawInstruction
	NumRequiredSignatures int
}

// AccountEvent is a raw account snapshot as delivered by the feed.
type AccountEvent struct {
	Pubkey   string
	Owner    string
	Lamports uint64
	Slot     uint64
	Data     []byte
}
