package pump

import (
	"bytes"
	"fmt"
	"time"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"

	"pumpscope/internal/model"
)

// Anchor account discriminators for the two modeled account types.
var (
	bondingCurveDiscriminator = [8]byte{23, 183, 248, 55, 96, 216, 172, 96}
	globalDiscriminator       = [8]byte{167, 232, 232, 177, 200, 108, 114, 127}
)

const discriminatorLen = 8

type bondingCurveLayout struct {
	VirtualTokenReserves uint64
	VirtualSolReserves   uint64
	RealTokenReserves    uint64
	RealSolReserves      uint64
	TokenTotalSupply     uint64
	Complete             bool
}

type globalLayout struct {
	Initialized                 bool
	Authority                   solana.PublicKey
	FeeRecipient                solana.PublicKey
	InitialVirtualTokenReserves uint64
	InitialVirtualSolReserves   uint64
	InitialRealTokenReserves    uint64
	TokenTotalSupply            uint64
	FeeBasisPoints              uint64
}

// DecodeAccount decodes a raw account buffer into a typed snapshot. The
// feed delivers every account the program owns, so an unmatched
// discriminator is an expected outcome, not an anomaly.
func DecodeAccount(pubkey string, buf []byte, observedAt time.Time) (*model.AccountSnapshot, error) {
	if len(buf) < discriminatorLen {
		return nil, &model.DecodeError{
			Kind:   "account",
			Pubkey: pubkey,
			Reason: fmt.Sprintf("buffer too short for discriminator: %d bytes", len(buf)),
		}
	}

	discm := buf[:discriminatorLen]
	body := buf[discriminatorLen:]

	switch {
	case bytes.Equal(discm, bondingCurveDiscriminator[:]):
		var layout bondingCurveLayout
		if err := bin.NewBorshDecoder(body).Decode(&layout); err != nil {
			return nil, &model.DecodeError{
				Kind:   "account",
				Pubkey: pubkey,
				Reason: fmt.Sprintf("deserialize BondingCurve: %v", err),
			}
		}
		return &model.AccountSnapshot{
			Type:   model.AccountBondingCurve,
			Pubkey: pubkey,
			Curve: &model.BondingCurveState{
				VirtualTokenReserves: layout.VirtualTokenReserves,
				VirtualSolReserves:   layout.VirtualSolReserves,
				RealTokenReserves:    layout.RealTokenReserves,
				RealSolReserves:      layout.RealSolReserves,
				TokenTotalSupply:     layout.TokenTotalSupply,
				Complete:             layout.Complete,
			},
			ObservedAt: observedAt,
		}, nil
	case bytes.Equal(discm, globalDiscriminator[:]):
		var layout globalLayout
		if err := bin.NewBorshDecoder(body).Decode(&layout); err != nil {
			return nil, &model.DecodeError{
				Kind:   "account",
				Pubkey: pubkey,
				Reason: fmt.Sprintf("deserialize Global: %v", err),
			}
		}
		return &model.AccountSnapshot{
			Type:   model.AccountGlobal,
			Pubkey: pubkey,
			Global: &model.GlobalState{
				Initialized:                 layout.Initialized,
				Authority:                   layout.Authority.String(),
				FeeRecipient:                layout.FeeRecipient.String(),
				InitialVirtualTokenReserves: layout.InitialVirtualTokenReserves,
				InitialVirtualSolReserves:   layout.InitialVirtualSolReserves,
				InitialRealTokenReserves:    layout.InitialRealTokenReserves,
				TokenTotalSupply:            layout.TokenTotalSupply,
				FeeBasisPoints:              layout.FeeBasisPoints,
			},
			ObservedAt: observedAt,
		}, nil
	default:
		return nil, &model.DecodeError{
			Kind:   "account",
			Pubkey: pubkey,
			Reason: "no matching discriminator",
		}
	}
}
