package pump

import "github.com/gagliardetto/solana-go"

// ProgramID is the bonding-curve program this monitor watches.
var ProgramID = solana.MustPublicKeyFromBase58("6EF8rrecthR5Dkzon8Nwu78hRvfCKubJ14M5uBEwF6P")

const (
	curveSeed  = "bonding-curve"
	globalSeed = "global"
)

// DeriveCurveAddress computes the bonding-curve PDA for a mint. The
// derivation is deterministic and one-way.
func DeriveCurveAddress(mint solana.PublicKey) (solana.PublicKey, error) {
	addr, _, err := solana.FindProgramAddress(
		[][]byte{[]byte(curveSeed), mint.Bytes()},
		ProgramID,
	)
	return addr, err
}

// DeriveGlobalAddress computes the program's global configuration PDA.
func DeriveGlobalAddress() (solana.PublicKey, error) {
	addr, _, err := solana.FindProgramAddress(
		[][]byte{[]byte(globalSeed)},
		ProgramID,
	)
	return addr, err
}

// ResolveMintFromCurve probes a candidate mint list for one whose derived
// curve address equals curve. The derivation has no inverse, so this is a
// bounded heuristic: a false result means "unknown", not "does not exist".
func ResolveMintFromCurve(curve solana.PublicKey, candidates []solana.PublicKey) (solana.PublicKey, bool) {
	for _, mint := range candidates {
		derived, err := DeriveCurveAddress(mint)
		if err != nil {
			continue
		}
		if derived.Equals(curve) {
			return mint, true
		}
	}
	return solana.PublicKey{}, false
}
