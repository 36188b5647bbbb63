// Package enrich turns a decoded buy/sell instruction plus the current
// correlation cache into a fully-populated CpiLogEntry. Every stage is
// best-effort: the feed delivers transaction and account events out of
// order with no delivery guarantee, so the engine always emits a record
// and leaves unknown fields empty rather than waiting for complete
// information.
package enrich

import (
	"math"
	"strings"
	"time"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"pumpscope/internal/model"
	"pumpscope/internal/pump"
)

const (
	sysvarRentAddress    = "SysvarRent111111111111111111111111111111111"
	systemProgramAddress = "11111111111111111111111111111111"

	// Creator fee default when the directory carries no override: 100
	// basis points (1%).
	DefaultCreatorFeeBasisPoints = 100
)

// StateCache is the read side of the correlation cache.
type StateCache interface {
	GetAccount(pubkey string) (model.AccountSnapshot, bool)
}

// CreatorDirectory resolves creator identities from the externally
// maintained lookup tables.
type CreatorDirectory interface {
	CreatorByMint(mint string) (string, bool)
	CreatorByVault(vault string) (string, bool)
}

// disabledCache stands in when caching is switched off; every lookup
// misses and enrichment degrades to the always-present fields.
type disabledCache struct{}

func (disabledCache) GetAccount(string) (model.AccountSnapshot, bool) {
	return model.AccountSnapshot{}, false
}

// Engine assembles CpiLogEntry records.
type Engine struct {
	cache                 StateCache
	directory             CreatorDirectory
	logger                *zap.Logger
	creatorFeeBasisPoints uint64
	globalAddress         string
}

func NewEngine(cache StateCache, directory CreatorDirectory, creatorFeeBasisPoints uint64, logger *zap.Logger) *Engine {
	if cache == nil {
		cache = disabledCache{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if creatorFeeBasisPoints == 0 {
		creatorFeeBasisPoints = DefaultCreatorFeeBasisPoints
	}
	e := &Engine{
		cache:                 cache,
		directory:             directory,
		logger:                logger,
		creatorFeeBasisPoints: creatorFeeBasisPoints,
	}
	if global, err := pump.DeriveGlobalAddress(); err == nil {
		e.globalAddress = global.String()
	}
	return e
}

// Enrich builds the log entry for one decoded buy/sell instruction. It
// never fails: transaction type, mint, signature and timestamp are always
// populated and everything else degrades to absent.
func (e *Engine) Enrich(ix pump.Instruction, roles []model.AccountRole, signature string, now time.Time) model.CpiLogEntry {
	entry := model.CpiLogEntry{
		TransactionType: transactionType(ix.Kind),
		Mint:            roleAddress(roles, "mint"),
		TokenAmount:     ix.Amount,
		SolAmount:       float64(ix.SolLimit) / 1e9,
		Time:            now.UTC().Format("2006-01-02T15:04:05.000Z07:00"),
		Signature:       signature,
		Signer:          signerAddress(roles),
		Timestamp:       now.Unix(),
	}

	if entry.Mint != "" {
		if mint, err := solana.PublicKeyFromBase58(entry.Mint); err == nil {
			if curve, err := pump.DeriveCurveAddress(mint); err == nil {
				entry.CurveAccount = curve.String()
			}
		}
	}

	if entry.CurveAccount != "" {
		if snapshot, ok := e.cache.GetAccount(entry.CurveAccount); ok && snapshot.Curve != nil {
			state := snapshot.Curve
			entry.VirtualTokenReserves = ptr(state.VirtualTokenReserves)
			entry.VirtualSolReserves = ptr(state.VirtualSolReserves)
			entry.RealTokenReserves = ptr(state.RealTokenReserves)
			entry.RealSolReserves = ptr(state.RealSolReserves)
			price := Price(state.VirtualTokenReserves, state.VirtualSolReserves)
			entry.Price = &price
		}
	}

	entry.CreatorVault, entry.VaultSource = resolveVault(ix.Kind, roles)
	entry.Creator = e.resolveCreator(entry.CreatorVault, entry.Mint)

	entry.FeeRecipient = roleAddress(roles, "fee_recipient", "feeRecipient")
	e.applyFees(&entry, ix)

	return entry
}

// Price converts a virtual reserve pair into a SOL-denominated token
// price: (vs / 10^9) / (vt / 10^6) = vs/vt * 0.001, covering the
// 9-vs-6-decimal gap between the quote and base assets. Zero token
// reserves price at zero.
func Price(virtualTokenReserves, virtualSolReserves uint64) float64 {
	if virtualTokenReserves == 0 {
		return 0
	}
	return float64(virtualSolReserves) / float64(virtualTokenReserves) * 0.001
}

// Fee computes floor(amount * basisPoints / 10000). When the widening
// multiply would overflow it falls back to a float approximation rather
// than failing the enrichment.
func Fee(amount, basisPoints uint64) uint64 {
	if amount == 0 || basisPoints == 0 {
		return 0
	}
	if amount <= math.MaxUint64/basisPoints {
		return amount * basisPoints / 10000
	}
	return uint64(float64(amount) * (float64(basisPoints) / 10000.0))
}

// resolveVault walks the ordered fallback chain for the creator vault:
// a labeled account first, then the sell-path associated-token-program
// slot (which in this program's account ordering holds the vault), then
// a mislabeled rent account, and last the fee recipient as a flagged
// guess.
func resolveVault(kind pump.InstructionKind, roles []model.AccountRole) (string, string) {
	if vault := roleAddress(roles, "creator_vault", "creatorVault", "creator-vault"); vault != "" {
		return vault, model.VaultSourceLabeled
	}

	if kind == pump.InstructionSell {
		if vault := roleAddress(roles, "associatedTokenProgram", "associated_token_program", "associated-token-program"); vault != "" {
			return vault, model.VaultSourceAccountOrder
		}
	}

	if rent := roleAddress(roles, "rent"); rent != "" &&
		rent != sysvarRentAddress && rent != systemProgramAddress {
		return rent, model.VaultSourceMislabeledRent
	}

	if fee := roleAddress(roles, "fee_recipient", "feeRecipient"); fee != "" {
		return fee, model.VaultSourceFeeRecipient
	}

	return "", ""
}

func (e *Engine) resolveCreator(vault, mint string) string {
	if vault != "" {
		if creator, ok := e.directory.CreatorByVault(vault); ok {
			return creator
		}
	}
	if mint != "" {
		if creator, ok := e.directory.CreatorByMint(mint); ok {
			return creator
		}
	}
	return ""
}

func (e *Engine) applyFees(entry *model.CpiLogEntry, ix pump.Instruction) {
	creatorFee := Fee(ix.SolLimit, e.creatorFeeBasisPoints)
	entry.CreatorFeeBasisPoints = ptr(e.creatorFeeBasisPoints)
	entry.CreatorFee = &creatorFee

	if e.globalAddress == "" {
		return
	}
	snapshot, ok := e.cache.GetAccount(e.globalAddress)
	if !ok || snapshot.Global == nil {
		return
	}
	global := snapshot.Global
	entry.FeeBasisPoints = ptr(global.FeeBasisPoints)
	fee := Fee(ix.SolLimit, global.FeeBasisPoints)
	entry.FeeAmount = &fee
	if entry.FeeRecipient == "" {
		entry.FeeRecipient = global.FeeRecipient
	}
}

func transactionType(kind pump.InstructionKind) string {
	switch kind {
	case pump.InstructionBuy:
		return "Buy"
	case pump.InstructionSell:
		return "Sell"
	default:
		return "Other"
	}
}

// roleAddress returns the pubkey of the first role whose name matches any
// of the given names, case-insensitively.
func roleAddress(roles []model.AccountRole, names ...string) string {
	for _, role := range roles {
		for _, name := range names {
			if strings.EqualFold(role.Name, name) {
				return role.Pubkey
			}
		}
	}
	return ""
}

func signerAddress(roles []model.AccountRole) string {
	for _, role := range roles {
		if strings.EqualFold(role.Name, "user") && role.IsSigner {
			return role.Pubkey
		}
	}
	return ""
}

func ptr(v uint64) *uint64 {
	return &v
}
