package stream

import (
	"context"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"pumpscope/internal/cache"
	"pumpscope/internal/enrich"
	"pumpscope/internal/idl"
	"pumpscope/internal/model"
	"pumpscope/internal/pump"
	"pumpscope/internal/spltoken"
	"pumpscope/internal/storage"
)

// MintResolver supplies the candidate list for reverse curve resolution.
type MintResolver interface {
	KnownMints() []solana.PublicKey
}

// RouterConfig holds the router's runtime settings.
type RouterConfig struct {
	ProgramID string
	// MonitoredAddresses controls log visibility only; enrichment runs
	// for every watched-program instruction regardless of a match. The
	// program's own address never counts as a match.
	MonitoredAddresses []string
	TokenMonitoring    bool
}

// Router demultiplexes the envelope stream into transaction and
// account-snapshot handling, answering keep-alive probes in between.
type Router struct {
	cfg       RouterConfig
	engine    *enrich.Engine
	cache     *cache.Cache
	roles     *idl.Idl
	mints     MintResolver
	sink      storage.Sink
	textLog   *storage.TextLog
	logger    *zap.Logger
	monitored map[string]struct{}
}

// NewRouter builds a Router. cache, roles, sink and textLog may each be
// nil, disabling the corresponding effect.
func NewRouter(cfg RouterConfig, engine *enrich.Engine, stateCache *cache.Cache, roles *idl.Idl, mints MintResolver, sink storage.Sink, textLog *storage.TextLog, logger *zap.Logger) *Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	monitored := make(map[string]struct{}, len(cfg.MonitoredAddresses))
	for _, addr := range cfg.MonitoredAddresses {
		if addr != cfg.ProgramID {
			monitored[addr] = struct{}{}
		}
	}
	return &Router{
		cfg:       cfg,
		engine:    engine,
		cache:     stateCache,
		roles:     roles,
		mints:     mints,
		sink:      sink,
		textLog:   textLog,
		logger:    logger,
		monitored: monitored,
	}
}

// Run consumes envelopes until the stream fails, the context is canceled,
// or an envelope arrives with no recognized tag. Stream errors are fatal
// for this routing loop only.
func (r *Router) Run(ctx context.Context, src Source) error {
	for {
		update, err := src.Recv(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			r.logger.Error("stream receive failed", zap.Error(err))
			return fmt.Errorf("receive update: %w", err)
		}

		switch update.Kind {
		case model.UpdateTransaction:
			r.handleTransaction(update.Transaction)
		case model.UpdateAccount:
			r.handleAccount(update.Account)
		case model.UpdatePing:
			if err := src.Pong(ctx, update.PingID); err != nil {
				r.logger.Error("answer ping failed", zap.Error(err))
				return fmt.Errorf("answer ping: %w", err)
			}
		case model.UpdatePong:
			// Acknowledgment of our own probe.
		default:
			r.logger.Error("envelope without recognized tag, closing stream")
			return fmt.Errorf("envelope without recognized tag")
		}
	}
}

func (r *Router) handleTransaction(ev *model.TransactionEvent) {
	if ev == nil {
		return
	}
	r.logger.Debug("transaction received", zap.String("signature", ev.Signature))

	isMonitored := r.involvesMonitored(ev.AccountKeys)

	for _, raw := range ev.Instructions {
		if raw.ProgramIDIndex >= len(ev.AccountKeys) {
			continue
		}
		program := ev.AccountKeys[raw.ProgramIDIndex]

		switch program {
		case r.cfg.ProgramID:
			r.handleProgramInstruction(ev, raw, isMonitored)
		case spltoken.ProgramID.String():
			if r.cfg.TokenMonitoring && isMonitored {
				r.handleTokenInstruction(ev, raw)
			}
		}
	}
}

func (r *Router) handleProgramInstruction(ev *model.TransactionEvent, raw model.RawInstruction, isMonitored bool) {
	ix, err := pump.DecodeInstruction(raw.Data)
	if err != nil {
		// Malformed or foreign instruction data; expected and skipped.
		return
	}

	if ix.Kind != pump.InstructionBuy && ix.Kind != pump.InstructionSell {
		r.logger.Debug("unhandled program instruction", zap.String("name", ix.Name), zap.String("signature", ev.Signature))
		return
	}

	roles := r.mapRoles(ev, raw, ix.Name)
	entry := r.engine.Enrich(ix, roles, ev.Signature, time.Now())

	if r.cache != nil {
		r.cache.PutTransaction(ev.Signature, entry)
		if entry.Mint != "" {
			r.cache.SetLatestTransaction(entry.Mint, entry)
			if ix.Kind == pump.InstructionSell && entry.VirtualTokenReserves != nil && entry.VirtualSolReserves != nil {
				r.cache.SetLatestReserves(entry.Mint, cache.ReservePair{
					VirtualTokenReserves: *entry.VirtualTokenReserves,
					VirtualSolReserves:   *entry.VirtualSolReserves,
				})
			}
		}
	}

	if r.sink != nil {
		if err := r.sink.Append(entry); err != nil {
			r.logger.Warn("append structured log failed", zap.Error(err))
		}
	}

	line := fmt.Sprintf("TYPE: %s MINT: %s TOKEN AMOUNT: %d SOL: %.9f SIGNATURE: %s SIGNER: %s",
		entry.TransactionType, entry.Mint, entry.TokenAmount, entry.SolAmount, entry.Signature, entry.Signer)

	fields := []zap.Field{
		zap.String("type", entry.TransactionType),
		zap.String("mint", entry.Mint),
		zap.Uint64("token_amount", entry.TokenAmount),
		zap.Float64("sol_amount", entry.SolAmount),
		zap.String("signature", entry.Signature),
	}
	if isMonitored {
		r.logger.Info("trade", fields...)
		if r.textLog != nil {
			if err := r.textLog.WriteLine(line); err != nil {
				r.logger.Warn("write text log failed", zap.Error(err))
			}
		}
	} else {
		r.logger.Debug("trade", fields...)
	}
}

func (r *Router) handleTokenInstruction(ev *model.TransactionEvent, raw model.RawInstruction) {
	ix, err := spltoken.Decode(raw.Data)
	if err != nil {
		return
	}
	r.logger.Debug("token instruction",
		zap.String("name", ix.Name),
		zap.Uint64("amount", ix.Amount),
		zap.String("signature", ev.Signature),
	)
	if r.textLog != nil {
		line := fmt.Sprintf("Token instruction: %s signature: %s", ix.Name, ev.Signature)
		if err := r.textLog.WriteLine(line); err != nil {
			r.logger.Warn("write text log failed", zap.Error(err))
		}
	}
}

func (r *Router) handleAccount(ev *model.AccountEvent) {
	if ev == nil {
		return
	}

	snapshot, err := pump.DecodeAccount(ev.Pubkey, ev.Data, time.Now())
	if err != nil {
		// The feed delivers every account the program owns; unknown
		// discriminators are routine.
		r.logger.Debug("account decode skipped", zap.String("pubkey", ev.Pubkey), zap.Error(err))
		return
	}

	if r.cache != nil {
		r.cache.PutAccount(ev.Pubkey, *snapshot)
	}

	if snapshot.Type == model.AccountBondingCurve && snapshot.Curve != nil {
		r.indexCurveSnapshot(snapshot)
	}

	r.logger.Debug("account snapshot",
		zap.String("type", string(snapshot.Type)),
		zap.String("pubkey", ev.Pubkey),
	)
	if r.textLog != nil {
		line := fmt.Sprintf("ACCOUNT TYPE: %s PUBKEY: %s", snapshot.Type, ev.Pubkey)
		if err := r.textLog.WriteLine(line); err != nil {
			r.logger.Warn("write text log failed", zap.Error(err))
		}
	}
}

// indexCurveSnapshot reverse-resolves the curve's mint against the known
// candidate list and refreshes the latest-by-mint indexes. A resolution
// miss means "unknown mint" and is not an error.
func (r *Router) indexCurveSnapshot(snapshot *model.AccountSnapshot) {
	if r.cache == nil || r.mints == nil {
		return
	}
	curve, err := solana.PublicKeyFromBase58(snapshot.Pubkey)
	if err != nil {
		return
	}
	mint, ok := pump.ResolveMintFromCurve(curve, r.mints.KnownMints())
	if !ok {
		r.logger.Debug("no candidate mint for curve", zap.String("curve", snapshot.Pubkey))
		return
	}

	mintStr := mint.String()
	r.cache.SetLatestAccount(mintStr, *snapshot)
	r.cache.SetLatestReserves(mintStr, cache.ReservePair{
		VirtualTokenReserves: snapshot.Curve.VirtualTokenReserves,
		VirtualSolReserves:   snapshot.Curve.VirtualSolReserves,
	})
}

// mapRoles resolves the instruction's account indexes to pubkeys and maps
// them to semantic names through the descriptor when one is loaded.
func (r *Router) mapRoles(ev *model.TransactionEvent, raw model.RawInstruction, name string) []model.AccountRole {
	accounts := make([]model.AccountRole, 0, len(raw.AccountIndexes))
	for _, idx := range raw.AccountIndexes {
		if idx >= len(ev.AccountKeys) {
			continue
		}
		accounts = append(accounts, model.AccountRole{
			Pubkey:     ev.AccountKeys[idx],
			Index:      idx,
			IsSigner:   idx < ev.NumRequiredSignatures,
			IsWritable: true,
		})
	}

	if r.roles == nil {
		return accounts
	}
	mapped, err := r.roles.MapAccounts(accounts, name)
	if err != nil {
		r.logger.Debug("account mapping failed", zap.String("instruction", name), zap.Error(err))
		return accounts
	}
	return mapped
}

func (r *Router) involvesMonitored(keys []string) bool {
	for _, key := range keys {
		if _, ok := r.monitored[key]; ok {
			return true
		}
	}
	return false
}
