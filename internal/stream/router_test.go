package stream

import (
	"context"
	"encoding/binary"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/gagliardetto/solana-go"

	"pumpscope/internal/cache"
	"pumpscope/internal/directory"
	"pumpscope/internal/enrich"
	"pumpscope/internal/idl"
	"pumpscope/internal/model"
	"pumpscope/internal/pump"
)

type fakeSource struct {
	updates []model.StreamUpdate
	pongs   []int32
}

func (f *fakeSource) Recv(_ context.Context) (model.StreamUpdate, error) {
	if len(f.updates) == 0 {
		return model.StreamUpdate{}, io.EOF
	}
	u := f.updates[0]
	f.updates = f.updates[1:]
	return u, nil
}

func (f *fakeSource) Pong(_ context.Context, id int32) error {
	f.pongs = append(f.pongs, id)
	return nil
}

type fakeSink struct {
	entries []model.CpiLogEntry
}

func (f *fakeSink) Append(entry model.CpiLogEntry) error {
	f.entries = append(f.entries, entry)
	return nil
}

var routerMint = solana.MustPublicKeyFromBase58("So11111111111111111111111111111111111111112")

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func testIdl(t *testing.T) *idl.Idl {
	t.Helper()
	path := writeFile(t, "idl.json", `{
	  "instructions": [
	    {"name": "buy", "accounts": [{"name": "mint"}, {"name": "user", "isSigner": true}]},
	    {"name": "sell", "accounts": [{"name": "mint"}, {"name": "user", "isSigner": true}]}
	  ]
	}`)
	parsed, err := idl.Load(path)
	if err != nil {
		t.Fatalf("load idl: %v", err)
	}
	return parsed
}

func testDirectory(t *testing.T) *directory.Directory {
	t.Helper()
	path := writeFile(t, "directory.json", `{"known_mints": ["`+routerMint.String()+`"]}`)
	d, err := directory.Load(path)
	if err != nil {
		t.Fatalf("load directory: %v", err)
	}
	return d
}

func tradeInstructionData(discm [8]byte, amount, solLimit uint64) []byte {
	buf := append([]byte{}, discm[:]...)
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], amount)
	buf = append(buf, b[:]...)
	binary.LittleEndian.PutUint64(b[:], solLimit)
	buf = append(buf, b[:]...)
	return buf
}

func curveAccountData(vt, vs uint64) []byte {
	buf := []byte{23, 183, 248, 55, 96, 216, 172, 96}
	for _, v := range []uint64{vt, vs, 0, 0, 0} {
		var b [8]byte
		binary.LittleEndian.PutUint64(b[:], v)
		buf = append(buf, b[:]...)
	}
	return append(buf, 0)
}

func newTestRouter(t *testing.T, sink *fakeSink) (*Router, *cache.Cache) {
	t.Helper()
	stateCache := cache.New(nil, cache.Config{}, nil)
	t.Cleanup(stateCache.Close)

	dir := testDirectory(t)
	engine := enrich.NewEngine(stateCache, dir, 100, nil)
	router := NewRouter(RouterConfig{
		ProgramID: pump.ProgramID.String(),
	}, engine, stateCache, testIdl(t), dir, sink, nil, nil)
	return router, stateCache
}

func TestRouterAnswersPing(t *testing.T) {
	router, _ := newTestRouter(t, &fakeSink{})

	src := &fakeSource{updates: []model.StreamUpdate{{Kind: model.UpdatePing, PingID: 7}}}
	if err := router.Run(context.Background(), src); err == nil {
		t.Fatalf("expected stream end error")
	}

	if len(src.pongs) != 1 || src.pongs[0] != 7 {
		t.Fatalf("pong mismatch: %v", src.pongs)
	}
}

func TestRouterUnrecognizedTagEndsStream(t *testing.T) {
	router, _ := newTestRouter(t, &fakeSink{})

	src := &fakeSource{updates: []model.StreamUpdate{
		{Kind: model.UpdateEmpty},
		{Kind: model.UpdatePing, PingID: 1},
	}}
	if err := router.Run(context.Background(), src); err == nil {
		t.Fatalf("expected error for unrecognized tag")
	}

	if len(src.pongs) != 0 {
		t.Fatalf("loop continued past unrecognized tag: %v", src.pongs)
	}
}

func TestRouterHandlesBuyTransaction(t *testing.T) {
	sink := &fakeSink{}
	router, stateCache := newTestRouter(t, sink)

	tx := &model.TransactionEvent{
		Signature:             "sig1",
		AccountKeys:           []string{"User111111111111111111111111111111111111111", pump.ProgramID.String(), routerMint.String()},
		NumRequiredSignatures: 1,
		Instructions: []model.RawInstruction{{
			ProgramIDIndex: 1,
			AccountIndexes: []int{2, 0},
			Data:           tradeInstructionData([8]byte{102, 6, 61, 18, 1, 218, 235, 234}, 1000, 2000000000),
		}},
	}

	src := &fakeSource{updates: []model.StreamUpdate{{Kind: model.UpdateTransaction, Transaction: tx}}}
	router.Run(context.Background(), src)

	if len(sink.entries) != 1 {
		t.Fatalf("sink entry count mismatch: %d", len(sink.entries))
	}
	entry := sink.entries[0]
	if entry.TransactionType != "Buy" || entry.Mint != routerMint.String() {
		t.Fatalf("entry mismatch: %+v", entry)
	}
	if entry.TokenAmount != 1000 {
		t.Fatalf("token amount mismatch: %d", entry.TokenAmount)
	}

	if _, ok := stateCache.GetTransaction("sig1"); !ok {
		t.Fatalf("transaction not cached")
	}
	payload, ok := stateCache.LatestByMint(routerMint.String())
	if !ok || payload.Transaction == nil {
		t.Fatalf("latest index not updated: %+v", payload)
	}
}

func TestRouterSkipsUndecodableInstruction(t *testing.T) {
	sink := &fakeSink{}
	router, _ := newTestRouter(t, sink)

	tx := &model.TransactionEvent{
		Signature:   "sig2",
		AccountKeys: []string{pump.ProgramID.String()},
		Instructions: []model.RawInstruction{{
			ProgramIDIndex: 0,
			Data:           []byte{1, 2, 3},
		}},
	}

	src := &fakeSource{updates: []model.StreamUpdate{{Kind: model.UpdateTransaction, Transaction: tx}}}
	router.Run(context.Background(), src)

	if len(sink.entries) != 0 {
		t.Fatalf("undecodable instruction produced output: %+v", sink.entries)
	}
}

func TestRouterCachesAccountSnapshot(t *testing.T) {
	router, stateCache := newTestRouter(t, &fakeSink{})

	curve, err := pump.DeriveCurveAddress(routerMint)
	if err != nil {
		t.Fatalf("derive curve: %v", err)
	}

	ev := &model.AccountEvent{
		Pubkey: curve.String(),
		Owner:  pump.ProgramID.String(),
		Data:   curveAccountData(500000, 250000000),
	}
	src := &fakeSource{updates: []model.StreamUpdate{{Kind: model.UpdateAccount, Account: ev}}}
	router.Run(context.Background(), src)

	snapshot, ok := stateCache.GetAccount(curve.String())
	if !ok || snapshot.Curve == nil {
		t.Fatalf("snapshot not cached")
	}
	if snapshot.Curve.VirtualTokenReserves != 500000 {
		t.Fatalf("reserves mismatch: %+v", snapshot.Curve)
	}

	payload, ok := stateCache.LatestByMint(routerMint.String())
	if !ok || payload.Account == nil {
		t.Fatalf("latest account index not updated")
	}
	pair, ok := stateCache.LatestReserves(routerMint.String())
	if !ok || pair.VirtualSolReserves != 250000000 {
		t.Fatalf("latest reserves mismatch: %+v", pair)
	}
}

func TestRouterSkipsForeignAccount(t *testing.T) {
	router, stateCache := newTestRouter(t, &fakeSink{})

	ev := &model.AccountEvent{
		Pubkey: "SysvarRent111111111111111111111111111111111",
		Data:   []byte{1, 2, 3, 4, 5, 6, 7, 8, 9},
	}
	src := &fakeSource{updates: []model.StreamUpdate{{Kind: model.UpdateAccount, Account: ev}}}
	router.Run(context.Background(), src)

	if _, ok := stateCache.GetAccount(ev.Pubkey); ok {
		t.Fatalf("undecodable account was cached")
	}
}

func TestRouterSellUpdatesReserves(t *testing.T) {
	sink := &fakeSink{}
	router, stateCache := newTestRouter(t, sink)

	curve, err := pump.DeriveCurveAddress(routerMint)
	if err != nil {
		t.Fatalf("derive curve: %v", err)
	}
	stateCache.PutAccount(curve.String(), model.AccountSnapshot{
		Type:   model.AccountBondingCurve,
		Pubkey: curve.String(),
		Curve: &model.BondingCurveState{
			VirtualTokenReserves: 600000,
			VirtualSolReserves:   300000000,
		},
	})

	tx := &model.TransactionEvent{
		Signature:             "sig3",
		AccountKeys:           []string{"User111111111111111111111111111111111111111", pump.ProgramID.String(), routerMint.String()},
		NumRequiredSignatures: 1,
		Instructions: []model.RawInstruction{{
			ProgramIDIndex: 1,
			AccountIndexes: []int{2, 0},
			Data:           tradeInstructionData([8]byte{51, 230, 133, 164, 1, 127, 131, 173}, 500, 100000000),
		}},
	}
	src := &fakeSource{updates: []model.StreamUpdate{{Kind: model.UpdateTransaction, Transaction: tx}}}
	router.Run(context.Background(), src)

	pair, ok := stateCache.LatestReserves(routerMint.String())
	if !ok || pair.VirtualTokenReserves != 600000 || pair.VirtualSolReserves != 300000000 {
		t.Fatalf("reserves not recorded on sell: %+v ok=%v", pair, ok)
	}
}
