// Package directory provides the externally-curated lookup tables the
// enrichment engine depends on: mint→creator, vault→creator, and the
// known-mint candidate list used for reverse curve resolution. The tables
// live in an operator-managed JSON file and can be reloaded at runtime.
package directory

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/gagliardetto/solana-go"
)

type fileFormat struct {
	MintCreators  map[string]string `json:"mint_creators"`
	VaultCreators map[string]string `json:"vault_creators"`
	KnownMints    []string          `json:"known_mints"`
}

// Directory is a reloadable lookup service. A zero-value Directory is
// usable and resolves nothing.
type Directory struct {
	mu            sync.RWMutex
	path          string
	mintCreators  map[string]string
	vaultCreators map[string]string
	knownMints    []solana.PublicKey
}

// Load builds a Directory from a JSON file. An empty path yields an
// empty directory.
func Load(path string) (*Directory, error) {
	d := &Directory{path: path}
	if path == "" {
		return d, nil
	}
	if err := d.Reload(); err != nil {
		return nil, err
	}
	return d, nil
}

// Reload re-reads the backing file, replacing all tables atomically.
func (d *Directory) Reload() error {
	if d.path == "" {
		return nil
	}
	content, err := os.ReadFile(d.path)
	if err != nil {
		return fmt.Errorf("read directory: %w", err)
	}
	var parsed fileFormat
	if err := json.Unmarshal(content, &parsed); err != nil {
		return fmt.Errorf("parse directory: %w", err)
	}

	mints := make([]solana.PublicKey, 0, len(parsed.KnownMints))
	for _, raw := range parsed.KnownMints {
		mint, err := solana.PublicKeyFromBase58(raw)
		if err != nil {
			return fmt.Errorf("invalid known mint %q: %w", raw, err)
		}
		mints = append(mints, mint)
	}

	d.mu.Lock()
	d.mintCreators = parsed.MintCreators
	d.vaultCreators = parsed.VaultCreators
	d.knownMints = mints
	d.mu.Unlock()
	return nil
}

// CreatorByMint resolves a creator identity from a mint address.
func (d *Directory) CreatorByMint(mint string) (string, bool) {
	d.mu.RLock()
	creator, ok := d.mintCreators[mint]
	d.mu.RUnlock()
	return creator, ok
}

// CreatorByVault resolves a creator identity from a vault address.
func (d *Directory) CreatorByVault(vault string) (string, bool) {
	d.mu.RLock()
	creator, ok := d.vaultCreators[vault]
	d.mu.RUnlock()
	return creator, ok
}

// KnownMints returns the candidate list for reverse curve resolution.
func (d *Directory) KnownMints() []solana.PublicKey {
	d.mu.RLock()
	out := make([]solana.PublicKey, len(d.knownMints))
	copy(out, d.knownMints)
	d.mu.RUnlock()
	return out
}
