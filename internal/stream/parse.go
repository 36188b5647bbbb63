package stream

import (
	"fmt"
	"strings"

	"github.com/gagliardetto/solana-go"
)

// ParseAddresses validates and normalizes base58 addresses, skipping
// blanks.
func ParseAddresses(inputs []string) ([]string, error) {
	addresses := make([]string, 0, len(inputs))
	for _, input := range inputs {
		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		key, err := solana.PublicKeyFromBase58(input)
		if err != nil {
			return nil, fmt.Errorf("invalid address %q: %w", input, err)
		}
		addresses = append(addresses, key.String())
	}
	return addresses, nil
}
