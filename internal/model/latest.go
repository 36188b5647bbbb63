package model

import "time"

// LatestPayload is the most recent enriched payload observed for a mint:
// either an enriched transaction or a decoded account snapshot, whichever
// arrived last.
type LatestPayload struct {
	Transaction *CpiLogEntry     `json:"transaction,omitempty"`
	Account     *AccountSnapshot `json:"account,omitempty"`
	UpdatedAt   time.Time        `json:"updated_at"`
}
