package stream

import (
	"context"

	"pumpscope/internal/model"
)

// Source yields envelopes from one upstream subscription. Pong answers a
// keep-alive probe on the same logical channel.
type Source interface {
	Recv(ctx context.Context) (model.StreamUpdate, error)
	Pong(ctx context.Context, id int32) error
}
