package stream

import (
	"context"
	"crypto/tls"
	"fmt"
	"strings"

	"github.com/mr-tron/base58"
	pb "github.com/rpcpool/yellowstone-grpc/examples/golang/proto"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"

	"pumpscope/internal/model"
)

// Dial opens a gRPC connection to a geyser endpoint. Endpoints with an
// https scheme or a :443 port are dialed with TLS, everything else in
// plaintext.
func Dial(endpoint string) (*grpc.ClientConn, error) {
	target := endpoint
	useTLS := false
	if strings.HasPrefix(target, "https://") {
		target = strings.TrimPrefix(target, "https://")
		useTLS = true
	} else if strings.HasPrefix(target, "http://") {
		target = strings.TrimPrefix(target, "http://")
	}
	if strings.HasSuffix(target, ":443") {
		useTLS = true
	}

	creds := insecure.NewCredentials()
	if useTLS {
		creds = credentials.NewTLS(&tls.Config{})
	}

	conn, err := grpc.NewClient(target, grpc.WithTransportCredentials(creds))
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", target, err)
	}
	return conn, nil
}

// SubscribeTransactions opens a transaction subscription covering the
// program plus the watched addresses. Votes and failed transactions are
// excluded at the server.
func SubscribeTransactions(ctx context.Context, conn *grpc.ClientConn, programID string, addresses []string) (Source, error) {
	include := make([]string, 0, len(addresses)+1)
	include = append(include, addresses...)
	include = append(include, programID)

	vote := false
	failed := false
	commitment := pb.CommitmentLevel_PROCESSED
	req := &pb.SubscribeRequest{
		Transactions: map[string]*pb.SubscribeRequestFilterTransactions{
			"trades": {
				Vote:           &vote,
				Failed:         &failed,
				AccountInclude: include,
			},
		},
		Commitment: &commitment,
	}
	return subscribe(ctx, conn, req)
}

// SubscribeAccounts opens an account subscription for every account owned
// by the program.
func SubscribeAccounts(ctx context.Context, conn *grpc.ClientConn, programID string) (Source, error) {
	commitment := pb.CommitmentLevel_PROCESSED
	req := &pb.SubscribeRequest{
		Accounts: map[string]*pb.SubscribeRequestFilterAccounts{
			"program": {
				Owner: []string{programID},
			},
		},
		Commitment: &commitment,
	}
	return subscribe(ctx, conn, req)
}

func subscribe(ctx context.Context, conn *grpc.ClientConn, req *pb.SubscribeRequest) (Source, error) {
	client := pb.NewGeyserClient(conn)
	stream, err := client.Subscribe(ctx)
	if err != nil {
		return nil, fmt.Errorf("open subscription: %w", err)
	}
	if err := stream.Send(req); err != nil {
		return nil, fmt.Errorf("send subscribe request: %w", err)
	}
	return &geyserSource{stream: stream}, nil
}

// geyserSource adapts one geyser subscription stream to the Source
// interface, translating protobuf envelopes into internal events.
type geyserSource struct {
	stream pb.Geyser_SubscribeClient
}

func (s *geyserSource) Recv(ctx context.Context) (model.StreamUpdate, error) {
	msg, err := s.stream.Recv()
	if err != nil {
		return model.StreamUpdate{}, err
	}

	switch u := msg.GetUpdateOneof().(type) {
	case *pb.SubscribeUpdate_Transaction:
		// A degenerate envelope converts to nil and is dropped by the
		// router's nil check.
		return model.StreamUpdate{Kind: model.UpdateTransaction, Transaction: convertTransaction(u.Transaction)}, nil
	case *pb.SubscribeUpdate_Account:
		return model.StreamUpdate{Kind: model.UpdateAccount, Account: convertAccount(u.Account)}, nil
	case *pb.SubscribeUpdate_Ping:
		return model.StreamUpdate{Kind: model.UpdatePing, PingID: 1}, nil
	case *pb.SubscribeUpdate_Pong:
		return model.StreamUpdate{Kind: model.UpdatePong}, nil
	default:
		return model.StreamUpdate{Kind: model.UpdateEmpty}, nil
	}
}

func (s *geyserSource) Pong(ctx context.Context, id int32) error {
	return s.stream.Send(&pb.SubscribeRequest{
		Ping: &pb.SubscribeRequestPing{Id: id},
	})
}

func convertTransaction(update *pb.SubscribeUpdateTransaction) *model.TransactionEvent {
	if update == nil || update.Transaction == nil {
		return nil
	}
	info := update.Transaction
	if info.Transaction == nil || info.Transaction.Message == nil {
		return nil
	}
	msg := info.Transaction.Message

	keys := make([]string, len(msg.AccountKeys))
	for i, key := range msg.AccountKeys {
		keys[i] = base58.Encode(key)
	}

	instructions := make([]model.RawInstruction, 0, len(msg.Instructions))
	for _, ix := range msg.Instructions {
		indexes := make([]int, len(ix.Accounts))
		for i, a := range ix.Accounts {
			indexes[i] = int(a)
		}
		instructions = append(instructions, model.RawInstruction{
			ProgramIDIndex: int(ix.ProgramIdIndex),
			AccountIndexes: indexes,
			Data:           ix.Data,
		})
	}

	numRequired := 0
	if msg.Header != nil {
		numRequired = int(msg.Header.NumRequiredSignatures)
	}

	return &model.TransactionEvent{
		Signature:             base58.Encode(info.Signature),
		Slot:                  update.Slot,
		AccountKeys:           keys,
		Instructions:          instructions,
		NumRequiredSignatures: numRequired,
	}
}

func convertAccount(update *pb.SubscribeUpdateAccount) *model.AccountEvent {
	if update == nil || update.Account == nil {
		return nil
	}
	info := update.Account
	return &model.AccountEvent{
		Pubkey:   base58.Encode(info.Pubkey),
		Owner:    base58.Encode(info.Owner),
		Lamports: info.Lamports,
		Slot:     update.Slot,
		Data:     info.Data,
	}
}
