package grpc

import (
	"encoding/json"
	"errors"
	"io"

	"github.com/dmitrijs2005/sharekeeper/internal/server/models"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// Subscribe registers the caller on the bus and streams its events until
// the client hangs up, the connection is reaped or the server stops. Every
// inbound frame counts as a liveness signal.
func (s *GRPCServer) Subscribe(stream SubscribeServer) error {
	ctx := stream.Context()
	claims, ok := claimsFromContext(ctx)
	if !ok {
		return status.Error(codes.Unauthenticated, "missing identity")
	}

	if s.users != nil {
		if err := s.users.EnsureUser(ctx, claims.UserID, claims.UserName); err != nil {
			s.logger.Error(ctx, "ensure user failed", "user_id", claims.UserID, "error", err)
			return status.Error(codes.Internal, "internal error")
		}
	}

	conn := s.bus.Register(claims.UserID)
	defer s.bus.Unregister(conn)

	log := s.logger.With("user_id", claims.UserID, "conn_id", conn.ID)
	log.Info(ctx, "subscriber connected")

	recvErr := make(chan error, 1)
	go func() {
		for {
			if _, err := stream.Recv(); err != nil {
				recvErr <- err
				return
			}
			conn.Touch()
		}
	}()

	for {
		select {
		case ev := <-conn.Events():
			frame, err := toFrame(ev)
			if err != nil {
				log.Error(ctx, "cannot encode event", "type", ev.Type, "error", err)
				continue
			}
			if err := stream.Send(frame); err != nil {
				return err
			}
		case err := <-recvErr:
			if errors.Is(err, io.EOF) {
				log.Info(ctx, "subscriber disconnected")
				return nil
			}
			return err
		case <-conn.Done():
			return status.Error(codes.Unavailable, "connection closed")
		case <-s.quit:
			return status.Error(codes.Unavailable, "server is shutting down")
		case <-ctx.Done():
			return status.FromContextError(ctx.Err()).Err()
		}
	}
}

func toFrame(ev models.Event) (*structpb.Struct, error) {
	b, err := json.Marshal(ev)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	return structpb.NewStruct(m)
}
