// Package grpc exposes the notification bus as a bidirectional gRPC stream.
package grpc

import (
	"context"
	"net"
	"sync"

	"github.com/dmitrijs2005/sharekeeper/internal/logging"
	"github.com/dmitrijs2005/sharekeeper/internal/server/notify"
	"google.golang.org/grpc"
)

// UserDirectory records identities seen on authenticated streams.
type UserDirectory interface {
	EnsureUser(ctx context.Context, userID, userName string) error
}

type GRPCServer struct {
	address   string
	bus       *notify.Bus
	users     UserDirectory
	logger    logging.Logger
	jwtSecret []byte

	quit     chan struct{}
	quitOnce sync.Once
}

func NewGRPCServer(a string, l logging.Logger, bus *notify.Bus, users UserDirectory, secretKey string) *GRPCServer {
	return &GRPCServer{
		address:   a,
		logger:    l.With("module", "grpc_server"),
		bus:       bus,
		users:     users,
		jwtSecret: []byte(secretKey),
		quit:      make(chan struct{}),
	}
}

func (s *GRPCServer) Run(ctx context.Context) error {

	// announces address
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	return s.Serve(ctx, listen)
}

// Serve accepts connections on lis until ctx is done.
func (s *GRPCServer) Serve(ctx context.Context, lis net.Listener) error {
	srv := grpc.NewServer(grpc.ChainStreamInterceptor(s.accessTokenInterceptor))
	srv.RegisterService(&notificationServiceDesc, s)

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC server...")
		// open streams never end on their own
		s.quitOnce.Do(func() { close(s.quit) })
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", lis.Addr().String())

	if err := srv.Serve(lis); err != nil {
		return err
	}

	return nil
}
