// Package httpapi is the REST adapter of the access gateway.
package httpapi

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/dmitrijs2005/sharekeeper/internal/logging"
	"github.com/dmitrijs2005/sharekeeper/internal/server/metrics"
	"github.com/dmitrijs2005/sharekeeper/internal/server/models"
	"github.com/dmitrijs2005/sharekeeper/internal/server/services"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type UserDirectory interface {
	EnsureUser(ctx context.Context, userID, userName string) error
}

// FileService is the part of services.Gateway served over HTTP.
type FileService interface {
	UserDirectory

	Upload(ctx context.Context, req services.Requester, name, mimeType string, r io.Reader) (*models.EncryptedFile, error)
	Download(ctx context.Context, req services.Requester, fileID string) (*services.Plaintext, error)
	ViewMetadata(ctx context.Context, req services.Requester, fileID string) (*services.FileDetails, error)
	Delete(ctx context.Context, req services.Requester, fileID string) error
	Share(ctx context.Context, req services.Requester, fileID string, granteeIDs []string,
		level models.PermissionLevel, note string) (*services.ShareResult, error)
	Revoke(ctx context.Context, req services.Requester, grantID string) error
	MarkViewed(ctx context.Context, req services.Requester, grantID string) error
	ListOwned(ctx context.Context, req services.Requester) ([]*models.EncryptedFile, error)
	ListSharedWithMe(ctx context.Context, req services.Requester) ([]*models.SharedFile, error)
	ListSharedByMe(ctx context.Context, req services.Requester) ([]*models.SharedFile, error)
}

type Options struct {
	MaxUploadBytes  int64
	ShutdownTimeout time.Duration
	// Gatherer backs /metrics; prometheus.DefaultGatherer when nil.
	Gatherer prometheus.Gatherer
}

type Server struct {
	address string
	engine  *gin.Engine
	files   FileService
	logger  logging.Logger
	opts    Options
}

func NewServer(address string, files FileService, secretKey string, l logging.Logger, m *metrics.Metrics, opts Options) *Server {
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 100 << 20
	}
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = 5 * time.Second
	}
	if opts.Gatherer == nil {
		opts.Gatherer = prometheus.DefaultGatherer
	}

	s := &Server{
		address: address,
		engine:  gin.New(),
		files:   files,
		logger:  l.With("module", "http_server"),
		opts:    opts,
	}

	r := s.engine
	r.Use(gin.Recovery())
	r.Use(RequestLog(s.logger, m))

	api := r.Group(RouteAPI, AuthMiddleware([]byte(secretKey), files))
	api.POST(trim(RouteFiles), s.uploadHandler)
	api.GET(trim(RouteFiles), s.listOwnedHandler)
	api.GET(trim(RouteFile), s.viewHandler)
	api.GET(trim(RouteFileContent), s.downloadHandler)
	api.DELETE(trim(RouteFile), s.deleteHandler)
	api.POST(trim(RouteFileShares), s.shareHandler)
	api.DELETE(trim(RouteShare), s.revokeHandler)
	api.GET(trim(RouteSharesInbound), s.receivedHandler)
	api.GET(trim(RouteSharesSent), s.sentHandler)
	api.POST(trim(RouteShareViewed), s.markViewedHandler)

	// ops
	r.GET(RouteHealth, func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET(RouteMetrics, gin.WrapH(promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{})))

	return s
}

func trim(route string) string { return route[len(RouteAPI):] }

func (s *Server) Handler() http.Handler { return s.engine }

// Run serves until ctx is done and then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.address,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.logger.Info(ctx, "Starting HTTP server", "address", s.address)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info(ctx, "Stopping HTTP server...")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.opts.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
