package server

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/hrygo/studyquest/internal/profile"
	apiv1 "github.com/hrygo/studyquest/server/router/api/v1"
	"github.com/hrygo/studyquest/server/service/study"
	"github.com/hrygo/studyquest/store"
)

const shutdownTimeout = 10 * time.Second

type Server struct {
	Profile *profile.Profile
	Store   *store.Store

	echoServer *echo.Echo
	study      study.Service
	cleanup    *study.CleanupJob
}

func NewServer(_ context.Context, profile *profile.Profile, store *store.Store) (*Server, error) {
	s := &Server{
		Profile: profile,
		Store:   store,
	}

	echoServer := echo.New()
	echoServer.HideBanner = true
	echoServer.HidePort = true
	echoServer.Use(middleware.Recover())
	s.echoServer = echoServer

	s.study = study.NewService(store, study.Options{SessionTTL: profile.SessionTTL})

	apiV1Service := apiv1.NewAPIV1Service(profile, s.study)
	apiV1Service.CacheStats = store.CacheStats
	apiV1Service.Register(echoServer)

	limiter := apiV1Service.RateLimiter
	s.cleanup = study.NewCleanupJob(study.DefaultCleanupInterval,
		s.study,
		study.CleanerFunc(func(context.Context) (int64, error) {
			return int64(limiter.Prune()), nil
		}),
	)
	return s, nil
}

// Handler exposes the HTTP handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.echoServer
}

// Run serves HTTP and runs the cleanup job until ctx is cancelled or the
// listener fails, then shuts both down.
func (s *Server) Run(ctx context.Context) error {
	address := fmt.Sprintf("%s:%d", s.Profile.Addr, s.Profile.Port)
	listener, err := net.Listen("tcp", address)
	if err != nil {
		return errors.Wrapf(err, "failed to listen on %s", address)
	}
	return s.serve(ctx, listener)
}

func (s *Server) serve(ctx context.Context, listener net.Listener) error {
	g, gctx := errgroup.WithContext(ctx)

	s.cleanup.Start(gctx)
	g.Go(func() error {
		s.echoServer.Listener = listener
		slog.Info("studyquest server started", "address", listener.Addr().String(), "mode", s.Profile.Mode, "version", s.Profile.Version)
		if err := s.echoServer.Start(""); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "http server failed")
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		s.Shutdown(context.Background())
		return nil
	})
	return g.Wait()
}

// Shutdown stops the HTTP server and background jobs.
func (s *Server) Shutdown(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()

	slog.Info("server shutting down")
	if err := s.echoServer.Shutdown(ctx); err != nil {
		slog.Error("failed to shutdown server", slog.String("error", err.Error()))
	}
	s.cleanup.Stop()
	slog.Info("server stopped properly")
}
