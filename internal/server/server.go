package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	"jobmate/recommendation-service/internal/logging"
)

const (
	shutdownTimeout = 10 * time.Second
	healthInterval  = 30 * time.Second
	writeTimeout    = 60 * time.Second
)

// Server runs the HTTP API and the gRPC health endpoint side by side.
type Server struct {
	http   *http.Server
	grpc   *grpc.Server
	health *HealthReporter
	grpcAt string
	log    *logging.Logger
}

func New(httpPort, grpcPort string, h *Handler, hr *HealthReporter, log *logging.Logger) *Server {
	if log == nil {
		log = logging.NewNop()
	}
	gs := grpc.NewServer()
	hr.Register(gs)
	return &Server{
		http: &http.Server{
			Addr:         fmt.Sprintf(":%s", httpPort),
			Handler:      h.Routes(),
			ReadTimeout:  10 * time.Second,
			WriteTimeout: writeTimeout,
		},
		grpc:   gs,
		health: hr,
		grpcAt: fmt.Sprintf(":%s", grpcPort),
		log:    log,
	}
}

// Run serves until ctx is cancelled, then shuts both listeners down.
func (s *Server) Run(ctx context.Context) error {
	lis, err := net.Listen("tcp", s.grpcAt)
	if err != nil {
		return fmt.Errorf("listen grpc %s: %w", s.grpcAt, err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.log.Info("http listening", "addr", s.http.Addr, "version", version)
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		s.log.Info("grpc listening", "addr", s.grpcAt)
		if err := s.grpc.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			return fmt.Errorf("grpc server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		s.health.Watch(gctx, healthInterval)
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		s.log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		s.grpc.GracefulStop()
		if err := s.http.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http shutdown: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	s.log.Info("stopped")
	return nil
}
