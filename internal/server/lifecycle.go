// Package server runs the duel server's long-lived components and tears
// them down in reverse order on a signal, a failure, or context cancellation.
package server

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"
)

// Service is a long-running component. Start blocks until Stop is called or
// the component fails.
type Service interface {
	Start() error
	Stop()
}

// FuncService adapts a start/stop function pair into a Service.
type FuncService struct {
	StartFn func() error
	StopFn  func()
}

// Start calls StartFn.
func (f *FuncService) Start() error { return f.StartFn() }

// Stop calls StopFn.
func (f *FuncService) Stop() { f.StopFn() }

// Closer releases a resource during shutdown, after every Service stopped.
type Closer func(ctx context.Context) error

// Lifecycle starts services in registration order and stops them in reverse.
type Lifecycle struct {
	logger          *zap.Logger
	shutdownTimeout time.Duration
	signals         []os.Signal

	mu       sync.Mutex
	services []namedService
	closers  []namedCloser
}

type namedService struct {
	name    string
	service Service
}

type namedCloser struct {
	name  string
	close Closer
}

// NewLifecycle creates a Lifecycle. A shutdownTimeout of zero means closers
// run without a deadline.
//
// Precondition: logger must be non-nil.
func NewLifecycle(logger *zap.Logger, shutdownTimeout time.Duration) *Lifecycle {
	if logger == nil {
		panic("server.NewLifecycle: logger must not be nil")
	}
	return &Lifecycle{
		logger:          logger,
		shutdownTimeout: shutdownTimeout,
		signals:         []os.Signal{syscall.SIGINT, syscall.SIGTERM},
	}
}

// Add registers a named service.
//
// Precondition: name must be non-empty; svc must be non-nil.
func (l *Lifecycle) Add(name string, svc Service) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.services = append(l.services, namedService{name: name, service: svc})
}

// OnShutdown registers a closer. Closers run in reverse registration order.
func (l *Lifecycle) OnShutdown(name string, c Closer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closers = append(l.closers, namedCloser{name: name, close: c})
}

// Run starts every service and blocks until SIGINT/SIGTERM, ctx is done, or a
// service fails.
//
// Postcondition: Every service is stopped and every closer has run. Returns
// the first service failure joined with any closer errors; a signal or
// cancellation alone returns nil.
func (l *Lifecycle) Run(ctx context.Context) error {
	start := time.Now()
	l.mu.Lock()
	services := append([]namedService(nil), l.services...)
	closers := append([]namedCloser(nil), l.closers...)
	l.mu.Unlock()

	errCh := make(chan error, len(services))
	for _, ns := range services {
		go func() {
			l.logger.Info("starting service", zap.String("service", ns.name))
			svcStart := time.Now()
			if err := ns.service.Start(); err != nil {
				l.logger.Error("service failed",
					zap.String("service", ns.name),
					zap.Error(err),
					zap.Duration("uptime", time.Since(svcStart)),
				)
				errCh <- fmt.Errorf("service %s: %w", ns.name, err)
			}
		}()
	}
	l.logger.Info("all services started", zap.Int("count", len(services)))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, l.signals...)
	defer signal.Stop(sigCh)

	var runErr error
	select {
	case sig := <-sigCh:
		l.logger.Info("received signal, shutting down", zap.String("signal", sig.String()))
	case runErr = <-errCh:
		l.logger.Error("service error, shutting down", zap.Error(runErr))
	case <-ctx.Done():
		l.logger.Info("context cancelled, shutting down")
	}

	stopServices(l.logger, services)
	closeErr := l.runClosers(closers)

	l.logger.Info("shutdown complete", zap.Duration("total_uptime", time.Since(start)))
	return errors.Join(runErr, closeErr)
}

func stopServices(logger *zap.Logger, services []namedService) {
	for i := len(services) - 1; i >= 0; i-- {
		ns := services[i]
		svcStart := time.Now()
		ns.service.Stop()
		logger.Info("service stopped",
			zap.String("service", ns.name),
			zap.Duration("elapsed", time.Since(svcStart)),
		)
	}
}

func (l *Lifecycle) runClosers(closers []namedCloser) error {
	ctx := context.Background()
	if l.shutdownTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.shutdownTimeout)
		defer cancel()
	}
	var errs []error
	for i := len(closers) - 1; i >= 0; i-- {
		nc := closers[i]
		if err := nc.close(ctx); err != nil {
			l.logger.Warn("shutdown hook failed", zap.String("hook", nc.name), zap.Error(err))
			errs = append(errs, fmt.Errorf("closing %s: %w", nc.name, err))
		}
	}
	return errors.Join(errs...)
}
