package shutdown

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"photofilter/internal/logger"
)

const component = "ShutdownManager"

type step struct {
	name string
	fn   func() error
}

// Manager runs registered release steps in reverse order, once.
type Manager struct {
	steps       []step
	logger      logger.Logger
	stepTimeout time.Duration
	mu          sync.Mutex
	done        chan struct{}
}

func NewManager(log logger.Logger, stepTimeout time.Duration) *Manager {
	return &Manager{
		logger:      log,
		stepTimeout: stepTimeout,
		done:        make(chan struct{}),
	}
}

func (m *Manager) Register(name string, fn func() error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.steps = append(m.steps, step{name: name, fn: fn})
}

// Listen cancels the returned context on SIGINT or SIGTERM. Call stop to
// release the signal handler.
func (m *Manager) Listen(parent context.Context) (ctx context.Context, stop func()) {
	ctx, cancel := context.WithCancel(parent)
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		select {
		case sig := <-sigChan:
			m.logger.Info(component, "shutdown signal received", map[string]interface{}{
				"signal": sig.String(),
			})
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, func() {
		signal.Stop(sigChan)
		cancel()
	}
}

// Shutdown returns the joined step errors. Later calls return nil.
func (m *Manager) Shutdown() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	select {
	case <-m.done:
		return nil
	default:
		close(m.done)
	}

	m.logger.Debug(component, "shutdown sequence initiated", map[string]interface{}{
		"steps": len(m.steps),
	})

	var errs []error
	for i := len(m.steps) - 1; i >= 0; i-- {
		s := m.steps[i]

		result := make(chan error, 1)
		go func() {
			result <- s.fn()
		}()

		select {
		case err := <-result:
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", s.name, err))
			}
		case <-time.After(m.stepTimeout):
			m.logger.Warning(component, "step timeout", map[string]interface{}{
				"step": s.name,
			})
			errs = append(errs, fmt.Errorf("%s: timed out after %s", s.name, m.stepTimeout))
		}
	}

	m.logger.Debug(component, "shutdown sequence completed", nil)
	return errors.Join(errs...)
}

func (m *Manager) Done() <-chan struct{} {
	return m.done
}
