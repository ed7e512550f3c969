package command

import (
	"context"
	"errors"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/stowage-go/internal/cli/output"
	"github.com/yndnr/stowage-go/internal/config"
	"github.com/yndnr/stowage-go/internal/manager"
	"github.com/yndnr/stowage-go/internal/storage"
	"github.com/yndnr/stowage-go/internal/telemetry/logger"
	"github.com/yndnr/stowage-go/internal/telemetry/metric"
)

// closeTimeout bounds the wait for pending backfills on exit.
const closeTimeout = 10 * time.Second

// session is an initialized manager plus the factory that backs it.
type session struct {
	manager *manager.Manager
	factory *storage.Factory
}

// openSession builds and initializes a manager from cfg. Metrics are
// recorded into reg when it is non-nil.
func openSession(ctx context.Context, cfg *config.Config, reg *metric.Registry) (*session, error) {
	mc, err := cfg.ManagerConfig()
	if err != nil {
		return nil, err
	}

	log := logger.Default().Slog()
	var factory *storage.Factory
	if reg != nil {
		factory = cfg.Factory(log, reg.Registerer())
	} else {
		factory = cfg.Factory(log, nil)
	}

	mc.Factory = factory
	mc.Logger = log
	mc.Metrics = reg

	m := manager.New(mc)
	if err := m.Init(ctx); err != nil {
		return nil, errors.Join(err, factory.Close())
	}
	return &session{manager: m, factory: factory}, nil
}

// Close releases the manager, keeping stored data.
func (s *session) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
	defer cancel()
	return errors.Join(s.manager.Close(ctx), s.factory.Close())
}

// withSession runs fn against a freshly opened manager.
func withSession(c *cli.Context, fn func(*session) error) error {
	s, err := openSession(c.Context, Config(c), nil)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	err = fn(s)
	if cerr := s.Close(); cerr != nil {
		logger.Warn("close failed", "error", cerr)
	}
	return err
}

// render writes data in the format chosen by --output.
func render(c *cli.Context, data any) error {
	format, err := output.ParseFormat(c.String("output"))
	if err != nil {
		return cli.Exit(err.Error(), 2)
	}
	return output.NewFormatter(format, c.Bool("wide")).Format(c.App.Writer, data)
}
