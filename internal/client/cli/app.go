package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"timecapsule/internal/client/client"
	"timecapsule/internal/client/config"
	"timecapsule/internal/client/models"
	"timecapsule/internal/client/repositories/identity"
	"timecapsule/internal/client/services"
	"timecapsule/internal/common"
	"timecapsule/internal/logging"

	_ "modernc.org/sqlite"
)

type App struct {
	config    *config.Config
	log       logging.Logger
	apiClient client.Client
	repos     *client.Repositories
	kv        *identity.BadgerTier
	resolver  *services.IdentityResolver
	sink      *consoleSink
	reader    *bufio.Reader

	// bound per identity; replaced on reset
	identity       models.DeviceIdentity
	negotiator     *services.Negotiator
	pipeline       *services.Pipeline
	diary          *services.DiaryService
	pipelineCancel context.CancelFunc
}

func NewApp(ctx context.Context, c *config.Config, log logging.Logger) (*App, error) {
	if log == nil {
		log = logging.Nop{}
	}

	if err := os.MkdirAll(c.StateDir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create state directory: %w", err)
	}

	repos, err := client.InitDatabase(ctx, filepath.Join(c.StateDir, "timecapsule.db"))
	if err != nil {
		return nil, fmt.Errorf("error initializing database: %w", err)
	}

	kv, err := identity.OpenBadgerTier(filepath.Join(c.StateDir, "kv"))
	if err != nil {
		return nil, err
	}

	apiClient := client.NewHTTPClient(c.ServerURL, log)

	return &App{
		config:    c,
		log:       log,
		apiClient: apiClient,
		repos:     repos,
		kv:        kv,
		resolver: services.NewIdentityResolver(
			services.NewIdentityStore(log,
				repos.Identity,
				kv,
				identity.NewFileTier(filepath.Join(c.StateDir, "identity.json")),
			),
			apiClient, log,
		),
		sink:   newConsoleSink(os.Stdout),
		reader: bufio.NewReader(os.Stdin),
	}, nil
}

// bind wires the identity-scoped services and starts a fresh delivery
// worker. Called once at startup and again after a device reset.
func (a *App) bind(ctx context.Context, id models.DeviceIdentity) {
	if a.pipelineCancel != nil {
		a.pipelineCancel()
	}

	a.identity = id
	a.negotiator = services.NewNegotiator(a.apiClient, a.log, id.Id)
	a.diary = services.NewDiaryService(a.apiClient, a.repos.Diary, a.log, id.Id)
	a.pipeline = services.NewPipeline(a.apiClient, a.negotiator, a.sink, a.log, id.Id)

	pipelineCtx, cancel := context.WithCancel(ctx)
	a.pipelineCancel = cancel
	a.pipeline.Start(pipelineCtx)
}

func (a *App) Run(ctx context.Context) error {
	defer a.Close()

	id, err := a.resolveIdentity(ctx)
	if err != nil {
		if errors.Is(err, common.ErrIdentityUnavailable) {
			fmt.Println("We could not set up this device. Please check your connection and try again.")
		}
		return err
	}
	a.bind(ctx, id)

	fmt.Println("Time Capsule — talk with your younger self (type 'help' for commands)")
	a.showHistory(ctx)

	scanner := bufio.NewScanner(os.Stdin)
	runREPL(ctx, a, a.status, scanner)
	return nil
}

// resolveIdentity bounds the startup resolution with the same timeout
// user-initiated calls get, so an unreachable server cannot stall launch
// past the point where the resolver falls back to a local identity.
func (a *App) resolveIdentity(ctx context.Context) (models.DeviceIdentity, error) {
	reqCtx, cancel := a.requestCtx(ctx)
	defer cancel()
	return a.resolver.Resolve(reqCtx)
}

func (a *App) status() string {
	short := a.identity.Id
	if len(short) > 8 {
		short = short[:8]
	}
	return fmt.Sprintf("(%s %s)", short, a.negotiator.State())
}

// requestCtx bounds one user-initiated API call.
func (a *App) requestCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, a.config.RequestTimeout)
}

func (a *App) Close() {
	if a.pipelineCancel != nil {
		a.pipelineCancel()
	}
	if err := a.apiClient.Close(); err != nil {
		a.log.Warn(context.Background(), "failed to close API client", "error", err)
	}
	if err := a.kv.Close(); err != nil {
		a.log.Warn(context.Background(), "failed to close key-value store", "error", err)
	}
	if err := a.repos.DB.Close(); err != nil {
		a.log.Warn(context.Background(), "failed to close database", "error", err)
	}
}
