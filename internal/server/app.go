// Package server wires the gophchat components together and runs them until
// the process is asked to stop.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/gophchat/internal/codec"
	"github.com/dmitrijs2005/gophchat/internal/keys"
	"github.com/dmitrijs2005/gophchat/internal/logging"
	"github.com/dmitrijs2005/gophchat/internal/passwd"
	"github.com/dmitrijs2005/gophchat/internal/server/auth"
	"github.com/dmitrijs2005/gophchat/internal/server/backup"
	"github.com/dmitrijs2005/gophchat/internal/server/broadcast"
	"github.com/dmitrijs2005/gophchat/internal/server/config"
	"github.com/dmitrijs2005/gophchat/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/gophchat/internal/server/services"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	gs "github.com/dmitrijs2005/gophchat/internal/server/grpc"
)

// Seams for tests.
var (
	openDB         = repomanager.OpenPostgres
	newRepoManager = repomanager.NewPostgresRepositoryManager
	newS3Client    = func(ctx context.Context, s backup.S3Settings) (backup.Uploader, error) {
		return backup.NewS3Client(ctx, s)
	}
	logOutput io.Writer = os.Stdout
)

type App struct {
	config   *config.Config
	logger   logging.Logger
	db       *sql.DB
	hub      *broadcast.Hub
	server   *gs.GRPCServer
	exporter *backup.Exporter
}

// NewApp generates the process key pair, opens and migrates the database and
// builds the services. Any failure here is fatal for the process.
func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	logger := logging.NewJSONLogger(logOutput, c.SlogLevel())

	if cost, weak := passwd.WeakBcrypt(c.AccessPassword, c.HashCost); weak {
		logger.Warn(ctx, "stored access password has a low bcrypt cost; rehash it with the passwd tool",
			"cost", cost, "min_cost", c.HashCost)
	}

	kp := keys.NewProvider(c.KeyBits, logger)
	if _, err := kp.Init(ctx); err != nil {
		return nil, fmt.Errorf("key pair init error: %w", err)
	}

	db, err := openDB(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	rm := newRepoManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrations error: %w", err)
	}

	hub := broadcast.NewHub(broadcast.DefaultBuffer, logger)
	issuer := auth.NewIssuer([]byte(c.SecretKey), c.TokenTTL)

	as := services.NewAuthService(kp, passwd.NewVerifier(logger), issuer, services.AuthOptions{
		StoredSecret:        c.AccessPassword,
		AllowPlaintextLogin: c.AllowPlaintextLogin,
		MaxConcurrent:       c.MaxConcurrentVerifications,
	}, logger)

	cd := codec.New(codec.WithThreshold(c.CompressionThreshold), codec.WithLevel(c.CompressionLevel))
	ms := services.NewMessageService(db, rm, cd, hub, services.MessageOptions{
		MaxAttachmentSize: c.MaxAttachmentSize,
		StorageQuota:      c.StorageQuota,
	}, logger)

	app := &App{
		config: c,
		logger: logger,
		db:     db,
		hub:    hub,
		server: gs.NewGRPCServer(c.EndpointAddrGRPC, logger, as, ms, issuer, hub,
			grpc.MaxRecvMsgSize(int(c.RecvMessageSize()))),
	}

	if c.BackupInterval > 0 {
		client, err := newS3Client(ctx, backup.S3Settings{
			User:     c.S3RootUser,
			Password: c.S3RootPassword,
			Region:   c.S3Region,
			Endpoint: c.S3BaseEndpoint,
		})
		if err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("s3 client init error: %w", err)
		}
		app.exporter = backup.NewExporter(db, rm, client, c.S3Bucket, logger)
	}

	return app, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// Run serves until ctx is cancelled, a signal arrives or a component fails.
func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return app.server.Run(ctx)
	})

	if app.exporter != nil {
		g.Go(func() error {
			return app.exporter.Run(ctx, app.config.BackupInterval)
		})
	}

	err := g.Wait()

	app.hub.Close()
	if cerr := app.db.Close(); cerr != nil {
		app.logger.Error(ctx, "db close error", "error", cerr)
	}

	if err != nil {
		app.logger.Error(ctx, "app stopped with error", "error", err)
		return err
	}

	app.logger.Info(ctx, "App stopped")
	return nil
}
