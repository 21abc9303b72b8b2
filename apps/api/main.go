package main

import (
	"context"
	"expvar"
	"fmt"
	"net/http"
	_ "net/http/pprof" // registers /debug/pprof on http.DefaultServeMux
	"os"
	"os/signal"
	"syscall"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	echoapi "github.com/trezcool/quickreceipt/apps/api/echo"
	"github.com/trezcool/quickreceipt/core"
	"github.com/trezcool/quickreceipt/core/client"
	"github.com/trezcool/quickreceipt/core/company"
	"github.com/trezcool/quickreceipt/core/receipt"
	"github.com/trezcool/quickreceipt/core/settings"
	"github.com/trezcool/quickreceipt/core/user"
	emailsvc "github.com/trezcool/quickreceipt/services/email"
	logsvc "github.com/trezcool/quickreceipt/services/logger"
	"github.com/trezcool/quickreceipt/services/render"
	sharesvc "github.com/trezcool/quickreceipt/services/share"
	uploadsvc "github.com/trezcool/quickreceipt/services/upload"
	"github.com/trezcool/quickreceipt/storage/database"
	"github.com/trezcool/quickreceipt/storage/database/sqlxrepos"
)

func main() {
	conf := core.NewConfig()
	logger := logsvc.NewRollbarLogger(conf)
	defer logger.Sync()

	if err := run(conf, logger); err != nil {
		logger.Error("application stopped with error", err)
		logger.Sync()
		os.Exit(1)
	}
}

func run(conf *core.Config, logger *logsvc.RollbarLogger) error {
	// =========================================================================
	// Set up Dependencies

	db, err := setUpDB(conf, logger)
	if err != nil {
		return errors.Wrap(err, "setting up database")
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Error("closing database", err)
		}
	}()

	mailSvc, err := emailsvc.New(conf, logger)
	if err != nil {
		return errors.Wrap(err, "setting up email service")
	}

	usrRepo := sqlxrepos.NewUserRepository(db)
	clientRepo := sqlxrepos.NewClientRepository(db)
	companyRepo := sqlxrepos.NewCompanyRepository(db)

	usrSvc := user.NewService(usrRepo)
	settingsSvc := settings.NewService(sqlxrepos.NewSettingsRepository(db), settings.Options{
		AppName:         conf.AppName,
		DefaultCurrency: conf.DefaultCurrency,
		DefaultLocale:   conf.DefaultLocale,
	})
	tr := core.NewTranslations()

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	validate, translator := core.NewValidator()
	user.InitValidators(validate, translator)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	seeded, err := usrSvc.SeedSuperadmin(ctx, conf.Admin.Username, conf.Admin.Password)
	if err != nil {
		return errors.Wrap(err, "seeding superadmin")
	}
	if seeded {
		logger.Info(fmt.Sprintf("superadmin %q created", conf.Admin.Username))

		// legacy rows could not be adopted while migrating, there was no superadmin yet
		adopted, err := database.AdoptLegacyRows(ctx, db)
		if err != nil {
			return errors.Wrap(err, "adopting legacy rows")
		}
		if adopted > 0 {
			logger.Info(fmt.Sprintf("%d legacy rows adopted by %q", adopted, conf.Admin.Username))
		}
	}

	server := echoapi.NewServer(&echoapi.Options{
		Conf:           conf,
		Logger:         logger,
		SignalShutdown: stop,
		Validate:       validate,
		Translator:     translator,
		Translations:   tr,
		UserSvc:        usrSvc,
		ClientSvc:      client.NewService(clientRepo),
		CompanySvc:     company.NewService(companyRepo),
		ReceiptSvc:     receipt.NewService(db, sqlxrepos.NewReceiptRepository(db), clientRepo, companyRepo, settingsSvc),
		SettingsSvc:    settingsSvc,
		Renderer:       render.NewRenderer(tr, conf.Uploads),
		ShareSvc: sharesvc.NewService(tr, sharesvc.Options{
			AppName: conf.AppName,
			Secret:  conf.SecretKey,
			BaseURL: conf.Server.PublicBaseURL,
			TTL:     conf.Server.ShareLinkTTL,
		}),
		UploadSvc: uploadsvc.NewService(conf.Uploads),
		EmailSvc:  mailSvc,
	})

	// =========================================================================
	// Start Debug & API Services
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.

	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)
	debugSrv := &http.Server{Addr: conf.Server.DebugAddress, Handler: http.DefaultServeMux}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("debug server listening on " + conf.Server.DebugAddress)
		if err := debugSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("debug server closed", err)
		}
		return nil
	})
	g.Go(func() error {
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			return errors.Wrap(err, "api server")
		}
		return nil
	})

	// =========================================================================
	// Shutdown

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Start shutdown...")

		// give outstanding requests a deadline for completion
		sctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		_ = debugSrv.Shutdown(sctx)
		if err := server.Stop(sctx); err != nil {
			return errors.Wrap(err, "could not stop server gracefully")
		}
		return nil
	})
	return g.Wait()
}

func setUpDB(conf *core.Config, logger core.Logger) (*sqlx.DB, error) {
	if err := database.CreateIfNotExist(conf); err != nil {
		return nil, err
	}

	db, err := database.Open(conf)
	if err != nil {
		return nil, err
	}

	if err = database.Migrate(context.Background(), db, logger); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}
