package main

import (
	"context"
	"fmt"
	"os"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-credit-go/internal/config"
	"github.com/ovaphlow/pitchfork/service-credit-go/internal/profile"
	productrepo "github.com/ovaphlow/pitchfork/service-credit-go/internal/profile/repo"
	"github.com/ovaphlow/pitchfork/service-credit-go/internal/subscriber"
	subscriberrepo "github.com/ovaphlow/pitchfork/service-credit-go/internal/subscriber/repo"
	"github.com/ovaphlow/pitchfork/service-credit-go/internal/user"
	userrepo "github.com/ovaphlow/pitchfork/service-credit-go/internal/user/repo"
	"github.com/ovaphlow/pitchfork/service-credit-go/pkg/database"
	"github.com/ovaphlow/pitchfork/service-credit-go/pkg/utilities"
)

var cfgFile string

func main() {
	root := &cobra.Command{
		Use:           "credit-api",
		Short:         "Credit profile dashboard service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ./configs/config.yaml or ./config.yaml)")
	root.AddCommand(serveCmd(), scoreCmd(), exportCmd(), usersCmd(), dbCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// app holds the components shared by every subcommand.
type app struct {
	cfg     *config.Config
	log     *zap.Logger
	sugar   *zap.SugaredLogger
	db      *sqlx.DB
	catalog *subscriber.Catalog
	store   *profile.Store
	users   *user.UserService
}

func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	lg, err := utilities.Init(cfg.Logger())
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	a := &app{cfg: cfg, log: lg, sugar: lg.Sugar(), catalog: subscriber.DefaultCatalog()}

	var src profile.Source = profile.SampleSource{}
	if cfg.DB().Enabled() {
		a.db, err = database.Connect(cfg.DB())
		if err != nil {
			a.close()
			return nil, fmt.Errorf("db connect: %w", err)
		}
		src = productrepo.NewProductRepo(a.db)
		if c, err := subscriber.LoadCatalog(ctx, subscriberrepo.NewSubscriberRepo(a.db)); err != nil {
			a.sugar.Warnw("subscriber catalog unavailable, using defaults", "err", err)
		} else {
			a.catalog = c
		}
	} else {
		a.sugar.Infow("no database configured, using sample data")
	}

	validator, err := profile.NewValidator(a.catalog.IDs())
	if err != nil {
		a.close()
		return nil, fmt.Errorf("build validator: %w", err)
	}
	a.store, err = profile.NewStore(ctx, src, a.sugar, profile.WithValidator(validator))
	if err != nil {
		a.close()
		return nil, fmt.Errorf("load profiles: %w", err)
	}

	hasher := user.NewHasher(cfg.Users.Hasher, cfg.Users.BcryptCost)
	a.users, err = user.NewUserService(userrepo.NewUserRepo(cfg.Users.File), hasher, a.sugar)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("load users: %w", err)
	}
	a.users.KnownSubscriber = a.catalog.Contains
	return a, nil
}

func (a *app) close() {
	if a.db != nil {
		_ = a.db.Close()
	}
	_ = a.log.Sync()
}
