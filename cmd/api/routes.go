package main

import (
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"

	"github.com/ratepulse/backend/internal/auth"
	"github.com/ratepulse/backend/internal/catalog"
	"github.com/ratepulse/backend/internal/clock"
	"github.com/ratepulse/backend/internal/config"
	"github.com/ratepulse/backend/internal/dashboard"
	"github.com/ratepulse/backend/internal/deposits"
	"github.com/ratepulse/backend/internal/handlers"
	"github.com/ratepulse/backend/internal/ledger"
	"github.com/ratepulse/backend/internal/middleware"
	"github.com/ratepulse/backend/internal/models"
	"github.com/ratepulse/backend/internal/notify"
	"github.com/ratepulse/backend/internal/repository"
	"github.com/ratepulse/backend/internal/router"
	"github.com/ratepulse/backend/internal/services"
)

// repos groups the Postgres repositories shared by services and handlers.
type repos struct {
	accounts       *repository.AccountRepo
	events         *repository.EventRepo
	notifications  *repository.NotificationRepo
	onHoldPays     *repository.OnHoldPayRepo
	packs          *repository.PackRepo
	paymentMethods *repository.PaymentMethodRepo
	products       *repository.ProductRepo
	settings       *repository.SettingsRepo
	submissions    *repository.SubmissionRepo
	entries        *repository.WalletEntryRepo
	withdrawals    *repository.WithdrawalRepo
	wallets        *ledger.Repository
}

func newRepos(pool *pgxpool.Pool) *repos {
	return &repos{
		accounts:       repository.NewAccountRepo(pool),
		events:         repository.NewEventRepo(pool),
		notifications:  repository.NewNotificationRepo(pool),
		onHoldPays:     repository.NewOnHoldPayRepo(pool),
		packs:          repository.NewPackRepo(pool),
		paymentMethods: repository.NewPaymentMethodRepo(pool),
		products:       repository.NewProductRepo(pool),
		settings:       repository.NewSettingsRepo(pool),
		submissions:    repository.NewSubmissionRepo(pool),
		entries:        repository.NewWalletEntryRepo(pool),
		withdrawals:    repository.NewWithdrawalRepo(pool),
		wallets:        ledger.NewRepository(pool),
	}
}

// buildDeps wires services and handlers for router.New.
func buildDeps(
	cfg *config.Config,
	pool *pgxpool.Pool,
	rp *repos,
	riverClient *river.Client[pgx.Tx],
	validator *services.Validator,
	logger *slog.Logger,
) router.Deps {
	clk := clock.RealClock{}
	picker := services.NewRandPicker(uint64(time.Now().UnixNano()))
	notifier := notify.NewNotifier(riverClient, rp.accounts, logger)
	ledgerSvc := ledger.NewService(rp.wallets, rp.entries, rp.packs, rp.submissions)

	authSvc := auth.NewService(auth.NewRepository(pool, rp.accounts, rp.wallets), rp.settings, []byte(cfg.JWTSecret), clk)
	catalogSvc := catalog.NewService(rp.packs, rp.products, rp.onHoldPays, rp.events, picker)
	depositSvc := deposits.NewService(deposits.NewRepository(pool), ledgerSvc, rp.accounts, notifier, logger)

	play := &services.PlayService{
		DB:          pool,
		Ledger:      ledgerSvc,
		Submissions: rp.submissions,
		Products:    rp.products,
		Packs:       rp.packs,
		Accounts:    rp.accounts,
		Picker:      picker,
		Clock:       clk,
		Notifier:    notifier,
		Logger:      logger,
	}
	withdrawals := &services.WithdrawalService{
		DB:          pool,
		Ledger:      ledgerSvc,
		Accounts:    rp.accounts,
		Packs:       rp.packs,
		Submissions: rp.submissions,
		Withdrawals: rp.withdrawals,
		Clock:       clk,
		Notifier:    notifier,
		Logger:      logger,
	}
	injections := &services.InjectionService{
		DB:          pool,
		Ledger:      ledgerSvc,
		Submissions: rp.submissions,
		Products:    rp.products,
		Packs:       rp.packs,
		OnHoldPays:  rp.onHoldPays,
		Picker:      picker,
		Logger:      logger,
	}
	adjuster := &services.WalletAdjuster{DB: pool, Ledger: ledgerSvc, Notifier: notifier, Logger: logger}

	return router.Deps{
		Auth:      auth.NewHandler(authSvc, logger),
		Catalog:   catalog.NewHandler(catalogSvc, logger),
		Deposits:  deposits.NewHandler(depositSvc, rp.settings, logger),
		Dashboard: dashboard.NewHandler(rp.wallets, rp.packs, rp.submissions, rp.entries, rp.notifications, rp.settings, clk, logger),
		Game: &handlers.GameHandler{
			Games:    func(st models.Settings) handlers.GameService { return play.WithSettings(st) },
			Settings: rp.settings,
			Logger:   logger,
		},
		Wallet: &handlers.WalletHandler{
			Withdrawals:    func(st models.Settings) handlers.WithdrawalRequester { return withdrawals.WithSettings(st) },
			History:        rp.withdrawals,
			PaymentMethods: rp.paymentMethods,
			Settings:       rp.settings,
			Logger:         logger,
		},
		Admin: &handlers.AdminHandler{
			Settings:    rp.settings,
			Injections:  injections,
			Reviewer:    withdrawals,
			Withdrawals: rp.withdrawals,
			Wallets:     adjuster,
			Accounts:    rp.accounts,
			Logger:      logger,
		},
		Validator:    validator,
		Authenticate: middleware.BearerAuth(authSvc, rp.accounts),
		PlayLimiter:  middleware.NewRateLimiter(cfg.PlayRatePerSecond, cfg.PlayRateBurst),
	}
}
