package router

import (
	"net/http"

	"github.com/ratepulse/backend/internal/auth"
	"github.com/ratepulse/backend/internal/catalog"
	"github.com/ratepulse/backend/internal/dashboard"
	"github.com/ratepulse/backend/internal/deposits"
	"github.com/ratepulse/backend/internal/handlers"
	"github.com/ratepulse/backend/internal/middleware"
	"github.com/ratepulse/backend/internal/services"
)

const base = "/api/v1"

// Deps carries everything the API routes are built from.
type Deps struct {
	Auth      *auth.Handler
	Catalog   *catalog.Handler
	Deposits  *deposits.Handler
	Dashboard *dashboard.Handler
	Game      *handlers.GameHandler
	Wallet    *handlers.WalletHandler
	Admin     *handlers.AdminHandler

	Validator    middleware.BodyValidator
	Authenticate func(http.Handler) http.Handler
	PlayLimiter  *middleware.RateLimiter
}

// New returns an http.Handler that serves the API under /api/v1.
func New(d Deps) http.Handler {
	mux := http.NewServeMux()
	body := func(schema string, h http.HandlerFunc) http.Handler {
		return middleware.ValidateBody(d.Validator, schema)(h)
	}
	user := func(h http.Handler) http.Handler { return d.Authenticate(h) }
	staff := func(h http.Handler) http.Handler { return d.Authenticate(middleware.RequireStaff(h)) }
	play := func(h http.Handler) http.Handler { return d.Authenticate(d.PlayLimiter.Handler(h)) }

	// Public
	mux.Handle("POST "+base+"/auth/register", body(services.SchemaRegister, d.Auth.Register))
	mux.Handle("POST "+base+"/auth/login", body(services.SchemaLogin, d.Auth.Login))
	mux.HandleFunc("GET "+base+"/packs", d.Catalog.ListActivePacks)
	mux.HandleFunc("GET "+base+"/settings", d.Dashboard.GetSettings)

	// Account
	mux.Handle("POST "+base+"/auth/password", user(body(services.SchemaChangePassword, d.Auth.ChangePassword)))
	mux.Handle("GET "+base+"/events", user(http.HandlerFunc(d.Catalog.ListActiveEvents)))
	mux.Handle("GET "+base+"/account/me", user(http.HandlerFunc(d.Dashboard.GetMe)))
	mux.Handle("GET "+base+"/wallet/entries", user(http.HandlerFunc(d.Dashboard.ListWalletEntries)))
	mux.Handle("GET "+base+"/notifications", user(http.HandlerFunc(d.Dashboard.ListNotifications)))
	mux.Handle("POST "+base+"/notifications/read", user(http.HandlerFunc(d.Dashboard.MarkNotificationsRead)))

	// Game
	mux.Handle("GET "+base+"/game/active", user(http.HandlerFunc(d.Game.Active)))
	mux.Handle("POST "+base+"/game/play", play(body(services.SchemaPlay, d.Game.Play)))
	mux.Handle("POST "+base+"/game/play-pending", play(body(services.SchemaPlay, d.Game.PlayPending)))
	mux.Handle("GET "+base+"/game/record", user(http.HandlerFunc(d.Game.Record)))

	// Money
	mux.Handle("POST "+base+"/wallet/withdrawals", user(body(services.SchemaWithdraw, d.Wallet.Withdraw)))
	mux.Handle("GET "+base+"/wallet/withdrawals", user(http.HandlerFunc(d.Wallet.ListWithdrawals)))
	mux.Handle("GET "+base+"/wallet/payment-method", user(http.HandlerFunc(d.Wallet.GetPaymentMethod)))
	mux.Handle("PUT "+base+"/wallet/payment-method", user(body(services.SchemaPaymentMethod, d.Wallet.UpsertPaymentMethod)))
	mux.Handle("POST "+base+"/deposits", user(body(services.SchemaDeposit, d.Deposits.Create)))
	mux.Handle("GET "+base+"/deposits", user(http.HandlerFunc(d.Deposits.ListMine)))

	// Admin
	mux.Handle("GET "+base+"/admin/settings", staff(http.HandlerFunc(d.Admin.GetSettings)))
	mux.Handle("PUT "+base+"/admin/settings", staff(body(services.SchemaSettings, d.Admin.UpdateSettings)))

	mux.Handle("GET "+base+"/admin/packs", staff(http.HandlerFunc(d.Catalog.ListPacks)))
	mux.Handle("POST "+base+"/admin/packs", staff(body(services.SchemaPack, d.Catalog.CreatePack)))
	mux.Handle("PUT "+base+"/admin/packs/{id}", staff(body(services.SchemaPack, d.Catalog.UpdatePack)))
	mux.Handle("GET "+base+"/admin/products", staff(http.HandlerFunc(d.Catalog.ListProducts)))
	mux.Handle("POST "+base+"/admin/products", staff(body(services.SchemaProduct, d.Catalog.CreateProduct)))
	mux.Handle("GET "+base+"/admin/on-hold-pays", staff(http.HandlerFunc(d.Catalog.ListOnHoldPays)))
	mux.Handle("POST "+base+"/admin/on-hold-pays", staff(body(services.SchemaOnHoldPay, d.Catalog.CreateOnHoldPay)))
	mux.Handle("PUT "+base+"/admin/on-hold-pays/{id}", staff(body(services.SchemaOnHoldPay, d.Catalog.UpdateOnHoldPay)))

	mux.Handle("GET "+base+"/admin/events", staff(http.HandlerFunc(d.Catalog.ListEvents)))
	mux.Handle("POST "+base+"/admin/events", staff(body(services.SchemaEvent, d.Catalog.CreateEvent)))
	mux.Handle("PUT "+base+"/admin/events/{id}", staff(body(services.SchemaEvent, d.Catalog.UpdateEvent)))

	mux.Handle("GET "+base+"/admin/accounts", staff(http.HandlerFunc(d.Admin.ListAccounts)))
	mux.Handle("POST "+base+"/admin/accounts/{id}/wallet", staff(body(services.SchemaWalletAdjust, d.Admin.AdjustWallet)))
	mux.Handle("PUT "+base+"/admin/accounts/{id}/minimum-balance-waiver", staff(http.HandlerFunc(d.Admin.WaiveMinimumBalance)))
	mux.Handle("DELETE "+base+"/admin/accounts/{id}/minimum-balance-waiver", staff(http.HandlerFunc(d.Admin.WaiveMinimumBalance)))
	mux.Handle("POST "+base+"/admin/accounts/{id}/injections", staff(body(services.SchemaInject, d.Admin.Inject)))
	mux.Handle("PUT "+base+"/admin/injections/{id}", staff(body(services.SchemaInject, d.Admin.UpdateInjection)))
	mux.Handle("DELETE "+base+"/admin/injections/{id}", staff(http.HandlerFunc(d.Admin.DeleteInjection)))

	mux.Handle("GET "+base+"/admin/withdrawals", staff(http.HandlerFunc(d.Admin.ListWithdrawals)))
	mux.Handle("PATCH "+base+"/admin/withdrawals/{id}", staff(body(services.SchemaStatus, d.Admin.ReviewWithdrawal)))
	mux.Handle("GET "+base+"/admin/deposits", staff(http.HandlerFunc(d.Deposits.ListAll)))
	mux.Handle("PATCH "+base+"/admin/deposits/{id}", staff(body(services.SchemaStatus, d.Deposits.SetStatus)))

	return mux
}
