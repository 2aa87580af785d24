package routes

import (
	"net/http"

	"github.com/Bakary221/Om-Pay/internal/handlers"
	appmw "github.com/Bakary221/Om-Pay/internal/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	httpSwagger "github.com/swaggo/http-swagger"
)

func NewRoutes(h *handlers.Handler, metricsHandler http.Handler) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.Logger)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("Works Fine!"))
	})

	r.Post("/auth/register", h.RegisterHandler)
	r.Post("/auth/verify", h.VerifyHandler)
	r.Post("/auth/login", h.LoginHandler)
	r.With(appmw.Authenticated).Get("/auth/me", h.MeHandler)

	r.With(appmw.Authenticated).Get("/accounts/me", h.AccountHandler)
	r.With(appmw.Authenticated).Get("/accounts/me/balance", h.BalanceHandler)

	r.With(appmw.Authenticated).Post("/transactions/deposit", h.DepositHandler)
	r.With(appmw.Authenticated).Post("/transactions/payment", h.PaymentHandler)
	r.With(appmw.Authenticated).Post("/transactions/transfer", h.TransferHandler)
	r.With(appmw.Authenticated).Get("/transactions", h.TransactionsHandler)
	r.With(appmw.Authenticated).Get("/transactions/{reference}", h.TransactionShowHandler)

	r.Handle("/metrics", metricsHandler)
	r.Get("/swagger/*", httpSwagger.WrapHandler)

	return r
}
