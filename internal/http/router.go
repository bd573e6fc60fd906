// Package http mounts the auth flows and the JSON API behind chi with
// the shared middleware chain.
package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pronounhub/pronounhub/internal/account"
	"github.com/pronounhub/pronounhub/internal/flow"
	"github.com/pronounhub/pronounhub/internal/provider"
	"github.com/pronounhub/pronounhub/internal/rate"
)

type RouterOptions struct {
	// Flows maps platform key to its mounted driver.
	Flows    map[string]flow.Flow
	Registry *provider.Registry
	Accounts account.Repository
	Sessions SessionReader
	Limiter  rate.Limiter

	// Gatherer backs /metrics. nil skips the endpoint.
	Gatherer prometheus.Gatherer

	SecureCookies bool
}

func NewRouter(opt RouterOptions) http.Handler {
	api := &API{
		Accounts: opt.Accounts,
		Sessions: opt.Sessions,
		Registry: opt.Registry,
		Secure:   opt.SecureCookies,
	}

	r := chi.NewRouter()
	r.Use(WithRequestID)
	r.Use(WithRecover)
	r.Use(WithSecurityHeaders)
	r.Use(WithLogging)
	r.Use(func(next http.Handler) http.Handler { return WithRateLimit(next, opt.Limiter) })

	// auth flows, per configured platform
	r.Group(func(r chi.Router) {
		r.Use(WithNoStore)
		for platform, f := range opt.Flows {
			r.Get("/"+platform+"/authorize", f.Authorize)
			r.Get("/"+platform+"/callback", f.Callback)
		}
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/lookup", api.Lookup)
		r.Get("/providers", api.Providers)
		r.Group(func(r chi.Router) {
			r.Use(WithNoStore)
			r.Get("/me", api.Me)
			r.Post("/me/pronouns", api.SetPronouns)
			r.Delete("/me/accounts/{platform}/{id}", api.Unlink)
			r.Post("/logout", api.Logout)
		})
	})

	r.Get("/healthz", api.Healthz)
	r.Get("/readyz", api.Readyz)
	if opt.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(opt.Gatherer, promhttp.HandlerOpts{}))
	}
	return r
}
