// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package api

import (
	"net/http"
	"strings"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"github.com/vechain/delegator/api/admin"
	"github.com/vechain/delegator/api/authority"
	"github.com/vechain/delegator/api/events"
	"github.com/vechain/delegator/api/funds"
	"github.com/vechain/delegator/api/health"
	"github.com/vechain/delegator/api/nodes"
	"github.com/vechain/delegator/api/utils"
	"github.com/vechain/delegator/delegation"
	"github.com/vechain/delegator/delegation/dispatch"
	devents "github.com/vechain/delegator/delegation/events"
	"github.com/vechain/delegator/log"
)

var logger = log.WithContext("pkg", "api")

type Options struct {
	AllowedOrigins  string
	EnableReqLogger bool
	EnableMetrics   bool
	EventsLimit     uint64
	Health          *health.Health // GET /health is mounted when set
}

// New return api router
func New(
	deleg *delegation.Delegation,
	disp *dispatch.Dispatcher,
	emitter *devents.Emitter,
	opts Options,
) (http.HandlerFunc, func()) {
	origins := strings.Split(strings.TrimSpace(opts.AllowedOrigins), ",")
	for i, o := range origins {
		origins[i] = strings.ToLower(strings.TrimSpace(o))
	}

	router := mux.NewRouter()

	nodes.New(deleg, disp).
		Mount(router, "/nodes")
	funds.New(deleg, disp).
		Mount(router, "/funds")
	authority.New(deleg, disp).
		Mount(router, "/auction")
	admin.New(deleg, disp).
		Mount(router, "/admin")
	evs := events.New(emitter, opts.EventsLimit, origins)
	evs.Mount(router, "/events")
	if opts.Health != nil {
		health.NewAPI(opts.Health).
			Mount(router, "/health")
	}

	if opts.EnableMetrics {
		router.Use(metricsMiddleware)
	}

	handler := handlers.CompressHandler(router)
	handler = handlers.CORS(
		handlers.AllowedOrigins(origins),
		handlers.AllowedHeaders([]string{"content-type", strings.ToLower(utils.CallerHeader)}),
	)(handler)

	if opts.EnableReqLogger {
		handler = RequestLoggerHandler(handler, logger)
	}

	return handler.ServeHTTP, evs.Close // subscriptions handle hijacked conns, which need to be closed
}
