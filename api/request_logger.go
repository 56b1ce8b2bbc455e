// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package api

import (
	"bytes"
	"io"
	"net/http"
	"time"

	"github.com/vechain/delegator/api/utils"
	"github.com/vechain/delegator/log"
)

const maxLoggedBody = 1024

// RequestLoggerHandler logs every request once served, with its caller, the
// response status and the time taken. Request bodies are logged truncated.
func RequestLoggerHandler(handler http.Handler, logger log.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body []byte
		if r.Body != nil && r.Method != http.MethodGet {
			var err error
			if body, err = io.ReadAll(r.Body); err != nil {
				logger.Warn("unexpected body read error", "err", err)
				http.Error(w, "unable to read request body", http.StatusBadRequest)
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))
		}

		start := time.Now()
		srw := newStatusResponseWriter(w)
		handler.ServeHTTP(srw, r)

		ctx := []any{
			"method", r.Method,
			"uri", r.URL.RequestURI(),
			"caller", r.Header.Get(utils.CallerHeader),
			"status", srw.statusCode,
			"elapsed", time.Since(start),
		}
		if len(body) > 0 {
			if len(body) > maxLoggedBody {
				body = append(body[:maxLoggedBody:maxLoggedBody], "..."...)
			}
			ctx = append(ctx, "body", string(body))
		}
		logger.Info("API request", ctx...)
	})
}
