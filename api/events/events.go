// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package events

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"

	"github.com/vechain/delegator/api/utils"
	devents "github.com/vechain/delegator/delegation/events"
	"github.com/vechain/delegator/log"
)

var logger = log.WithContext("pkg", "events-api")

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 7 / 10
	subBuffer  = 64
)

type Events struct {
	emitter   *devents.Emitter
	limit     uint64
	upgrader  *websocket.Upgrader
	done      chan struct{}
	closeOnce sync.Once
	goes      sync.WaitGroup
}

func New(emitter *devents.Emitter, limit uint64, allowedOrigins []string) *Events {
	return &Events{
		emitter: emitter,
		limit:   limit,
		upgrader: &websocket.Upgrader{
			EnableCompression: true,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if origin == "" {
					return true
				}
				for _, allowed := range allowedOrigins {
					if allowed == "*" || allowed == origin {
						return true
					}
				}
				return false
			},
		},
		done: make(chan struct{}),
	}
}

func parseUint(q map[string][]string, name string) (*uint64, error) {
	vals, ok := q[name]
	if !ok || len(vals) == 0 || vals[0] == "" {
		return nil, nil
	}
	v, err := strconv.ParseUint(vals[0], 10, 64)
	if err != nil {
		return nil, utils.BadRequest(errors.WithMessage(err, name))
	}
	return &v, nil
}

func (e *Events) parseFilter(req *http.Request) (*devents.Filter, error) {
	q := req.URL.Query()
	filter := &devents.Filter{
		RequestID: q.Get("requestID"),
		Order:     devents.ASC,
		Options:   &devents.Options{Limit: e.limit},
	}
	for _, k := range q["kind"] {
		filter.Kinds = append(filter.Kinds, devents.Kind(k))
	}
	switch order := devents.Order(q.Get("order")); order {
	case "", devents.ASC:
	case devents.DESC:
		filter.Order = devents.DESC
	default:
		return nil, utils.BadRequest(errors.New("order: must be asc or desc"))
	}

	from, err := parseUint(q, "from")
	if err != nil {
		return nil, err
	}
	to, err := parseUint(q, "to")
	if err != nil {
		return nil, err
	}
	if from != nil || to != nil {
		filter.Range = &devents.Range{}
		if from != nil {
			filter.Range.From = *from
		}
		if to != nil {
			if *to < filter.Range.From {
				return nil, utils.BadRequest(errors.New("to: must not be less than from"))
			}
			filter.Range.To = *to
		}
	}

	offset, err := parseUint(q, "offset")
	if err != nil {
		return nil, err
	}
	if offset != nil {
		filter.Options.Offset = *offset
	}
	limit, err := parseUint(q, "limit")
	if err != nil {
		return nil, err
	}
	if limit != nil {
		if *limit > e.limit {
			return nil, utils.BadRequest(errors.Errorf("limit: exceeds maximum of %d", e.limit))
		}
		filter.Options.Limit = *limit
	}
	return filter, nil
}

func (e *Events) handleFilter(w http.ResponseWriter, req *http.Request) error {
	filter, err := e.parseFilter(req)
	if err != nil {
		return err
	}
	evs, err := e.emitter.Filter(req.Context(), filter)
	if err != nil {
		return err
	}
	if evs == nil {
		evs = []*devents.Event{}
	}
	return utils.WriteJSON(w, evs)
}

func (e *Events) handleSubscribe(w http.ResponseWriter, req *http.Request) error {
	// subscribe first so no event slips between the handshake and the feed
	ch := make(chan *devents.Event, subBuffer)
	sub := e.emitter.Subscribe(ch)
	defer sub.Unsubscribe()

	conn, err := e.upgrader.Upgrade(w, req, nil)
	if err != nil {
		// the upgrader already replied to the client
		logger.Debug("websocket upgrade failed", "err", err)
		return nil
	}
	defer conn.Close()

	closed := make(chan struct{})
	e.goes.Go(func() {
		defer close(closed)
		conn.SetReadLimit(512)
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case ev := <-ch:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(ev); err != nil {
				logger.Debug("websocket write failed", "err", err)
				return nil
			}
		case err := <-sub.Err():
			logger.Debug("event subscription ended", "err", err)
			return nil
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return nil
			}
		case <-closed:
			return nil
		case <-e.done:
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
				time.Now().Add(writeWait))
			return nil
		}
	}
}

// Close ends all open subscriptions. Hijacked websocket connections are not
// closed by http.Server.Shutdown.
func (e *Events) Close() {
	e.closeOnce.Do(func() { close(e.done) })
	e.goes.Wait()
}

func (e *Events) Mount(root *mux.Router, pathPrefix string) {
	sub := root.PathPrefix(pathPrefix).Subrouter()

	sub.Path("").
		Methods(http.MethodGet).
		Name("events_filter").
		HandlerFunc(utils.WrapHandlerFunc(e.handleFilter))
	sub.Path("/subscribe").
		Methods(http.MethodGet).
		Name("events_subscribe").
		HandlerFunc(utils.WrapHandlerFunc(e.handleSubscribe))
}
