// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package utils

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/pkg/errors"

	"github.com/vechain/delegator/delegation"
	"github.com/vechain/delegator/delegation/dispatch"
	"github.com/vechain/delegator/delegation/reverts"
)

type httpError struct {
	cause  error
	status int
}

func (e *httpError) Error() string {
	return e.cause.Error()
}

// HTTPError create an error with http status code.
func HTTPError(cause error, status int) error {
	return &httpError{
		cause:  cause,
		status: status,
	}
}

// BadRequest convenience method to create http bad request error.
func BadRequest(cause error) error {
	return &httpError{
		cause:  cause,
		status: http.StatusBadRequest,
	}
}

// Forbidden convenience method to create http forbidden error.
func Forbidden(cause error) error {
	return &httpError{
		cause:  cause,
		status: http.StatusForbidden,
	}
}

// HandlerFunc like http.HandlerFunc, bu it returns an error.
// If the returned error is httpError type, httpError.status will be responded,
// otherwise the status is derived from the error kind.
type HandlerFunc func(http.ResponseWriter, *http.Request) error

// WrapHandlerFunc convert HandlerFunc to http.HandlerFunc.
func WrapHandlerFunc(f HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := f(w, r)
		if err == nil {
			return
		}
		var he *httpError
		if !errors.As(err, &he) {
			he = &httpError{cause: err, status: StatusOf(err)}
		}
		if he.cause != nil {
			http.Error(w, he.cause.Error(), he.status)
		} else {
			w.WriteHeader(he.status)
		}
	}
}

// StatusOf maps domain errors to http status codes.
func StatusOf(err error) int {
	switch {
	case reverts.IsUnauthorized(err):
		return http.StatusForbidden
	case reverts.IsRevertErr(err):
		return http.StatusBadRequest
	case errors.Is(err, delegation.ErrUnknownRequest):
		return http.StatusNotFound
	case errors.Is(err, delegation.ErrProtocolViolation):
		return http.StatusConflict
	case errors.Is(err, dispatch.ErrStopped):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// content types
const (
	JSONContentType = "application/json; charset=utf-8"
)

// CallerHeader carries the numeric id of the user issuing a request.
const CallerHeader = "X-Caller"

// Caller returns the caller id of the request.
func Caller(r *http.Request) (uint64, error) {
	v := r.Header.Get(CallerHeader)
	if v == "" {
		return 0, BadRequest(errors.New("caller: missing " + CallerHeader + " header"))
	}
	id, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return 0, BadRequest(errors.WithMessage(err, "caller"))
	}
	return id, nil
}

// ParseJSON parse a JSON object using strict mode.
func ParseJSON(r io.Reader, v any) error {
	decoder := json.NewDecoder(r)
	decoder.DisallowUnknownFields()
	return decoder.Decode(v)
}

// WriteJSON response an object in JSON encoding.
func WriteJSON(w http.ResponseWriter, obj any) error {
	w.Header().Set("Content-Type", JSONContentType)
	return json.NewEncoder(w).Encode(obj)
}

// M shortcut for type map[string]interface{}.
type M map[string]any
