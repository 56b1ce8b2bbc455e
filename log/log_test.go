// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package log

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func captureJSON(t *testing.T, lvl int) (*bytes.Buffer, func()) {
	t.Helper()
	old := Root()
	buf := &bytes.Buffer{}
	SetDefault(NewLogger(JSONHandlerWithLevel(buf, FromLegacyLevel(lvl))))
	return buf, func() { SetDefault(old) }
}

func TestWithContextFollowsDefault(t *testing.T) {
	pkgLogger := WithContext("pkg", "test")

	buf, restore := captureJSON(t, 3)
	defer restore()

	pkgLogger.With("node", 7).Info("staked", "amount", "100")

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "staked", record["msg"])
	assert.Equal(t, "test", record["pkg"])
	assert.Equal(t, float64(7), record["node"])
	assert.Equal(t, "100", record["amount"])
}

func TestLevelFilter(t *testing.T) {
	buf, restore := captureJSON(t, 3)
	defer restore()

	l := WithContext("pkg", "test")
	l.Debug("hidden")
	assert.Equal(t, 0, buf.Len())
	assert.False(t, l.Enabled(context.Background(), LevelDebug))
	assert.True(t, l.Enabled(context.Background(), LevelInfo))
}

type recorder struct {
	msgs []string
}

func (r *recorder) With(...any) Logger                       { return r }
func (r *recorder) Trace(msg string, _ ...any)               { r.msgs = append(r.msgs, "trace:"+msg) }
func (r *recorder) Debug(msg string, _ ...any)               { r.msgs = append(r.msgs, "debug:"+msg) }
func (r *recorder) Info(msg string, _ ...any)                { r.msgs = append(r.msgs, "info:"+msg) }
func (r *recorder) Warn(msg string, _ ...any)                { r.msgs = append(r.msgs, "warn:"+msg) }
func (r *recorder) Error(msg string, _ ...any)               { r.msgs = append(r.msgs, "error:"+msg) }
func (r *recorder) Crit(msg string, _ ...any)                { r.msgs = append(r.msgs, "crit:"+msg) }
func (r *recorder) Enabled(context.Context, slog.Level) bool { return true }

func TestSetDefaultForeignLogger(t *testing.T) {
	old := Root()
	defer SetDefault(old)

	rec := &recorder{}
	SetDefault(rec)

	Info("hello")
	WithContext("pkg", "x").Warn("careful")
	assert.Equal(t, []string{"info:hello", "warn:careful"}, rec.msgs)
}
