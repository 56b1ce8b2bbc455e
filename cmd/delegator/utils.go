// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"os/user"
	"path/filepath"
	"runtime"
	"sync"
	"syscall"
	"time"

	"github.com/elastic/gosigar"
	"github.com/ethereum/go-ethereum/common/fdlimit"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/mattn/go-isatty"
	"github.com/pkg/errors"
	cli "gopkg.in/urfave/cli.v1"

	"github.com/vechain/delegator/api/health"
	"github.com/vechain/delegator/delegation"
	devents "github.com/vechain/delegator/delegation/events"
	"github.com/vechain/delegator/delegation/fund"
	"github.com/vechain/delegator/delegation/node"
	"github.com/vechain/delegator/delegation/rewards"
	"github.com/vechain/delegator/delegation/settings"
	"github.com/vechain/delegator/kv"
	"github.com/vechain/delegator/log"
	"github.com/vechain/delegator/lvldb"
	"github.com/vechain/delegator/metrics"
)

func initLogger(ctx *cli.Context) error {
	lvl := ctx.Int(verbosityFlag.Name)
	if lvl < 0 || lvl > 5 {
		return fmt.Errorf("unknown verbosity level %d, must be in [0, 5]", lvl)
	}
	level := log.FromLegacyLevel(lvl)

	var handler slog.Handler
	if ctx.Bool(jsonLogsFlag.Name) {
		handler = log.JSONHandlerWithLevel(os.Stderr, level)
	} else {
		useColor := (isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd())) && os.Getenv("TERM") != "dumb"
		handler = log.NewTerminalHandlerWithLevel(os.Stderr, level, useColor)
	}
	log.SetDefault(log.NewLogger(handler))
	return nil
}

func handleExitSignal() context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		exitSignalCh := make(chan os.Signal, 1)
		signal.Notify(exitSignalCh, os.Interrupt, syscall.SIGTERM)

		sig := <-exitSignalCh
		logger.Info("exit signal received", "signal", sig)
		cancel()
	}()
	return ctx
}

func defaultDataDir() string {
	if home := homeDir(); home != "" {
		switch runtime.GOOS {
		case "darwin":
			return filepath.Join(home, "Library", "Application Support", "org.vechain.delegator")
		case "windows":
			return filepath.Join(home, "AppData", "Roaming", "org.vechain.delegator")
		default:
			return filepath.Join(home, ".org.vechain.delegator")
		}
	}
	return ""
}

func homeDir() string {
	if home := os.Getenv("HOME"); home != "" {
		return home
	}
	if usr, err := user.Current(); err == nil {
		return usr.HomeDir
	}
	return ""
}

func normalizeCacheSize(sizeMB int) int {
	if sizeMB < 16 {
		sizeMB = 16
	}

	var mem gosigar.Mem
	if err := mem.Get(); err != nil {
		logger.Warn("failed to get total mem:", "err", err)
	} else {
		// limit to 1/4 os physical ram
		limitMB := int(mem.Total / 1024 / 1024 / 4)
		if sizeMB > limitMB {
			sizeMB = limitMB
			logger.Warn("cache size(MB) limited", "limit", limitMB)
		}
	}
	return sizeMB
}

func suggestFDCache() int {
	limit, err := fdlimit.Current()
	if err != nil {
		logger.Warn("failed to get fd limit", "err", err)
		return 500
	}
	if limit <= 1024 {
		logger.Warn("low fd limit, increase it if possible", "limit", limit)
	}

	n := limit / 2
	if n > 5120 {
		return 5120
	}
	return n
}

// components are the stores and services shared by every command.
type components struct {
	dataDir  string
	mainDB   *lvldb.LevelDB
	eventDB  *devents.DB
	emitter  *devents.Emitter
	settings *settings.Settings
	registry *node.Registry
	health   *health.Health
	clock    *blockClock
	deleg    *delegation.Delegation
}

func loadConfig(ctx *cli.Context) (*settings.Config, error) {
	path := ctx.String(configFlag.Name)
	if path == "" {
		cfg := settings.DefaultConfig()
		logger.Warn("no config file given, using defaults")
		return &cfg, nil
	}
	return settings.LoadConfig(path)
}

func openComponents(ctx *cli.Context) (c *components, err error) {
	cfg, err := loadConfig(ctx)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	dataDir := ctx.String(dataDirFlag.Name)
	if dataDir == "" {
		return nil, errors.New("unable to infer default data dir, use --data-dir to specify")
	}
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, errors.Wrapf(err, "create data dir [%v]", dataDir)
	}

	c = &components{dataDir: dataDir}
	defer func() {
		if err != nil {
			c.Close()
		}
	}()

	cacheMB := normalizeCacheSize(ctx.Int(cacheFlag.Name))
	logger.Debug("cache size(MB)", "size", cacheMB)
	dir := filepath.Join(dataDir, "main.db")
	if c.mainDB, err = lvldb.New(dir, lvldb.Options{
		CacheSize:              cacheMB,
		OpenFilesCacheCapacity: suggestFDCache(),
	}); err != nil {
		return nil, errors.Wrapf(err, "open main database [%v]", dir)
	}

	dir = filepath.Join(dataDir, "events.db")
	if c.eventDB, err = devents.New(dir); err != nil {
		return nil, errors.Wrapf(err, "open event database [%v]", dir)
	}
	c.emitter = devents.NewEmitter(c.eventDB)

	if c.settings, err = settings.New(kv.Bucket("s").NewStore(c.mainDB), *cfg); err != nil {
		return nil, err
	}
	interval := ctx.Duration(blockIntervalFlag.Name)
	c.health = health.New(interval)
	if c.clock, err = newBlockClock(kv.Bucket("c").NewStore(c.mainDB), interval, c.health); err != nil {
		return nil, err
	}
	c.registry = node.NewRegistry(kv.Bucket("n").NewStore(c.mainDB))
	ledger := fund.NewLedger(kv.Bucket("f").NewStore(c.mainDB))

	c.deleg = delegation.New(kv.Bucket("d").NewStore(c.mainDB), delegation.Params{
		Registry: c.registry,
		Funds:    fund.NewEngine(ledger),
		Settings: c.settings,
		Rewards:  rewards.New(kv.Bucket("r").NewStore(c.mainDB), ledger),
		Events:   c.emitter,
		Blocks:   c.clock,
	})
	return c, nil
}

func (c *components) Close() {
	if c.eventDB != nil {
		logger.Info("closing event database...")
		if err := c.eventDB.Close(); err != nil {
			logger.Warn("failed to close event database", "err", err)
		}
	}
	if c.mainDB != nil {
		logger.Info("closing main database...")
		if err := c.mainDB.Close(); err != nil {
			logger.Warn("failed to close main database", "err", err)
		}
	}
}

// startServer serves handler on addr until the returned stop function is
// called. The returned URL is built from the bound address.
func startServer(name, addr string, handler http.Handler) (string, func(), error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return "", nil, errors.Wrapf(err, "listen %v addr [%v]", name, addr)
	}
	srv := &http.Server{Handler: handler, ReadHeaderTimeout: time.Second, ReadTimeout: 5 * time.Second}
	var goes sync.WaitGroup
	goes.Go(func() {
		if err := srv.Serve(listener); err != nil && err != http.ErrServerClosed {
			logger.Warn("server stopped", "name", name, "err", err)
		}
	})
	return "http://" + listener.Addr().String(), func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			srv.Close()
		}
		goes.Wait()
	}, nil
}

func startAPIServer(addr string, handler http.Handler) (string, func(), error) {
	url, stop, err := startServer("API", addr, handler)
	return url + "/", stop, err
}

func startMetricsServer(addr string) (string, func(), error) {
	router := mux.NewRouter()
	router.PathPrefix("/metrics").Handler(metrics.HTTPHandler())
	url, stop, err := startServer("metrics", addr, handlers.CompressHandler(router))
	return url + "/metrics", stop, err
}

func printStartupMessage(c *components, apiURL, metricsURL string) {
	bootstrap, _ := c.settings.IsBootstrapMode()
	numNodes, _ := c.registry.NumNodes()

	if metricsURL == "" {
		metricsURL = "Disabled"
	}
	fmt.Printf(`Starting %v
    Owner          [ %v ]
    Stake per node [ %v ]
    Bootstrap      [ %v ]
    Nodes          [ %v ]
    Block          [ %v ]
    Data dir       [ %v ]
    API portal     [ %v ]
    Metrics        [ %v ]
`,
		"Delegator "+fullVersion(),
		c.settings.OwnerID(),
		c.settings.StakePerNode(),
		bootstrap,
		numNodes,
		c.clock.BlockNumber(),
		c.dataDir,
		apiURL,
		metricsURL,
	)
}
