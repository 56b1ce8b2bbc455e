// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
	cli "gopkg.in/urfave/cli.v1"

	"github.com/vechain/delegator/api"
	"github.com/vechain/delegator/delegation/auction"
	"github.com/vechain/delegator/delegation/dispatch"
	"github.com/vechain/delegator/log"
	"github.com/vechain/delegator/metrics"
)

var (
	version   string
	gitCommit string
	gitTag    string
	logger    = log.WithContext("pkg", "main")
)

func fullVersion() string {
	versionMeta := "release"
	if gitTag == "" {
		versionMeta = "dev"
	}
	return fmt.Sprintf("%s-%s-%s", version, gitCommit, versionMeta)
}

func main() {
	app := cli.App{
		Version:   fullVersion(),
		Name:      "Delegator",
		Usage:     "Node activation service of a VeChain delegation pool",
		Copyright: "2025 VeChain Foundation <https://vechain.org/>",
		Flags: []cli.Flag{
			configFlag,
			dataDirFlag,
			cacheFlag,
			apiAddrFlag,
			apiCorsFlag,
			apiEventsLimitFlag,
			enableAPILogsFlag,
			simulateAuctionFlag,
			auctionURLFlag,
			blockIntervalFlag,
			enableMetricsFlag,
			metricsAddrFlag,
			verbosityFlag,
			jsonLogsFlag,
		},
		Action: defaultAction,
		Commands: []cli.Command{
			{
				Name:  "import-nodes",
				Usage: "Register validator nodes listed in a yaml file",
				Flags: []cli.Flag{
					configFlag,
					dataDirFlag,
					cacheFlag,
					nodesFileFlag,
					batchSizeFlag,
					skipExistingFlag,
					blockIntervalFlag,
					verbosityFlag,
					jsonLogsFlag,
				},
				Action: importNodesAction,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func defaultAction(ctx *cli.Context) error {
	exitSignal := handleExitSignal()
	defer func() { logger.Info("exited") }()

	if err := initLogger(ctx); err != nil {
		return err
	}
	if ctx.Bool(enableMetricsFlag.Name) {
		metrics.InitializePrometheusMetrics()
	}

	c, err := openComponents(ctx)
	if err != nil {
		return err
	}
	defer c.Close()

	var (
		disp      *dispatch.Dispatcher
		authority auction.Authority
	)
	switch {
	case ctx.Bool(simulateAuctionFlag.Name):
		sim := auction.NewSimulator(func(resp *auction.Response) {
			if _, err := disp.Deliver(exitSignal, resp); err != nil {
				logger.Warn("failed to deliver simulated response", "id", resp.RequestID, "err", err)
			}
		})
		defer sim.Wait()
		authority = sim
	case ctx.String(auctionURLFlag.Name) != "":
		authority = auction.NewClient(strings.TrimRight(ctx.String(auctionURLFlag.Name), "/"))
	default:
		return errors.New("either --simulate-auction or --auction-url is required")
	}
	disp = dispatch.New(c.deleg, authority)
	defer disp.Wait()

	handler, closeAPI := api.New(c.deleg, disp, c.emitter, api.Options{
		AllowedOrigins:  ctx.String(apiCorsFlag.Name),
		EnableReqLogger: ctx.Bool(enableAPILogsFlag.Name),
		EnableMetrics:   ctx.Bool(enableMetricsFlag.Name),
		EventsLimit:     ctx.Uint64(apiEventsLimitFlag.Name),
		Health:          c.health,
	})
	defer closeAPI()

	apiURL, stopAPI, err := startAPIServer(ctx.String(apiAddrFlag.Name), handler)
	if err != nil {
		return err
	}
	defer func() { logger.Info("stopping API server..."); stopAPI() }()

	metricsURL := ""
	if ctx.Bool(enableMetricsFlag.Name) {
		url, stopMetrics, err := startMetricsServer(ctx.String(metricsAddrFlag.Name))
		if err != nil {
			return err
		}
		defer func() { logger.Info("stopping metrics server..."); stopMetrics() }()
		metricsURL = url
	}

	printStartupMessage(c, apiURL, metricsURL)

	g, gctx := errgroup.WithContext(exitSignal)
	g.Go(func() error {
		c.health.DispatcherStatus(true)
		defer c.health.DispatcherStatus(false)
		disp.Run(gctx)
		return nil
	})
	g.Go(func() error {
		return c.clock.Run(gctx)
	})
	return g.Wait()
}
