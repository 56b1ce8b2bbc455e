// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"time"

	cli "gopkg.in/urfave/cli.v1"
)

var (
	configFlag = cli.StringFlag{
		Name:  "config",
		Usage: "path to the pool configuration file (yaml)",
	}
	dataDirFlag = cli.StringFlag{
		Name:  "data-dir",
		Value: defaultDataDir(),
		Usage: "directory for pool databases",
	}
	cacheFlag = cli.IntFlag{
		Name:  "cache",
		Value: 256,
		Usage: "megabytes of ram allocated to the internal database cache",
	}
	apiAddrFlag = cli.StringFlag{
		Name:  "api-addr",
		Value: "localhost:8669",
		Usage: "API service listening address",
	}
	apiCorsFlag = cli.StringFlag{
		Name:  "api-cors",
		Value: "",
		Usage: "comma separated list of domains from which to accept cross origin requests to API",
	}
	apiEventsLimitFlag = cli.Uint64Flag{
		Name:  "api-events-limit",
		Value: 1000,
		Usage: "limit the number of events returned by /events API",
	}
	enableAPILogsFlag = cli.BoolFlag{
		Name:  "enable-api-logs",
		Usage: "enables API requests logging",
	}
	simulateAuctionFlag = cli.BoolFlag{
		Name:  "simulate-auction",
		Usage: "answer authority requests with an in-process simulator that accepts every node",
	}
	auctionURLFlag = cli.StringFlag{
		Name:  "auction-url",
		Usage: "base URL of the staking authority; responses are expected on POST /auction/responses",
	}
	blockIntervalFlag = cli.DurationFlag{
		Name:  "block-interval",
		Value: 10 * time.Second,
		Usage: "interval between block number increments",
	}
	enableMetricsFlag = cli.BoolFlag{
		Name:  "enable-metrics",
		Usage: "enables metrics collection",
	}
	metricsAddrFlag = cli.StringFlag{
		Name:  "metrics-addr",
		Value: "localhost:2112",
		Usage: "metrics service listening address",
	}
	verbosityFlag = cli.IntFlag{
		Name:  "verbosity",
		Value: 3,
		Usage: "log verbosity (0-5)",
	}
	jsonLogsFlag = cli.BoolFlag{
		Name:  "json-logs",
		Usage: "output logs in JSON format",
	}

	// import-nodes
	nodesFileFlag = cli.StringFlag{
		Name:  "file",
		Usage: "yaml file listing the nodes to register",
	}
	batchSizeFlag = cli.IntFlag{
		Name:  "batch-size",
		Value: 64,
		Usage: "number of nodes registered per batch",
	}
	skipExistingFlag = cli.BoolFlag{
		Name:  "skip-existing",
		Usage: "skip nodes whose key is already registered instead of failing",
	}
)
