// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/cheggaaa/pb.v1"
	cli "gopkg.in/urfave/cli.v1"
	"gopkg.in/yaml.v3"

	"github.com/vechain/delegator/thor"
)

type nodeEntry struct {
	Key       thor.BLSKey       `yaml:"key"`
	Signature thor.BLSSignature `yaml:"signature"`
}

type nodesFile struct {
	Nodes []nodeEntry `yaml:"nodes"`
}

func loadNodesFile(path string) ([]nodeEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open nodes file")
	}
	defer f.Close()

	var file nodesFile
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		return nil, errors.Wrap(err, "decode nodes file")
	}
	seen := make(map[thor.BLSKey]bool, len(file.Nodes))
	for i, n := range file.Nodes {
		if n.Key.IsZero() {
			return nil, errors.Errorf("nodes[%d]: missing key", i)
		}
		if seen[n.Key] {
			return nil, errors.Errorf("nodes[%d]: duplicate key %v", i, n.Key.AbbrevString())
		}
		seen[n.Key] = true
	}
	return file.Nodes, nil
}

// keyResolver resolves a BLS key to its registered id, 0 if unknown.
type keyResolver interface {
	ResolveID(key thor.BLSKey) (uint64, error)
}

// filterNew drops entries whose key is already registered.
func filterNew(entries []nodeEntry, r keyResolver) ([]nodeEntry, int, error) {
	out := entries[:0:0]
	skipped := 0
	for _, e := range entries {
		id, err := r.ResolveID(e.Key)
		if err != nil {
			return nil, 0, err
		}
		if id != 0 {
			skipped++
			continue
		}
		out = append(out, e)
	}
	return out, skipped, nil
}

// addFunc registers a batch of nodes on behalf of caller.
type addFunc func(caller uint64, keys []thor.BLSKey, sigs []thor.BLSSignature) ([]uint64, error)

func importNodes(entries []nodeEntry, batchSize int, caller uint64, add addFunc, bar *pb.ProgressBar) (int, error) {
	if batchSize <= 0 {
		return 0, errors.New("batch size must be positive")
	}
	imported := 0
	for start := 0; start < len(entries); start += batchSize {
		end := min(start+batchSize, len(entries))
		keys := make([]thor.BLSKey, 0, end-start)
		sigs := make([]thor.BLSSignature, 0, end-start)
		for _, e := range entries[start:end] {
			keys = append(keys, e.Key)
			sigs = append(sigs, e.Signature)
		}
		ids, err := add(caller, keys, sigs)
		if err != nil {
			return imported, errors.WithMessagef(err, "nodes[%d:%d]", start, end)
		}
		imported += len(ids)
		if bar != nil {
			bar.Add(len(ids))
		}
	}
	return imported, nil
}

func importNodesAction(ctx *cli.Context) error {
	defer func() { logger.Info("exited") }()

	if err := initLogger(ctx); err != nil {
		return err
	}
	path := ctx.String(nodesFileFlag.Name)
	if path == "" {
		return errors.New("--file is required")
	}
	entries, err := loadNodesFile(path)
	if err != nil {
		return err
	}

	c, err := openComponents(ctx)
	if err != nil {
		return err
	}
	defer c.Close()

	if ctx.Bool(skipExistingFlag.Name) {
		var skipped int
		if entries, skipped, err = filterNew(entries, c.registry); err != nil {
			return err
		}
		if skipped > 0 {
			logger.Info("skipping registered nodes", "count", skipped)
		}
	}
	if len(entries) == 0 {
		logger.Info("no nodes to import")
		return nil
	}

	bar := pb.New(len(entries)).
		SetMaxWidth(90).
		Prefix("importing nodes ")
	bar.Start()
	defer func() { bar.NotPrint = true }()

	n, err := importNodes(entries, ctx.Int(batchSizeFlag.Name), c.settings.OwnerID(), c.deleg.AddNodes, bar)
	if err != nil {
		return err
	}
	bar.Finish()
	logger.Info("nodes imported", "count", n)
	return nil
}
