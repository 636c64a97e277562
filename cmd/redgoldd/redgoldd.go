// Copyright (c) 2024 The redgold developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	// Register the pgx driver under name "pgx".
	_ "github.com/jackc/pgx/v5/stdlib"

	// Register SQLite driver under name "sqlite".
	_ "modernc.org/sqlite"

	"golang.org/x/sync/errgroup"

	"github.com/redgold-io/redgold-core/config"
	"github.com/redgold-io/redgold-core/party"
	"github.com/redgold-io/redgold-core/peerstore"
	"github.com/redgold-io/redgold-core/schema"
)

const semanticVersion = "0.1.0"

var cfg *config.Config

func main() {
	if err := daemonMain(); err != nil {
		os.Exit(1)
	}
}

// daemonMain runs the daemon until an interrupt or a fatal error.
func daemonMain() error {
	tcfg, _, err := config.Load("redgoldd", semanticVersion)
	if err != nil {
		return err
	}
	cfg = tcfg

	if err := parseAndSetDebugLevels(cfg.DebugLevel); err != nil {
		log.Errorf("Invalid debug level: %v", err)
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, db, err := openStore(ctx)
	if err != nil {
		log.Errorf("Unable to open peer store: %v", err)
		return err
	}
	defer db.Close()

	feed := newFeed()
	log.Infof("Version %s starting on %s network", semanticVersion,
		cfg.Network())

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return priceLoop(gctx, feed)
	})
	g.Go(func() error {
		return peerReportLoop(gctx, store)
	})
	err = g.Wait()
	if err != nil && err != context.Canceled {
		log.Errorf("Daemon exiting: %v", err)
		return err
	}
	log.Infof("Shutdown complete")
	return nil
}

// openStore opens the configured database backend and runs
// migrations.
func openStore(ctx context.Context) (*peerstore.Store, *sql.DB, error) {
	driver, dsn := "sqlite", "file:"+cfg.DBPath+"?mode=rwc&_fk=1"
	if cfg.PostgresDSN != "" {
		driver, dsn = "pgx", cfg.PostgresDSN
	} else {
		if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0700); err != nil {
			return nil, nil, err
		}
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, nil, err
	}
	store := peerstore.New(db,
		peerstore.WithLivenessWindow(cfg.LivenessWindow))
	if err := store.Migrate(ctx); err != nil {
		db.Close()
		return nil, nil, err
	}
	log.Infof("Peer store open (%s)", driver)
	return store, db, nil
}

// newFeed constructs the oracle client, honoring a configured base
// URL override.
func newFeed() *party.PriceFeed {
	if cfg.PriceFeedURL != "" {
		return party.NewPriceFeedURL(cfg.PriceFeedURL)
	}
	return party.NewPriceFeed()
}

// priceLoop polls the oracle for supported external currencies and
// logs quote changes. Individual poll failures are logged and retried
// on the next tick.
func priceLoop(ctx context.Context, feed *party.PriceFeed) error {
	ticker := time.NewTicker(cfg.PollInterval)
	defer ticker.Stop()

	currencies := []schema.Currency{schema.Bitcoin, schema.Ethereum}
	last := make(map[schema.Currency]float64)
	for {
		for _, cur := range currencies {
			price, err := feed.QueryPrice(ctx, time.Now().UnixMilli(), cur)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				log.Warnf("Price query for %s failed: %v", cur, err)
				continue
			}
			if price != last[cur] {
				log.Infof("Spot price %s/USD: %.2f", cur, price)
				last[cur] = price
			}
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// peerReportLoop periodically reports the size of the active peer
// set.
func peerReportLoop(ctx context.Context, store *peerstore.Store) error {
	ticker := time.NewTicker(cfg.PollInterval)
	defer ticker.Stop()

	for {
		keys, err := store.ActiveNodes(ctx, false)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.Warnf("Active node query failed: %v", err)
		} else {
			log.Debugf("%d active nodes", len(keys))
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
