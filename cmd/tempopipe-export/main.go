// Command tempopipe-export hosts the store exporter and clock exporter
// sides of the remoting bridge (spec §6): it serves catalog+record
// replay to importers and answers clock-sync requests with its own
// file time.
package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"

	"github.com/charmbracelet/log"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/tempopipe/tempopipe/clock"
	tpconfig "github.com/tempopipe/tempopipe/config"
	"github.com/tempopipe/tempopipe/envelope"
	"github.com/tempopipe/tempopipe/remoting"
	"github.com/tempopipe/tempopipe/store"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "export.toml", "tempopipe-export configuration")
	flag.Parse()

	logger := log.NewWithOptions(os.Stderr, log.Options{Prefix: "export"})

	cfg, err := tpconfig.Load(configPath)
	if err != nil {
		logger.Warn("using defaults, could not load config", "path", configPath, "err", err)
		cfg = tpconfig.Default()
	}

	db, err := store.OpenCatalogDB(cfg.Store.CatalogDB)
	if err != nil {
		logger.Fatal("opening catalog db", "err", err)
	}
	defer db.Close()

	transport, err := remoting.NewQUICTransport()
	if err != nil {
		logger.Fatal("building transport", "err", err)
	}

	storeListener, err := transport.Listen(cfg.Remoting.StoreAddr)
	if err != nil {
		logger.Fatal("listening for store exporter", "addr", cfg.Remoting.StoreAddr, "err", err)
	}
	clockListener, err := transport.Listen(cfg.Remoting.ClockAddr)
	if err != nil {
		logger.Fatal("listening for clock exporter", "addr", cfg.Remoting.ClockAddr, "err", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	go serveStoreExporter(ctx, logger, storeListener, transport, db, cfg.Store)
	go serveClockExporter(ctx, logger, clockListener, cfg.MachineName)
	if cfg.MetricsAddr != "" {
		go serveMetrics(logger, cfg.MetricsAddr)
	}

	logger.Info("exporting", "store_addr", cfg.Remoting.StoreAddr, "clock_addr", cfg.Remoting.ClockAddr)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt)
	<-sig
	cancel()
	storeListener.Close()
	clockListener.Close()
}

// serveStoreExporter accepts meta-channel connections. Each session gets
// its own ephemeral data-channel listener; its address is handed back
// in the ServerHello's transport params so the importer knows where to
// dial for the record stream (spec §6's "separate connection" data
// channel, negotiated rather than fixed at a second well-known port).
func serveStoreExporter(ctx context.Context, logger *log.Logger, l remoting.Listener, transport remoting.Transport, db *store.CatalogDB, storeCfg tpconfig.StoreConfig) {
	for {
		conn, err := l.Accept(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Error("accept failed", "err", err)
			continue
		}
		go handleStoreSession(ctx, logger, conn, transport, db, storeCfg)
	}
}

func handleStoreSession(ctx context.Context, logger *log.Logger, metaConn remoting.Conn, transport remoting.Transport, db *store.CatalogDB, storeCfg tpconfig.StoreConfig) {
	defer metaConn.Close()

	dataListener, err := transport.Listen("127.0.0.1:0")
	if err != nil {
		logger.Error("opening data channel listener", "err", err)
		return
	}
	defer dataListener.Close()

	params := map[string]string{"data_addr": dataListener.Addr()}
	sessionGUID, err := remoting.ServeMetaChannel(metaConn, transport.Name(), params, db)
	if err != nil {
		logger.Error("meta channel handshake failed", "err", err)
		return
	}

	dataConn, err := dataListener.Accept(ctx)
	if err != nil {
		logger.Error("accepting data channel", "err", err)
		return
	}
	defer dataConn.Close()

	gotGUID, err := remoting.ReceiveDataChannelGUID(dataConn)
	if err != nil {
		logger.Error("reading data channel session guid", "err", err)
		return
	}
	if gotGUID != sessionGUID {
		logger.Error("data channel session guid mismatch", "want", sessionGUID, "got", gotGUID)
		return
	}

	paths, err := store.ListSegments(storeCfg.Dir, storeCfg.StreamName)
	if err != nil {
		logger.Error("listing segments", "err", err)
		return
	}
	if err := store.CopySegments(dataConn, paths); err != nil {
		logger.Error("streaming segments", "err", err)
	}
}

// serveMetrics mounts the prometheus scrape endpoint. Not a
// visualization front-end: just the counters a host's existing
// monitoring stack pulls from.
func serveMetrics(logger *log.Logger, addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Error("metrics server stopped", "err", err)
	}
}

func serveClockExporter(ctx context.Context, logger *log.Logger, l remoting.Listener, machineName string) {
	vc := clock.NewVirtualClock(envelope.Now())
	for {
		conn, err := l.Accept(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Error("accept failed", "err", err)
			continue
		}
		go func() {
			defer conn.Close()
			if err := remoting.ServeClockSync(conn, vc.Now(), machineName); err != nil {
				logger.Error("clock sync failed", "err", err)
			}
		}()
	}
}
