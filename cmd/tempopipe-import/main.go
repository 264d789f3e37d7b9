// Command tempopipe-import dials a tempopipe-export host, mirrors its
// catalog and stream records into a local store, and synchronizes this
// machine's virtual clock against the remote's (spec §6).
package main

import (
	"context"
	"flag"
	"net/http"
	"os"

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
	var remoteStoreAddr string
	var remoteClockAddr string
	flag.StringVar(&configPath, "config", "import.toml", "tempopipe-import configuration")
	flag.StringVar(&remoteStoreAddr, "remote-store", "", "remote store exporter address (host:port)")
	flag.StringVar(&remoteClockAddr, "remote-clock", "", "remote clock exporter address (host:port)")
	flag.Parse()

	logger := log.NewWithOptions(os.Stderr, log.Options{Prefix: "import"})

	cfg, err := tpconfig.Load(configPath)
	if err != nil {
		logger.Warn("using defaults, could not load config", "path", configPath, "err", err)
		cfg = tpconfig.Default()
	}
	if remoteStoreAddr == "" {
		remoteStoreAddr = cfg.Remoting.StoreAddr
	}
	if remoteClockAddr == "" {
		remoteClockAddr = cfg.Remoting.ClockAddr
	}

	db, err := store.OpenCatalogDB(cfg.Store.CatalogDB)
	if err != nil {
		logger.Fatal("opening catalog db", "err", err)
	}
	defer db.Close()

	dst, err := store.Open(cfg.Store.Dir, cfg.Store.StreamName, store.RotationPolicy{
		MaxRecords: cfg.Store.MaxRecords,
		MaxBytes:   cfg.Store.MaxBytes,
	}, logger)
	if err != nil {
		logger.Fatal("opening local store", "err", err)
	}
	defer dst.Close()

	transport, err := remoting.NewQUICTransport()
	if err != nil {
		logger.Fatal("building transport", "err", err)
	}

	if cfg.MetricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			if err := http.ListenAndServe(cfg.MetricsAddr, mux); err != nil {
				logger.Error("metrics server stopped", "err", err)
			}
		}()
	}

	ctx := context.Background()

	vc := clock.NewVirtualClock(envelope.Now())
	if remoteClockAddr != "" {
		follower := remoting.NewClockFollower(vc, cfg.MachineName)
		if err := follower.SyncWithRetry(ctx, transport, remoteClockAddr, remoteClockAddr); err != nil {
			logger.Error("clock sync failed", "err", err)
		} else {
			logger.Info("clock synced", "offset", follower.Offset())
		}
	}

	metaConn, err := transport.Dial(ctx, remoteStoreAddr)
	if err != nil {
		logger.Fatal("dialing store exporter", "addr", remoteStoreAddr, "err", err)
	}
	hello := remoting.ClientHello{ReplayStartTicks: remoting.ReplayAllFromNow, ReplayEndTicks: int64(envelope.MaxDateTime)}
	serverHello, err := remoting.DialMetaChannel(metaConn, hello, db)
	if err != nil {
		logger.Fatal("meta channel handshake failed", "err", err)
	}
	logger.Info("catalog synced", "session", serverHello.SessionGUID, "transport", serverHello.TransportName)

	dataAddr := serverHello.TransportParams["data_addr"]
	if dataAddr == "" {
		logger.Fatal("server hello missing data_addr transport param")
	}
	dataConn, err := transport.Dial(ctx, dataAddr)
	if err != nil {
		logger.Fatal("dialing data channel", "addr", dataAddr, "err", err)
	}
	defer dataConn.Close()
	if err := remoting.SendDataChannelGUID(dataConn, serverHello.SessionGUID); err != nil {
		logger.Fatal("sending session guid", "err", err)
	}
	if err := remoting.ReceiveRecords(dataConn, dst); err != nil {
		logger.Error("receiving records", "err", err)
	}
}
