// Command duskchain runs a single node of the network: it loads its
// wallet and configuration, constructs the chain/UTXO/mempool/peer
// aggregate, and serves both the peer gossip listener and the HTTP
// control surface, per spec §4.H's construction order.
package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/duskline/duskchain/internal/config"
	"github.com/duskline/duskchain/internal/gossip"
	"github.com/duskline/duskchain/internal/httpapi"
	"github.com/duskline/duskchain/internal/node"
	"github.com/duskline/duskchain/internal/wallet"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	log := cfg.NewLogger()

	w, err := wallet.Load(cfg.PrivateKey)
	if err != nil {
		log.Error("failed to load wallet", "path", cfg.PrivateKey, "error", err)
		os.Exit(1)
	}
	log.Info("wallet loaded", "address", w.Address())

	n := node.New(w, log)
	hub := gossip.NewHub(n, log)
	n.SetHub(hub)
	go n.Run()

	p2pMux := http.NewServeMux()
	p2pMux.HandleFunc("/ws", hub.ServeWS)
	p2pAddr := fmt.Sprintf(":%d", cfg.P2PPort)
	go func() {
		log.Info("peer listener starting", "addr", p2pAddr)
		if err := http.ListenAndServe(p2pAddr, p2pMux); err != nil {
			log.Error("peer listener stopped", "error", err)
			os.Exit(1)
		}
	}()

	api := httpapi.New(n, log)
	httpAddr := fmt.Sprintf(":%d", cfg.HTTPPort)
	log.Info("control surface starting", "addr", httpAddr)
	if err := http.ListenAndServe(httpAddr, api.Router()); err != nil {
		log.Error("control surface stopped", "error", err)
		os.Exit(1)
	}
}
