package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/NicolasCrausaz-HEIG-VD/PLM-ElmO-Game/internal/logging"
	"github.com/NicolasCrausaz-HEIG-VD/PLM-ElmO-Game/internal/rendezvous"
)

func main() {
	addr := flag.String("addr", ":8080", "listen address")
	flag.Parse()

	logging.Init()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	// 1. Create the Hub and run its event loop
	hub := rendezvous.NewHub(slog.Default())
	go hub.Run(ctx)

	// 2. Serve /ws and /health
	server := &http.Server{
		Addr:              *addr,
		Handler:           rendezvous.NewMux(hub),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	log.Printf("Starting rendezvous server on %s", *addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("rendezvous server stopped", "error", err)
		os.Exit(1)
	}
}
