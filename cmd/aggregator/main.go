package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/banshee-data/vitals.report/internal/fleet"
	"github.com/banshee-data/vitals.report/internal/monitoring"
)

var (
	listen = flag.String("listen", ":5000", "Listen address")
	dbPath = flag.String("db", "fleet.db", "Path to the fleet sqlite database")
)

func main() {
	flag.Parse()
	monitoring.SetLogger(log.Printf)

	if *listen == "" {
		log.Fatal("Listen address is required")
	}

	store, err := fleet.Open(*dbPath)
	if err != nil {
		log.Fatalf("Failed to open fleet database: %v", err)
	}
	defer store.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	mux := newMux(store)

	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log.Printf("got request %s %q", r.Method, r.URL.Path)
		mux.ServeHTTP(w, r)
	})
	server := &http.Server{
		Addr:    *listen,
		Handler: h,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("failed to start server: %v", err)
		}
	}()
	log.Printf("aggregator listening on %s (db %s)", *listen, *dbPath)

	<-ctx.Done()
	log.Println("shutting down HTTP server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
		if err := server.Close(); err != nil {
			log.Printf("HTTP server force close error: %v", err)
		}
	}
	log.Printf("Graceful shutdown complete")
}

func newMux(store *fleet.Store) *http.ServeMux {
	mux := fleet.NewServer(store).ServeMux()
	if err := store.AttachAdminRoutes(mux); err != nil {
		log.Printf("admin routes disabled: %v", err)
	}
	return mux
}
