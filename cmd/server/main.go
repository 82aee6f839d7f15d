package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"golang.org/x/time/rate"

	"github.com/WiredSound/gemgame/internal/config"
	"github.com/WiredSound/gemgame/internal/session"
	"github.com/WiredSound/gemgame/internal/transport/ws"
	"github.com/WiredSound/gemgame/internal/world"
	"github.com/WiredSound/gemgame/internal/world/store"
	"github.com/WiredSound/gemgame/internal/world/terrain"
)

func main() {
	var (
		addr       = flag.String("addr", ":8080", "http listen address")
		dataDir    = flag.String("data", "./data", "runtime data directory")
		dbPath     = flag.String("db", "", "session database path (default: <data>/sessions.db, empty data dir disables persistence)")
		seed       = flag.Int64("seed", 1337, "terrain seed")
		configDir  = flag.String("configs", "./configs", "config directory")
		tuningPath = flag.String("tuning", "", "path to tuning.yaml (default: <configs>/tuning.yaml)")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lmicroseconds)

	tp := strings.TrimSpace(*tuningPath)
	if tp == "" {
		tp = filepath.Join(*configDir, "tuning.yaml")
	}
	tune, err := config.LoadOrDefault(tp)
	if err != nil {
		logger.Fatalf("load tuning: %v", err)
	}

	_ = os.MkdirAll(*dataDir, 0o755)

	dp := strings.TrimSpace(*dbPath)
	if dp == "" {
		dp = filepath.Join(*dataDir, "sessions.db")
	}
	sessions, err := session.Open(dp, logger)
	if err != nil {
		// Degraded but running: every client becomes ephemeral.
		logger.Printf("session store unavailable, sessions will not persist: %v", err)
		sessions = nil
	} else {
		defer sessions.Close()
	}

	chunkDir := ""
	if tune.PersistChunks {
		chunkDir = filepath.Join(*dataDir, "chunks")
		_ = os.MkdirAll(chunkDir, 0o755)
	}

	chunks := store.NewChunkStore(terrain.NewOverworld(*seed), chunkDir, logger)
	w := world.New(chunks, world.Config{
		MoveInterval: tune.MoveInterval(),
		HubBuffer:    tune.HubBuffer,
	}, logger)

	wsSrv := ws.NewServer(w, sessions, ws.Config{
		FrameRate:  rate.Limit(tune.FrameRatePerSec),
		FrameBurst: tune.FrameBurst,
	}, logger)

	ctx, cancel := signalContext()
	defer cancel()

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(200)
		_, _ = rw.Write([]byte("ok"))
	})
	mux.HandleFunc("/metrics", func(rw http.ResponseWriter, r *http.Request) {
		rw.Header().Set("Content-Type", "text/plain; version=0.0.4")

		fmt.Fprintf(rw, "# HELP gemgame_entities Currently attached entities.\n")
		fmt.Fprintf(rw, "# TYPE gemgame_entities gauge\n")
		fmt.Fprintf(rw, "gemgame_entities %d\n", w.EntityCount())

		fmt.Fprintf(rw, "# HELP gemgame_loaded_chunks Chunks resident in memory.\n")
		fmt.Fprintf(rw, "# TYPE gemgame_loaded_chunks gauge\n")
		fmt.Fprintf(rw, "gemgame_loaded_chunks %d\n", w.LoadedChunks())
	})
	mux.HandleFunc("/v1/ws", wsSrv.Handler())

	srv := &http.Server{
		Addr:              *addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		_ = srv.Shutdown(ctx2)
	}()

	logger.Printf("listening on %s (seed %d)", *addr, *seed)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("ListenAndServe: %v", err)
	}
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}
