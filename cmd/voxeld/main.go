package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"voxelmesh/internal/config"
	"voxelmesh/internal/meshsink"
	"voxelmesh/internal/profiling"
	"voxelmesh/internal/storage"
	"voxelmesh/internal/voxel"
	"voxelmesh/internal/world"
)

func main() {
	cfg := config.DefaultConfig()
	configPath := flag.String("config", "", "JSON config file; explicit flags win over its values")
	tick := flag.Duration("tick", 100*time.Millisecond, "mesh publish interval")
	bindFlags(cfg)
	flag.Parse()

	if *configPath != "" {
		fromFile, err := config.Load(*configPath)
		if err != nil {
			log.Fatalf("[Config] %v", err)
		}
		explicit := make(map[string]bool)
		flag.Visit(func(f *flag.Flag) { explicit[f.Name] = true })
		config.Merge(cfg, fromFile, explicit)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("[Config] %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfg, *tick); err != nil {
		log.Printf("[Server] %v", err)
		os.Exit(1)
	}
}

func bindFlags(cfg *config.Config) {
	flag.Int64Var(&cfg.Seed, "seed", cfg.Seed, "terrain seed")
	flag.IntVar(&cfg.ChunkSizeX, "chunk-size-x", cfg.ChunkSizeX, "chunk width along X")
	flag.IntVar(&cfg.ChunkSizeZ, "chunk-size-z", cfg.ChunkSizeZ, "chunk width along Z")
	flag.IntVar(&cfg.WorldHeight, "world-height", cfg.WorldHeight, "world height in voxels")
	flag.IntVar(&cfg.BaseHeight, "base-height", cfg.BaseHeight, "mean terrain height")
	flag.Float64Var(&cfg.Amplitude, "amplitude", cfg.Amplitude, "terrain height variation")
	flag.IntVar(&cfg.Workers, "workers", cfg.Workers, "generation workers (0 = one per CPU)")
	flag.IntVar(&cfg.QueueSize, "queue-size", cfg.QueueSize, "pending generation jobs")
	flag.IntVar(&cfg.LoadRadius, "load-radius", cfg.LoadRadius, "chunks loaded around the origin")
	flag.StringVar(&cfg.DBPath, "db", cfg.DBPath, "SQLite file for chunk persistence (empty disables it)")
	flag.StringVar(&cfg.ListenAddr, "listen", cfg.ListenAddr, "HTTP listen address")
}

func run(ctx context.Context, cfg *config.Config, tick time.Duration) error {
	gen := world.NewGenerator(cfg.Seed).WithShape(cfg.BaseHeight, cfg.Amplitude, cfg.WorldHeight)

	var opts []world.Option
	if cfg.DBPath != "" {
		store, err := storage.Open(cfg.DBPath, cfg.Seed)
		if err != nil {
			return err
		}
		defer store.Close()
		opts = append(opts, world.WithPersister(store))
	}

	w := world.New(*cfg, gen, opts...)
	defer w.Close()

	start := time.Now()
	chunks, err := w.LoadArea(ctx, world.ChunkCoord{}, cfg.LoadRadius)
	if err != nil {
		return fmt.Errorf("initial load: %w", err)
	}
	log.Printf("[Server] %d chunks ready in %v", len(chunks), time.Since(start).Round(time.Millisecond))

	hub := meshsink.NewHub(1024)
	pub := meshsink.NewPublisher(hub)
	pub.Sync(w.Store())
	go hub.Run(ctx)

	mux := http.NewServeMux()
	mux.Handle("/ws", hub)
	mux.HandleFunc("/edit", editHandler(w))
	mux.HandleFunc("/stats", statsHandler(w, hub))
	srv := &http.Server{Addr: cfg.ListenAddr, Handler: mux}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("[Server] listening on %s", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	ticker := time.NewTicker(tick)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return shutdown(srv, w)
		case err := <-errCh:
			shutdown(srv, w)
			return err
		case <-ticker.C:
			pub.Sync(w.Store())
		}
	}
}

func shutdown(srv *http.Server, w *world.World) error {
	sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		log.Printf("[Server] shutdown: %v", err)
	}
	n, err := w.SaveDirty()
	log.Printf("[Server] saved %d chunks", n)
	log.Printf("[Server] timings: %s", profiling.TopN(8))
	return err
}

// editHandler serves POST /edit?x=&y=&z=&data=. data is a material id; 0 removes the voxel.
func editHandler(w *world.World) http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(rw, "POST only", http.StatusMethodNotAllowed)
			return
		}
		q := r.URL.Query()
		var coords [4]int
		for i, key := range []string{"x", "y", "z", "data"} {
			v, err := strconv.Atoi(q.Get(key))
			if err != nil {
				http.Error(rw, fmt.Sprintf("bad %s: %v", key, err), http.StatusBadRequest)
				return
			}
			coords[i] = v
		}
		if coords[3] < 0 || coords[3] > int(voxel.Grass) {
			http.Error(rw, "unknown material", http.StatusBadRequest)
			return
		}
		pos := voxel.Pos{X: coords[0], Y: coords[1], Z: coords[2]}
		res, err := w.ApplyEdit(pos, voxel.DataID(coords[3]))
		switch {
		case errors.Is(err, world.ErrOutOfBounds):
			http.Error(rw, err.Error(), http.StatusBadRequest)
			return
		case errors.Is(err, world.ErrChunkNotLoaded):
			http.Error(rw, err.Error(), http.StatusConflict)
			return
		case err != nil:
			http.Error(rw, err.Error(), http.StatusInternalServerError)
			return
		}
		rw.Header().Set("Content-Type", "application/json")
		json.NewEncoder(rw).Encode(res)
	}
}

type statsResponse struct {
	Chunks  int                         `json:"chunks"`
	Viewers int                         `json:"viewers"`
	Records int                         `json:"records"`
	Quads   int                         `json:"quads"`
	Free    int                         `json:"free_slots"`
	Timings map[string]profiling.Sample `json:"timings"`
}

func statsHandler(w *world.World, hub *meshsink.Hub) http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		resp := statsResponse{Viewers: hub.Clients(), Timings: profiling.Snapshot()}
		for _, c := range w.Store().AllChunks() {
			s := c.Stats()
			resp.Chunks++
			resp.Records += s.Records
			resp.Quads += s.LiveQuads
			resp.Free += s.FreeSlots
		}
		rw.Header().Set("Content-Type", "application/json")
		json.NewEncoder(rw).Encode(resp)
	}
}
