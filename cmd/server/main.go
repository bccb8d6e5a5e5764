package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"voxelspawn.ai/internal/persistence/indexdb"
	persistlog "voxelspawn.ai/internal/persistence/log"
	"voxelspawn.ai/internal/platform/otel"
	"voxelspawn.ai/internal/sim/catalogs"
	"voxelspawn.ai/internal/sim/multiworld"
	"voxelspawn.ai/internal/sim/spawnconfig"
)

func main() {
	var (
		addr       = flag.String("addr", ":8080", "http listen address")
		configDir  = flag.String("configs", "./configs", "config directory")
		worldsPath = flag.String("worlds", "", "worlds config path (default: <configs>/worlds.yaml)")
		spawnPath  = flag.String("spawn", "", "spawn config path (default: <configs>/spawn.yaml)")
		dataDir    = flag.String("data", "./data", "runtime data directory")
		disableDB  = flag.Bool("disable_db", false, "disable the sqlite spawn index")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lmicroseconds)

	wp := strings.TrimSpace(*worldsPath)
	if wp == "" {
		wp = filepath.Join(*configDir, "worlds.yaml")
	}
	sp := strings.TrimSpace(*spawnPath)
	if sp == "" {
		sp = filepath.Join(*configDir, "spawn.yaml")
	}

	cat, err := catalogs.Load(*configDir)
	if err != nil {
		logger.Fatalf("load catalogs: %v", err)
	}
	wcfg, err := multiworld.Load(wp)
	if err != nil {
		logger.Fatalf("load worlds config: %v", err)
	}
	scfg, err := loadSpawnConfig(sp)
	if err != nil {
		logger.Fatalf("load spawn config: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	shutdownTracing, err := otel.Setup(ctx, "voxelspawn-server")
	if err != nil {
		logger.Printf("otel setup: %v (tracing disabled)", err)
	}
	defer func() {
		ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		_ = shutdownTracing(ctx2)
	}()

	spawnLog := persistlog.NewSpawnLog(*dataDir)
	defer spawnLog.Close()
	recorders := []multiworld.Recorder{spawnLog}

	var idx *indexdb.SQLiteIndex
	if !*disableDB {
		idx, err = indexdb.OpenSQLite(filepath.Join(*dataDir, "index", "spawns.sqlite"))
		if err != nil {
			logger.Fatalf("open spawn index: %v", err)
		}
		defer idx.Close()
		recorders = append(recorders, idx)
	}

	mgr, err := multiworld.NewManager(wcfg, cat, scfg, multiworld.Options{
		Logger:    log.New(os.Stdout, "[spawn] ", log.LstdFlags|log.Lmicroseconds),
		Recorders: recorders,
	})
	if err != nil {
		logger.Fatalf("multiworld manager: %v", err)
	}

	admin, err := enableAdminHTTP()
	if err != nil {
		logger.Fatalf("server env: %v", err)
	}
	if !admin {
		logger.Printf("admin endpoints disabled (VOXELSPAWN_ENABLE_ADMIN_HTTP=false)")
	}

	a := &app{mgr: mgr, idx: idx, spawnPath: sp, log: logger}
	go a.reloadOnHangup(ctx)

	srv := &http.Server{
		Addr:              *addr,
		Handler:           a.mux(admin),
		ReadHeaderTimeout: 5 * time.Second,
	}

	srv.RegisterOnShutdown(a.ws.CloseAll)

	// Deferred closes of the index and spawn log run only after shutdown
	// has drained every handler.
	shutdownDone := make(chan struct{})
	go func() {
		defer close(shutdownDone)
		<-ctx.Done()
		ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		_ = srv.Shutdown(ctx2)
		for a.ws.Active() > 0 && ctx2.Err() == nil {
			time.Sleep(20 * time.Millisecond)
		}
	}()

	logger.Printf("listening on %s worlds=%v enabled=%v", *addr, mgr.WorldIDs(), mgr.Search().Config().EnabledWorlds)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("ListenAndServe: %v", err)
	}
	<-shutdownDone
}

// loadSpawnConfig reads spawn.yaml (defaults when missing) and applies
// VOXELSPAWN_* environment overrides.
func loadSpawnConfig(path string) (spawnconfig.Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		path = ""
	}
	cfg, err := spawnconfig.Load(path)
	if err != nil {
		return cfg, err
	}
	if err := cfg.ApplyEnv(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (a *app) reloadOnHangup(ctx context.Context) {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGHUP)
	defer signal.Stop(ch)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ch:
			if err := a.reload(); err != nil {
				a.log.Printf("SIGHUP reload: %v", err)
			}
		}
	}
}

type serverEnv struct {
	AdminHTTP *bool  `env:"VOXELSPAWN_ENABLE_ADMIN_HTTP"`
	DeployEnv string `env:"DEPLOY_ENV"`
}

// enableAdminHTTP defaults to on outside staging/production.
func enableAdminHTTP() (bool, error) {
	var e serverEnv
	if err := spawnconfig.ParseEnv(&e); err != nil {
		return false, err
	}
	if e.AdminHTTP != nil {
		return *e.AdminHTTP, nil
	}
	switch strings.ToLower(strings.TrimSpace(e.DeployEnv)) {
	case "staging", "production":
		return false, nil
	default:
		return true, nil
	}
}
