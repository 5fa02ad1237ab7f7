package main

import (
	"context"
	"net/http"

	"goofish-backend/lib/configutil"
	"goofish-backend/lib/kvstore"
	"goofish-backend/lib/serviceutil"
	"goofish-backend/lib/telemetry"
	"goofish-backend/services/capture"
	"goofish-backend/services/tablesync"
)

type Config struct {
	Port    int    `json:"port"`
	DataDir string `json:"data_dir"`
	Verbose bool   `json:"verbose"`
}

func main() {
	ctx := serviceutil.SignalContext()

	config, err := configutil.ReadConfig[Config]("config.json5")
	if err != nil {
		serviceutil.Fatal("failed to read config", err)
	}
	if config.Port == 0 {
		config.Port = 8460
	}
	if config.DataDir == "" {
		config.DataDir = "data"
	}

	telemetry.InitSlog(config.Verbose)

	t, err := telemetry.SetupFromEnv(ctx, "capturad")
	if err != nil {
		serviceutil.Fatal("failed to setup telemetry", err)
	}
	defer t.Shutdown(context.Background())
	telemetry.InstrumentPerfStats(ctx)

	db, err := kvstore.Open(config.DataDir)
	if err != nil {
		serviceutil.Fatal("failed to open kv store", err)
	}
	defer db.Close()

	store, err := capture.NewStore(db.Namespace("capture"))
	if err != nil {
		serviceutil.Fatal("failed to restore capture state", err)
	}

	configKV := db.Namespace("config")
	api := Api{
		store:    store,
		configKV: configKV,
		sync:     tablesync.NewService(store, configKV),
	}

	mux := http.NewServeMux()
	api.Register(mux)
	go serviceutil.StartHttpServer(config.Port, mux)

	<-ctx.Done()
}
