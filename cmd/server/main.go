package main

import (
	"errors"
	"flag"
	"log"
	"log/slog"
	"net/http"
	"path/filepath"

	"memorymount/entity"
	"memorymount/impl/account"
	"memorymount/impl/core"
	"memorymount/impl/lifecycle"
	"memorymount/impl/uploads"
	"memorymount/internal/config"
	"memorymount/internal/database"
	"memorymount/internal/http-server/api"
	"memorymount/internal/storage"
	"memorymount/internal/token"
	"memorymount/lib/logger"
	"memorymount/lib/sl"
)

const logFileName = "memorymount.log"

func main() {
	configPath := flag.String("conf", "config.yml", "path to config file")
	logPath := flag.String("log", "/var/log/", "path to log file directory")
	flag.Parse()

	conf := config.MustLoad(*configPath)
	lg := logger.SetupLogger(conf.Env, filepath.Join(*logPath, logFileName))
	lg.Info("starting memorymount",
		slog.String("config", *configPath),
		slog.String("env", conf.Env))

	if conf.Auth.Secret == "" {
		log.Fatal("auth secret is not configured")
	}

	db := database.NewMongoClient(conf)
	if db == nil {
		log.Fatal("mongo is not enabled; the service cannot run without its record store")
	}
	if err := db.EnsureIndexes(); err != nil {
		log.Fatal("database indexes: ", err)
	}

	tokens := token.New(conf.Auth.Secret, conf.Auth.TokenTTL)

	var store uploads.Storage
	s3store, err := storage.New(conf, lg)
	if err != nil {
		if errors.Is(err, entity.ErrMissingConfig) {
			// uploads will answer with the config gap per request
			lg.Warn("object storage not configured; uploads disabled")
		} else {
			log.Fatal("object storage: ", err)
		}
	} else {
		store = s3store
	}

	lc := lifecycle.New(db, conf.Codes.Length, lg)
	acc := account.New(db, tokens, conf.Auth.BcryptCost, lg)
	up := uploads.New(store, lg)

	handler := core.New(lc, acc, up, tokens, lg)

	if err = api.New(conf, lg, handler); err != nil && !errors.Is(err, http.ErrServerClosed) {
		lg.Error("api server stopped", sl.Err(err))
	}
}
