package api

import (
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"memorymount/internal/config"
	"memorymount/internal/http-server/handlers/auth"
	"memorymount/internal/http-server/handlers/codes"
	"memorymount/internal/http-server/handlers/errors"
	"memorymount/internal/http-server/handlers/files"
	"memorymount/internal/http-server/handlers/memory"
	"memorymount/internal/http-server/handlers/users"
	"memorymount/internal/http-server/middleware/admin"
	"memorymount/internal/http-server/middleware/authenticate"
	"memorymount/internal/http-server/middleware/timeout"
	"memorymount/lib/sl"
)

type Server struct {
	conf       *config.Config
	httpServer *http.Server
	log        *slog.Logger
}

// Handler is the full service surface the router needs; impl/core
// satisfies it.
type Handler interface {
	authenticate.Authenticate
	auth.Core
	memory.Core
	codes.Core
	users.Core
	files.Core
}

func New(conf *config.Config, log *slog.Logger, handler Handler) error {

	server := Server{
		conf: conf,
		log:  log.With(sl.Module("api.server")),
	}

	router := chi.NewRouter()
	router.Use(timeout.Timeout(30))
	router.Use(middleware.RequestID)
	router.Use(middleware.Recoverer)
	router.Use(render.SetContentType(render.ContentTypeJSON))

	router.NotFound(errors.NotFound(log))
	router.MethodNotAllowed(errors.NotAllowed(log))

	router.Route("/v1", func(rootApi chi.Router) {
		// public surface: signup, login, code lookup, trophy view
		rootApi.Post("/auth/signup", auth.Signup(log, handler))
		rootApi.Post("/auth/login", auth.Login(log, handler))
		rootApi.Get("/memory/validate/{code}", memory.Validate(log, handler))
		rootApi.Get("/memory/{id}/verify", memory.Verify(log, handler))
		rootApi.Get("/files/{id}", files.List(log, handler))

		rootApi.Group(func(protected chi.Router) {
			protected.Use(authenticate.New(log, handler))

			protected.Get("/auth/me", auth.Me(log))
			protected.Post("/auth/password", auth.ChangePassword(log, handler))

			protected.Post("/memory/claim", memory.Claim(log, handler))
			protected.Post("/memory/{id}/name", memory.SetName(log, handler))

			protected.Post("/files/{id}", files.Upload(log, handler))
			protected.Delete("/files/{id}/*", files.Delete(log, handler))

			protected.Route("/admin", func(adm chi.Router) {
				adm.Use(admin.New(log))

				adm.Get("/codes/unassigned", codes.Unassigned(log, handler))
				adm.Post("/codes/generate", codes.Generate(log, handler))
				adm.Post("/codes/{id}/assign", codes.Assign(log, handler))
				adm.Get("/codes/stats", codes.Stats(log, handler))

				adm.Get("/users", users.List(log, handler))
				adm.Put("/users/{id}", users.Update(log, handler))
				adm.Delete("/users/{id}", users.Delete(log, handler))
				adm.Post("/users/{id}/restore", users.Restore(log, handler))
			})
		})
	})

	httpLog := slog.NewLogLogger(log.Handler(), slog.LevelError)
	server.httpServer = &http.Server{
		Handler:      router,
		ErrorLog:     httpLog,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverAddress := fmt.Sprintf("%s:%s", conf.Listen.BindIp, conf.Listen.Port)
	listener, err := net.Listen("tcp", serverAddress)
	if err != nil {
		return err
	}

	server.log.Info("starting api server", slog.String("address", serverAddress))

	return server.httpServer.Serve(listener)
}
