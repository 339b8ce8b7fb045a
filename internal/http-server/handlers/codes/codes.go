package codes

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"memorymount/entity"
	"memorymount/lib/api/cont"
	"memorymount/lib/api/response"
	"memorymount/lib/sl"
)

// Core is the admin console surface of the code lifecycle.
type Core interface {
	GenerateCodes(count int, createdBy string) ([]*entity.MemoryCode, error)
	UnassignedCode() (*entity.MemoryCode, error)
	AssignToProduct(id string) (*entity.MemoryCode, error)
	CodeStats() (*entity.CodeStats, error)
}

func Generate(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mod := sl.Module("http.handlers.codes")
		user := cont.GetUser(r.Context())

		logger := log.With(
			mod,
			slog.String("request_id", middleware.GetReqID(r.Context())),
			sl.User(user.Email),
		)

		var req entity.GenerateRequest
		if err := render.Bind(r, &req); err != nil {
			logger.Error("bind request", sl.Err(err))
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.Error(fmt.Sprintf("Invalid request: %v", err)))
			return
		}

		minted, err := handler.GenerateCodes(req.Count, user.Id)
		if err != nil {
			logger.Error("generate codes", sl.Err(err))
			render.Status(r, response.Status(err))
			render.JSON(w, r, response.Error(fmt.Sprintf("Generate failed: %v", err)))
			return
		}
		logger.Info("codes generated", slog.Int("count", len(minted)))

		render.Status(r, http.StatusCreated)
		render.JSON(w, r, response.Ok(minted))
	}
}

// Unassigned returns the oldest code still waiting to be affixed to
// a product.
func Unassigned(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mod := sl.Module("http.handlers.codes")

		logger := log.With(
			mod,
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		code, err := handler.UnassignedCode()
		if err != nil {
			logger.Warn("unassigned code", sl.Err(err))
			render.Status(r, response.Status(err))
			render.JSON(w, r, response.Error("No unassigned codes available"))
			return
		}

		render.JSON(w, r, response.Ok(code))
	}
}

func Assign(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mod := sl.Module("http.handlers.codes")
		id := chi.URLParam(r, "id")
		user := cont.GetUser(r.Context())

		logger := log.With(
			mod,
			slog.String("request_id", middleware.GetReqID(r.Context())),
			slog.String("memory_id", id),
			sl.User(user.Email),
		)

		code, err := handler.AssignToProduct(id)
		if err != nil {
			logger.Warn("assign rejected", sl.Err(err))
			render.Status(r, response.Status(err))
			render.JSON(w, r, response.Error(fmt.Sprintf("Assign failed: %v", err)))
			return
		}
		logger.Info("code assigned")

		render.JSON(w, r, response.Ok(code))
	}
}

func Stats(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mod := sl.Module("http.handlers.codes")

		logger := log.With(
			mod,
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		stats, err := handler.CodeStats()
		if err != nil {
			logger.Error("code stats", sl.Err(err))
			render.Status(r, response.Status(err))
			render.JSON(w, r, response.Error("Stats not available"))
			return
		}

		render.JSON(w, r, response.Ok(stats))
	}
}
