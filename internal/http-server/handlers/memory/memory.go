package memory

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

type Core interface {
	ValidateCode(code string) (*entity.MemoryCode, error)
	ClaimCode(memoryId, code, userId string) (*entity.MemoryCode, error)
	VerifyOwnership(id string) (*entity.Ownership, error)
	SetCodeName(id, userId, name string) error
}

// codeView decorates the stored record with its derived lifecycle
// fields for API consumers.
type codeView struct {
	*entity.MemoryCode
	State   entity.CodeState `json:"state"`
	Claimed bool             `json:"claimed"`
}

func view(code *entity.MemoryCode) codeView {
	return codeView{
		MemoryCode: code,
		State:      code.State(),
		Claimed:    code.Claimed(),
	}
}

// Validate checks a human-entered redemption token. Public: the
// claim page calls it before the user has an account.
func Validate(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mod := sl.Module("http.handlers.memory")
		code := chi.URLParam(r, "code")

		logger := log.With(
			mod,
			slog.String("request_id", middleware.GetReqID(r.Context())),
			slog.String("code", entity.NormalizeCode(code)),
		)

		record, err := handler.ValidateCode(code)
		if err != nil {
			logger.Warn("validate code", sl.Err(err))
			render.Status(r, response.Status(err))
			render.JSON(w, r, response.Error("Code not found"))
			return
		}
		logger.Debug("code validated", slog.Bool("claimed", record.Claimed()))

		render.JSON(w, r, response.Ok(view(record)))
	}
}

func Claim(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mod := sl.Module("http.handlers.memory")
		user := cont.GetUser(r.Context())

		logger := log.With(
			mod,
			slog.String("request_id", middleware.GetReqID(r.Context())),
			sl.User(user.Email),
		)

		var req entity.ClaimRequest
		if err := render.Bind(r, &req); err != nil {
			logger.Error("bind request", sl.Err(err))
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.Error(fmt.Sprintf("Invalid request: %v", err)))
			return
		}
		logger = logger.With(
			slog.String("memory_id", req.MemoryId),
			slog.String("code", req.Code),
		)

		record, err := handler.ClaimCode(req.MemoryId, req.Code, user.Id)
		if err != nil {
			logger.Warn("claim rejected", sl.Err(err))
			render.Status(r, response.Status(err))
			render.JSON(w, r, response.Error(fmt.Sprintf("Claim failed: %v", err)))
			return
		}
		logger.Info("code claimed")

		render.JSON(w, r, response.Ok(view(record)))
	}
}

// Verify reports whether a trophy folder has an owner. Public: the
// mount page uses it to decide between the claim and view flows.
func Verify(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mod := sl.Module("http.handlers.memory")
		id := chi.URLParam(r, "id")

		logger := log.With(
			mod,
			slog.String("request_id", middleware.GetReqID(r.Context())),
			slog.String("memory_id", id),
		)

		own, err := handler.VerifyOwnership(id)
		if err != nil {
			logger.Warn("verify ownership", sl.Err(err))
			render.Status(r, response.Status(err))
			render.JSON(w, r, response.Error("Memory not found"))
			return
		}

		render.JSON(w, r, response.Ok(own))
	}
}

func SetName(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mod := sl.Module("http.handlers.memory")
		id := chi.URLParam(r, "id")
		user := cont.GetUser(r.Context())

		logger := log.With(
			mod,
			slog.String("request_id", middleware.GetReqID(r.Context())),
			slog.String("memory_id", id),
			sl.User(user.Email),
		)

		var req entity.NameRequest
		if err := render.Bind(r, &req); err != nil {
			logger.Error("bind request", sl.Err(err))
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.Error(fmt.Sprintf("Invalid request: %v", err)))
			return
		}

		if err := handler.SetCodeName(id, user.Id, req.Name); err != nil {
			logger.Warn("set name rejected", sl.Err(err))
			render.Status(r, response.Status(err))
			render.JSON(w, r, response.Error(fmt.Sprintf("Rename failed: %v", err)))
			return
		}
		logger.Debug("memory renamed")

		render.JSON(w, r, response.Ok(nil))
	}
}
