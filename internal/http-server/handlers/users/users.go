package users

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"memorymount/entity"
	"memorymount/lib/api/response"
	"memorymount/lib/sl"
)

// Core is the admin user-management surface. Deletion is always
// soft; Restore reverses it.
type Core interface {
	Users() ([]*entity.User, error)
	UpdateUser(userId string, req *entity.UserUpdateRequest) (*entity.User, error)
	DeleteUser(userId string) error
	RestoreUser(userId string) error
}

func List(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mod := sl.Module("http.handlers.users")

		logger := log.With(
			mod,
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		all, err := handler.Users()
		if err != nil {
			logger.Error("list users", sl.Err(err))
			render.Status(r, response.Status(err))
			render.JSON(w, r, response.Error("User list not available"))
			return
		}

		render.JSON(w, r, response.Ok(all))
	}
}

func Update(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mod := sl.Module("http.handlers.users")
		id := chi.URLParam(r, "id")

		logger := log.With(
			mod,
			slog.String("request_id", middleware.GetReqID(r.Context())),
			slog.String("user_id", id),
		)

		var req entity.UserUpdateRequest
		if err := render.Bind(r, &req); err != nil {
			logger.Error("bind request", sl.Err(err))
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.Error(fmt.Sprintf("Invalid request: %v", err)))
			return
		}

		user, err := handler.UpdateUser(id, &req)
		if err != nil {
			logger.Warn("update rejected", sl.Err(err))
			render.Status(r, response.Status(err))
			render.JSON(w, r, response.Error(fmt.Sprintf("Update failed: %v", err)))
			return
		}
		logger.Debug("user updated")

		render.JSON(w, r, response.Ok(user))
	}
}

func Delete(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mod := sl.Module("http.handlers.users")
		id := chi.URLParam(r, "id")

		logger := log.With(
			mod,
			slog.String("request_id", middleware.GetReqID(r.Context())),
			slog.String("user_id", id),
		)

		if err := handler.DeleteUser(id); err != nil {
			logger.Warn("delete rejected", sl.Err(err))
			render.Status(r, response.Status(err))
			render.JSON(w, r, response.Error(fmt.Sprintf("Delete failed: %v", err)))
			return
		}
		logger.Info("user soft-deleted")

		render.JSON(w, r, response.Ok(nil))
	}
}

func Restore(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mod := sl.Module("http.handlers.users")
		id := chi.URLParam(r, "id")

		logger := log.With(
			mod,
			slog.String("request_id", middleware.GetReqID(r.Context())),
			slog.String("user_id", id),
		)

		if err := handler.RestoreUser(id); err != nil {
			logger.Warn("restore rejected", sl.Err(err))
			render.Status(r, response.Status(err))
			render.JSON(w, r, response.Error(fmt.Sprintf("Restore failed: %v", err)))
			return
		}
		logger.Info("user restored")

		render.JSON(w, r, response.Ok(nil))
	}
}
