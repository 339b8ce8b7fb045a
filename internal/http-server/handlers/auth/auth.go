package auth

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"memorymount/entity"
	"memorymount/lib/api/cont"
	"memorymount/lib/api/response"
	"memorymount/lib/sl"
)

type Core interface {
	CreateUser(req *entity.SignupRequest) (*entity.User, error)
	Login(email, password string) (string, *entity.User, error)
	ChangeUserPassword(userId, current, next string) error
}

type loginResponse struct {
	Token string       `json:"token"`
	User  *entity.User `json:"user"`
}

func Signup(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mod := sl.Module("http.handlers.auth")

		logger := log.With(
			mod,
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		var req entity.SignupRequest
		if err := render.Bind(r, &req); err != nil {
			logger.Error("bind request", sl.Err(err))
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.Error(fmt.Sprintf("Invalid request: %v", err)))
			return
		}
		logger = logger.With(sl.User(req.Email))

		user, err := handler.CreateUser(&req)
		if err != nil {
			logger.Error("create user", sl.Err(err))
			render.Status(r, response.Status(err))
			render.JSON(w, r, response.Error(fmt.Sprintf("Signup failed: %v", err)))
			return
		}
		logger.Debug("user registered")

		render.Status(r, http.StatusCreated)
		render.JSON(w, r, response.Ok(user))
	}
}

func Login(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mod := sl.Module("http.handlers.auth")

		logger := log.With(
			mod,
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		var req entity.LoginRequest
		if err := render.Bind(r, &req); err != nil {
			logger.Error("bind request", sl.Err(err))
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.Error(fmt.Sprintf("Invalid request: %v", err)))
			return
		}
		logger = logger.With(sl.User(req.Email))

		token, user, err := handler.Login(req.Email, req.Password)
		if err != nil {
			logger.Warn("login rejected", sl.Err(err))
			render.Status(r, response.Status(err))
			render.JSON(w, r, response.Error("Invalid email or password"))
			return
		}
		logger.Debug("login accepted")

		render.JSON(w, r, response.Ok(loginResponse{Token: token, User: user}))
	}
}

// Me returns the authenticated user carried in the request context.
func Me(_ *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := cont.GetUser(r.Context())
		render.JSON(w, r, response.Ok(user))
	}
}

func ChangePassword(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mod := sl.Module("http.handlers.auth")
		user := cont.GetUser(r.Context())

		logger := log.With(
			mod,
			slog.String("request_id", middleware.GetReqID(r.Context())),
			sl.User(user.Email),
		)

		var req entity.PasswordChangeRequest
		if err := render.Bind(r, &req); err != nil {
			logger.Error("bind request", sl.Err(err))
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.Error(fmt.Sprintf("Invalid request: %v", err)))
			return
		}

		if err := handler.ChangeUserPassword(user.Id, req.Current, req.Next); err != nil {
			logger.Warn("password change rejected", sl.Err(err))
			render.Status(r, response.Status(err))
			render.JSON(w, r, response.Error(fmt.Sprintf("Password change failed: %v", err)))
			return
		}
		logger.Debug("password changed")

		render.JSON(w, r, response.Ok(nil))
	}
}
