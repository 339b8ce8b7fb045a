package admin

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/render"

	"memorymount/lib/api/cont"
	"memorymount/lib/api/response"
	"memorymount/lib/sl"
)

// New rejects requests whose authenticated user is not an admin.
// Must sit behind the authenticate middleware.
func New(log *slog.Logger) func(next http.Handler) http.Handler {
	mod := sl.Module("middleware.admin")

	return func(next http.Handler) http.Handler {
		fn := func(w http.ResponseWriter, r *http.Request) {
			user := cont.GetUser(r.Context())
			if !user.IsAdmin() {
				log.With(mod, sl.User(user.Email)).Warn("admin access denied",
					slog.String("path", r.URL.Path))
				render.Status(r, http.StatusForbidden)
				render.JSON(w, r, response.Error("Admin access required"))
				return
			}
			next.ServeHTTP(w, r)
		}
		return http.HandlerFunc(fn)
	}
}
