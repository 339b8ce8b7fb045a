package files

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"memorymount/entity"
	"memorymount/lib/api/cont"
	"memorymount/lib/api/response"
	"memorymount/lib/media"
	"memorymount/lib/sl"
)

// maxUploadMemory bounds the multipart parse buffer; larger parts
// spill to temp files.
const maxUploadMemory = 32 << 20

type Core interface {
	StoreFile(ctx context.Context, user *entity.User, memoryId, fileName string, body io.Reader, size int64) (*entity.StoredFile, error)
	ListFiles(ctx context.Context, memoryId string) ([]entity.StoredFile, error)
	DeleteFile(ctx context.Context, user *entity.User, memoryId, key string) error
}

// Upload accepts a multipart set of media files for one trophy
// folder. The whole set is validated against the media rules before
// any byte reaches storage.
func Upload(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mod := sl.Module("http.handlers.files")
		id := chi.URLParam(r, "id")
		user := cont.GetUser(r.Context())

		logger := log.With(
			mod,
			slog.String("request_id", middleware.GetReqID(r.Context())),
			slog.String("memory_id", id),
			sl.User(user.Email),
		)

		if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
			logger.Error("parse multipart form", sl.Err(err))
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.Error(fmt.Sprintf("Invalid upload: %v", err)))
			return
		}

		headers := r.MultipartForm.File["files"]
		infos := make([]entity.FileInfo, 0, len(headers))
		for _, h := range headers {
			infos = append(infos, entity.FileInfo{Name: h.Filename, Size: h.Size})
		}

		if result := media.Validate(infos); !result.Valid {
			logger.Warn("upload rejected", slog.String("reason", result.Message))
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.Error(result.Message))
			return
		}

		// the video goes first: its replace pass clears the folder
		// and must not remove images written by this same request
		ordered := make([]*multipart.FileHeader, 0, len(headers))
		for _, h := range headers {
			if media.Kind(h.Filename) == entity.KindVideo {
				ordered = append(ordered, h)
			}
		}
		for _, h := range headers {
			if media.Kind(h.Filename) != entity.KindVideo {
				ordered = append(ordered, h)
			}
		}

		stored := make([]entity.StoredFile, 0, len(ordered))
		for _, h := range ordered {
			part, err := h.Open()
			if err != nil {
				logger.Error("open upload part", sl.Err(err))
				render.Status(r, http.StatusBadRequest)
				render.JSON(w, r, response.Error(fmt.Sprintf("Invalid upload: %v", err)))
				return
			}

			file, err := handler.StoreFile(r.Context(), user, id, h.Filename, part, h.Size)
			part.Close()
			if err != nil {
				logger.Error("store file", sl.Err(err), slog.String("file", h.Filename))
				render.Status(r, response.Status(err))
				render.JSON(w, r, response.Error(fmt.Sprintf("Upload failed: %v", err)))
				return
			}
			stored = append(stored, *file)
		}
		logger.Info("files uploaded", slog.Int("count", len(stored)))

		render.Status(r, http.StatusCreated)
		render.JSON(w, r, response.Ok(stored))
	}
}

// List returns the folder contents. Storage failures surface as
// errors; an empty folder is a successful empty list.
func List(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mod := sl.Module("http.handlers.files")
		id := chi.URLParam(r, "id")

		logger := log.With(
			mod,
			slog.String("request_id", middleware.GetReqID(r.Context())),
			slog.String("memory_id", id),
		)

		list, err := handler.ListFiles(r.Context(), id)
		if err != nil {
			logger.Error("list files", sl.Err(err))
			render.Status(r, response.Status(err))
			render.JSON(w, r, response.Error("File listing not available"))
			return
		}

		render.JSON(w, r, response.Ok(list))
	}
}

func Delete(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mod := sl.Module("http.handlers.files")
		id := chi.URLParam(r, "id")
		key := id + "/" + chi.URLParam(r, "*")
		user := cont.GetUser(r.Context())

		logger := log.With(
			mod,
			slog.String("request_id", middleware.GetReqID(r.Context())),
			slog.String("memory_id", id),
			slog.String("key", key),
			sl.User(user.Email),
		)

		if err := handler.DeleteFile(r.Context(), user, id, key); err != nil {
			logger.Warn("delete rejected", sl.Err(err))
			render.Status(r, response.Status(err))
			render.JSON(w, r, response.Error(fmt.Sprintf("Delete failed: %v", err)))
			return
		}
		logger.Info("file deleted")

		render.JSON(w, r, response.Ok(nil))
	}
}
