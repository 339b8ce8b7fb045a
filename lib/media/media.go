package media

import (
	"fmt"
	"path/filepath"
	"strings"

	"memorymount/entity"
)

// Per-file byte ceilings for a trophy upload.
const (
	MaxVideoFileSize = 100 << 20 // 100 MiB
	MaxImageFileSize = 10 << 20  // 10 MiB
)

var videoExtensions = map[string]bool{
	".mp4":  true,
	".mov":  true,
	".avi":  true,
	".mkv":  true,
	".webm": true,
	".m4v":  true,
}

var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".webp": true,
	".heic": true,
}

// Kind classifies a file name by extension only. Anything outside the
// fixed tables is KindOther.
func Kind(name string) entity.FileKind {
	ext := strings.ToLower(filepath.Ext(name))
	switch {
	case videoExtensions[ext]:
		return entity.KindVideo
	case imageExtensions[ext]:
		return entity.KindImage
	default:
		return entity.KindOther
	}
}

// Classification is the partition of an upload set by media kind.
type Classification struct {
	Videos []entity.FileInfo
	Images []entity.FileInfo
	Other  []entity.FileInfo
}

func Classify(files []entity.FileInfo) Classification {
	var c Classification
	for _, f := range files {
		switch Kind(f.Name) {
		case entity.KindVideo:
			c.Videos = append(c.Videos, f)
		case entity.KindImage:
			c.Images = append(c.Images, f)
		default:
			c.Other = append(c.Other, f)
		}
	}
	return c
}

// Result reports the outcome of upload validation. Rule violations
// are data, not errors.
type Result struct {
	Valid   bool   `json:"valid"`
	Message string `json:"message,omitempty"`
}

func invalid(format string, args ...interface{}) Result {
	return Result{Message: fmt.Sprintf(format, args...)}
}

// Validate enforces the upload rules for one trophy folder: at least
// one file, at most one video, no unsupported types, and per-kind
// size ceilings. Pure function over the classification, no I/O.
func Validate(files []entity.FileInfo) Result {
	if len(files) == 0 {
		return invalid("At least one file is required.")
	}

	c := Classify(files)

	if len(c.Videos) > 1 {
		return invalid("Only one video file is allowed.")
	}
	if len(c.Other) > 0 {
		return invalid("Unsupported file type: %s", c.Other[0].Name)
	}
	if len(c.Videos) == 0 && len(c.Images) == 0 {
		return invalid("At least one video or image file is required.")
	}

	for _, v := range c.Videos {
		if v.Size > MaxVideoFileSize {
			return invalid("Video file %s exceeds maximum size of %d MB.", v.Name, MaxVideoFileSize>>20)
		}
	}
	for _, img := range c.Images {
		if img.Size > MaxImageFileSize {
			return invalid("Image file %s exceeds maximum size of %d MB.", img.Name, MaxImageFileSize>>20)
		}
	}

	return Result{Valid: true}
}
