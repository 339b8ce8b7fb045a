package entity

import "time"

// FileKind is the media class of an uploaded file, decided purely by
// extension.
type FileKind string

const (
	KindVideo FileKind = "video"
	KindImage FileKind = "image"
	KindOther FileKind = "other"
)

// FileInfo is the name/size pair the media rules operate on. It
// carries no bytes; classification and validation never touch I/O.
type FileInfo struct {
	Name string `json:"name"`
	Size int64  `json:"size"`
}

// StoredFile describes one object held in the trophy folder.
// Url is a presigned download reference with a limited lifetime.
type StoredFile struct {
	Key          string    `json:"key"`
	Name         string    `json:"name"`
	Size         int64     `json:"size"`
	Url          string    `json:"url"`
	LastModified time.Time `json:"last_modified,omitempty"`
}
