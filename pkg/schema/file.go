package schema

import (
	"bytes"
	"io"
	"io/fs"
	"mime"
	"net/http"
	"path"

	// Packages
	types "github.com/mutablelogic/go-server/pkg/types"
)

////////////////////////////////////////////////////////////////////////////////
// TYPES

// LocalFile is an attachment held in memory or on a filesystem
type LocalFile struct {
	name        string
	contentType string
	size        int64
	open        func() (io.ReadCloser, error)
}

////////////////////////////////////////////////////////////////////////////////
// GLOBALS

// wellKnownMIME maps file extensions that Go's mime package may not know about
// (especially on macOS) to their canonical MIME type.
var wellKnownMIME = map[string]string{
	".md":   "text/markdown",
	".csv":  "text/csv",
	".heic": "image/heic",
	".webp": "image/webp",
	".svg":  "image/svg+xml",
	".yaml": "application/yaml",
	".yml":  "application/yaml",
	".docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	".xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
}

// preferredExt is consulted before the system database, which may list
// several extensions for one type in no useful order.
var preferredExt = map[string]string{
	"image/jpeg":       ".jpg",
	"image/png":        ".png",
	"image/gif":        ".gif",
	"image/webp":       ".webp",
	"application/pdf":  ".pdf",
	"text/plain":       ".txt",
	"text/markdown":    ".md",
	"text/csv":         ".csv",
	"application/yaml": ".yaml",
}

////////////////////////////////////////////////////////////////////////////////
// LIFECYCLE

// NewFile returns an in-memory file. When contentType is empty it is derived
// from the file name and, failing that, the leading bytes of data.
func NewFile(name, contentType string, data []byte) *LocalFile {
	if contentType == "" {
		contentType = MIMEByExt(path.Ext(name))
		if contentType == "" || contentType == types.ContentTypeBinary {
			contentType = http.DetectContentType(data)
		}
	}
	return &LocalFile{
		name:        name,
		contentType: contentType,
		size:        int64(len(data)),
		open: func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(data)), nil
		},
	}
}

// OpenFile returns a file backed by fsys. The file is opened again on every
// call to Open, so it can be uploaded more than once.
func OpenFile(fsys fs.FS, name string) (*LocalFile, error) {
	info, err := fs.Stat(fsys, name)
	if err != nil {
		return nil, err
	} else if info.IsDir() {
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrInvalid}
	}

	// Prefer extension-based lookup; sniff the first 512 bytes otherwise
	contentType := MIMEByExt(path.Ext(name))
	if contentType == "" || contentType == types.ContentTypeBinary {
		if sniffed, err := sniff(fsys, name); err != nil {
			return nil, err
		} else {
			contentType = sniffed
		}
	}

	return &LocalFile{
		name:        path.Base(name),
		contentType: contentType,
		size:        info.Size(),
		open: func() (io.ReadCloser, error) {
			return fsys.Open(name)
		},
	}, nil
}

////////////////////////////////////////////////////////////////////////////////
// PUBLIC METHODS

func (f *LocalFile) Name() string {
	return f.name
}

func (f *LocalFile) ContentType() string {
	return f.contentType
}

func (f *LocalFile) Size() int64 {
	return f.size
}

func (f *LocalFile) Open() (io.ReadCloser, error) {
	return f.open()
}

// MIMEByExt returns the MIME type for a file extension, consulting wellKnownMIME
// first and then the system MIME database.
func MIMEByExt(ext string) string {
	if ct, ok := wellKnownMIME[ext]; ok {
		return ct
	}
	return mime.TypeByExtension(ext)
}

// ExtByMIME returns a file extension (with leading dot) for a content type,
// or an empty string if none is known.
func ExtByMIME(contentType string) string {
	mediatype, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return ""
	}
	if ext, exists := preferredExt[mediatype]; exists {
		return ext
	}
	if exts, err := mime.ExtensionsByType(mediatype); err == nil && len(exts) > 0 {
		return exts[0]
	}
	return ""
}

////////////////////////////////////////////////////////////////////////////////
// PRIVATE METHODS

func sniff(fsys fs.FS, name string) (string, error) {
	f, err := fsys.Open(name)
	if err != nil {
		return "", err
	}
	defer f.Close()

	var buf [512]byte
	n, err := io.ReadFull(f, buf[:])
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return "", err
	}
	return http.DetectContentType(buf[:n]), nil
}
