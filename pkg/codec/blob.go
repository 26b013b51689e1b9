package codec

import (
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// Blob is a file prepared for inline upload: its media type and the file
// content as base64 text.
type Blob struct {
	MIMEType string `json:"mime_type" yaml:"mime_type"`
	Data     string `json:"data" yaml:"data"`
}

// Bytes decodes the blob payload.
func (b Blob) Bytes() ([]byte, error) {
	return DecodeBase64(b.Data)
}

// ReadFileBlob reads the whole file at path and returns it as a Blob. The
// MIME type is sniffed from the content, falling back to the file extension
// when sniffing only yields a generic type.
func ReadFileBlob(path string) (Blob, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Blob{}, fmt.Errorf("codec: read file: %w", err)
	}
	return NewBlob(data, filepath.Ext(path)), nil
}

// NewBlob wraps in-memory content as a Blob. ext is an optional filename
// extension used when the content does not identify itself.
func NewBlob(data []byte, ext string) Blob {
	return Blob{
		MIMEType: DetectMIMEType(data, ext),
		Data:     EncodeBase64(data),
	}
}

// DetectMIMEType returns the media type of data without parameters.
func DetectMIMEType(data []byte, ext string) string {
	detected := mimetype.Detect(data)
	typ := detected.String()
	if detected.Is("application/octet-stream") || detected.Is("text/plain") {
		if byExt := mime.TypeByExtension(strings.ToLower(ext)); byExt != "" {
			typ = byExt
		}
	}
	if i := strings.IndexByte(typ, ';'); i >= 0 {
		typ = strings.TrimSpace(typ[:i])
	}
	return typ
}
