package chi

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/kailas-cloud/silverline/internal/domain"
)

// mediaKind is the family of uploads a form field accepts.
type mediaKind int

const (
	mediaImage mediaKind = iota
	mediaAudio
)

// audioContainers are video/* types that phones use for voice notes.
var audioContainers = []string{"video/webm", "video/mp4", "video/3gpp", "application/ogg"}

func (k mediaKind) accepts(m *mimetype.MIME) bool {
	switch k {
	case mediaImage:
		return strings.HasPrefix(m.String(), "image/")
	case mediaAudio:
		return strings.HasPrefix(m.String(), "audio/") || mimetype.EqualsAny(m.String(), audioContainers...)
	default:
		return false
	}
}

func (k mediaKind) String() string {
	if k == mediaAudio {
		return "audio"
	}
	return "image"
}

// upload is a sniffed multipart file.
type upload struct {
	Data     []byte
	Filename string
	MIMEType string
}

// parseMultipart limits the body to maxBytes and parses the form.
func parseMultipart(w http.ResponseWriter, r *http.Request, maxBytes int64) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	if err := r.ParseMultipartForm(maxBytes); err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			return fmt.Errorf("parse form: %w", err)
		}
		return fmt.Errorf("expected multipart form: %w", domain.ErrInvalidRequest)
	}
	return nil
}

// readUpload reads field from a parsed multipart form and checks its content type by sniffing.
// ok is false when the field is absent.
func readUpload(r *http.Request, field string, kind mediaKind) (up upload, ok bool, err error) {
	f, hdr, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return upload{}, false, nil
	}
	if err != nil {
		return upload{}, false, fmt.Errorf("read %s: %w", field, domain.ErrInvalidRequest)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return upload{}, false, fmt.Errorf("read %s: %w", field, err)
	}
	if len(data) == 0 {
		return upload{}, false, fmt.Errorf("%s is empty: %w", field, domain.ErrInvalidRequest)
	}

	m := mimetype.Detect(data)
	if !kind.accepts(m) {
		return upload{}, false, fmt.Errorf("%s must be %s, got %s: %w", field, kind, m.String(), domain.ErrUnsupportedMedia)
	}

	name := filepath.Base(hdr.Filename)
	if name == "." || name == "/" || name == "" {
		name = field
	}
	if filepath.Ext(name) == "" {
		name += m.Extension()
	}
	return upload{Data: data, Filename: name, MIMEType: m.String()}, true, nil
}
