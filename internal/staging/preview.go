package staging

import (
	"encoding/base64"
	"strings"
)

// DataURIFactory builds previews as self-contained data URIs. It is the
// default factory for hosts without an object-URL mechanism.
type DataURIFactory struct{}

func (DataURIFactory) Create(f File) (PreviewHandle, error) {
	mime := f.MIME
	if mime == "" {
		mime = "application/octet-stream"
	}
	var b strings.Builder
	b.WriteString("data:")
	b.WriteString(mime)
	b.WriteString(";base64,")
	b.WriteString(base64.StdEncoding.EncodeToString(f.Data))
	return &dataURIHandle{url: b.String()}, nil
}

type dataURIHandle struct {
	url string
}

func (h *dataURIHandle) URL() string { return h.url }

// Release drops the encoded payload so the backing memory can be reclaimed.
func (h *dataURIHandle) Release() { h.url = "" }
