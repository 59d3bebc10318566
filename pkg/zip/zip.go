// Package zip bundles generated images into a single archive for export.
package zip

import (
	"archive/zip"
	"bytes"
	"fmt"
	"path"
	"strings"
)

type Asset struct {
	Filename string
	MIME     string
	Data     []byte
}

// ArchiveAssets writes every asset into an in-memory zip. Duplicate or empty
// filenames are renamed so no entry silently shadows another.
func ArchiveAssets(assets []Asset) []byte {
	buf := &bytes.Buffer{}
	zw := zip.NewWriter(buf)
	seen := make(map[string]int, len(assets))
	for i, asset := range assets {
		name := entryName(asset.Filename, i, seen)
		w, err := zw.Create(name)
		if err != nil {
			continue
		}
		if _, err := w.Write(asset.Data); err != nil {
			return nil
		}
	}
	_ = zw.Close()
	return buf.Bytes()
}

func entryName(name string, index int, seen map[string]int) string {
	name = strings.TrimSpace(path.Base(name))
	if name == "" || name == "." || name == "/" {
		name = fmt.Sprintf("image-%02d", index+1)
	}
	count := seen[name]
	seen[name] = count + 1
	if count == 0 {
		return name
	}
	ext := path.Ext(name)
	return fmt.Sprintf("%s-%d%s", strings.TrimSuffix(name, ext), count+1, ext)
}
