// Package zip builds in-memory archives for the history export endpoint.
package zip

import (
	"archive/zip"
	"bytes"
	"fmt"
)

// Asset is one file to include in the archive.
type Asset struct {
	Filename string
	Data     []byte
}

// ArchiveAssets packs the assets into a zip archive held in memory. Assets
// with no data are skipped; duplicate filenames get a numeric suffix so no
// entry silently overwrites another.
func ArchiveAssets(assets []Asset) []byte {
	buf := &bytes.Buffer{}
	zw := zip.NewWriter(buf)
	seen := make(map[string]int)
	for _, asset := range assets {
		if len(asset.Data) == 0 {
			continue
		}
		name := asset.Filename
		if n := seen[name]; n > 0 {
			name = fmt.Sprintf("%s-%d", name, n)
		}
		seen[asset.Filename]++
		w, err := zw.Create(name)
		if err != nil {
			continue
		}
		if _, err := w.Write(asset.Data); err != nil {
			continue
		}
	}
	_ = zw.Close()
	return buf.Bytes()
}
