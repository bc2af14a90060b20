package sdfat

import (
	"github.com/spf13/afero"
)

// NewIOFS provides the volume as fs.FS by wrapping the afero implementation.
// Names are matched case-insensitive, listings return lower case names.
func NewIOFS(v *Volume) afero.IOFS {
	return afero.IOFS{Fs: NewFs(v)}
}
