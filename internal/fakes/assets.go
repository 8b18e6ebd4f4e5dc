package fakes

import (
	"io/fs"
	"sync/atomic"
	"testing/fstest"

	"github.com/vtacosim/detectsweep/simnode"
)

// DetectScript is the content of the fake detection workload asset.
const DetectScript = "#!/usr/bin/env python3\nprint('detect')\n"

// AssetHooks can be used to override the behavior of the fake asset filesystem.
type AssetHooks struct {
	Open func(name string) (fs.File, error)
}

// Assets is an in-memory asset filesystem that counts opened files.
type Assets struct {
	hooks  AssetHooks
	files  fstest.MapFS
	opened int64
}

var _ fs.FS = (*Assets)(nil)

// NewAssets creates an asset filesystem containing every asset the
// application configs reference.
func NewAssets(hooks *AssetHooks) *Assets {
	a := &Assets{
		files: fstest.MapFS{
			simnode.DetectScriptAsset: &fstest.MapFile{Data: []byte(DetectScript), Mode: 0644},
		},
	}
	if hooks != nil {
		a.hooks = *hooks
	}
	return a
}

func (a *Assets) Open(name string) (fs.File, error) {
	atomic.AddInt64(&a.opened, 1)
	if a.hooks.Open != nil {
		return a.hooks.Open(name)
	}
	return a.files.Open(name)
}

// Opened returns the number of Open calls.
func (a *Assets) Opened() int {
	return int(atomic.LoadInt64(&a.opened))
}
