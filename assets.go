package niforms

import (
	"embed"
	"io/fs"
	"net/http"
)

// Embedded script names, relative to AssetsPath.
const (
	AssetForm         = "form.js"
	AssetFormHoneypot = "form-honeypot.js"
)

//go:embed assets/*.js
var assetFiles embed.FS

// Assets returns the embedded scripts.
func Assets() fs.FS {
	sub, err := fs.Sub(assetFiles, "assets")
	if err != nil {
		panic(err)
	}
	return sub
}

// AssetsHandler serves the embedded scripts. Mount it at AssetsPath:
//
//	mux.Handle(reg.AssetsPath(), reg.AssetsHandler())
func (reg *Registry) AssetsHandler() http.Handler {
	return http.StripPrefix(reg.assetsPath, http.FileServer(http.FS(Assets())))
}
