// Package web embeds the page templates and static assets.
package web

import (
	"embed"
	"io/fs"
	"log"
)

//go:embed static templates
var content embed.FS

// StaticFS returns the static assets: stylesheet and image placeholder.
func StaticFS() fs.FS {
	return sub("static")
}

// TemplatesFS returns the page templates. layout.html defines the "layout"
// template every page renders through.
func TemplatesFS() fs.FS {
	return sub("templates")
}

func sub(dir string) fs.FS {
	fsys, err := fs.Sub(content, dir)
	if err != nil {
		log.Fatalf("failed to create %s sub-filesystem: %v", dir, err)
	}
	return fsys
}
