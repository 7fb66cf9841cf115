package render

import (
	"embed"
	"io/fs"
)

//go:embed templates/crud/*.html templates/crud/edit_inline/*.html
var embeddedTemplates embed.FS

//go:embed static/*
var embeddedStatic embed.FS

// Names of the bundled static files.
const (
	ListScriptName = "list.js"
	StylesheetName = "crud.css"
)

// TemplatesFS exposes the bundled templates rooted so that names read
// "crud/list.html".
func TemplatesFS() fs.FS {
	sub, err := fs.Sub(embeddedTemplates, "templates")
	if err != nil {
		return embeddedTemplates
	}
	return sub
}

// StaticFS exposes the bundled scripts and stylesheet for serving under the
// configured static prefix.
func StaticFS() fs.FS {
	sub, err := fs.Sub(embeddedStatic, "static")
	if err != nil {
		return embeddedStatic
	}
	return sub
}
