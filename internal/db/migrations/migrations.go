// Package migrations embeds the goose migrations for each SQL dialect.
package migrations

import (
	"embed"
	"io/fs"
)

//go:embed postgres/*.sql sqlite/*.sql
var files embed.FS

// FS returns the migrations for the named dialect directory ("postgres" or "sqlite")
func FS(dir string) (fs.FS, error) {
	return fs.Sub(files, dir)
}
