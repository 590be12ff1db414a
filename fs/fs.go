// Package appfs embeds the static assets shipped with the binaries:
// email templates, postgres migrations and the program catalog.
package appfs

import "embed"

//go:embed all:templates migrations catalog
var FS embed.FS
