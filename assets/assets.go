// Package assets embeds the static files shipped with the binaries.
package assets

import "embed"

// FS holds the email templates & the common passwords list.
//
//go:embed all:templates common-passwords.txt
var FS embed.FS

const (
	EmailTemplatesDir   = "templates/email"
	CommonPasswordsFile = "common-passwords.txt"
)
