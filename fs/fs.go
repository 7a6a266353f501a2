// Package appfs embeds the files shipped inside the binaries.
package appfs

import "embed"

// FS holds the SQL migrations of the development API database and the email templates.
//go:embed migrations/*.sql templates/*
var FS embed.FS
