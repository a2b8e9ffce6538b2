// Package migrations embeds the backend schema used for development and
// self-hosted databases.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
