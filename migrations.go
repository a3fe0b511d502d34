// Package navguard embeds the goose SQL migrations shipped with the service.
package navguard

import "embed"

// Migrations holds the SQL migrations applied by the migrate command.
//
//go:embed migrations/*.sql
var Migrations embed.FS
