package db

import "embed"

// Migrations holds the goose-annotated schema migrations, embedded so the
// admin CLI can apply them without a checkout of this repository.
//
//go:embed migrations/*.sql
var Migrations embed.FS
