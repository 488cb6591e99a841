package migrations

import "embed"

// PostgresFS holds the snapshot store schema migrations.
//
//go:embed postgres/*.sql
var PostgresFS embed.FS

// ClickhouseFS holds the history store schema migrations.
//
//go:embed clickhouse/*.sql
var ClickhouseFS embed.FS
