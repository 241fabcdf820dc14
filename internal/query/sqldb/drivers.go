package sqldb

import (
	_ "github.com/ClickHouse/clickhouse-go/v2"
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/marcboeker/go-duckdb/v2"
	_ "github.com/microsoft/go-mssqldb"
	_ "modernc.org/sqlite"
)

// Drivers whose database/sql implementation honours sql.TxOptions.ReadOnly.
var readOnlyTxDrivers = map[string]bool{
	"pgx":   true,
	"mysql": true,
}
