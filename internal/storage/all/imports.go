// Package all registers every built-in storage backend. Import it for side
// effects from the binary's wiring layer:
//
//	import _ "userload/internal/storage/all"
//
// after which storage.New accepts "sqlite", "postgres", "mysql" and "mssql".
package all

import (
	_ "userload/internal/storage/mssql"
	_ "userload/internal/storage/mysql"
	_ "userload/internal/storage/postgres"
	_ "userload/internal/storage/sqlite"
)
