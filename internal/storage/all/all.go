// Package all registers every storage backend. Binaries blank-import it so
// the configured backend kind resolves without importing drivers one by one.
package all

import (
	_ "github.com/mahmawad/llm-clustering-mixed-methods/internal/storage/mssql"
	_ "github.com/mahmawad/llm-clustering-mixed-methods/internal/storage/postgres"
	_ "github.com/mahmawad/llm-clustering-mixed-methods/internal/storage/sqlite"
)
