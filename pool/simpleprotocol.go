package pool

import (
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ApplySimpleProtocol switches cfg to the simple query protocol when simple
// is true, the setting kongtask's WithNoPreparedStatements exposes for
// PgBouncer transaction-pooling compatibility. The pool does not construct
// its own pgxpool.Config, so callers building one for Config.WithPgClient
// call this before pgxpool.NewWithConfig.
func ApplySimpleProtocol(cfg *pgxpool.Config, simple bool) {
	if !simple {
		return
	}
	cfg.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeSimpleProtocol
}
