package history

import (
	"context"
	"fmt"

	"github.com/quicpulse/quicpulse/internal/config"
)

// New dispatches to the configured backend. An empty/"sqlite" driver with
// no datasource falls back to a file under the config dir so `quicpulse
// history` works with zero configuration.
func New(ctx context.Context, cfg config.History) (Store, error) {
	switch cfg.Driver {
	case "", "sqlite":
		datasource := cfg.Datasource
		if datasource == "" {
			dir, err := config.Dir()
			if err != nil {
				return nil, fmt.Errorf("resolve config dir for history datasource: %w", err)
			}
			datasource = dir + "/history.db"
		}
		return newSQLite(ctx, datasource)
	case "postgres":
		return newPostgres(ctx, cfg.Datasource)
	default:
		return nil, fmt.Errorf("unknown history driver %q", cfg.Driver)
	}
}
