package mongodb

import (
	"context"
	"fmt"

	"github.com/ncobase/docmapper/data/config"
	"github.com/ncobase/docmapper/data/metrics"
)

// Open validates conf, connects the configured nodes and returns the manager
// with a routed handle on the configured database.
//
// The configuration must contain:
//   - Master: required master node configuration with URI
//   - Slaves: optional nodes serving reads
//   - Strategy: "round_robin" (default), "random" or "weight"
//   - Database: the database repositories use
func Open(ctx context.Context, conf *config.MongoDB, collector metrics.Collector) (*MongoManager, Database, error) {
	if err := conf.Validate(); err != nil {
		return nil, nil, err
	}

	if conf.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, conf.Timeout)
		defer cancel()
	}

	manager, err := NewMongoManager(ctx, conf, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("mongodb: failed to create manager: %w", err)
	}
	manager.SetMetrics(collector)

	return manager, manager.Database(conf.Database), nil
}
