package data

import (
	"context"

	"github.com/google/wire"
	"github.com/ncobase/docmapper/data/config"
)

// ProviderSet is the wire provider set for the data package.
// It provides *Data with a cleanup function that closes all connections.
//
// Usage:
//
//	wire.Build(
//	    data.ProviderSet,
//	    // ... other providers
//	)
var ProviderSet = wire.NewSet(ProvideData)

// ProvideData connects the data layer. The cleanup function closes the
// MongoDB clients.
func ProvideData(cfg *config.Config) (*Data, func(), error) {
	return New(context.Background(), cfg)
}
