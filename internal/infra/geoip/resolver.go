package geoip

import (
	"context"

	"github.com/resumefoundry/auth-core/internal/core/domain"
	"github.com/resumefoundry/auth-core/internal/core/port"
)

// NoopResolver is the default geolocation backend. Login alerts are emitted
// without location enrichment until a real provider is plugged in behind the
// port.GeoResolver interface.
type NoopResolver struct{}

// NewNoopResolver constructs the no-op resolver.
func NewNoopResolver() *NoopResolver {
	return &NoopResolver{}
}

// Resolve reports no location for every address.
func (NoopResolver) Resolve(_ context.Context, _ string) (*domain.GeoLocation, error) {
	return nil, nil
}

var _ port.GeoResolver = (*NoopResolver)(nil)
