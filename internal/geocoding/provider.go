package geocoding

import (
	"context"

	"github.com/UnknownOlympus/isomap/internal/models"
)

// Provider is an interface that defines a method for geocoding free text.
// Search returns the best match for text, ranked near focus when focus is not nil.
// It returns models.ErrNoMatch when the provider has no result, and a
// *models.ProviderError when the provider cannot be reached or fails.
type Provider interface {
	Search(ctx context.Context, text string, focus *models.Coordinates) (*models.Coordinates, error)
}
