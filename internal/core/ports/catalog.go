package ports

import (
	"context"

	"github.com/ewilliams-labs/nextsong/internal/core/domain"
)

// SongCatalog supplies the read-only ordered list of songs the site promotes.
type SongCatalog interface {
	Songs(ctx context.Context) ([]domain.Song, error)
}
