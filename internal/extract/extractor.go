// Package extract converts raw document bytes into text plus structured
// medical fields, either through a remote extraction service or a local
// PDF fallback.
package extract

import (
	"context"

	"github.com/ishan121028/RadiologyAI/internal/models"
)

// Extractor converts raw document bytes into an extraction result. An
// error return means the extraction could not be attempted or completed
// (transport failure, timeout, open breaker); a result with Success=false
// means the service ran but could not parse the document.
type Extractor interface {
	Extract(ctx context.Context, content []byte, filename string) (*models.ExtractionResult, error)
}
