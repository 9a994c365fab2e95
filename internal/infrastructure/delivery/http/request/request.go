// Package request holds decoded HTTP request bodies.
package request

import (
	"fmt"
	"strings"

	"tubefetch/internal/entity"
	"tubefetch/internal/errs"
	"tubefetch/pkg/urls"
)

// Download is the body of POST /v1/downloads and the first websocket message.
type Download struct {
	URL        string `json:"url"`
	Resolution string `json:"resolution"` // "1080p", "720p", "480p", "360p"; empty selects the default
}

// Validate checks the URL and, when set, the resolution.
func (d *Download) Validate() error {
	if !urls.IsURLValid(urls.FixURL(d.URL)) {
		return fmt.Errorf("%w: %q", errs.ErrInvalidURL, d.URL)
	}

	if strings.TrimSpace(d.Resolution) == "" {
		return nil
	}

	if _, err := entity.ParseResolution(d.Resolution); err != nil {
		return err
	}

	return nil
}
