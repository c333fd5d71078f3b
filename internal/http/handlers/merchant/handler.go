package merchant

import "github.com/nexpag/nexpag/internal/provider"

// Handler serves the merchant-facing API.
type Handler struct {
	*provider.Container
}

// New creates the merchant handler.
func New(c *provider.Container) *Handler {
	return &Handler{Container: c}
}
