package admin

import "github.com/nexpag/nexpag/internal/provider"

// Handler serves the back-office operator API.
type Handler struct {
	*provider.Container
}

// New creates the admin handler.
func New(c *provider.Container) *Handler {
	return &Handler{Container: c}
}
