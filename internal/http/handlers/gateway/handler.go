package gateway

import (
	handlershared "github.com/nexpag/nexpag/internal/http/handlers/shared"
	"github.com/nexpag/nexpag/internal/provider"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Handler serves the inbound callback API used by the acquiring
// gateway. Callers authenticate with the shared secret, not a JWT.
type Handler struct {
	*provider.Container
}

// New creates the gateway handler.
func New(c *provider.Container) *Handler {
	return &Handler{Container: c}
}

func requestLog(c *gin.Context) *zap.SugaredLogger {
	return handlershared.RequestLog(c)
}

func respondError(c *gin.Context, code int, msg string, err error) {
	handlershared.RespondError(c, code, msg, err)
}
