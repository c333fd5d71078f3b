package admin

import (
	"strconv"

	"github.com/nexpag/nexpag/internal/http/response"

	"github.com/gin-gonic/gin"
)

const reserveSweepMaxBatch = 1000

// SweepReserves releases every matured reserve hold. The worker runs
// the same sweep on a timer; this endpoint exists for manual catch-up.
func (h *Handler) SweepReserves(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "500"))
	if limit <= 0 || limit > reserveSweepMaxBatch {
		limit = reserveSweepMaxBatch
	}

	released, err := h.ReserveService.SweepMatured(limit)
	if err != nil {
		respondError(c, response.CodeInternal, "reserve sweep failed", err)
		return
	}

	requestLog(c).Infow("reserve_sweep_triggered", "released", released)
	response.Success(c, gin.H{"released": released})
}
