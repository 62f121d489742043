package billing

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	reconciler *Reconciler
	lifecycle  *Lifecycle
}

func NewHandler(reconciler *Reconciler, lifecycle *Lifecycle) *Handler {
	return &Handler{reconciler: reconciler, lifecycle: lifecycle}
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/accounts/:id/billing", h.overview)
	r.POST("/accounts/:id/subscription/cancel", h.cancelSubscription)
	r.POST("/accounts/:id/subscription/swap", h.swapSubscription)
	r.POST("/accounts/:id/subscription/resume", h.resumeSubscription)
	r.POST("/accounts/:id/addons/:addonId/cancel", h.cancelAddon)
	r.POST("/accounts/:id/addons/:addonId/resume", h.resumeAddon)
	r.POST("/charges/:chargeId/refund", h.refundCharge)
}

func (h *Handler) overview(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid account id"})
		return
	}
	brief := c.Query("brief") == "true" || c.Query("brief") == "1"
	overview, err := h.reconciler.Overview(c.Request.Context(), id, brief)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, overview)
}

func (h *Handler) cancelSubscription(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid account id"})
		return
	}
	var body struct {
		Now bool `json:"now"`
	}
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
			return
		}
	}
	if err := h.lifecycle.Cancel(c.Request.Context(), id, body.Now); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) swapSubscription(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid account id"})
		return
	}
	var body struct {
		Plan string `json:"plan"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || body.Plan == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "plan required"})
		return
	}
	if err := h.lifecycle.Swap(c.Request.Context(), id, body.Plan); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) resumeSubscription(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid account id"})
		return
	}
	if err := h.lifecycle.Resume(c.Request.Context(), id); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) cancelAddon(c *gin.Context) {
	accountID, addonID, ok := addonParams(c)
	if !ok {
		return
	}
	if err := h.lifecycle.CancelAddon(c.Request.Context(), accountID, addonID); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) resumeAddon(c *gin.Context) {
	accountID, addonID, ok := addonParams(c)
	if !ok {
		return
	}
	if err := h.lifecycle.ResumeAddon(c.Request.Context(), accountID, addonID); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) refundCharge(c *gin.Context) {
	chargeID := c.Param("chargeId")
	if chargeID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "charge id required"})
		return
	}
	var body struct {
		Amount int64  `json:"amount"`
		Notes  string `json:"notes"`
	}
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
			return
		}
	}
	if body.Amount < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "amount must be positive"})
		return
	}
	req := RefundRequest{ChargeID: chargeID, Amount: body.Amount, Notes: body.Notes}
	if err := h.lifecycle.Refund(c.Request.Context(), req); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func addonParams(c *gin.Context) (int, int, bool) {
	accountID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid account id"})
		return 0, 0, false
	}
	addonID, err := strconv.Atoi(c.Param("addonId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid addon id"})
		return 0, 0, false
	}
	return accountID, addonID, true
}

// writeError maps the billing error taxonomy onto HTTP status codes.
func writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, ErrInvalidState):
		status = http.StatusBadRequest
	case errors.Is(err, ErrPlanResolution):
		status = http.StatusConflict
	case errors.Is(err, ErrProviderLookup), errors.Is(err, ErrProvider):
		status = http.StatusBadGateway
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
