package handler

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"towerads/internal/adserr"
	"towerads/internal/earnings"
	"towerads/internal/repository"
)

type EarningsHandler struct {
	Accruer   *earnings.Accruer
	Unfreezer *earnings.Unfreezer
	Repo      repository.LedgerRepository
	Logger    *zap.Logger
}

func (h *EarningsHandler) Register(r *gin.Engine) {
	admin := r.Group("/api/v1/admin/earnings")
	admin.POST("/accrue", h.accrue)
	admin.POST("/unfreeze", h.unfreeze)

	pub := r.Group("/api/v1/publishers")
	pub.GET("/:id/balance", h.balance)
	pub.GET("/:id/ledger", h.ledger)
}

func (h *EarningsHandler) accrue(c *gin.Context) {
	if h.Accruer == nil {
		Error(c, 500, "service unavailable", nil)
		return
	}
	day := time.Now().UTC().Add(-24 * time.Hour)
	if v := strings.TrimSpace(c.Query("day")); v != "" {
		parsed, err := time.Parse("2006-01-02", v)
		if err != nil {
			Fail(c, adserr.Validationf("invalid day %q, want YYYY-MM-DD", v))
			return
		}
		day = parsed
	}
	revshare := floatQuery(c, "revshare", 0)
	freezeDays := intQuery(c, "freeze_days", 0)

	res, err := h.Accruer.Accrue(c.Request.Context(), day, revshare, freezeDays)
	if err != nil {
		Fail(c, err)
		return
	}
	Ok(c, res, nil)
}

func (h *EarningsHandler) unfreeze(c *gin.Context) {
	if h.Unfreezer == nil {
		Error(c, 500, "service unavailable", nil)
		return
	}
	res, err := h.Unfreezer.UnfreezeDue(c.Request.Context(), time.Now().UTC())
	if err != nil {
		Fail(c, err)
		return
	}
	Ok(c, res, nil)
}

func (h *EarningsHandler) balance(c *gin.Context) {
	if h.Unfreezer == nil {
		Error(c, 500, "service unavailable", nil)
		return
	}
	publisherID := strings.TrimSpace(c.Param("id"))
	if publisherID == "" {
		Fail(c, adserr.Validationf("publisher id is required"))
		return
	}
	balance, err := h.Unfreezer.GetBalance(c.Request.Context(), publisherID)
	if err != nil {
		Fail(c, err)
		return
	}
	Ok(c, balance, nil)
}

func (h *EarningsHandler) ledger(c *gin.Context) {
	if h.Repo == nil {
		Error(c, 500, "repo unavailable", nil)
		return
	}
	publisherID := strings.TrimSpace(c.Param("id"))
	if publisherID == "" {
		Fail(c, adserr.Validationf("publisher id is required"))
		return
	}
	limit := intQuery(c, "limit", 50)
	offset := intQuery(c, "offset", 0)
	params := repository.ListLedgerParams{
		Limit:       limit,
		Offset:      offset,
		PublisherID: &publisherID,
	}
	if v := strings.TrimSpace(c.Query("entry_type")); v != "" {
		params.EntryType = &v
	}
	if v := strings.TrimSpace(c.Query("status")); v != "" {
		params.Status = &v
	}
	items, err := h.Repo.ListLedgerEntries(c.Request.Context(), params)
	if err != nil {
		Fail(c, err)
		return
	}
	Ok(c, items, paginationMeta(limit, offset, int64(len(items))))
}
