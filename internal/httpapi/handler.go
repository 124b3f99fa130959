package httpapi

import (
	"net/http"

	"goreal-engine/pkg/db/pagination"
	"goreal-engine/pkg/errutil"
	"goreal-engine/services/account"
	"goreal-engine/services/ledger"
	"goreal-engine/services/notification"
	"goreal-engine/services/ranking"
	syncsvc "goreal-engine/services/sync"
	"goreal-engine/services/tokenvault"

	"github.com/gin-gonic/gin"
	"go.uber.org/fx"
)

type Handler struct {
	accounts      *account.Service
	sync          *syncsvc.Service
	ledger        *ledger.Service
	notifications *notification.Service
	vault         *tokenvault.Service
	ranking       *ranking.Service
}

type HandlerParams struct {
	fx.In
	Accounts      *account.Service
	Sync          *syncsvc.Service
	Ledger        *ledger.Service
	Notifications *notification.Service
	Vault         *tokenvault.Service
	Ranking       *ranking.Service
}

func NewHandler(p HandlerParams) *Handler {
	return &Handler{
		accounts:      p.Accounts,
		sync:          p.Sync,
		ledger:        p.Ledger,
		notifications: p.Notifications,
		vault:         p.Vault,
		ranking:       p.Ranking,
	}
}

func (h *Handler) Sync(c *gin.Context) {
	summary, err := h.sync.Sync(c.Request.Context(), c.Param("user_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (h *Handler) GetAccount(c *gin.Context) {
	acct, err := h.accounts.Get(c.Request.Context(), c.Param("user_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"id":              acct.ID,
		"guild_id":        acct.GuildID,
		"display_name":    acct.DisplayName,
		"total_points":    acct.TotalPoints,
		"current_tier":    acct.CurrentTier,
		"weekly_points":   acct.WeeklyPoints,
		"monthly_points":  acct.MonthlyPoints,
		"last_sync_at":    acct.LastSyncAt,
		"distance_totals": acct.DistanceByType(),
	})
}

func (h *Handler) ActivityHistory(c *gin.Context) {
	var page pagination.Pagination
	if err := c.ShouldBindQuery(&page); err != nil {
		respondError(c, errutil.BadRequest("invalid pagination parameters", errutil.WithErr(err)))
		return
	}

	records, pageInfo, err := h.ledger.History(c.Request.Context(), c.Param("user_id"), page)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"activities": records, "page_info": pageInfo})
}

func (h *Handler) ListNotifications(c *gin.Context) {
	unreadOnly := c.Query("unread") == "true"

	items, err := h.notifications.List(c.Request.Context(), c.Param("user_id"), unreadOnly)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"notifications": items})
}

func (h *Handler) MarkNotificationRead(c *gin.Context) {
	if err := h.notifications.MarkRead(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type connectRequest struct {
	Code        string `json:"code" binding:"required"`
	DisplayName string `json:"display_name"`
	GuildID     string `json:"guild_id"`
}

func (h *Handler) ConnectStrava(c *gin.Context) {
	userID := c.Param("user_id")

	var req connectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, errutil.BadRequest("invalid request body", errutil.WithErr(err)))
		return
	}

	ctx := c.Request.Context()
	if _, err := h.accounts.Ensure(ctx, userID, req.DisplayName, req.GuildID); err != nil {
		respondError(c, err)
		return
	}

	cred, err := h.vault.Connect(ctx, userID, req.Code)
	if err != nil {
		respondError(c, err)
		return
	}

	if err := h.accounts.LinkAthlete(ctx, userID, cred.AthleteID); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"athlete_id": cred.AthleteID,
		"scope":      cred.Scope,
		"expires_at": cred.ExpiresAt,
	})
}

func (h *Handler) DisconnectStrava(c *gin.Context) {
	if err := h.vault.Disconnect(c.Request.Context(), c.Param("user_id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) Rankings(c *gin.Context) {
	scope := c.DefaultQuery("scope", ranking.ScopeGlobal)

	snapshot, entries, err := h.ranking.Leaderboard(c.Request.Context(), scope, c.Param("window"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"scope":       snapshot.Scope,
		"window":      snapshot.Window,
		"computed_at": snapshot.ComputedAt,
		"entries":     entries,
	})
}
