package http

import (
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sparkpad-app/sparkpad/backend/internal/config"
	"github.com/sparkpad-app/sparkpad/backend/internal/domain"
	"github.com/sparkpad-app/sparkpad/backend/internal/repository/postgres"
	"github.com/sparkpad-app/sparkpad/backend/internal/service/quota"
	"github.com/sparkpad-app/sparkpad/backend/internal/service/session"
)

type BillingHandler struct {
	UserRepo *postgres.UserRepo
	Quota    quota.Store
	Plans    config.PlanCatalog
	Cache    session.CacheRepository
}

func NewBillingHandler(userRepo *postgres.UserRepo, qs quota.Store, plans config.PlanCatalog, cache session.CacheRepository) *BillingHandler {
	return &BillingHandler{
		UserRepo: userRepo,
		Quota:    qs,
		Plans:    plans,
		Cache:    cache,
	}
}

// ListPlans returns the plan catalog so the app can render pricing.
func (h *BillingHandler) ListPlans(c *gin.Context) {
	plans := make([]domain.Plan, 0, len(h.Plans))
	for _, id := range []domain.PlanID{domain.PlanFree, domain.PlanPro, domain.PlanUnlimited} {
		if p, ok := h.Plans[id]; ok {
			plans = append(plans, p)
		}
	}
	sendSuccess(c, http.StatusOK, gin.H{"plans": plans})
}

// Subscription reports the caller's current plan and renewal date.
func (h *BillingHandler) Subscription(c *gin.Context) {
	userID := c.GetInt64("user_id")

	user, err := h.UserRepo.GetUserByID(userID)
	if err != nil || user == nil {
		sendError(c, http.StatusInternalServerError, domain.CodeInternal, "Failed to load user")
		return
	}

	sendSuccess(c, http.StatusOK, gin.H{
		"plan":     h.Plans.Get(user.Plan),
		"renewsAt": user.PlanRenewsAt,
	})
}

// UpdateSubscription switches the caller to a new plan. Upgrades reset the
// usage counters so the new allowance is available immediately.
func (h *BillingHandler) UpdateSubscription(c *gin.Context) {
	userID := c.GetInt64("user_id")

	var req struct {
		Plan domain.PlanID `json:"plan"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		sendError(c, http.StatusBadRequest, domain.CodeBadRequest, "Invalid input")
		return
	}

	newPlan, ok := h.Plans[req.Plan]
	if !ok {
		sendError(c, http.StatusBadRequest, domain.CodeBadRequest, "Unknown plan")
		return
	}

	user, err := h.UserRepo.GetUserByID(userID)
	if err != nil || user == nil {
		sendError(c, http.StatusInternalServerError, domain.CodeInternal, "Failed to load user")
		return
	}

	renewsAt := time.Now().AddDate(0, 1, 0)
	if err := h.UserRepo.UpdatePlan(userID, newPlan.ID, renewsAt); err != nil {
		sendError(c, http.StatusInternalServerError, domain.CodeInternal, "Failed to update plan")
		return
	}

	oldPlan := h.Plans.Get(user.Plan)
	if newPlan.RepliesPerDay > oldPlan.RepliesPerDay || newPlan.Unlimited() {
		if err := h.Quota.Reset(c.Request.Context(), userID); err != nil {
			log.Printf("[BILLING] Warning: failed to reset usage for user %d: %v", userID, err)
		}
	}

	if h.Cache != nil {
		h.Cache.Del(c.Request.Context(), fmt.Sprintf("user_profile:%d", userID))
	}

	sendSuccess(c, http.StatusOK, gin.H{
		"plan":     newPlan,
		"renewsAt": renewsAt,
	})
}
