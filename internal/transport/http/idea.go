package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sparkpad-app/sparkpad/backend/internal/config"
	"github.com/sparkpad-app/sparkpad/backend/internal/domain"
)

// IdeaStore is the persistence surface the idea endpoints need.
type IdeaStore interface {
	CreateIdea(id string, userID int64, title, description string) (*domain.Idea, error)
	GetIdeaByID(id string) (*domain.Idea, error)
	ListIdeasByUser(userID int64, includeArchived bool) ([]domain.Idea, error)
	CountIdeasByUser(userID int64) (int, error)
	UpdateIdea(id string, title, description string) error
	SetArchived(id string, archived bool) error
	DeleteIdea(id string) error
}

// UserGetter resolves the authenticated user's record.
type UserGetter interface {
	GetUserByID(userID int64) (*domain.User, error)
}

type IdeaHandler struct {
	IdeaRepo IdeaStore
	UserRepo UserGetter
	Plans    config.PlanCatalog
}

func NewIdeaHandler(ideaRepo IdeaStore, userRepo UserGetter, plans config.PlanCatalog) *IdeaHandler {
	return &IdeaHandler{
		IdeaRepo: ideaRepo,
		UserRepo: userRepo,
		Plans:    plans,
	}
}

func (h *IdeaHandler) Create(c *gin.Context) {
	userID := c.GetInt64("user_id")

	var req struct {
		Title       string `json:"title"`
		Description string `json:"description"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		sendError(c, http.StatusBadRequest, domain.CodeBadRequest, "Invalid input")
		return
	}

	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		sendError(c, http.StatusBadRequest, domain.CodeBadRequest, "Title is required")
		return
	}
	if len(req.Title) > 200 {
		sendError(c, http.StatusBadRequest, domain.CodeBadRequest, "Title must be at most 200 characters")
		return
	}

	user, err := h.UserRepo.GetUserByID(userID)
	if err != nil || user == nil {
		sendError(c, http.StatusInternalServerError, domain.CodeInternal, "Failed to load user")
		return
	}

	if err := h.checkIdeaAllowance(h.Plans.Get(user.Plan), userID); err != nil {
		if errors.Is(err, domain.ErrIdeaLimitReached) {
			sendError(c, http.StatusForbidden, domain.CodeQuotaExceeded, "Idea limit reached for your plan")
			return
		}
		sendError(c, http.StatusInternalServerError, domain.CodeInternal, "Failed to count ideas")
		return
	}

	idea, err := h.IdeaRepo.CreateIdea(uuid.NewString(), userID, req.Title, strings.TrimSpace(req.Description))
	if err != nil {
		sendError(c, http.StatusInternalServerError, domain.CodeInternal, "Failed to create idea")
		return
	}

	sendSuccess(c, http.StatusCreated, gin.H{"idea": idea})
}

func (h *IdeaHandler) List(c *gin.Context) {
	userID := c.GetInt64("user_id")
	includeArchived := c.Query("archived") == "true"

	ideas, err := h.IdeaRepo.ListIdeasByUser(userID, includeArchived)
	if err != nil {
		sendError(c, http.StatusInternalServerError, domain.CodeInternal, "Failed to list ideas")
		return
	}

	sendSuccess(c, http.StatusOK, gin.H{"ideas": ideas})
}

func (h *IdeaHandler) Get(c *gin.Context) {
	idea, ok := h.ownedIdea(c)
	if !ok {
		return
	}
	sendSuccess(c, http.StatusOK, gin.H{"idea": idea})
}

func (h *IdeaHandler) Update(c *gin.Context) {
	idea, ok := h.ownedIdea(c)
	if !ok {
		return
	}

	var req struct {
		Title       *string `json:"title"`
		Description *string `json:"description"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		sendError(c, http.StatusBadRequest, domain.CodeBadRequest, "Invalid input")
		return
	}

	title := idea.Title
	if req.Title != nil {
		title = strings.TrimSpace(*req.Title)
		if title == "" {
			sendError(c, http.StatusBadRequest, domain.CodeBadRequest, "Title cannot be empty")
			return
		}
	}
	description := idea.Description
	if req.Description != nil {
		description = strings.TrimSpace(*req.Description)
	}

	if err := h.IdeaRepo.UpdateIdea(idea.ID, title, description); err != nil {
		sendError(c, http.StatusInternalServerError, domain.CodeInternal, "Failed to update idea")
		return
	}

	updated, err := h.IdeaRepo.GetIdeaByID(idea.ID)
	if err != nil {
		sendError(c, http.StatusInternalServerError, domain.CodeInternal, "Failed to load idea")
		return
	}

	sendSuccess(c, http.StatusOK, gin.H{"idea": updated})
}

func (h *IdeaHandler) Archive(c *gin.Context) {
	h.setArchived(c, true)
}

func (h *IdeaHandler) Unarchive(c *gin.Context) {
	h.setArchived(c, false)
}

func (h *IdeaHandler) Delete(c *gin.Context) {
	idea, ok := h.ownedIdea(c)
	if !ok {
		return
	}

	if err := h.IdeaRepo.DeleteIdea(idea.ID); err != nil {
		sendError(c, http.StatusInternalServerError, domain.CodeInternal, "Failed to delete idea")
		return
	}

	sendSuccess(c, http.StatusOK, gin.H{"deleted": true})
}

func (h *IdeaHandler) setArchived(c *gin.Context, archived bool) {
	idea, ok := h.ownedIdea(c)
	if !ok {
		return
	}

	if err := h.IdeaRepo.SetArchived(idea.ID, archived); err != nil {
		sendError(c, http.StatusInternalServerError, domain.CodeInternal, "Failed to update idea")
		return
	}

	idea.Archived = archived
	sendSuccess(c, http.StatusOK, gin.H{"idea": idea})
}

// checkIdeaAllowance enforces the plan's idea cap before a create.
func (h *IdeaHandler) checkIdeaAllowance(plan domain.Plan, userID int64) error {
	if plan.UnlimitedIdeas() {
		return nil
	}
	count, err := h.IdeaRepo.CountIdeasByUser(userID)
	if err != nil {
		return err
	}
	if count >= plan.MaxIdeas {
		return domain.ErrIdeaLimitReached
	}
	return nil
}

// ownedIdea loads the idea from the path param and enforces ownership.
// Missing and foreign ideas are indistinguishable to the caller.
func (h *IdeaHandler) ownedIdea(c *gin.Context) (*domain.Idea, bool) {
	userID := c.GetInt64("user_id")
	ideaID := c.Param("id")

	idea, err := h.IdeaRepo.GetIdeaByID(ideaID)
	if err != nil {
		sendError(c, http.StatusInternalServerError, domain.CodeInternal, "Failed to load idea")
		return nil, false
	}
	if idea == nil || idea.UserID != userID {
		sendError(c, http.StatusNotFound, domain.CodeNotFound, "Idea not found")
		return nil, false
	}
	return idea, true
}
