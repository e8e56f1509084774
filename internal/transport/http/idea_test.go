package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sparkpad-app/sparkpad/backend/internal/config"
	"github.com/sparkpad-app/sparkpad/backend/internal/domain"
)

type fakeIdeaStore struct {
	count      int
	countCalls int
	created    []*domain.Idea
}

func (f *fakeIdeaStore) CreateIdea(id string, userID int64, title, description string) (*domain.Idea, error) {
	idea := &domain.Idea{ID: id, UserID: userID, Title: title, Description: description}
	f.created = append(f.created, idea)
	return idea, nil
}

func (f *fakeIdeaStore) GetIdeaByID(id string) (*domain.Idea, error) { return nil, nil }

func (f *fakeIdeaStore) ListIdeasByUser(userID int64, includeArchived bool) ([]domain.Idea, error) {
	return nil, nil
}

func (f *fakeIdeaStore) CountIdeasByUser(userID int64) (int, error) {
	f.countCalls++
	return f.count, nil
}

func (f *fakeIdeaStore) UpdateIdea(id string, title, description string) error { return nil }
func (f *fakeIdeaStore) SetArchived(id string, archived bool) error            { return nil }
func (f *fakeIdeaStore) DeleteIdea(id string) error                            { return nil }

type fakeUserGetter struct {
	user *domain.User
}

func (f *fakeUserGetter) GetUserByID(userID int64) (*domain.User, error) {
	return f.user, nil
}

func postCreateIdea(t *testing.T, h *IdeaHandler) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/api/ideas", func(c *gin.Context) { c.Set("user_id", int64(1)) }, h.Create)

	req := httptest.NewRequest(http.MethodPost, "/api/ideas",
		strings.NewReader(`{"title":"Dog walking marketplace"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestCreateIdeaEnforcesPlanLimit(t *testing.T) {
	store := &fakeIdeaStore{count: 5}
	users := &fakeUserGetter{user: &domain.User{ID: 1, Plan: domain.PlanFree}}
	h := NewIdeaHandler(store, users, config.DefaultPlanCatalog())

	w := postCreateIdea(t, h)

	assert.Equal(t, http.StatusForbidden, w.Code)
	var resp Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotNil(t, resp.Error)
	assert.Equal(t, domain.CodeQuotaExceeded, resp.Error.Code)
	assert.Empty(t, store.created, "a capped plan must not create past the limit")
}

func TestCreateIdeaUnderLimitSucceeds(t *testing.T) {
	store := &fakeIdeaStore{count: 4}
	users := &fakeUserGetter{user: &domain.User{ID: 1, Plan: domain.PlanFree}}
	h := NewIdeaHandler(store, users, config.DefaultPlanCatalog())

	w := postCreateIdea(t, h)

	assert.Equal(t, http.StatusCreated, w.Code)
	require.Len(t, store.created, 1)
	assert.Equal(t, "Dog walking marketplace", store.created[0].Title)
}

func TestCreateIdeaUnlimitedPlanSkipsCount(t *testing.T) {
	store := &fakeIdeaStore{count: 100000}
	users := &fakeUserGetter{user: &domain.User{ID: 1, Plan: domain.PlanUnlimited}}
	h := NewIdeaHandler(store, users, config.DefaultPlanCatalog())

	w := postCreateIdea(t, h)

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Zero(t, store.countCalls, "uncapped plans should not hit the counter")
	assert.Len(t, store.created, 1)
}
