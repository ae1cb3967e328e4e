package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/Wikid82/warden/internal/api/handlers"
	"github.com/Wikid82/warden/internal/api/middleware"
	"github.com/Wikid82/warden/internal/models"
	"github.com/Wikid82/warden/internal/moderation"
	"github.com/Wikid82/warden/internal/platform"
	"github.com/Wikid82/warden/internal/services"
)

// harness wires the handlers against real services, a DryRun platform and
// a header based stand-in for the JWT middleware.
type harness struct {
	r       *gin.Engine
	db      *gorm.DB
	members *services.MemberService
	rules   *services.AutoModService
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	gin.SetMode(gin.TestMode)
	db := handlers.OpenTestDB(t)

	members := services.NewMemberService(db)
	rules := services.NewAutoModService(db)
	notifications := services.NewNotificationService(db)
	exec := moderation.NewExecutor(platform.DryRun{}, moderation.WithDirectory(members))
	moderation.NewCascade(services.NewWarningService(db), rules, exec, notifications)
	t.Cleanup(notifications.Wait)

	require.NoError(t, members.Sync(context.Background(), &models.Tenant{ID: "guild", Name: "Guild", OwnerID: "owner"}, []models.Member{
		{UserID: "owner", DisplayName: "Olive", Rank: 100},
		{UserID: "admin", DisplayName: "Ada", Rank: 50, Capabilities: "Administrator"},
		{UserID: "mod", DisplayName: "Mo", Rank: 10, Capabilities: "KickMembers,ModerateMembers"},
		{UserID: "user", DisplayName: "Uma", Rank: 1},
		{UserID: "other", DisplayName: "Otto", Rank: 1},
	}))

	r := gin.New()
	api := r.Group("/api/v1")
	api.Use(func(c *gin.Context) {
		c.Set(middleware.ActorIDKey, c.GetHeader("X-Test-Actor"))
		c.Set(middleware.TenantIDKey, "guild")
		c.Next()
	})

	cmd := handlers.NewCommandHandler(members, exec)
	api.POST("/commands", cmd.Execute)
	api.GET("/warnings/:actor", cmd.ListWarnings)
	api.DELETE("/warnings/:actor", cmd.ClearWarnings)
	api.DELETE("/warnings/:actor/:id", cmd.RemoveWarning)

	automod := handlers.NewAutoModHandler(members, rules)
	api.GET("/automod/rules", automod.List)
	api.PUT("/automod/rules", automod.Upsert)
	api.GET("/automod/rules/:threshold", automod.Get)
	api.DELETE("/automod/rules/:threshold", automod.Delete)

	memberHandler := handlers.NewMemberHandler(members)
	api.GET("/members", memberHandler.List)
	api.PUT("/members", memberHandler.Sync)

	notificationHandler := handlers.NewNotificationHandler(members, notifications)
	api.GET("/notifications", notificationHandler.List)
	api.POST("/notifications/read-all", notificationHandler.MarkAllAsRead)
	api.POST("/notifications/:id/read", notificationHandler.MarkAsRead)

	providers := handlers.NewNotificationProviderHandler(members, notifications)
	api.GET("/notifications/providers", providers.List)
	api.POST("/notifications/providers", providers.Create)
	api.PUT("/notifications/providers/:id", providers.Update)
	api.DELETE("/notifications/providers/:id", providers.Delete)
	api.POST("/notifications/providers/test", providers.Test)

	return &harness{r: r, db: db, members: members, rules: rules}
}

func (h *harness) do(t *testing.T, actor, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Test-Actor", actor)
	w := httptest.NewRecorder()
	h.r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func command(kind, target string, params map[string]interface{}) map[string]interface{} {
	return map[string]interface{}{"kind": kind, "target": target, "params": params}
}
