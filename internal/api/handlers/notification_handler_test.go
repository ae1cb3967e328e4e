package handlers_test

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Wikid82/warden/internal/models"
)

func TestNotificationHandler_WarningsAreListedAndMarkedRead(t *testing.T) {
	h := newHarness(t)

	w := h.do(t, "mod", http.MethodPost, "/api/v1/commands", command("warn", "Uma", map[string]interface{}{"reason": "spam"}))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = h.do(t, "mod", http.MethodGet, "/api/v1/notifications?unread=true", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list []models.Notification
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, "guild", list[0].TenantID)

	w = h.do(t, "mod", http.MethodPost, "/api/v1/notifications/"+list[0].ID+"/read", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = h.do(t, "mod", http.MethodGet, "/api/v1/notifications?unread=true", nil)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	assert.Empty(t, list)

	w = h.do(t, "mod", http.MethodPost, "/api/v1/notifications/read-all", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = h.do(t, "user", http.MethodGet, "/api/v1/notifications", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestNotificationProviderHandler_CRUD(t *testing.T) {
	h := newHarness(t)

	w := h.do(t, "admin", http.MethodPost, "/api/v1/notifications/providers", map[string]interface{}{
		"name": "Mod log", "type": "generic", "url": "generic://example.com/hook", "enabled": true,
		"notify_warnings": false, "notify_automod": true,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created models.NotificationProvider
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "guild", created.TenantID)
	assert.False(t, created.NotifyWarnings)

	w = h.do(t, "admin", http.MethodGet, "/api/v1/notifications/providers", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list []models.NotificationProvider
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.False(t, list[0].NotifyWarnings)

	created.Name = "Renamed"
	w = h.do(t, "admin", http.MethodPut, "/api/v1/notifications/providers/"+created.ID, created)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = h.do(t, "admin", http.MethodPut, "/api/v1/notifications/providers/missing", created)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = h.do(t, "admin", http.MethodDelete, "/api/v1/notifications/providers/"+created.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	w = h.do(t, "admin", http.MethodDelete, "/api/v1/notifications/providers/"+created.ID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestNotificationProviderHandler_Validation(t *testing.T) {
	h := newHarness(t)

	w := h.do(t, "admin", http.MethodPost, "/api/v1/notifications/providers", map[string]interface{}{"name": "no url"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = h.do(t, "mod", http.MethodGet, "/api/v1/notifications/providers", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = h.do(t, "admin", http.MethodPost, "/api/v1/notifications/providers/test", map[string]interface{}{
		"type": "generic", "url": "http://10.0.0.5/hook",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
