package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/enablehub/hub/internal/models"
	"github.com/enablehub/hub/internal/service"
)

type mockContentSyncer struct {
	syncFunc func(ctx context.Context, doc models.ContentDocument) (service.SyncOutcome, error)
	calls    int
}

func (m *mockContentSyncer) Sync(ctx context.Context, doc models.ContentDocument) (service.SyncOutcome, error) {
	m.calls++
	if m.syncFunc != nil {
		return m.syncFunc(ctx, doc)
	}

	return service.SyncOutcomeSynced, nil
}

func TestWebhookHandler_HandleContentChange(t *testing.T) {
	t.Run("acknowledges a synced document", func(t *testing.T) {
		syncer := &mockContentSyncer{
			syncFunc: func(_ context.Context, doc models.ContentDocument) (service.SyncOutcome, error) {
				assert.Equal(t, "doc-1", doc.SourceID)
				assert.Equal(t, "entry", doc.Type)
				assert.Equal(t, models.StatusPublished, doc.Status)

				return service.SyncOutcomeSynced, nil
			},
		}
		handler := NewWebhookHandler(syncer)

		body := `{"_id":"doc-1","_type":"entry","status":"published","title":"Playbook"}`
		req := httptest.NewRequest(http.MethodPost, "/v1/webhooks/content", strings.NewReader(body))
		rec := httptest.NewRecorder()

		handler.HandleContentChange(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)

		var resp WebhookResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "synced", resp.Status)
	})

	t.Run("skipped documents still get 200", func(t *testing.T) {
		syncer := &mockContentSyncer{
			syncFunc: func(_ context.Context, _ models.ContentDocument) (service.SyncOutcome, error) {
				return service.SyncOutcomeSkipped, nil
			},
		}
		handler := NewWebhookHandler(syncer)

		body := `{"_id":"doc-2","_type":"navigation"}`
		req := httptest.NewRequest(http.MethodPost, "/v1/webhooks/content", strings.NewReader(body))
		rec := httptest.NewRecorder()

		handler.HandleContentChange(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"status":"skipped"`)
	})

	t.Run("malformed payload returns 400 without calling the syncer", func(t *testing.T) {
		syncer := &mockContentSyncer{}
		handler := NewWebhookHandler(syncer)

		req := httptest.NewRequest(http.MethodPost, "/v1/webhooks/content", strings.NewReader(`{"_id":`))
		rec := httptest.NewRecorder()

		handler.HandleContentChange(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Zero(t, syncer.calls)
	})

	t.Run("missing _id returns 400", func(t *testing.T) {
		syncer := &mockContentSyncer{}
		handler := NewWebhookHandler(syncer)

		req := httptest.NewRequest(http.MethodPost, "/v1/webhooks/content", strings.NewReader(`{"_type":"entry"}`))
		rec := httptest.NewRecorder()

		handler.HandleContentChange(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Zero(t, syncer.calls)
	})

	t.Run("sync failure returns 500 so the CMS retries", func(t *testing.T) {
		syncer := &mockContentSyncer{
			syncFunc: func(_ context.Context, _ models.ContentDocument) (service.SyncOutcome, error) {
				return "", errors.New("provider unavailable")
			},
		}
		handler := NewWebhookHandler(syncer)

		req := httptest.NewRequest(http.MethodPost, "/v1/webhooks/content", strings.NewReader(`{"_id":"doc-3"}`))
		rec := httptest.NewRecorder()

		handler.HandleContentChange(rec, req)

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}
