package handlers

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finstack-p2p.backend/internal/domain/entities"
	domainerrors "finstack-p2p.backend/internal/domain/errors"
	"finstack-p2p.backend/internal/usecases"
)

func createAd(t *testing.T, e *p2pEnv, merchant string) *entities.Ad {
	t.Helper()
	w := call(e.router(), http.MethodPost, "/api/p2p/ads", merchant, validAdBody())
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var ad entities.Ad
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, w).Data, &ad))
	return &ad
}

func TestAdHandler_CreateAndList(t *testing.T) {
	e := newP2PEnv(t)
	ad := createAd(t, e, "m1")
	assert.NotEmpty(t, ad.ID)
	assert.True(t, ad.IsActive)
	assert.Equal(t, "1650", ad.Price.String())

	w := call(e.router(), http.MethodGet, "/api/p2p/ads", "m1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var mine []entities.Ad
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, w).Data, &mine))
	require.Len(t, mine, 1)
	assert.Equal(t, ad.ID, mine[0].ID)

	w = call(e.router(), http.MethodGet, "/api/p2p/ads", "m2", nil)
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, w).Data, &mine))
	assert.Empty(t, mine)
}

func TestAdHandler_ValidationMessages(t *testing.T) {
	e := newP2PEnv(t)

	body := validAdBody()
	body["minLimit"] = "500000"
	w := call(e.router(), http.MethodPost, "/api/p2p/ads", "m1", body)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "minimum limit must be less than maximum limit", decodeEnvelope(t, w).Error)

	body = validAdBody()
	body["paymentMethods"] = []string{}
	w = call(e.router(), http.MethodPost, "/api/p2p/ads", "m1", body)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "select at least one payment method", decodeEnvelope(t, w).Error)

	w = call(e.router(), http.MethodPost, "/api/p2p/ads", "m1", map[string]string{"type": "sell"})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, domainerrors.CodeInvalidInput, decodeEnvelope(t, w).Code)
}

func TestAdHandler_UpdateToggleOwnership(t *testing.T) {
	e := newP2PEnv(t)
	ad := createAd(t, e, "m1")

	body := validAdBody()
	body["price"] = "1700"
	w := call(e.router(), http.MethodPut, "/api/p2p/ads/"+ad.ID, "m2", body)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = call(e.router(), http.MethodPut, "/api/p2p/ads/"+ad.ID, "m1", body)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var updated entities.Ad
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, w).Data, &updated))
	assert.Equal(t, "1700", updated.Price.String())

	w = call(e.router(), http.MethodPost, "/api/p2p/ads/"+ad.ID+"/toggle", "m1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, w).Data, &updated))
	assert.False(t, updated.IsActive)

	w = call(e.router(), http.MethodGet, "/api/p2p/ads/missing", "m1", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAdHandler_DeleteIsIdempotent(t *testing.T) {
	e := newP2PEnv(t)
	ad := createAd(t, e, "m1")
	other := createAd(t, e, "m1")

	for i := 0; i < 2; i++ {
		w := call(e.router(), http.MethodDelete, "/api/p2p/ads/"+ad.ID, "m1", nil)
		require.Equal(t, http.StatusOK, w.Code)
	}

	w := call(e.router(), http.MethodGet, "/api/p2p/ads", "m1", nil)
	var mine []entities.Ad
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, w).Data, &mine))
	require.Len(t, mine, 1)
	assert.Equal(t, other.ID, mine[0].ID)
}

func TestAdHandler_BulkSetActive(t *testing.T) {
	e := newP2PEnv(t)
	a1 := createAd(t, e, "m1")
	a2 := createAd(t, e, "m1")
	a3 := createAd(t, e, "m1")

	w := call(e.router(), http.MethodPost, "/api/p2p/ads/bulk-status", "m1", map[string]interface{}{
		"ids":    []string{a1.ID, a2.ID, "ghost"},
		"active": false,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var result usecases.BulkStatusResult
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, w).Data, &result))
	assert.ElementsMatch(t, []string{a1.ID, a2.ID}, result.Updated)
	assert.Equal(t, []string{"ghost"}, result.Unknown)

	got, err := e.ads.GetByID(t.Context(), a3.ID)
	require.NoError(t, err)
	assert.True(t, got.IsActive)

	w = call(e.router(), http.MethodPost, "/api/p2p/ads/bulk-status", "m1", map[string]interface{}{"ids": []string{a1.ID}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
