package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/rampwallet/internal/models"
)

func TestBridgeClient_CreateKYCLink(t *testing.T) {
	var gotKey, gotIdempotency string
	var gotBody createKYCLinkRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v0/kyc_links", r.URL.Path)
		gotKey = r.Header.Get("Api-Key")
		gotIdempotency = r.Header.Get("Idempotency-Key")
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"kyc_1","kyc_link":"https://kyc","tos_link":"https://tos","kyc_status":"not_started","tos_status":"pending"}`))
	}))
	defer srv.Close()

	client := NewBridgeClient(srv.URL+"/v0/", "sk-test", time.Second)
	link, err := client.CreateKYCLink(context.Background(), "Ada Lovelace", "ada@example.com")
	require.NoError(t, err)

	assert.Equal(t, "sk-test", gotKey)
	assert.NotEmpty(t, gotIdempotency)
	assert.Equal(t, "individual", gotBody.Type)
	assert.Equal(t, "ada@example.com", gotBody.Email)
	assert.Equal(t, "kyc_1", link.ID)
	assert.Equal(t, "https://kyc", link.KYCLink)
}

func TestBridgeClient_GetKYCLinkHasNoIdempotencyKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/kyc_links/kyc_9", r.URL.Path)
		assert.Empty(t, r.Header.Get("Idempotency-Key"))
		_, _ = w.Write([]byte(`{"id":"kyc_9","kyc_status":"approved","tos_status":"approved","customer_id":"cus_9"}`))
	}))
	defer srv.Close()

	link, err := NewBridgeClient(srv.URL, "k", 0).GetKYCLink(context.Background(), "kyc_9")
	require.NoError(t, err)
	assert.Equal(t, "cus_9", link.CustomerID)
	assert.Equal(t, models.KYCActive, MapKYCStatus(link.KYCStatus))
}

func TestBridgeClient_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"code":"invalid_amount"}`))
	}))
	defer srv.Close()

	_, err := NewBridgeClient(srv.URL, "k", time.Second).CreateTransfer(context.Background(), TransferRequest{Amount: "-1"})

	var bridgeErr *BridgeError
	require.True(t, errors.As(err, &bridgeErr))
	assert.Equal(t, http.StatusUnprocessableEntity, bridgeErr.Status)
	assert.Contains(t, bridgeErr.Body, "invalid_amount")
}

func TestMapKYCStatus(t *testing.T) {
	cases := map[string]models.KYCStatus{
		"not_started":  models.KYCPending,
		"incomplete":   models.KYCPending,
		"under_review": models.KYCUnderReview,
		"awaiting_ubo": models.KYCUnderReview,
		"approved":     models.KYCActive,
		"rejected":     models.KYCRejected,
	}
	for in, want := range cases {
		assert.Equal(t, want, MapKYCStatus(in), in)
	}
	assert.False(t, MapKYCStatus("paused").Valid())
}

func TestMapTOSStatus(t *testing.T) {
	assert.Equal(t, models.TOSUnset, MapTOSStatus(""))
	assert.Equal(t, models.TOSPending, MapTOSStatus("pending"))
	assert.Equal(t, models.TOSApproved, MapTOSStatus("approved"))
}
