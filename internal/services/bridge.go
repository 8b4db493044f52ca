package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/example/rampwallet/internal/models"
)

const defaultBridgeTimeout = 15 * time.Second

// BridgeError is returned for any non-2xx response from the provider.
type BridgeError struct {
	Status int
	Body   string
}

func (e *BridgeError) Error() string {
	return fmt.Sprintf("bridge: status %d: %s", e.Status, e.Body)
}

// BridgeClient talks to the Bridge ramp API.
type BridgeClient struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// NewBridgeClient returns a client for baseURL. A zero timeout falls back to
// 15 seconds.
func NewBridgeClient(baseURL, apiKey string, timeout time.Duration) *BridgeClient {
	if timeout <= 0 {
		timeout = defaultBridgeTimeout
	}
	return &BridgeClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http:    &http.Client{Timeout: timeout},
	}
}

// KYCLink is the provider's onboarding link together with the customer's
// current KYC and terms-of-service state.
type KYCLink struct {
	ID         string `json:"id"`
	FullName   string `json:"full_name"`
	Email      string `json:"email"`
	KYCLink    string `json:"kyc_link"`
	TOSLink    string `json:"tos_link"`
	KYCStatus  string `json:"kyc_status"`
	TOSStatus  string `json:"tos_status"`
	CustomerID string `json:"customer_id"`
}

type createKYCLinkRequest struct {
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	Type     string `json:"type"`
}

// CreateKYCLink starts provider onboarding for an individual.
func (c *BridgeClient) CreateKYCLink(ctx context.Context, fullName, email string) (*KYCLink, error) {
	var link KYCLink
	err := c.do(ctx, http.MethodPost, "/kyc_links", createKYCLinkRequest{
		FullName: fullName,
		Email:    email,
		Type:     "individual",
	}, &link)
	if err != nil {
		return nil, err
	}
	return &link, nil
}

// GetKYCLink fetches the current state of an onboarding link.
func (c *BridgeClient) GetKYCLink(ctx context.Context, linkID string) (*KYCLink, error) {
	var link KYCLink
	if err := c.do(ctx, http.MethodGet, "/kyc_links/"+linkID, nil, &link); err != nil {
		return nil, err
	}
	return &link, nil
}

// TransferEndpoint is one side of a transfer.
type TransferEndpoint struct {
	PaymentRail string `json:"payment_rail"`
	Currency    string `json:"currency"`
	ToAddress   string `json:"to_address,omitempty"`
}

// TransferRequest is the body sent to create a transfer.
type TransferRequest struct {
	Amount      string           `json:"amount"`
	OnBehalfOf  string           `json:"on_behalf_of"`
	Source      TransferEndpoint `json:"source"`
	Destination TransferEndpoint `json:"destination"`
}

// Transfer is the provider's view of a transfer.
type Transfer struct {
	ID     string `json:"id"`
	State  string `json:"state"`
	Amount string `json:"amount"`
}

// CreateTransfer creates an on-ramp or off-ramp transfer. Each call carries
// a fresh Idempotency-Key.
func (c *BridgeClient) CreateTransfer(ctx context.Context, req TransferRequest) (*Transfer, error) {
	var transfer Transfer
	if err := c.do(ctx, http.MethodPost, "/transfers", req, &transfer); err != nil {
		return nil, err
	}
	return &transfer, nil
}

func (c *BridgeClient) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal bridge payload: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create bridge request: %w", err)
	}
	req.Header.Set("Api-Key", c.apiKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if method == http.MethodPost {
		req.Header.Set("Idempotency-Key", uuid.NewString())
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("bridge request %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read bridge response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		log.Warn().
			Str("method", method).
			Str("path", path).
			Int("status", resp.StatusCode).
			Msg("bridge request failed")
		return &BridgeError{Status: resp.StatusCode, Body: string(respBody)}
	}

	if out == nil || len(respBody) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("decode bridge response: %w", err)
	}
	return nil
}

// MapKYCStatus converts a provider KYC state into the account's KYCStatus.
// Unknown values are returned as-is so the status updater can reject them.
func MapKYCStatus(s string) models.KYCStatus {
	switch s {
	case "not_started", "incomplete", "pending":
		return models.KYCPending
	case "under_review", "awaiting_ubo", "manual_review":
		return models.KYCUnderReview
	case "approved", "active":
		return models.KYCActive
	case "rejected":
		return models.KYCRejected
	}
	return models.KYCStatus(s)
}

// MapTOSStatus converts a provider terms-of-service state.
func MapTOSStatus(s string) models.TOSStatus {
	switch s {
	case "", "not_started":
		return models.TOSUnset
	case "pending":
		return models.TOSPending
	case "approved":
		return models.TOSApproved
	}
	return models.TOSStatus(s)
}
