// Package ledger implements the clients for the reward ledger and the
// external payment processor.
package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/Sebdysart/hustlexp-ai-backend-sub009/internal/core"
	"github.com/Sebdysart/hustlexp-ai-backend-sub009/internal/data"
)

const (
	creditedMarkerPrefix    = "reward:credited:"
	transferRefMarkerPrefix = "payout:ref:"

	// markerTTL bounds how long idempotency markers live. Long enough to
	// cover any plausible redelivery window.
	markerTTL = 30 * 24 * time.Hour

	maxResponseBodyBytes = 4 * 1024
)

// ClientOptions groups dependencies for the ledger and gateway clients.
type ClientOptions struct {
	BaseURL    string               // Required: ledger/processor API base URL
	Markers    *data.RedisMarkerRepo // Required: idempotency marker store
	HTTPClient *http.Client         // Optional
	Logger     *slog.Logger         // Optional
}

func resolveHTTPClient(hc *http.Client) *http.Client {
	if hc != nil {
		return hc
	}
	return &http.Client{Timeout: 30 * time.Second}
}

// RewardClient credits worker reward ledgers over HTTP. Credits are
// idempotent twice over: the Idempotency-Key header lets the ledger service
// deduplicate, and a Redis marker short-circuits redeliveries locally.
type RewardClient struct {
	baseURL string
	markers *data.RedisMarkerRepo
	http    *http.Client
	logger  *slog.Logger
}

// NewRewardClient constructs a RewardClient.
func NewRewardClient(opts ClientOptions) (*RewardClient, error) {
	if opts.BaseURL == "" {
		return nil, errors.New("BaseURL is required")
	}
	if opts.Markers == nil {
		return nil, errors.New("marker repo is required")
	}

	var logger *slog.Logger
	if opts.Logger != nil {
		logger = opts.Logger.With("component", "reward_client")
	}

	return &RewardClient{
		baseURL: opts.BaseURL,
		markers: opts.Markers,
		http:    resolveHTTPClient(opts.HTTPClient),
		logger:  logger,
	}, nil
}

// Credit credits the worker's ledger. Re-delivery with the same idempotency
// key is a no-op.
func (c *RewardClient) Credit(ctx context.Context, params core.CreditRewardParams) error {
	if params.IdempotencyKey == "" {
		return errors.New("idempotency key is required")
	}

	markerKey := creditedMarkerPrefix + params.IdempotencyKey
	already, err := c.markers.Exists(ctx, markerKey)
	if err != nil {
		return fmt.Errorf("check credit marker: %w", err)
	}
	if already {
		if c.logger != nil {
			c.logger.DebugContext(ctx, "credit already applied, skipping",
				"idempotency_key", params.IdempotencyKey,
			)
		}
		return nil
	}

	body, err := json.Marshal(map[string]any{
		"worker_id":    params.WorkerID,
		"task_id":      params.TaskID,
		"amount_cents": params.AmountCents,
	})
	if err != nil {
		return fmt.Errorf("marshal credit request: %w", err)
	}

	if err := postJSON(ctx, c.http, c.baseURL+"/v1/rewards/credit", params.IdempotencyKey, body, nil); err != nil {
		return fmt.Errorf("credit reward: %w", err)
	}

	if markErr := c.markers.Set(ctx, markerKey, []byte("1"), markerTTL); markErr != nil && c.logger != nil {
		// The ledger's own idempotency key still protects against
		// double-credit if the marker write is lost.
		c.logger.WarnContext(ctx, "record credit marker failed",
			"idempotency_key", params.IdempotencyKey,
			"error", markErr,
		)
	}
	return nil
}

// GatewayClient initiates transfers with the external payment processor.
type GatewayClient struct {
	baseURL string
	markers *data.RedisMarkerRepo
	http    *http.Client
	logger  *slog.Logger
}

// NewGatewayClient constructs a GatewayClient.
func NewGatewayClient(opts ClientOptions) (*GatewayClient, error) {
	if opts.BaseURL == "" {
		return nil, errors.New("BaseURL is required")
	}
	if opts.Markers == nil {
		return nil, errors.New("marker repo is required")
	}

	var logger *slog.Logger
	if opts.Logger != nil {
		logger = opts.Logger.With("component", "gateway_client")
	}

	return &GatewayClient{
		baseURL: opts.BaseURL,
		markers: opts.Markers,
		http:    resolveHTTPClient(opts.HTTPClient),
		logger:  logger,
	}, nil
}

// Transfer initiates the payout transfer and returns the processor's
// reference. A redelivered transfer returns the stored reference without
// contacting the processor again.
func (c *GatewayClient) Transfer(ctx context.Context, params core.TransferParams) (string, error) {
	if params.IdempotencyKey == "" {
		return "", errors.New("idempotency key is required")
	}

	markerKey := transferRefMarkerPrefix + params.IdempotencyKey
	stored, err := c.markers.Get(ctx, markerKey)
	if err != nil {
		return "", fmt.Errorf("check transfer marker: %w", err)
	}
	if len(stored) > 0 {
		return string(stored), nil
	}

	body, err := json.Marshal(map[string]any{
		"escrow_id":    params.EscrowID,
		"worker_id":    params.WorkerID,
		"amount_cents": params.AmountCents,
	})
	if err != nil {
		return "", fmt.Errorf("marshal transfer request: %w", err)
	}

	var response struct {
		TransferRef string `json:"transfer_ref"`
	}
	if err := postJSON(ctx, c.http, c.baseURL+"/v1/transfers", params.IdempotencyKey, body, &response); err != nil {
		return "", fmt.Errorf("initiate transfer: %w", err)
	}
	if response.TransferRef == "" {
		return "", errors.New("processor returned no transfer reference")
	}

	if markErr := c.markers.Set(ctx, markerKey, []byte(response.TransferRef), markerTTL); markErr != nil && c.logger != nil {
		c.logger.WarnContext(ctx, "record transfer marker failed",
			"idempotency_key", params.IdempotencyKey,
			"error", markErr,
		)
	}
	return response.TransferRef, nil
}

// postJSON sends a JSON POST with an Idempotency-Key header and decodes the
// response into out when it is non-nil.
func postJSON(
	ctx context.Context,
	client *http.Client,
	url, idempotencyKey string,
	body []byte,
	out any,
) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotency-Key", idempotencyKey)

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	limited := io.LimitReader(resp.Body, maxResponseBodyBytes)
	respBody, readErr := io.ReadAll(limited)
	if readErr != nil {
		return fmt.Errorf("read response body: %w", readErr)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(respBody))
	}

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}
