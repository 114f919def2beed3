package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client is the engine's view of the external registries. Counterparties,
// construction objects etc. are referenced by opaque id everywhere else;
// this is the only place that talks to the registry service.
type Client interface {
	IsVendorCapable(ctx context.Context, counterpartyID uint64) (bool, error)
	ObjectName(ctx context.Context, objectID uint64) (string, error)
}

type HTTPClient struct {
	baseURL    string
	secret     string
	httpClient *http.Client
}

func NewHTTPClient(baseURL, secret string) *HTTPClient {
	return &HTTPClient{
		baseURL: baseURL,
		secret:  secret,
		httpClient: &http.Client{
			Timeout: 5 * time.Second,
		},
	}
}

type counterpartyResponse struct {
	ID            uint64 `json:"id"`
	VendorCapable bool   `json:"vendor_capable"`
}

// IsVendorCapable asks the counterparty registry whether the counterparty
// may be bound to a mounting estimate as vendor/supplier.
func (r *HTTPClient) IsVendorCapable(ctx context.Context, counterpartyID uint64) (bool, error) {
	url := fmt.Sprintf(
		"%s/internal/counterparties/%d",
		r.baseURL,
		counterpartyID,
	)

	var payload counterpartyResponse
	if err := r.getJSON(ctx, url, &payload); err != nil {
		return false, err
	}

	return payload.VendorCapable, nil
}

type objectResponse struct {
	ID   uint64 `json:"id"`
	Name string `json:"name"`
}

// ObjectName resolves a construction object's display name.
func (r *HTTPClient) ObjectName(ctx context.Context, objectID uint64) (string, error) {
	url := fmt.Sprintf(
		"%s/internal/objects/%d",
		r.baseURL,
		objectID,
	)

	var payload objectResponse
	if err := r.getJSON(ctx, url, &payload); err != nil {
		return "", err
	}

	return payload.Name, nil
}

func (r *HTTPClient) getJSON(ctx context.Context, url string, dest any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("X-Internal-Secret", r.secret)

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf(
			"registry error: status=%d body=%s",
			resp.StatusCode,
			string(b),
		)
	}

	return json.NewDecoder(resp.Body).Decode(dest)
}
