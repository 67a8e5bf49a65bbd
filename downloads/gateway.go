// Package downloads relays secure-download authorization to the platform's
// download gateway. The gateway is an opaque authority: the kit never
// computes download permission itself, only forwards the decision.
package downloads

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/open-rails/coursekit/core"
)

// Decision is the gateway's answer, relayed verbatim.
type Decision struct {
	Allowed bool   `json:"allowed"`
	URL     string `json:"url,omitempty"`
	Reason  string `json:"reason,omitempty"`
}

// Gateway calls POST {base}/downloads/secure.
type Gateway struct {
	base string
	hc   *http.Client
}

func NewGateway(baseURL string, timeout time.Duration) *Gateway {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Gateway{base: baseURL, hc: &http.Client{Timeout: timeout}}
}

type authorizeRequest struct {
	TenantID   string `json:"tenantId"`
	DownloadID string `json:"downloadId"`
}

// Authorize asks the gateway whether the download may proceed. Errors are
// transient; a caller must treat them as "retry later", never as a grant.
func (g *Gateway) Authorize(ctx context.Context, schoolID uuid.UUID, downloadID string) (Decision, error) {
	if g == nil || g.base == "" {
		return Decision{}, core.Transient("downloads: gateway unconfigured", fmt.Errorf("no base url"))
	}
	if schoolID == uuid.Nil || downloadID == "" {
		return Decision{}, core.Invalid("download", "school and download id required")
	}
	body, err := json.Marshal(authorizeRequest{TenantID: schoolID.String(), DownloadID: downloadID})
	if err != nil {
		return Decision{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.base+"/downloads/secure", bytes.NewReader(body))
	if err != nil {
		return Decision{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := g.hc.Do(req)
	if err != nil {
		return Decision{}, core.Transient("downloads: authorize", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return Decision{}, core.Transient("downloads: authorize", fmt.Errorf("status %d", resp.StatusCode))
	}
	var d Decision
	if err := json.NewDecoder(resp.Body).Decode(&d); err != nil {
		return Decision{}, core.Transient("downloads: decode decision", err)
	}
	return d, nil
}
