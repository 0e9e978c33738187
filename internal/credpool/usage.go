package credpool

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/relaygate/gateway/internal/httpclient"
	"github.com/relaygate/gateway/internal/retry"
)

// UsageLimits is the subscription quota reported by the upstream for one
// credential.
type UsageLimits struct {
	UsedPercent     float64 `json:"used_percent"`
	LimitUnits      int64   `json:"limit_units"`
	RemainingUnits  int64   `json:"remaining_units"`
	ResetsAtUnixSec int64   `json:"resets_at_unix_sec"`
}

// GetUsageLimitsFor asks the upstream for index's subscription quota. At
// most one such query runs per index at a time; concurrent callers share
// the in-flight result.
func (p *Pool) GetUsageLimitsFor(ctx context.Context, client *httpclient.Client, index int) (UsageLimits, error) {
	p.mu.Lock()
	e := p.entryAt(index)
	p.mu.Unlock()
	if e == nil {
		return UsageLimits{}, fmt.Errorf("no credential at index %d", index)
	}

	v, err := p.refresh.do(index, func() (interface{}, error) {
		var limits UsageLimits
		authHeader := map[string]string{}
		if e.AuthMethod == AuthBearer {
			authHeader["Authorization"] = "Bearer " + e.BearerToken
		}

		retryErr := retry.Do(ctx, retry.DefaultConfig(), func(ctx context.Context) error {
			resp, err := client.Do(ctx, httpclient.Request{
				Method:  http.MethodGet,
				Path:    "/usage-limits",
				Headers: authHeader,
			})
			if err != nil {
				return err
			}
			if resp.StatusCode >= 400 {
				return fmt.Errorf("usage limits query failed with status %d", resp.StatusCode)
			}
			return json.Unmarshal(resp.Body, &limits)
		})
		return limits, retryErr
	})
	if err != nil {
		return UsageLimits{}, err
	}
	return v.(UsageLimits), nil
}
