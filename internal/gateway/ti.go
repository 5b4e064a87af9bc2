package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/webhydra/console/internal/model"
)

// lookup performs one reputation query against a TI provider endpoint. A
// non-2xx response carries a provider error body; both that and transport
// failures come back as an inline error card, never as a Go error.
func (c *Client) lookup(ctx context.Context, provider, rawURL string) model.TIResult {
	ctx, cancel := context.WithTimeout(ctx, c.reqTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return model.TIResult{Provider: provider, Error: "Network Error"}
	}
	resp, err := c.http.Do(req)
	if err != nil {
		c.warn("ti/"+provider, err)
		return model.TIResult{Provider: provider, Error: "Network Error"}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Rate limits and provider errors arrive as {"error": ...}.
		var body struct {
			Error string `json:"error"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil || body.Error == "" {
			body.Error = "API Error"
		}
		return model.TIResult{Provider: provider, Error: body.Error}
	}

	var result model.TIResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		c.warn("ti/"+provider, err)
		return model.TIResult{Provider: provider, Error: "Network Error"}
	}
	if result.Provider == "" {
		result.Provider = provider
	}
	return result
}

// LookupVirusTotal queries VirusTotal reputation for any indicator type.
func (c *Client) LookupVirusTotal(ctx context.Context, indicatorType, value string) model.TIResult {
	q := url.Values{"type": {indicatorType}, "value": {value}}
	return c.lookup(ctx, "virustotal", c.tiBase+"/virustotal?"+q.Encode())
}

// LookupOTX queries AlienVault OTX reputation for any indicator type.
func (c *Client) LookupOTX(ctx context.Context, indicatorType, value string) model.TIResult {
	q := url.Values{"type": {indicatorType}, "value": {value}}
	return c.lookup(ctx, "otx", c.tiBase+"/otx?"+q.Encode())
}

// LookupAbuseIPDB queries AbuseIPDB reputation. IP indicators only.
func (c *Client) LookupAbuseIPDB(ctx context.Context, value string) model.TIResult {
	q := url.Values{"value": {value}}
	return c.lookup(ctx, "abuseipdb", c.tiBase+"/abuseipdb?"+q.Encode())
}

// fetchFeed retrieves a provider's recent-indicator feed under the tight
// feed deadline, returning nil on timeout or failure.
func (c *Client) fetchFeed(ctx context.Context, provider, rawURL string) []model.FeedIndicator {
	ctx, cancel := context.WithTimeout(ctx, c.feedTimeout)
	defer cancel()

	var body struct {
		Indicators []model.FeedIndicator `json:"indicators"`
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil
	}
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("gateway: feed fetch failed or timed out",
			"provider", provider, "error", err.Error())
		return nil
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil
	}
	return body.Indicators
}

// FetchAbuseIPDBFeed returns AbuseIPDB's recent indicators, nil on failure
// or timeout.
func (c *Client) FetchAbuseIPDBFeed(ctx context.Context) []model.FeedIndicator {
	return c.fetchFeed(ctx, "abuseipdb", c.tiBase+"/feed/abuseipdb")
}

// FetchOTXFeed returns OTX's recent indicators, nil on failure or timeout.
func (c *Client) FetchOTXFeed(ctx context.Context) []model.FeedIndicator {
	return c.fetchFeed(ctx, "otx", c.tiBase+"/feed/otx")
}

// GenerateRecommendation asks the patch backend to analyze an attack
// description. Failures come back inside the result's Error field.
func (c *Client) GenerateRecommendation(ctx context.Context, description string, extra map[string]any) model.PatchRecommendation {
	payload, err := json.Marshal(map[string]any{
		"attack_description": description,
		"context":            extra,
	})
	if err != nil {
		return model.PatchRecommendation{Error: "Generative Analysis Failed"}
	}

	var result model.PatchRecommendation
	if err := c.doJSON(ctx, http.MethodPost, c.patchURL, payload, c.reqTimeout, &result); err != nil {
		c.warn("patch", err)
		return model.PatchRecommendation{Error: fmt.Sprintf("Network Error - %v", errCause(err))}
	}
	return result
}

// errCause unwraps the innermost error for a compact inline message.
func errCause(err error) error {
	for {
		next := errors.Unwrap(err)
		if next == nil {
			return err
		}
		err = next
	}
}
