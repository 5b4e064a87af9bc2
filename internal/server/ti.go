package server

import (
	"encoding/json"
	"fmt"
	"hash/fnv"
	"net/http"
	"strings"

	"github.com/webhydra/console/internal/model"
)

// lookupTypes is the set of indicator types the TI endpoints accept.
var lookupTypes = map[string]bool{"ip": true, "domain": true, "hash": true}

// reputation derives a stable pseudo-score in [0,100) from an indicator
// value, so repeated lookups of the same value agree.
func reputation(value string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(value))
	return int(h.Sum32() % 100)
}

// handleLookup serves the virustotal and otx lookup endpoints. The risk
// verdict and summary line follow each provider's reporting style.
func (s *Server) handleLookup(provider string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		tiType, value := q.Get("type"), q.Get("value")
		if tiType == "" || value == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Missing type or value"})
			return
		}
		if !lookupTypes[tiType] {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid type"})
			return
		}

		score := reputation(value)
		var risk, summary string
		switch provider {
		case "virustotal":
			malicious := score / 20
			risk = riskOf(malicious, 1, 3)
			summary = fmt.Sprintf("Malicious: %d", malicious)
		case "otx":
			pulses := score / 12
			risk = riskOf(pulses, 1, 5)
			summary = fmt.Sprintf("Found in %d pulses", pulses)
		}

		writeJSON(w, http.StatusOK, model.TIResult{
			Provider: provider,
			Risk:     risk,
			Summary:  summary,
		})
	}
}

// handleAbuseIPDB serves the AbuseIPDB lookup, which takes only a value.
func (s *Server) handleAbuseIPDB(w http.ResponseWriter, r *http.Request) {
	value := r.URL.Query().Get("value")
	if value == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Missing value"})
		return
	}

	score := reputation(value)
	risk := "clean"
	switch {
	case score >= 75:
		risk = "high"
	case score >= 25:
		risk = "medium"
	case score > 0:
		risk = "low"
	}
	writeJSON(w, http.StatusOK, model.TIResult{
		Provider: "abuseipdb",
		Risk:     risk,
		Summary:  fmt.Sprintf("Score: %d%%", score),
	})
}

// riskOf buckets a count into clean/medium/high against the two thresholds.
func riskOf(count, medium, high int) string {
	switch {
	case count >= high:
		return "high"
	case count >= medium:
		return "medium"
	default:
		return "clean"
	}
}

// feedIndicators is the canned recent-indicator feed per provider.
var feedIndicators = map[string][]model.FeedIndicator{
	"abuseipdb": {
		{Indicator: "203.0.113.42", Type: "ip", Source: "abuseipdb"},
		{Indicator: "198.51.100.17", Type: "ip", Source: "abuseipdb"},
		{Indicator: "192.0.2.200", Type: "ip", Source: "abuseipdb"},
	},
	"otx": {
		{Indicator: "malware-delivery.example", Type: "domain", Source: "otx"},
		{Indicator: "203.0.113.99", Type: "ip", Source: "otx"},
		{Indicator: "44d88612fea8a8f36de82e1278abb02f", Type: "hash", Source: "otx"},
	},
}

// handleFeed serves a provider's recent-indicator feed.
func (s *Server) handleFeed(provider string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"indicators": feedIndicators[provider]})
	}
}

// ─── Patch recommendation ────────────────────────────────────────────────────

// patchProfile is a canned analysis for one attack family.
type patchProfile struct {
	match []string
	rec   model.PatchRecommendation
}

// patchProfiles maps attack-description keywords to generated analyses.
// The first profile whose keywords match wins; the last entry is the
// catch-all.
var patchProfiles = []patchProfile{
	{
		match: []string{"sql", "select", "union"},
		rec: model.PatchRecommendation{
			AttackType: "SQL Injection",
			RiskLevel:  "Critical",
			RootCause:  "User-supplied input is concatenated into SQL statements without parameterization.",
			Mitigations: []model.Mitigation{
				{Category: "code", Description: "Use parameterized queries or prepared statements for all database access."},
				{Category: "waf", Description: "Enable strict SQLi signature matching on query and body parameters."},
			},
			VirtualPatches: []model.VirtualPatch{
				{Target: "query_string", Rule: "deny pattern (?i)(union\\s+select|or\\s+1=1)"},
			},
			References: []string{"https://owasp.org/Top10/A03_2021-Injection/"},
		},
	},
	{
		match: []string{"xss", "script", "javascript"},
		rec: model.PatchRecommendation{
			AttackType: "Cross-Site Scripting",
			RiskLevel:  "High",
			RootCause:  "Untrusted input is reflected into HTML responses without output encoding.",
			Mitigations: []model.Mitigation{
				{Category: "code", Description: "Apply context-aware output encoding on all reflected values."},
				{Category: "config", Description: "Deploy a restrictive Content-Security-Policy header."},
			},
			VirtualPatches: []model.VirtualPatch{
				{Target: "request_body", Rule: "deny pattern (?i)<script[^>]*>"},
			},
			References: []string{"https://owasp.org/Top10/A03_2021-Injection/"},
		},
	},
	{
		match: []string{"command", "shell", "exec"},
		rec: model.PatchRecommendation{
			AttackType: "Command Injection",
			RiskLevel:  "Critical",
			RootCause:  "Request data reaches a system shell without sanitization.",
			Mitigations: []model.Mitigation{
				{Category: "code", Description: "Replace shell invocations with direct library calls; never interpolate input."},
				{Category: "waf", Description: "Block requests containing shell metacharacters in parameter values."},
			},
			VirtualPatches: []model.VirtualPatch{
				{Target: "query_string", Rule: "deny pattern [;&|`$]"},
			},
		},
	},
	{
		match: []string{"traversal", "path", "../"},
		rec: model.PatchRecommendation{
			AttackType: "Path Traversal",
			RiskLevel:  "High",
			RootCause:  "File paths are built from request input without canonicalization.",
			Mitigations: []model.Mitigation{
				{Category: "code", Description: "Canonicalize paths and reject any that escape the content root."},
				{Category: "waf", Description: "Deny dot-dot sequences in URL paths and parameters."},
			},
			VirtualPatches: []model.VirtualPatch{
				{Target: "url_path", Rule: "deny pattern \\.\\./"},
			},
		},
	},
	{
		rec: model.PatchRecommendation{
			AttackType: "Anomalous Activity",
			RiskLevel:  "Medium",
			RootCause:  "Traffic deviates from the learned baseline without matching a known signature.",
			Mitigations: []model.Mitigation{
				{Category: "ops", Description: "Review the offending requests and add a signature if a pattern emerges."},
				{Category: "waf", Description: "Raise model sensitivity for the affected endpoint temporarily."},
			},
			VirtualPatches: []model.VirtualPatch{
				{Target: "rate_limit", Rule: "limit source to 10 requests per minute"},
			},
		},
	},
}

// handlePatchRecommend generates a virtual-patch analysis for an attack
// description.
func (s *Server) handlePatchRecommend(w http.ResponseWriter, r *http.Request) {
	var body struct {
		AttackDescription string         `json:"attack_description"`
		Context           map[string]any `json:"context"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.AttackDescription == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Missing attack_description"})
		return
	}

	desc := strings.ToLower(body.AttackDescription)
	for _, p := range patchProfiles {
		if len(p.match) == 0 || matchesAny(desc, p.match) {
			writeJSON(w, http.StatusOK, p.rec)
			return
		}
	}
}

// matchesAny reports whether s contains any of the keywords.
func matchesAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}
