// Package bypass recognizes listing pages that were replaced by an anti-bot
// challenge. Such pages still parse (to zero records) so the aggregator keeps
// them as successes; detection only labels them for logs and metrics.
package bypass

import (
	"bytes"
	"net/http"
	"strings"
)

// Page is the part of a fetched listing page the detectors look at.
type Page struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Detector reports whether p is a challenge page and which vendor served it.
type Detector func(p Page) (detected bool, source string)

// DefaultDetectors returns the vendor detectors in evaluation order.
func DefaultDetectors() []Detector {
	return []Detector{
		detectCloudflare,
		detectDDoSGuard,
		detectAkamai,
		detectDataDome,
		detectPerimeterX,
	}
}

// Analyze returns the source of the first detector that fires, or "".
func Analyze(p Page, detectors []Detector) string {
	for _, d := range detectors {
		if detected, source := d(p); detected {
			return source
		}
	}
	return ""
}

func server(p Page) string {
	return strings.ToLower(p.Header.Get("Server"))
}

func bodyHasAny(body []byte, markers ...string) bool {
	for _, m := range markers {
		if bytes.Contains(body, []byte(m)) {
			return true
		}
	}
	return false
}

// detectCloudflare matches the interstitial and block pages. Cloudflare serves
// them with 403 or 503.
func detectCloudflare(p Page) (bool, string) {
	if p.StatusCode != http.StatusForbidden && p.StatusCode != http.StatusServiceUnavailable {
		return false, ""
	}
	if strings.Contains(server(p), "cloudflare") || p.Header.Get("Cf-Mitigated") != "" {
		return true, "Cloudflare"
	}
	if bodyHasAny(p.Body, "cf-browser-verification", "cf-turnstile", "challenge-platform", "Attention Required! | Cloudflare") {
		return true, "Cloudflare"
	}
	return false, ""
}

// detectDDoSGuard matches DDoS-Guard, common in front of torrent indexes.
func detectDDoSGuard(p Page) (bool, string) {
	if strings.Contains(server(p), "ddos-guard") {
		if p.StatusCode == http.StatusForbidden || bodyHasAny(p.Body, "ddos-guard", "DDoS-Guard") {
			return true, "DDoS-Guard"
		}
	}
	if p.StatusCode == http.StatusForbidden && bodyHasAny(p.Body, "check.ddos-guard.net") {
		return true, "DDoS-Guard"
	}
	return false, ""
}

func detectAkamai(p Page) (bool, string) {
	if p.StatusCode != http.StatusForbidden {
		return false, ""
	}
	if strings.Contains(server(p), "akamai") {
		return true, "Akamai"
	}
	if bodyHasAny(p.Body, "Reference #") && bodyHasAny(p.Body, "Access Denied") {
		return true, "Akamai"
	}
	return false, ""
}

func detectDataDome(p Page) (bool, string) {
	if p.StatusCode != http.StatusForbidden {
		return false, ""
	}
	if strings.Contains(server(p), "datadome") || p.Header.Get("X-DataDome") != "" {
		return true, "DataDome"
	}
	if bodyHasAny(p.Body, "geo.captcha-delivery.com", "datadome") {
		return true, "DataDome"
	}
	return false, ""
}

func detectPerimeterX(p Page) (bool, string) {
	if p.StatusCode != http.StatusForbidden {
		return false, ""
	}
	if p.Header.Get("X-Px-Captcha") != "" {
		return true, "PerimeterX"
	}
	if bodyHasAny(p.Body, "client.perimeterx.net", "px-captcha", "_pxBlock") {
		return true, "PerimeterX"
	}
	return false, ""
}
