// ABOUTME: Best-effort push delivery over a single bounded HTTP request.
// ABOUTME: One form-encoded POST per attempt, never retried, failures logged only.

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	defaultPushAPIURL = "https://api.pushover.net/1/messages.json"
	pushTimeout       = 10 * time.Second
	pushURLTitle      = "Open message"
)

// PushNotifier issues push notification requests to the provider.
type PushNotifier struct {
	apiURL string
	client *http.Client
}

// NewPushNotifier creates a notifier against the default provider endpoint.
func NewPushNotifier() *PushNotifier {
	return NewPushNotifierAt(defaultPushAPIURL)
}

// NewPushNotifierAt creates a notifier against a specific endpoint.
func NewPushNotifierAt(apiURL string) *PushNotifier {
	return &PushNotifier{
		apiURL: apiURL,
		client: &http.Client{Timeout: pushTimeout},
	}
}

// Send issues exactly one delivery attempt and reports whether the
// provider accepted it, with a reason when it did not. Missing credentials
// short-circuit without a network call. Transport errors, non-success
// status codes, and provider-reported errors all come back as
// delivered=false; the caller decides whether the reason is worth
// surfacing, and nothing is ever retried.
func (p *PushNotifier) Send(appToken, userKey, title, message, linkURL, sound string) (delivered bool, reason string) {
	appToken = strings.TrimSpace(appToken)
	userKey = strings.TrimSpace(userKey)
	if appToken == "" || userKey == "" {
		return false, "push app token / user key not configured"
	}

	form := url.Values{}
	form.Set("token", appToken)
	form.Set("user", userKey)
	form.Set("title", title)
	form.Set("message", message)
	if linkURL != "" {
		form.Set("url", linkURL)
		form.Set("url_title", pushURLTitle)
	}
	if sound != "" {
		form.Set("sound", sound)
	}

	resp, err := p.client.PostForm(p.apiURL, form)
	if err != nil {
		return false, err.Error()
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if resp.StatusCode != http.StatusOK {
		return false, fmt.Sprintf("HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var result struct {
		Status int      `json:"status"`
		Errors []string `json:"errors"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		// Non-JSON 200 counts as accepted.
		return true, ""
	}
	if result.Status == 1 {
		return true, ""
	}
	if len(result.Errors) > 0 {
		return false, strings.Join(result.Errors, "; ")
	}
	return false, strings.TrimSpace(string(body))
}
