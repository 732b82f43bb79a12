package bypass

import (
	"net/http"
	"testing"
)

func TestAnalyze(t *testing.T) {
	cases := []struct {
		name string
		page Page
		want string
	}{
		{
			name: "ordinary listing",
			page: Page{StatusCode: 200, Header: http.Header{"Server": {"nginx"}}, Body: []byte(`<a title="x" href="/x">`)},
			want: "",
		},
		{
			name: "plain 404 is content",
			page: Page{StatusCode: 404, Header: http.Header{}, Body: []byte("not found")},
			want: "",
		},
		{
			name: "cloudflare by header",
			page: Page{StatusCode: 403, Header: http.Header{"Server": {"cloudflare"}}},
			want: "Cloudflare",
		},
		{
			name: "cloudflare by body",
			page: Page{StatusCode: 503, Header: http.Header{}, Body: []byte("<div class=cf-turnstile>")},
			want: "Cloudflare",
		},
		{
			name: "cloudflare needs a challenge status",
			page: Page{StatusCode: 200, Header: http.Header{"Server": {"cloudflare"}}},
			want: "",
		},
		{
			name: "ddos-guard",
			page: Page{StatusCode: 403, Header: http.Header{"Server": {"ddos-guard"}}},
			want: "DDoS-Guard",
		},
		{
			name: "ddos-guard by body",
			page: Page{StatusCode: 403, Header: http.Header{}, Body: []byte(`<script src="https://check.ddos-guard.net/check.js">`)},
			want: "DDoS-Guard",
		},
		{
			name: "akamai by body",
			page: Page{StatusCode: 403, Header: http.Header{}, Body: []byte("Access Denied ... Reference #18.1")},
			want: "Akamai",
		},
		{
			name: "datadome header",
			page: Page{StatusCode: 403, Header: http.Header{"X-Datadome": {"protected"}}},
			want: "DataDome",
		},
		{
			name: "perimeterx body",
			page: Page{StatusCode: 403, Header: http.Header{}, Body: []byte("_pxBlock")},
			want: "PerimeterX",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Analyze(tc.page, DefaultDetectors()); got != tc.want {
				t.Errorf("expected %q, got %q", tc.want, got)
			}
		})
	}
}

func TestAnalyze_NilHeader(t *testing.T) {
	if got := Analyze(Page{StatusCode: 403}, DefaultDetectors()); got != "" {
		t.Errorf("expected no detection, got %q", got)
	}
}
