package gateway

import (
	"context"
	"net/http"
)

// forwardedHeaders are copied onto the upstream request. Session identity travels in the
// X-Session-ID header or the session cookie.
var forwardedHeaders = []string{"Content-Type", "Accept", "Cookie", "X-Session-ID", "Last-Event-ID"}

type ServiceProxy struct {
	baseURL string
	client  *http.Client
}

func NewServiceProxy(baseURL string, client *http.Client) *ServiceProxy {
	return &ServiceProxy{
		baseURL: baseURL,
		client:  client,
	}
}

// ForwardRequest replays r against path on the upstream service, keeping the query string.
func (p *ServiceProxy) ForwardRequest(ctx context.Context, r *http.Request, path string) (*http.Response, error) {
	target := p.baseURL + path
	if r.URL.RawQuery != "" {
		target += "?" + r.URL.RawQuery
	}

	req, err := http.NewRequestWithContext(ctx, r.Method, target, r.Body)
	if err != nil {
		return nil, err
	}

	for _, name := range forwardedHeaders {
		for _, v := range r.Header.Values(name) {
			req.Header.Add(name, v)
		}
	}

	return p.client.Do(req)
}
