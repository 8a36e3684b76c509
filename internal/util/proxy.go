package util

import (
	"net/http"
	"net/url"

	"golang.org/x/net/http/httpproxy"
)

// NewProxyFunc creates a proxy function for HTTP clients. Explicit settings
// take precedence; anything left empty falls back to the standard
// HTTP_PROXY, HTTPS_PROXY and NO_PROXY environment variables.
func NewProxyFunc(httpProxy, httpsProxy, noProxy string) func(*http.Request) (*url.URL, error) {
	cfg := httpproxy.FromEnvironment()
	if httpProxy != "" {
		cfg.HTTPProxy = httpProxy
	}
	if httpsProxy != "" {
		cfg.HTTPSProxy = httpsProxy
	}
	if noProxy != "" {
		cfg.NoProxy = noProxy
	}

	proxyForURL := cfg.ProxyFunc()
	return func(req *http.Request) (*url.URL, error) {
		return proxyForURL(req.URL)
	}
}

// NewHTTPClient returns a client using the proxy settings
func NewHTTPClient(httpProxy, httpsProxy, noProxy string) *http.Client {
	return &http.Client{
		Transport: &http.Transport{
			Proxy: NewProxyFunc(httpProxy, httpsProxy, noProxy),
		},
	}
}
