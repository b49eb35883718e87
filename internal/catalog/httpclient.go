package catalog

import (
	"net"
	"net/http"
	"time"

	"laptopkita/internal/config"
)

// NewHTTPClient leaves the per-request deadline to callers' contexts; the
// client timeout is only a backstop.
func NewHTTPClient(cfg config.Config) *http.Client {
	transport := &http.Transport{
		MaxIdleConns:        20,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     30 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
		ForceAttemptHTTP2:   true,
		DialContext: (&net.Dialer{
			Timeout: 10 * time.Second,
		}).DialContext,
	}
	timeoutSec := cfg.RequestTimeoutSec
	if timeoutSec <= 0 {
		timeoutSec = 30
	}
	return &http.Client{Transport: transport, Timeout: time.Duration(timeoutSec) * time.Second}
}
