package tool

import (
	"crypto/tls"
	"net/http"
	"net/http/cookiejar"
	"time"
)

var DefaultTimeout = 30 * time.Second

// NewHTTPClient creates the client used by the default transport.
// withCredentials attaches a cookie jar so server-set cookies survive across
// transfers in one queue; insecureTLS skips certificate verification for
// self-signed receivers on the local network.
func NewHTTPClient(timeout time.Duration, withCredentials, insecureTLS bool) *http.Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	transport := &http.Transport{
		MaxIdleConns:        50,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     300 * time.Millisecond,
		DisableKeepAlives:   false,
	}
	if insecureTLS {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}
	client := &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}
	if withCredentials {
		if jar, err := cookiejar.New(nil); err == nil {
			client.Jar = jar
		}
	}
	return client
}
