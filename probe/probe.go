// Copyright (c) 2024 The Open Data Package Checker Contributors
//
// Permission is hereby granted, free of charge, to any person obtaining a copy of
// this software and associated documentation files (the "Software"), to deal in
// the Software without restriction, including without limitation the rights to
// use, copy, modify, merge, publish, distribute, sublicense, and/or sell copies
// of the Software, and to permit persons to whom the Software is furnished to do
// so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

// This package issues liveness probes for URLs referenced by catalog
// packages. A URL is probed at most once per run; the same landing page or
// shared documentation URL is referenced by many packages, and re-probing
// it per reference would multiply request volume by the catalog size.
package probe

import (
	"crypto/tls"
	"fmt"
	"net/http"
	"sync"
	"time"
)

// the two client identities tried in sequence: some servers block default
// client identifiers but serve real browsers fine
var userAgents = []string{
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_12_1) " +
		"AppleWebKit/537.36 (KHTML, like Gecko) " +
		"Chrome/58.0.3029.110 Safari/537.3 " +
		"Safari/537.36",
	"Custom",
}

// response statuses that qualify for an automatic retry
var retryStatuses = map[int]bool{
	http.StatusInternalServerError: true,
	http.StatusBadGateway:          true,
	http.StatusServiceUnavailable:  true,
	http.StatusGatewayTimeout:      true,
}

// A Prober checks URL reachability with per-run memoization of results.
type Prober struct {
	client     *http.Client
	backoff    time.Duration
	maxRetries int

	mutex sync.Mutex
	cache map[string]string
}

// creates a prober with the given per-request timeout; TLS verification is
// off because catalog targets routinely present self-signed certificates
func New(timeout time.Duration) *Prober {
	client := &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		},
	}
	return NewWithClient(client, 5*time.Second)
}

// creates a prober around an existing HTTP client with the given backoff
// base interval (tests use this with a stub transport and a tiny backoff)
func NewWithClient(client *http.Client, backoff time.Duration) *Prober {
	return &Prober{
		client:     client,
		backoff:    backoff,
		maxRetries: 3,
		cache:      make(map[string]string),
	}
}

// Probe issues a liveness probe for the given URL and returns a
// human-readable failure description, or an empty string if the URL is
// reachable. The first probe uses HEAD; on any failure the URL is retried
// with a ranged GET before being declared broken, since a server may
// reject HEAD and must not be flagged as broken on that basis alone.
func (p *Prober) Probe(url string) string {
	p.mutex.Lock()
	if result, found := p.cache[url]; found {
		p.mutex.Unlock()
		return result
	}
	p.mutex.Unlock()

	result := p.check(url, http.MethodHead)
	if result != "" {
		result = p.check(url, http.MethodGet)
	}

	p.mutex.Lock()
	p.cache[url] = result
	p.mutex.Unlock()
	return result
}

// checks the URL with the given method under each user agent in turn,
// returning the last failure description, or "" on the first success
func (p *Prober) check(url, method string) string {
	var result string
	for _, agent := range userAgents {
		result = p.checkWithAgent(url, method, agent)
		if result == "" {
			return ""
		}
	}
	return result
}

func (p *Prober) checkWithAgent(url, method, agent string) string {
	resp, err := p.do(url, method, agent)
	if err != nil {
		return err.Error()
	}
	defer resp.Body.Close()

	code := resp.StatusCode
	if code >= 200 && code < 300 {
		return ""
	}
	// a server rejecting the probe method alone doesn't make the URL broken
	if code == http.StatusMethodNotAllowed {
		return ""
	}
	return fmt.Sprintf("%d %s for url: %s", code, http.StatusText(code), url)
}

// performs one request with bounded retries and exponential backoff on
// transient failures (transport errors and retryable 5xx statuses)
func (p *Prober) do(url, method, agent string) (*http.Response, error) {
	for attempt := 0; ; attempt++ {
		req, err := http.NewRequest(method, url, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("User-Agent", agent)
		if method == http.MethodGet {
			// request the first bytes only
			req.Header.Set("Range", "bytes=0-10")
		}

		resp, err := p.client.Do(req)
		if err == nil && !retryStatuses[resp.StatusCode] {
			return resp, nil
		}
		if attempt >= p.maxRetries {
			return resp, err
		}
		if err == nil {
			resp.Body.Close()
		}
		time.Sleep(p.backoff << attempt)
	}
}
