// Copyright 2025 Lincoln Institute of Land Policy
// SPDX-License-Identifier: Apache-2.0

package common

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/trace"
)

const UserAgent = "ldsync"

type MockResponse struct {
	File        string
	Body        string
	StatusCode  int
	ContentType string
	// If true, the request will return an error
	// signifying that the request timed out
	Timeout bool
}

type MockTransport struct {
	// Deny requests that are not mocked
	denyReqNotMocked bool
	transport        http.RoundTripper
	urlToFile        map[string]MockResponse
	// every request that went through the transport
	Requests []*http.Request
}

// If the req url is in the map, return a mock response from the associated file
func (m *MockTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	m.Requests = append(m.Requests, req)
	full_url := req.URL.String()

	associatedMock, ok := m.urlToFile[full_url]
	if ok {
		if associatedMock.Timeout {
			return nil, fmt.Errorf("mocked a timeout for %s: %w", full_url, context.DeadlineExceeded)
		}
		header := http.Header{
			"Content-Type": []string{associatedMock.ContentType},
		}
		if associatedMock.File == "" {
			return &http.Response{
				StatusCode: associatedMock.StatusCode,
				Body:       io.NopCloser(strings.NewReader(associatedMock.Body)),
				Header:     header,
				Request:    req,
			}, nil
		}
		mockedContent, err := os.Open(associatedMock.File)
		if err != nil {
			return nil, err
		}
		return &http.Response{
			StatusCode: associatedMock.StatusCode,
			Body:       mockedContent,
			Header:     header,
			Request:    req,
		}, nil
	}
	if m.denyReqNotMocked {
		return nil, fmt.Errorf("request not mocked: %s", full_url)
	}

	return m.transport.RoundTrip(req)
}

// NewMockedClient returns an http client with mocked responses
// if strictMode is true, all http requests that are not mocked will return an error
func NewMockedClient(strictMode bool, urlToMock map[string]MockResponse) (*http.Client, *MockTransport) {
	transport := &MockTransport{
		transport:        newLongLivedHttpTransport(),
		urlToFile:        urlToMock,
		denyReqNotMocked: strictMode,
	}
	return newClientFromRoundTrip(transport, 0), transport
}

// An http transport optimized for long-lived connections
// to a single triplestore
func newLongLivedHttpTransport() http.RoundTripper {
	return &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		MaxIdleConnsPerHost:   4,
		IdleConnTimeout:       120 * time.Second,
		TLSHandshakeTimeout:   20 * time.Second,
		ExpectContinueTimeout: 2 * time.Second,
		ForceAttemptHTTP2:     true,
		DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
			span := trace.SpanFromContext(ctx)
			if span != nil {
				span.AddEvent("HTTP connection")
			}
			dialer := &net.Dialer{Timeout: 30 * time.Second}
			return dialer.DialContext(ctx, network, addr)
		},
	}
}

// userAgentTransport sets the user agent on every outgoing request
type userAgentTransport struct {
	base http.RoundTripper
}

func (t userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Header.Get("User-Agent") == "" {
		req = req.Clone(req.Context())
		req.Header.Set("User-Agent", UserAgent)
	}
	return t.base.RoundTrip(req)
}

func newClientFromRoundTrip(transport http.RoundTripper, timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			span := trace.SpanFromContext(req.Context())
			if span != nil {
				span.AddEvent("HTTP redirect")
			}
			if len(via) >= 10 {
				return fmt.Errorf("stopped after %d redirects", len(via))
			}
			return nil
		},
	}
}

// NewSparqlClient returns the client used for all triplestore requests.
// Requests are traced with otelhttp and are never retried
func NewSparqlClient(timeout time.Duration) *http.Client {
	transport := otelhttp.NewTransport(userAgentTransport{base: newLongLivedHttpTransport()})
	return newClientFromRoundTrip(transport, timeout)
}

// NewProfileClient returns the client used to download a remote SHACL profile
func NewProfileClient(timeout time.Duration) *http.Client {
	transport := otelhttp.NewTransport(userAgentTransport{base: http.DefaultTransport})
	return newClientFromRoundTrip(transport, timeout)
}
