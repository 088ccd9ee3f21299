// Copyright 2024 The Corda Network Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//   http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package client implements the typed HTTP client of the compatibility
// zone registry. Signed network maps are authenticated against the trusted
// root before they are handed to the caller.
package client

import (
	"bufio"
	"bytes"
	"context"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/andrea-athirat/corda/pkg/netmap"
	"github.com/andrea-athirat/corda/pkg/private/serrors"
)

const maxErrorBody = 4096

// TransportError is returned for non-2xx responses from the registry.
type TransportError struct {
	Status int
	Body   string
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("registry returned status %d: %s", e.Status, e.Body)
}

// Client talks to one compatibility zone registry. All endpoints live under
// the "/network-map" prefix of the zone URL.
type Client struct {
	baseURL string
	root    *x509.Certificate
	httpc   *http.Client
}

// Option configures the client.
type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client, e.g. to set custom
// timeouts or transports.
func WithHTTPClient(httpc *http.Client) Option {
	return func(c *Client) {
		c.httpc = httpc
	}
}

// New creates a registry client for the given zone URL, authenticating
// signed artifacts against the trusted root.
func New(zoneURL string, root *x509.Certificate, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(zoneURL, "/") + "/network-map",
		root:    root,
		httpc:   &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Publish uploads the node's signed descriptor to the registry.
func (c *Client) Publish(ctx context.Context, env *netmap.SignedEnvelope) error {
	return c.post(ctx, c.baseURL+"/publish", env)
}

// AckParametersUpdate uploads the operator's signed acceptance of a
// parameters update.
func (c *Client) AckParametersUpdate(ctx context.Context, env *netmap.SignedEnvelope) error {
	return c.post(ctx, c.baseURL+"/ack-parameters", env)
}

func (c *Client) post(ctx context.Context, url string, env *netmap.SignedEnvelope) error {
	raw, err := json.Marshal(env)
	if err != nil {
		return serrors.Wrap("encoding signed envelope", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(raw))
	if err != nil {
		return serrors.Wrap("building request", err, "url", url)
	}
	req.Header.Set("Content-Type", "application/octet-stream")
	resp, err := c.httpc.Do(req)
	if err != nil {
		return serrors.Wrap("posting to registry", err, "url", url)
	}
	defer resp.Body.Close()
	return checkResponse(resp)
}

// NetworkMap fetches the current network map. The returned envelope is
// authenticated: the signer must carry the network-map role and chain to
// the trusted root. The second return value is the poll interval the
// registry advertises via Cache-Control max-age; zero when absent.
func (c *Client) NetworkMap(ctx context.Context) (netmap.NetworkMap, time.Duration, error) {
	resp, err := c.get(ctx, c.baseURL)
	if err != nil {
		return netmap.NetworkMap{}, 0, err
	}
	defer resp.Body.Close()
	var env netmap.SignedEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return netmap.NetworkMap{}, 0, serrors.Join(netmap.ErrPayloadInvalid, err)
	}
	nm, err := netmap.VerifiedNetworkMap(&env, c.root)
	if err != nil {
		return netmap.NetworkMap{}, 0, err
	}
	return nm, cacheMaxAge(resp.Header), nil
}

// NodeInfo fetches the descriptor with the given content hash. The
// signature is verified and the content hash is cross-checked.
func (c *Client) NodeInfo(ctx context.Context, hash netmap.Hash) (netmap.NodeInfo, error) {
	resp, err := c.get(ctx, c.baseURL+"/node-info/"+hash.String())
	if err != nil {
		return netmap.NodeInfo{}, err
	}
	defer resp.Body.Close()
	var env netmap.SignedEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return netmap.NodeInfo{}, serrors.Join(netmap.ErrPayloadInvalid, err)
	}
	info, err := netmap.VerifiedNodeInfo(&env)
	if err != nil {
		return netmap.NodeInfo{}, err
	}
	if got := env.Hash(); got != hash {
		return netmap.NodeInfo{}, serrors.New("node info hash mismatch",
			"expected", hash, "actual", got)
	}
	return info, nil
}

// NetworkParameters fetches the signed parameters with the given content
// hash. The envelope is returned unverified; callers authenticate it when
// the parameters are accepted.
func (c *Client) NetworkParameters(ctx context.Context,
	hash netmap.Hash) (*netmap.SignedEnvelope, error) {

	resp, err := c.get(ctx, c.baseURL+"/network-parameters/"+hash.String())
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	var env netmap.SignedEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, serrors.Join(netmap.ErrPayloadInvalid, err)
	}
	if got := env.Hash(); got != hash {
		return nil, serrors.New("network parameters hash mismatch",
			"expected", hash, "actual", got)
	}
	return &env, nil
}

// PublicHostname asks the registry for the hostname it sees this node
// under. The response is the first line of the text body.
func (c *Client) PublicHostname(ctx context.Context) (string, error) {
	resp, err := c.get(ctx, c.baseURL+"/my-hostname")
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	line, err := bufio.NewReader(io.LimitReader(resp.Body, maxErrorBody)).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", serrors.Wrap("reading hostname response", err)
	}
	return strings.TrimSpace(line), nil
}

func (c *Client) get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, serrors.Wrap("building request", err, "url", url)
	}
	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, serrors.Wrap("querying registry", err, "url", url)
	}
	if err := checkResponse(resp); err != nil {
		resp.Body.Close()
		return nil, err
	}
	return resp, nil
}

func checkResponse(resp *http.Response) error {
	if resp.StatusCode/100 == 2 {
		return nil
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return &TransportError{
		Status: resp.StatusCode,
		Body:   strings.TrimSpace(string(body)),
	}
}

// cacheMaxAge parses the max-age directive from the first Cache-Control
// header. A missing header or directive yields zero.
func cacheMaxAge(header http.Header) time.Duration {
	values := header.Values("Cache-Control")
	if len(values) == 0 {
		return 0
	}
	for _, directive := range strings.Split(values[0], ",") {
		directive = strings.TrimSpace(directive)
		if !strings.HasPrefix(directive, "max-age=") {
			continue
		}
		seconds, err := strconv.Atoi(strings.TrimPrefix(directive, "max-age="))
		if err != nil || seconds < 0 {
			return 0
		}
		return time.Duration(seconds) * time.Second
	}
	return 0
}
