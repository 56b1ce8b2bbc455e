// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package auction

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"

	"github.com/pkg/errors"
)

// Client submits requests to a remote authority over HTTP. The authority
// answers later by posting a Response to the pool's API.
type Client struct {
	url string
	c   *http.Client
}

func NewClient(url string) *Client {
	return NewClientWithHTTP(url, http.DefaultClient)
}

func NewClientWithHTTP(url string, c *http.Client) *Client {
	return &Client{url: url, c: c}
}

// Submit posts req to the authority. Errors wrap ErrRejected when the request
// was refused or never left this process.
func (c *Client) Submit(ctx context.Context, req *Request) error {
	data, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("%w: unable to marshal request - %w", ErrRejected, err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url+"/requests", bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrRejected, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.c.Do(httpReq)
	if err != nil {
		var opErr *net.OpError
		if errors.As(err, &opErr) && opErr.Op == "dial" {
			return fmt.Errorf("%w: unable to connect - %w", ErrRejected, err)
		}
		return fmt.Errorf("unable to submit request - %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("%w: status %d: %s", ErrRejected, resp.StatusCode, bytes.TrimSpace(body))
	}
	return nil
}
