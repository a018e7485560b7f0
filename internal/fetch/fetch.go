/*
Copyright © 2024 the copernicusmarine toolbox authors.
This file is part of the copernicusmarine toolbox.

The copernicusmarine toolbox is free software: you can redistribute it
and/or modify it under the terms of the GNU General Public License as
published by the Free Software Foundation, either version 3 of the License,
or (at your option) any later version.

The copernicusmarine toolbox is distributed in the hope that it will be
useful, but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with the copernicusmarine toolbox.  If not, see <http://www.gnu.org/licenses/>.
*/

// Package fetch performs HTTP GET requests against the Copernicus Marine
// services, retrying failed requests.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/copernicusmarine/toolbox"
	"github.com/sirupsen/logrus"
)

// ErrNotFound is returned when the server answers 404 or 403.
// Object stores answer 403 for missing keys of public buckets.
var ErrNotFound = errors.New("fetch: not found")

// Client performs GET requests.
type Client struct {
	HTTP *http.Client

	// Username, if set, is sent in the x-cop-user header.
	Username string

	// MaxElapsedTime bounds the retries of one request.
	MaxElapsedTime time.Duration

	Log logrus.FieldLogger
}

// New returns a client with default settings.
func New() *Client {
	return &Client{
		HTTP:           http.DefaultClient,
		MaxElapsedTime: 2 * time.Minute,
		Log:            logrus.StandardLogger(),
	}
}

// Get returns the body at url. Transport errors and server errors are
// retried with an exponential backoff; other answers are not.
func (c *Client) Get(ctx context.Context, url string) ([]byte, error) {
	var body []byte
	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = c.MaxElapsedTime
	err := backoff.RetryNotify(
		func() error {
			var err error
			body, err = c.get(ctx, url)
			return err
		},
		backoff.WithContext(b, ctx),
		func(err error, d time.Duration) {
			c.Log.WithFields(logrus.Fields{"url": url}).Warnf("%v: retrying in %v", err, d)
		},
	)
	return body, err
}

func (c *Client) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("fetch: %v", err))
	}
	req.Header.Set("x-cop-client", "copernicus-toolbox-go")
	req.Header.Set("x-cop-client-version", toolbox.Version)
	if c.Username != "" {
		req.Header.Set("x-cop-user", c.Username)
	}
	hc := c.HTTP
	if hc == nil {
		hc = http.DefaultClient
	}
	resp, err := hc.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, backoff.Permanent(ctx.Err())
		}
		return nil, fmt.Errorf("fetch: GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	switch {
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusForbidden:
		return nil, backoff.Permanent(fmt.Errorf("%w: %s", ErrNotFound, url))
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("fetch: GET %s: %s", url, resp.Status)
	case resp.StatusCode >= 300:
		return nil, backoff.Permanent(fmt.Errorf("fetch: GET %s: %s", url, resp.Status))
	case err != nil:
		return nil, fmt.Errorf("fetch: GET %s: reading body: %v", url, err)
	}
	return body, nil
}
