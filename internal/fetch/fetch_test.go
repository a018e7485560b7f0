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

package fetch

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestGet(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/flaky":
			if atomic.AddInt32(&calls, 1) < 3 {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			fmt.Fprint(w, "ok")
		case "/user":
			fmt.Fprint(w, r.Header.Get("x-cop-user"))
		case "/bad":
			w.WriteHeader(http.StatusBadRequest)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := New()
	c.Username = "someone"
	c.MaxElapsedTime = 20 * time.Second
	ctx := context.Background()

	t.Run("retry", func(t *testing.T) {
		b, err := c.Get(ctx, srv.URL+"/flaky")
		if err != nil {
			t.Fatal(err)
		}
		if string(b) != "ok" || atomic.LoadInt32(&calls) != 3 {
			t.Errorf("have %q after %d calls", b, calls)
		}
	})
	t.Run("headers", func(t *testing.T) {
		b, err := c.Get(ctx, srv.URL+"/user")
		if err != nil {
			t.Fatal(err)
		}
		if string(b) != "someone" {
			t.Errorf("x-cop-user %q", b)
		}
	})
	t.Run("not found", func(t *testing.T) {
		if _, err := c.Get(ctx, srv.URL+"/missing"); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected not found, got %v", err)
		}
	})
	t.Run("client error", func(t *testing.T) {
		_, err := c.Get(ctx, srv.URL+"/bad")
		if err == nil || errors.Is(err, ErrNotFound) {
			t.Errorf("unexpected error %v", err)
		}
	})
}
