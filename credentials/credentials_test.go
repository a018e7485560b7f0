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

package credentials

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

func clearEnv(t *testing.T) {
	t.Setenv(UsernameEnv, "")
	t.Setenv(PasswordEnv, "")
}

func write(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
}

func TestResolve(t *testing.T) {
	t.Run("explicit", func(t *testing.T) {
		clearEnv(t)
		c, err := Resolve(Options{Username: "u", Password: "p", HomeDirectory: t.TempDir(), ConfigurationDirectory: t.TempDir()})
		if err != nil || c != (Credentials{"u", "p"}) {
			t.Errorf("have %v, %v", c, err)
		}
	})
	t.Run("environment", func(t *testing.T) {
		t.Setenv(UsernameEnv, "envuser")
		t.Setenv(PasswordEnv, "envpass")
		c, err := Resolve(Options{HomeDirectory: t.TempDir(), ConfigurationDirectory: t.TempDir()})
		if err != nil || c != (Credentials{"envuser", "envpass"}) {
			t.Errorf("have %v, %v", c, err)
		}
	})
	t.Run("configuration file", func(t *testing.T) {
		clearEnv(t)
		dir := t.TempDir()
		write(t, filepath.Join(dir, FileName), "[credentials]\nusername=fileuser\npassword=filepass\n")
		c, err := Resolve(Options{HomeDirectory: t.TempDir(), ConfigurationDirectory: dir})
		if err != nil || c != (Credentials{"fileuser", "filepass"}) {
			t.Errorf("have %v, %v", c, err)
		}
	})
	t.Run("netrc", func(t *testing.T) {
		clearEnv(t)
		home := t.TempDir()
		write(t, filepath.Join(home, ".netrc"), "machine example.com login x password y\n"+
			"machine my.cmems-du.eu\n  login netrcuser\n  password \"net rc\"\ndefault login d password d\n")
		c, err := Resolve(Options{HomeDirectory: home, ConfigurationDirectory: t.TempDir()})
		if err != nil || c != (Credentials{"netrcuser", "net rc"}) {
			t.Errorf("have %v, %v", c, err)
		}
	})
	t.Run("motuclient", func(t *testing.T) {
		clearEnv(t)
		home := t.TempDir()
		write(t, filepath.Join(home, "motuclient", "motuclient-python.ini"), "[Main]\nuser = motuuser\npwd = motupass\n")
		c, err := Resolve(Options{HomeDirectory: home, ConfigurationDirectory: t.TempDir()})
		if err != nil || c != (Credentials{"motuuser", "motupass"}) {
			t.Errorf("have %v, %v", c, err)
		}
	})
	t.Run("credentials file option", func(t *testing.T) {
		clearEnv(t)
		f := filepath.Join(t.TempDir(), "my_netrc")
		write(t, f, "default login a password b")
		c, err := Resolve(Options{CredentialsFile: f, HomeDirectory: t.TempDir(), ConfigurationDirectory: t.TempDir()})
		if err != nil || c != (Credentials{"a", "b"}) {
			t.Errorf("have %v, %v", c, err)
		}
	})
	t.Run("prompt", func(t *testing.T) {
		clearEnv(t)
		prompt := func(label string, hidden bool) (string, error) {
			if hidden != (label == "password") {
				return "", fmt.Errorf("wrong hidden flag for %s", label)
			}
			return "typed-" + label, nil
		}
		c, err := Resolve(Options{Username: "u", Prompt: prompt, HomeDirectory: t.TempDir(), ConfigurationDirectory: t.TempDir()})
		if err != nil || c != (Credentials{"u", "typed-password"}) {
			t.Errorf("have %v, %v", c, err)
		}
	})
	t.Run("missing", func(t *testing.T) {
		clearEnv(t)
		_, err := Resolve(Options{HomeDirectory: t.TempDir(), ConfigurationDirectory: t.TempDir()})
		if !errors.Is(err, ErrMissingCredentials) {
			t.Errorf("expected missing credentials, got %v", err)
		}
	})
}

// tokenServer accepts the password "good" for any user.
func tokenServer(t *testing.T) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Error(err)
		}
		if r.Form.Get("grant_type") != "password" || r.Form.Get("client_id") != "toolbox" {
			t.Errorf("unexpected form %v", r.Form)
		}
		w.Header().Set("Content-Type", "application/json")
		if r.Form.Get("password") != "good" {
			w.WriteHeader(http.StatusUnauthorized)
			fmt.Fprint(w, `{"error": "invalid_grant"}`)
			return
		}
		fmt.Fprint(w, `{"access_token": "abc", "token_type": "bearer", "expires_in": 300}`)
	}))
}

func TestLogin(t *testing.T) {
	clearEnv(t)
	srv := tokenServer(t)
	defer srv.Close()
	checker := NewOAuth2Checker(srv.URL)
	ctx := context.Background()

	t.Run("invalid", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "i_dont_exist")
		ok, err := Login(ctx, LoginOptions{Username: "u", Password: "bad", ConfigurationDirectory: dir, Checker: checker})
		if err != nil {
			t.Fatal(err)
		}
		if ok {
			t.Error("bad password should not be valid")
		}
		if _, err := os.Stat(dir); !os.IsNotExist(err) {
			t.Error("configuration directory should not be created")
		}
	})

	dir := filepath.Join(t.TempDir(), "i_dont_exist")
	t.Run("valid", func(t *testing.T) {
		ok, err := Login(ctx, LoginOptions{Username: "u", Password: "good", ConfigurationDirectory: dir,
			OverwriteConfigurationFile: true, Checker: checker})
		if err != nil || !ok {
			t.Fatalf("have %v, %v", ok, err)
		}
		c, err := ReadFile(filepath.Join(dir, FileName))
		if err != nil || c != (Credentials{"u", "good"}) {
			t.Errorf("stored %v, %v", c, err)
		}
		fi, err := os.Stat(filepath.Join(dir, FileName))
		if err != nil {
			t.Fatal(err)
		}
		if fi.Mode().Perm() != 0600 {
			t.Errorf("file mode %v", fi.Mode())
		}
	})
	t.Run("skip if logged in", func(t *testing.T) {
		ok, err := Login(ctx, LoginOptions{ConfigurationDirectory: dir, SkipIfUserLoggedIn: true, Checker: checker})
		if err != nil || !ok {
			t.Errorf("have %v, %v", ok, err)
		}
	})
	t.Run("keep existing file", func(t *testing.T) {
		confirm := func(string) (bool, error) { return false, nil }
		ok, err := Login(ctx, LoginOptions{Username: "other", Password: "good", ConfigurationDirectory: dir,
			Checker: checker, Confirm: confirm})
		if err != nil || !ok {
			t.Fatalf("have %v, %v", ok, err)
		}
		c, _ := ReadFile(filepath.Join(dir, FileName))
		if c.Username != "u" {
			t.Errorf("file should not be overwritten, has user %s", c.Username)
		}
	})
	t.Run("missing", func(t *testing.T) {
		_, err := Login(ctx, LoginOptions{ConfigurationDirectory: t.TempDir(), Checker: checker})
		if !errors.Is(err, ErrMissingCredentials) {
			t.Errorf("expected missing credentials, got %v", err)
		}
	})
}

func TestWriteFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, FileName)
	write(t, path, "[credentials]\nusername = old\n")
	if err := os.Chmod(path, 0644); err != nil {
		t.Fatal(err)
	}
	p, err := WriteFile(dir, Credentials{"u", "p"})
	if err != nil {
		t.Fatal(err)
	}
	fi, err := os.Stat(p)
	if err != nil {
		t.Fatal(err)
	}
	if fi.Mode().Perm() != 0600 {
		t.Errorf("mode %v", fi.Mode().Perm())
	}
	c, err := ReadFile(p)
	if err != nil || c != (Credentials{"u", "p"}) {
		t.Errorf("have %v, %v", c, err)
	}
}
