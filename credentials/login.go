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
	"os"
	"path/filepath"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
)

// DefaultTokenURL is the token endpoint of the authentication service.
const DefaultTokenURL = "https://auth.marine.copernicus.eu/realms/MIS/protocol/openid-connect/token"

// Checker checks credentials against an authentication service.
type Checker interface {
	// Check returns ErrInvalidCredentials if the service rejects c.
	Check(ctx context.Context, c Credentials) error
}

// OAuth2Checker checks credentials with an OAuth2 resource owner
// password grant.
type OAuth2Checker struct {
	TokenURL string
	ClientID string

	// Client, if not nil, is used for the token request.
	Client *http.Client

	// MaxElapsedTime bounds the retries of failed requests.
	MaxElapsedTime time.Duration

	Log logrus.FieldLogger
}

// NewOAuth2Checker returns a checker for the given token endpoint.
// An empty tokenURL selects DefaultTokenURL.
func NewOAuth2Checker(tokenURL string) *OAuth2Checker {
	if tokenURL == "" {
		tokenURL = DefaultTokenURL
	}
	return &OAuth2Checker{
		TokenURL:       tokenURL,
		ClientID:       "toolbox",
		MaxElapsedTime: 30 * time.Second,
		Log:            logrus.StandardLogger(),
	}
}

// Check implements Checker.
func (o *OAuth2Checker) Check(ctx context.Context, c Credentials) error {
	conf := &oauth2.Config{
		ClientID: o.ClientID,
		Endpoint: oauth2.Endpoint{TokenURL: o.TokenURL, AuthStyle: oauth2.AuthStyleInParams},
		Scopes:   []string{"openid"},
	}
	if o.Client != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, o.Client)
	}
	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = o.MaxElapsedTime
	return backoff.RetryNotify(
		func() error {
			_, err := conf.PasswordCredentialsToken(ctx, c.Username, c.Password)
			if err == nil {
				return nil
			}
			var re *oauth2.RetrieveError
			if errors.As(err, &re) && re.Response != nil && re.Response.StatusCode < 500 {
				return backoff.Permanent(ErrInvalidCredentials)
			}
			return fmt.Errorf("credentials: contacting authentication service: %v", err)
		},
		backoff.WithContext(b, ctx),
		func(err error, d time.Duration) {
			o.Log.Warnf("%v: retrying in %v", err, d)
		},
	)
}

// Confirmer asks the user a yes/no question.
type Confirmer func(question string) (bool, error)

// LoginOptions holds the arguments of Login.
type LoginOptions struct {
	Username, Password string

	// ConfigurationDirectory holds the configuration file. The default
	// is given by DefaultConfigurationDirectory.
	ConfigurationDirectory string

	// OverwriteConfigurationFile skips the confirmation before an
	// existing configuration file is replaced.
	OverwriteConfigurationFile bool

	// SkipIfUserLoggedIn returns early if the configuration file
	// already holds valid credentials.
	SkipIfUserLoggedIn bool

	Checker Checker
	Prompt  PromptFunc

	// Confirm asks before replacing an existing file. If nil, the
	// existing file is kept.
	Confirm Confirmer

	Log logrus.FieldLogger
}

// Login checks the given credentials and stores them in the
// configuration file. It returns whether the credentials are valid.
// Invalid credentials do not create any file.
func Login(ctx context.Context, o LoginOptions) (bool, error) {
	log := o.Log
	if log == nil {
		log = logrus.StandardLogger()
	}
	checker := o.Checker
	if checker == nil {
		checker = NewOAuth2Checker("")
	}
	dir := o.ConfigurationDirectory
	if dir == "" {
		dir = DefaultConfigurationDirectory()
	}
	dir = os.ExpandEnv(dir)
	path := filepath.Join(dir, FileName)

	if o.SkipIfUserLoggedIn {
		if c, err := ReadFile(path); err == nil && c.complete() {
			if err := checker.Check(ctx, c); err == nil {
				log.Info("You are already logged in. Skipping login.")
				return true, nil
			}
		}
	}

	c := Credentials{Username: o.Username, Password: o.Password}
	if c.Username == "" {
		c.Username = os.Getenv(UsernameEnv)
	}
	if c.Password == "" {
		c.Password = os.Getenv(PasswordEnv)
	}
	var err error
	if c.Username == "" && o.Prompt != nil {
		if c.Username, err = o.Prompt("username", false); err != nil {
			return false, err
		}
	}
	if c.Password == "" && o.Prompt != nil {
		if c.Password, err = o.Prompt("password", true); err != nil {
			return false, err
		}
	}
	if !c.complete() {
		return false, ErrMissingCredentials
	}

	if err := checker.Check(ctx, c); err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			log.WithFields(logrus.Fields{"username": c.Username}).Error("Invalid credentials")
			return false, nil
		}
		return false, err
	}
	log.WithFields(logrus.Fields{"username": c.Username}).Info("Valid credentials")

	if _, err := os.Stat(path); err == nil && !o.OverwriteConfigurationFile {
		ok := false
		if o.Confirm != nil {
			if ok, err = o.Confirm(fmt.Sprintf("File %s already exists, overwrite it?", path)); err != nil {
				return false, err
			}
		}
		if !ok {
			log.WithFields(logrus.Fields{"file": path}).Info("Keeping the existing configuration file")
			return true, nil
		}
	}
	if _, err := WriteFile(dir, c); err != nil {
		return false, err
	}
	log.WithFields(logrus.Fields{"file": path}).Info("Credentials saved")
	return true, nil
}
