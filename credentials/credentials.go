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

// Package credentials finds the username and password of a Copernicus
// Marine account, checks them against the authentication service and
// stores them in the toolbox configuration file.
package credentials

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/sirupsen/logrus"
	"golang.org/x/term"
)

// These are the environment variables holding credentials and settings.
const (
	UsernameEnv               = "COPERNICUSMARINE_SERVICE_USERNAME"
	PasswordEnv               = "COPERNICUSMARINE_SERVICE_PASSWORD"
	ConfigurationDirectoryEnv = "COPERNICUSMARINE_CONFIGURATION_FILE_DIRECTORY"
)

// FileName is the name of the configuration file written by Login.
const FileName = ".copernicusmarine-credentials"

var (
	// ErrMissingCredentials is returned when no username or password
	// could be found.
	ErrMissingCredentials = errors.New("credentials: missing username or password")

	// ErrInvalidCredentials is returned when the authentication service
	// rejects a username and password.
	ErrInvalidCredentials = errors.New("credentials: invalid username or password")
)

// Credentials are the username and password of an account.
type Credentials struct {
	Username, Password string
}

func (c Credentials) complete() bool { return c.Username != "" && c.Password != "" }

// PromptFunc asks the user for a value. The input is not echoed when
// hidden is true.
type PromptFunc func(label string, hidden bool) (string, error)

// Options specifies where credentials are looked up.
type Options struct {
	// Username and Password given explicitly take precedence.
	Username, Password string

	// CredentialsFile is a .copernicusmarine-credentials, .netrc, _netrc
	// or motuclient-python.ini file to read before the default ones.
	CredentialsFile string

	// ConfigurationDirectory holds the configuration file. The default
	// is given by DefaultConfigurationDirectory.
	ConfigurationDirectory string

	// HomeDirectory is searched for .netrc and motuclient files.
	// The default is the user's home directory.
	HomeDirectory string

	// Prompt, if not nil, is used to ask for missing values.
	Prompt PromptFunc

	Log logrus.FieldLogger
}

func (o *Options) log() logrus.FieldLogger {
	if o.Log == nil {
		return logrus.StandardLogger()
	}
	return o.Log
}

func (o *Options) home() string {
	if o.HomeDirectory != "" {
		return o.HomeDirectory
	}
	h, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return h
}

func (o *Options) configurationDirectory() string {
	if o.ConfigurationDirectory != "" {
		return os.ExpandEnv(o.ConfigurationDirectory)
	}
	return DefaultConfigurationDirectory()
}

// DefaultConfigurationDirectory returns the directory of the
// configuration file: the value of the
// COPERNICUSMARINE_CONFIGURATION_FILE_DIRECTORY environment variable,
// or else $HOME/.copernicusmarine.
func DefaultConfigurationDirectory() string {
	if d := os.Getenv(ConfigurationDirectoryEnv); d != "" {
		return d
	}
	h, err := os.UserHomeDir()
	if err != nil {
		h = "."
	}
	return filepath.Join(h, ".copernicusmarine")
}

// candidateFiles lists the credential files to try, in order.
func (o *Options) candidateFiles() []string {
	var files []string
	if o.CredentialsFile != "" {
		files = append(files, os.ExpandEnv(o.CredentialsFile))
	}
	home := o.home()
	netrc := ".netrc"
	if runtime.GOOS == "windows" {
		netrc = "_netrc"
	}
	return append(files,
		filepath.Join(o.configurationDirectory(), FileName),
		filepath.Join(home, netrc),
		filepath.Join(home, "motuclient", "motuclient-python.ini"),
	)
}

// Resolve returns the credentials to use. Each value is taken from
// the first of: the explicit options, the environment variables, the
// credential files, and the prompt.
func Resolve(o Options) (Credentials, error) {
	log := o.log()
	c := Credentials{Username: o.Username, Password: o.Password}
	if c.Username == "" {
		c.Username = os.Getenv(UsernameEnv)
	}
	if c.Password == "" {
		c.Password = os.Getenv(PasswordEnv)
	}
	if c.complete() {
		return c, nil
	}
	for _, f := range o.candidateFiles() {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		fc, err := ReadFile(f)
		if err != nil {
			return c, err
		}
		if !fc.complete() {
			continue
		}
		if c.Username != "" && c.Username != fc.Username {
			continue
		}
		log.WithFields(logrus.Fields{"file": f}).Debug("Credentials loaded from file")
		return fc, nil
	}
	if o.Prompt != nil {
		var err error
		if c.Username == "" {
			if c.Username, err = o.Prompt("username", false); err != nil {
				return c, err
			}
		}
		if c.Password == "" {
			if c.Password, err = o.Prompt("password", true); err != nil {
				return c, err
			}
		}
	}
	if !c.complete() {
		return c, ErrMissingCredentials
	}
	return c, nil
}

// TerminalPrompt returns a PromptFunc reading from in and writing
// labels to out, or nil if in is not a terminal.
func TerminalPrompt(in *os.File, out io.Writer) PromptFunc {
	if !term.IsTerminal(int(in.Fd())) {
		return nil
	}
	r := bufio.NewReader(in)
	return func(label string, hidden bool) (string, error) {
		fmt.Fprintf(out, "%s: ", label)
		if hidden {
			b, err := term.ReadPassword(int(in.Fd()))
			fmt.Fprintln(out)
			if err != nil {
				return "", fmt.Errorf("credentials: reading %s: %v", label, err)
			}
			return string(b), nil
		}
		s, err := r.ReadString('\n')
		if err != nil && err != io.EOF {
			return "", fmt.Errorf("credentials: reading %s: %v", label, err)
		}
		return strings.TrimSpace(s), nil
	}
}
