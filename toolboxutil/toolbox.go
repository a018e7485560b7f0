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

// Package toolboxutil holds the command-line interface of the
// copernicusmarine toolbox and the library functions behind its
// commands.
package toolboxutil

import (
	"context"
	"os"
	"time"

	"github.com/copernicusmarine/toolbox"
	"github.com/copernicusmarine/toolbox/catalogue"
	"github.com/copernicusmarine/toolbox/credentials"
	"github.com/copernicusmarine/toolbox/download"
	"github.com/copernicusmarine/toolbox/subset"
	"github.com/sirupsen/logrus"
)

const megabyte = 1024 * 1024

// Options hold the settings shared by the library functions. The zero
// value uses the production services and never prompts.
type Options struct {
	// CatalogueURL is the root document of the catalogue. If empty,
	// the production or staging catalogue is used depending on the
	// request.
	CatalogueURL string

	// AuthURL is the token endpoint checking credentials. If empty,
	// credentials.DefaultTokenURL is used.
	AuthURL string

	// Checker, if not nil, checks credentials instead of the token
	// endpoint.
	Checker credentials.Checker

	// HomeDirectory is searched for .netrc and motuclient credential
	// files. The default is the user's home directory.
	HomeDirectory string

	// Prompt asks for missing credentials.
	Prompt credentials.PromptFunc

	// ConfirmGet and ConfirmSubset are asked before downloading
	// unless the request forces the download. ConfirmOverwrite is
	// asked before login replaces a credentials file. Nil functions
	// accept downloads and keep existing files.
	ConfirmGet       func(*toolbox.ResponseGet) bool
	ConfirmSubset    func(*toolbox.ResponseSubset) bool
	ConfirmOverwrite credentials.Confirmer

	// MaxElapsedTime bounds the retries of each request. Zero keeps
	// the defaults.
	MaxElapsedTime time.Duration

	Log logrus.FieldLogger
}

func (o *Options) log() logrus.FieldLogger {
	if o.Log == nil {
		return Log
	}
	return o.Log
}

func (o *Options) checker() credentials.Checker {
	if o.Checker != nil {
		return o.Checker
	}
	c := credentials.NewOAuth2Checker(os.ExpandEnv(o.AuthURL))
	c.Log = o.log()
	if o.MaxElapsedTime != 0 {
		c.MaxElapsedTime = o.MaxElapsedTime
	}
	return c
}

// catalogue returns a client of the catalogue to use.
func (o *Options) catalogue(staging bool, maxConcurrentRequests int, username string) *catalogue.Client {
	u := os.ExpandEnv(o.CatalogueURL)
	if u == "" {
		u = catalogue.DefaultURL(staging)
	}
	c := catalogue.NewClient(u)
	c.Log = o.log()
	c.Fetch.Log = c.Log
	c.Fetch.Username = username
	if o.MaxElapsedTime != 0 {
		c.Fetch.MaxElapsedTime = o.MaxElapsedTime
	}
	if maxConcurrentRequests > 0 {
		c.MaxConcurrentRequests = maxConcurrentRequests
	}
	return c
}

// authenticate returns the credentials of a request, checked
// against the authentication service.
func (o *Options) authenticate(ctx context.Context, username, password, file string) (credentials.Credentials, error) {
	c, err := credentials.Resolve(credentials.Options{
		Username:        username,
		Password:        password,
		CredentialsFile: file,
		HomeDirectory:   o.HomeDirectory,
		Prompt:          o.Prompt,
		Log:             o.log(),
	})
	if err != nil {
		return c, err
	}
	if err := o.checker().Check(ctx, c); err != nil {
		return c, err
	}
	return c, nil
}

// DescribeOptions are the arguments of Describe.
type DescribeOptions struct {
	IncludeDescription bool
	IncludeDatasets    bool
	IncludeKeywords    bool
	IncludeVersions    bool
	IncludeAll         bool

	// Contains keeps the products mentioning every string.
	Contains []string

	MaxConcurrentRequests int

	// DisableProgressBar is accepted for compatibility. Progress is
	// reported by debug log messages.
	DisableProgressBar bool

	Staging bool
}

// Describe returns the products of the catalogue.
func Describe(ctx context.Context, d DescribeOptions, o Options) (*catalogue.Catalogue, error) {
	c := o.catalogue(d.Staging, d.MaxConcurrentRequests, "")
	return c.Describe(ctx, catalogue.DescribeOptions{
		IncludeDescription: d.IncludeDescription,
		IncludeDatasets:    d.IncludeDatasets,
		IncludeKeywords:    d.IncludeKeywords,
		IncludeVersions:    d.IncludeVersions,
		IncludeAll:         d.IncludeAll,
		Contains:           d.Contains,
	})
}

// Get downloads the original files of a dataset.
func Get(ctx context.Context, r *toolbox.GetRequest, o Options) (*toolbox.ResponseGet, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	c, err := o.authenticate(ctx, r.Username, r.Password, r.CredentialsFile)
	if err != nil {
		return nil, err
	}
	return download.Get(ctx, r, download.Options{
		Catalogue:      o.catalogue(r.Staging, r.MaxConcurrentRequests, c.Username),
		Confirm:        o.ConfirmGet,
		MaxElapsedTime: o.MaxElapsedTime,
	})
}

// Subset extracts a subset of a dataset into a file.
func Subset(ctx context.Context, r *toolbox.SubsetRequest, o Options) (*toolbox.ResponseSubset, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	c, err := o.authenticate(ctx, r.Username, r.Password, r.CredentialsFile)
	if err != nil {
		return nil, err
	}
	return subset.Subset(ctx, r, subset.Options{
		Catalogue: o.catalogue(r.Staging, r.MaxConcurrentRequests, c.Username),
		Confirm:   o.ConfirmSubset,
	})
}

// OpenDataset returns the subset of a dataset described by r without
// reading its data, which are read on demand. The caller closes it.
func OpenDataset(ctx context.Context, r *toolbox.SubsetRequest, o Options) (*subset.Dataset, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	c, err := o.authenticate(ctx, r.Username, r.Password, r.CredentialsFile)
	if err != nil {
		return nil, err
	}
	return subset.Open(ctx, o.catalogue(r.Staging, r.MaxConcurrentRequests, c.Username), r)
}

// ReadDataframe reads the subset of a dataset described by r into a
// table with one row per point.
func ReadDataframe(ctx context.Context, r *toolbox.SubsetRequest, o Options) (*subset.Dataframe, error) {
	d, err := OpenDataset(ctx, r, o)
	if err != nil {
		return nil, err
	}
	defer d.Close()
	return subset.ReadDataframe(ctx, d)
}

// LoginOptions are the arguments of Login.
type LoginOptions struct {
	Username, Password         string
	ConfigurationDirectory     string
	OverwriteConfigurationFile bool
	SkipIfUserLoggedIn         bool
}

// Login checks the credentials and stores them in the credentials
// file. It returns false if the credentials are invalid.
func Login(ctx context.Context, l LoginOptions, o Options) (bool, error) {
	return credentials.Login(ctx, credentials.LoginOptions{
		Username:                   l.Username,
		Password:                   l.Password,
		ConfigurationDirectory:     l.ConfigurationDirectory,
		OverwriteConfigurationFile: l.OverwriteConfigurationFile,
		SkipIfUserLoggedIn:         l.SkipIfUserLoggedIn,
		Checker:                    o.checker(),
		Prompt:                     o.Prompt,
		Confirm:                    o.ConfirmOverwrite,
		Log:                        o.log(),
	})
}
