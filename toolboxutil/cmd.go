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

package toolboxutil

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/copernicusmarine/toolbox"
	"github.com/copernicusmarine/toolbox/credentials"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Cfg holds configuration information.
var Cfg *viper.Viper

var options []struct {
	name, usage, shorthand string
	defaultVal             interface{}
	flagsets               []*pflag.FlagSet
}

func init() {
	// Options are the configuration options available to the toolbox.
	options = []struct {
		name, usage, shorthand string
		defaultVal             interface{}
		flagsets               []*pflag.FlagSet
	}{
		{
			name: "config",
			usage: `
              config specifies the configuration file location.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "log-level",
			usage: `
              log-level sets the level of detail printed to the console.
              One of DEBUG, INFO, WARN, ERROR, CRITICAL or QUIET.`,
			defaultVal: string(toolbox.LogInfo),
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "log-file",
			usage: `
              log-file additionally writes log messages to the given
              file, rotating it as it grows.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "log-max-size",
			usage: `
              log-max-size is the size in megabytes at which the log
              file is rotated.`,
			defaultVal: 100,
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "log-max-age",
			usage: `
              log-max-age is the number of days rotated log files are kept.`,
			defaultVal: 28,
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "staging",
			usage: `
              staging uses the staging catalogue instead of the production one.`,
			defaultVal: false,
			flagsets:   []*pflag.FlagSet{describeCmd.Flags(), getCmd.Flags(), subsetCmd.Flags()},
		},
		{
			name: "catalogue-url",
			usage: `
              catalogue-url is the root document of the catalogue. It
              overrides the staging option.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{describeCmd.Flags(), getCmd.Flags(), subsetCmd.Flags()},
		},
		{
			name: "auth-url",
			usage: `
              auth-url is the token endpoint checking the credentials.`,
			defaultVal: credentials.DefaultTokenURL,
			flagsets:   []*pflag.FlagSet{getCmd.Flags(), subsetCmd.Flags(), loginCmd.Flags()},
		},
		{
			name: "max-concurrent-requests",
			usage: `
              max-concurrent-requests is the maximum number of requests
              sent at the same time to the catalogue and file stores.`,
			defaultVal: toolbox.DefaultMaxConcurrentRequests,
			flagsets:   []*pflag.FlagSet{describeCmd.Flags(), getCmd.Flags(), subsetCmd.Flags()},
		},
		{
			name: "disable-progress-bar",
			usage: `
              disable-progress-bar turns off the progress bar.`,
			defaultVal: false,
			flagsets:   []*pflag.FlagSet{describeCmd.Flags(), getCmd.Flags(), subsetCmd.Flags()},
		},
		{
			name: "include-description",
			usage: `
              include-description includes the product descriptions.`,
			defaultVal: false,
			flagsets:   []*pflag.FlagSet{describeCmd.Flags()},
		},
		{
			name: "include-datasets",
			usage: `
              include-datasets includes the datasets of each product.`,
			defaultVal: false,
			flagsets:   []*pflag.FlagSet{describeCmd.Flags()},
		},
		{
			name: "include-keywords",
			usage: `
              include-keywords includes the product keywords.`,
			defaultVal: false,
			flagsets:   []*pflag.FlagSet{describeCmd.Flags()},
		},
		{
			name: "include-versions",
			usage: `
              include-versions includes every version of each dataset
              instead of the default one only.`,
			defaultVal: false,
			flagsets:   []*pflag.FlagSet{describeCmd.Flags()},
		},
		{
			name: "include-all",
			usage: `
              include-all sets all the include options.`,
			shorthand:  "a",
			defaultVal: false,
			flagsets:   []*pflag.FlagSet{describeCmd.Flags()},
		},
		{
			name: "contains",
			usage: `
              contains keeps the products containing every given string.
              Repeat the option to give several strings.`,
			shorthand:  "c",
			defaultVal: []string{},
			flagsets:   []*pflag.FlagSet{describeCmd.Flags()},
		},
		{
			name: "dataset-id",
			usage: `
              dataset-id is the identifier of the dataset.`,
			shorthand:  "i",
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{getCmd.Flags(), subsetCmd.Flags()},
		},
		{
			name: "dataset-version",
			usage: `
              dataset-version forces the version of the dataset. The
              default is the latest released version.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{getCmd.Flags(), subsetCmd.Flags()},
		},
		{
			name: "dataset-part",
			usage: `
              dataset-part forces the part of the dataset.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{getCmd.Flags(), subsetCmd.Flags()},
		},
		{
			name: "username",
			usage: `
              username is the username of the Copernicus Marine account.
              COPERNICUSMARINE_SERVICE_USERNAME and the credential files
              are used when it is not given.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{getCmd.Flags(), subsetCmd.Flags(), loginCmd.Flags()},
		},
		{
			name: "password",
			usage: `
              password is the password of the Copernicus Marine account.
              COPERNICUSMARINE_SERVICE_PASSWORD and the credential files
              are used when it is not given.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{getCmd.Flags(), subsetCmd.Flags(), loginCmd.Flags()},
		},
		{
			name: "credentials-file",
			usage: `
              credentials-file is a .copernicusmarine-credentials, .netrc
              or motuclient-python.ini file holding the credentials.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{getCmd.Flags(), subsetCmd.Flags()},
		},
		{
			name: "output-directory",
			usage: `
              output-directory is the directory, or s3://, gs:// or
              file:// location, where the data are written.`,
			shorthand:  "o",
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{getCmd.Flags(), subsetCmd.Flags()},
		},
		{
			name: "force-download",
			usage: `
              force-download skips the confirmation before downloading.`,
			defaultVal: false,
			flagsets:   []*pflag.FlagSet{getCmd.Flags(), subsetCmd.Flags()},
		},
		{
			name: "overwrite-output-data",
			usage: `
              overwrite-output-data replaces existing outputs instead of
              writing them under a new name.`,
			defaultVal: false,
			flagsets:   []*pflag.FlagSet{getCmd.Flags(), subsetCmd.Flags()},
		},
		{
			name: "service",
			usage: `
              service forces the service used to access the data:
              original-files (files), arco-geo-series (geoseries),
              arco-time-series (timeseries), omi-arco or static-arco.`,
			shorthand:  "s",
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{getCmd.Flags(), subsetCmd.Flags()},
		},
		{
			name: "create-template",
			usage: `
              create-template writes a request file template in the
              current directory and exits.`,
			defaultVal: false,
			flagsets:   []*pflag.FlagSet{getCmd.Flags(), subsetCmd.Flags()},
		},
		{
			name: "request-file",
			usage: `
              request-file is a JSON file holding the options of the
              request. Options given on the command line take precedence.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{getCmd.Flags(), subsetCmd.Flags()},
		},
		{
			name: "dry-run",
			usage: `
              dry-run returns the description of the outputs without
              downloading any data.`,
			defaultVal: false,
			flagsets:   []*pflag.FlagSet{getCmd.Flags(), subsetCmd.Flags()},
		},
		{
			name: "variable",
			usage: `
              variable is the name or standard name of a variable to
              extract. Repeat the option to extract several variables.`,
			shorthand:  "v",
			defaultVal: []string{},
			flagsets:   []*pflag.FlagSet{subsetCmd.Flags()},
		},
		{
			name: "minimum-longitude",
			usage: `
              minimum-longitude is the western bound of the subset in
              degrees east.`,
			shorthand:  "x",
			defaultVal: 0.,
			flagsets:   []*pflag.FlagSet{subsetCmd.Flags()},
		},
		{
			name: "maximum-longitude",
			usage: `
              maximum-longitude is the eastern bound of the subset in
              degrees east.`,
			shorthand:  "X",
			defaultVal: 0.,
			flagsets:   []*pflag.FlagSet{subsetCmd.Flags()},
		},
		{
			name: "minimum-latitude",
			usage: `
              minimum-latitude is the southern bound of the subset in
              degrees north, within [-90, 90].`,
			shorthand:  "y",
			defaultVal: 0.,
			flagsets:   []*pflag.FlagSet{subsetCmd.Flags()},
		},
		{
			name: "maximum-latitude",
			usage: `
              maximum-latitude is the northern bound of the subset in
              degrees north, within [-90, 90].`,
			shorthand:  "Y",
			defaultVal: 0.,
			flagsets:   []*pflag.FlagSet{subsetCmd.Flags()},
		},
		{
			name: "minimum-depth",
			usage: `
              minimum-depth is the upper bound of the subset in meters,
              within [0, 10000].`,
			shorthand:  "z",
			defaultVal: 0.,
			flagsets:   []*pflag.FlagSet{subsetCmd.Flags()},
		},
		{
			name: "maximum-depth",
			usage: `
              maximum-depth is the lower bound of the subset in meters,
              within [0, 10000].`,
			shorthand:  "Z",
			defaultVal: 0.,
			flagsets:   []*pflag.FlagSet{subsetCmd.Flags()},
		},
		{
			name: "vertical-dimension-output",
			usage: `
              vertical-dimension-output names the vertical axis of the
              output: depth, or elevation with negated values.`,
			shorthand:  "V",
			defaultVal: string(toolbox.DefaultVerticalDimensionOutput),
			flagsets:   []*pflag.FlagSet{subsetCmd.Flags()},
		},
		{
			name: "start-datetime",
			usage: `
              start-datetime is the first time of the subset, as "now",
              YYYY, YYYY-MM-DD or an ISO 8601 date and time.`,
			shorthand:  "t",
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{subsetCmd.Flags()},
		},
		{
			name: "end-datetime",
			usage: `
              end-datetime is the last time of the subset, in the same
              formats as start-datetime.`,
			shorthand:  "T",
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{subsetCmd.Flags()},
		},
		{
			name: "coordinates-selection-method",
			usage: `
              coordinates-selection-method is how the bounds select
              coordinates: inside, strict-inside, nearest or outside.`,
			defaultVal: string(toolbox.DefaultCoordinatesSelectionMethod),
			flagsets:   []*pflag.FlagSet{subsetCmd.Flags()},
		},
		{
			name: "output-filename",
			usage: `
              output-filename is the name of the output file. The default
              is built from the dataset and the bounds of the subset.`,
			shorthand:  "f",
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{subsetCmd.Flags()},
		},
		{
			name: "file-format",
			usage: `
              file-format is the format of the output: netcdf or zarr.`,
			defaultVal: string(toolbox.DefaultFileFormat),
			flagsets:   []*pflag.FlagSet{subsetCmd.Flags()},
		},
		{
			name: "motu-api-request",
			usage: `
              motu-api-request is a legacy MOTU command line whose options
              are translated into the subset request.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{subsetCmd.Flags()},
		},
		{
			name: "netcdf-compression-enabled",
			usage: `
              netcdf-compression-enabled asks for compressed NetCDF output.`,
			defaultVal: false,
			flagsets:   []*pflag.FlagSet{subsetCmd.Flags()},
		},
		{
			name: "netcdf-compression-level",
			usage: `
              netcdf-compression-level is the compression level, 0 to 9.`,
			defaultVal: 0,
			flagsets:   []*pflag.FlagSet{subsetCmd.Flags()},
		},
		{
			name: "netcdf3-compatible",
			usage: `
              netcdf3-compatible writes a NetCDF 3 compatible file.`,
			defaultVal: false,
			flagsets:   []*pflag.FlagSet{subsetCmd.Flags()},
		},
		{
			name: "no-directories",
			usage: `
              no-directories writes every file directly in the output
              directory. -nd is accepted as well.`,
			shorthand:  "n",
			defaultVal: false,
			flagsets:   []*pflag.FlagSet{getCmd.Flags()},
		},
		{
			name: "show-outputnames",
			usage: `
              show-outputnames logs the path of every output file.`,
			defaultVal: false,
			flagsets:   []*pflag.FlagSet{getCmd.Flags()},
		},
		{
			name: "filter",
			usage: `
              filter is a glob pattern matched against the file URLs.
              '*' matches any sequence of characters, '/' included.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{getCmd.Flags()},
		},
		{
			name: "regex",
			usage: `
              regex is a regular expression searched in the file URLs.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{getCmd.Flags()},
		},
		{
			name: "file-list",
			usage: `
              file-list is a text file of the paths or URLs to download,
              one per line.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{getCmd.Flags()},
		},
		{
			name: "create-file-list",
			usage: `
              create-file-list writes the selected files to the given .txt
              or .csv file instead of downloading them.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{getCmd.Flags()},
		},
		{
			name: "sync",
			usage: `
              sync only downloads files that are missing or changed
              locally. It requires dataset-version.`,
			defaultVal: false,
			flagsets:   []*pflag.FlagSet{getCmd.Flags()},
		},
		{
			name: "sync-delete",
			usage: `
              sync-delete is sync, and also deletes local files that are
              no longer on the server.`,
			defaultVal: false,
			flagsets:   []*pflag.FlagSet{getCmd.Flags()},
		},
		{
			name: "index-parts",
			usage: `
              index-parts only downloads the index files of the dataset.`,
			defaultVal: false,
			flagsets:   []*pflag.FlagSet{getCmd.Flags()},
		},
		{
			name: "configuration-file-directory",
			usage: `
              configuration-file-directory is the directory of the
              credentials file. The default is $HOME/.copernicusmarine.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{loginCmd.Flags()},
		},
		{
			name: "overwrite-configuration-file",
			usage: `
              overwrite-configuration-file replaces an existing
              credentials file without asking. -overwrite is accepted
              as well.`,
			shorthand:  "o",
			defaultVal: false,
			flagsets:   []*pflag.FlagSet{loginCmd.Flags()},
		},
		{
			name: "skip-if-user-logged-in",
			usage: `
              skip-if-user-logged-in does nothing if the credentials file
              already holds valid credentials.`,
			defaultVal: false,
			flagsets:   []*pflag.FlagSet{loginCmd.Flags()},
		},
	}

	Cfg = viper.New()

	// Set the prefix for configuration environment variables.
	Cfg.SetEnvPrefix("COPERNICUSMARINE")
	Cfg.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	Cfg.AutomaticEnv()

	for _, option := range options {
		for i, set := range option.flagsets {
			if i != 0 { // We don't want to create the same flag twice.
				set.AddFlag(option.flagsets[0].Lookup(option.name))
				continue
			}
			switch option.defaultVal.(type) {
			case string:
				if option.shorthand == "" {
					set.String(option.name, option.defaultVal.(string), option.usage)
				} else {
					set.StringP(option.name, option.shorthand, option.defaultVal.(string), option.usage)
				}
			case []string:
				if option.shorthand == "" {
					set.StringArray(option.name, option.defaultVal.([]string), option.usage)
				} else {
					set.StringArrayP(option.name, option.shorthand, option.defaultVal.([]string), option.usage)
				}
			case bool:
				if option.shorthand == "" {
					set.Bool(option.name, option.defaultVal.(bool), option.usage)
				} else {
					set.BoolP(option.name, option.shorthand, option.defaultVal.(bool), option.usage)
				}
			case int:
				if option.shorthand == "" {
					set.Int(option.name, option.defaultVal.(int), option.usage)
				} else {
					set.IntP(option.name, option.shorthand, option.defaultVal.(int), option.usage)
				}
			case float64:
				if option.shorthand == "" {
					set.Float64(option.name, option.defaultVal.(float64), option.usage)
				} else {
					set.Float64P(option.name, option.shorthand, option.defaultVal.(float64), option.usage)
				}
			default:
				panic("invalid argument type")
			}
			Cfg.BindPFlag(option.name, set.Lookup(option.name))
		}
	}

	for _, name := range []string{"log-file", "log-max-size", "log-max-age", "staging", "catalogue-url", "auth-url"} {
		for _, set := range []*pflag.FlagSet{Root.PersistentFlags(), describeCmd.Flags(), getCmd.Flags(), subsetCmd.Flags(), loginCmd.Flags()} {
			if set.Lookup(name) != nil {
				set.MarkHidden(name)
			}
		}
	}
}

func init() {
	// Link the commands together.
	Root.AddCommand(versionCmd)
	Root.AddCommand(describeCmd)
	Root.AddCommand(getCmd)
	Root.AddCommand(subsetCmd)
	Root.AddCommand(loginCmd)
	Root.SetGlobalNormalizationFunc(normalizeOption)
}

// deprecatedOptions maps the names of deprecated options to their
// replacements.
var deprecatedOptions = map[string]string{
	"force-dataset-version":          "dataset-version",
	"force-dataset-part":             "dataset-part",
	"force-service":                  "service",
	"overwrite":                      "overwrite-output-data",
	"filter-with-globbing-pattern":   "filter",
	"filter-with-regular-expression": "regex",
}

// normalizeOption accepts deprecated option names, warning about them.
func normalizeOption(f *pflag.FlagSet, name string) pflag.NormalizedName {
	if to, ok := deprecatedOptions[name]; ok {
		Log.Warnf("'--%s' is deprecated, use '--%s' instead", name, to)
		return pflag.NormalizedName(to)
	}
	return pflag.NormalizedName(name)
}

// RewriteArgs translates the single-dash long options -nd and
// -overwrite into their double-dash forms.
func RewriteArgs(args []string) []string {
	login := false
	for _, a := range args {
		if a == "login" {
			login = true
			break
		}
	}
	o := make([]string, len(args))
	for i, a := range args {
		switch {
		case a == "-nd":
			a = "--no-directories"
		case a == "-overwrite" && login:
			a = "--overwrite-configuration-file"
		case a == "-overwrite":
			a = "--overwrite-output-data"
		}
		o[i] = a
	}
	return o
}

// setConfig finds and reads in the configuration file, if there is one.
func setConfig() error {
	if cfgpath := Cfg.GetString("config"); cfgpath != "" {
		Cfg.SetConfigFile(os.ExpandEnv(cfgpath))
		if err := Cfg.ReadInConfig(); err != nil {
			return fmt.Errorf("toolbox: problem reading configuration file: %v", err)
		}
	}
	return nil
}

// Root is the main command.
var Root = &cobra.Command{
	Use:   "copernicusmarine",
	Short: "Access the Copernicus Marine catalogue and data.",
	Long: `copernicusmarine describes the products of the Copernicus Marine catalogue,
downloads their original files and extracts subsets of their datasets.
Use the subcommands specified below to access this functionality.

Refer to the subcommand documentation for configuration options and default settings.
Configuration can be changed by using a configuration file (and providing the
path to the file using the --config flag), by using command-line arguments,
or by setting environment variables in the format 'COPERNICUSMARINE_VAR' where
'VAR' is the name of the option in upper case with dashes replaced by underscores.
Refer to https://github.com/spf13/viper for additional configuration information.`,
	DisableAutoGenTag: true,
	SilenceErrors:     true,
	SilenceUsage:      true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := setConfig(); err != nil {
			return err
		}
		return setLogging(cmd.ErrOrStderr(), Cfg.GetString("log-level"), Cfg.GetString("log-file"),
			Cfg.GetInt("log-max-size"), Cfg.GetInt("log-max-age"))
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Long:  "version prints the version number of this version of the toolbox.",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "copernicusmarine toolbox v%s\n", toolbox.Version)
	},
	DisableAutoGenTag: true,
}

var describeCmd = &cobra.Command{
	Use:   "describe",
	Short: "Print the catalogue",
	Long: `describe prints the products of the catalogue as JSON. By default only
the product identifiers and titles are printed; use the include options to
add descriptions, keywords, datasets and versions, and the contains option
to keep only the products mentioning some text.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		contains, err := checkStrings(Cfg.Get("contains"))
		if err != nil {
			return err
		}
		cat, err := Describe(cmd.Context(), DescribeOptions{
			IncludeDescription:    Cfg.GetBool("include-description"),
			IncludeDatasets:       Cfg.GetBool("include-datasets"),
			IncludeKeywords:       Cfg.GetBool("include-keywords"),
			IncludeVersions:       Cfg.GetBool("include-versions"),
			IncludeAll:            Cfg.GetBool("include-all"),
			Contains:              contains,
			MaxConcurrentRequests: Cfg.GetInt("max-concurrent-requests"),
			DisableProgressBar:    Cfg.GetBool("disable-progress-bar"),
			Staging:               Cfg.GetBool("staging"),
		}, cliOptions(cmd))
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), cat)
	},
	DisableAutoGenTag: true,
}

var getCmd = &cobra.Command{
	Use:   "get",
	Short: "Download original files",
	Long: `get downloads the original files of a dataset, optionally filtered by a
glob pattern, a regular expression or a list of files, and prints the list
of downloaded files as JSON. With sync, only new and changed files are
downloaded.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if Cfg.GetBool("create-template") {
			return createTemplate(cmd, toolbox.CreateGetTemplate)
		}
		m, err := requestLayers(cmd, toolbox.ReadGetRequestFile, false)
		if err != nil {
			return err
		}
		r, err := toolbox.DecodeGetRequest(m)
		if err != nil {
			return err
		}
		if err := setLogLevel(r.LogLevel); err != nil {
			return err
		}
		resp, err := Get(cmd.Context(), r, cliOptions(cmd))
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), resp)
	},
	DisableAutoGenTag: true,
}

var subsetCmd = &cobra.Command{
	Use:   "subset",
	Short: "Extract a subset of a dataset",
	Long: `subset extracts the variables of a dataset within the given geographical,
vertical and temporal bounds, writes them to a NetCDF file or a Zarr store and
prints a description of the output as JSON.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if Cfg.GetBool("create-template") {
			return createTemplate(cmd, toolbox.CreateSubsetTemplate)
		}
		m, err := requestLayers(cmd, toolbox.ReadSubsetRequestFile, true)
		if err != nil {
			return err
		}
		r, err := toolbox.DecodeSubsetRequest(m)
		if err != nil {
			return err
		}
		if err := setLogLevel(r.LogLevel); err != nil {
			return err
		}
		resp, err := Subset(cmd.Context(), r, cliOptions(cmd))
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), resp)
	},
	DisableAutoGenTag: true,
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Store the credentials",
	Long: `login checks a username and password against the authentication service
and stores them in the credentials file of the configuration directory, so
that later commands do not need them.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ok, err := Login(cmd.Context(), LoginOptions{
			Username:                   Cfg.GetString("username"),
			Password:                   Cfg.GetString("password"),
			ConfigurationDirectory:     Cfg.GetString("configuration-file-directory"),
			OverwriteConfigurationFile: Cfg.GetBool("overwrite-configuration-file"),
			SkipIfUserLoggedIn:         Cfg.GetBool("skip-if-user-logged-in"),
		}, cliOptions(cmd))
		if err != nil {
			return err
		}
		if !ok {
			return credentials.ErrInvalidCredentials
		}
		return nil
	},
	DisableAutoGenTag: true,
}

// cliOptions returns the settings of the library functions called
// by the commands, prompting on the terminal.
func cliOptions(cmd *cobra.Command) Options {
	in, out := cmd.InOrStdin(), cmd.ErrOrStderr()
	o := Options{
		CatalogueURL: Cfg.GetString("catalogue-url"),
		AuthURL:      Cfg.GetString("auth-url"),
		ConfirmGet: func(r *toolbox.ResponseGet) bool {
			var total float64
			for _, f := range r.Files {
				total += f.Size
			}
			q := fmt.Sprintf("%d files, %s in total. Do you want to proceed with download?",
				len(r.Files), humanize.IBytes(uint64(total*megabyte)))
			return confirm(in, out, q)
		},
		ConfirmSubset: func(*toolbox.ResponseSubset) bool {
			return confirm(in, out, "Do you want to proceed with download?")
		},
		ConfirmOverwrite: func(q string) (bool, error) {
			return confirm(in, out, q), nil
		},
		Log: Log,
	}
	if f, ok := in.(*os.File); ok {
		o.Prompt = credentials.TerminalPrompt(f, out)
	}
	return o
}

// confirm asks a yes/no question, yes being the default answer.
// It returns false at the end of the input.
func confirm(in io.Reader, out io.Writer, question string) bool {
	fmt.Fprintf(out, "%s [Y/n]: ", question)
	s, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && s == "" {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "y", "yes":
		return true
	}
	return false
}

// createTemplate writes a request template in the current directory.
// No other option may be given with create-template.
func createTemplate(cmd *cobra.Command, create func(dir string) (string, error)) error {
	var others []string
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if f.Changed && f.Name != "create-template" {
			others = append(others, "--"+f.Name)
		}
	})
	if len(others) > 0 {
		return fmt.Errorf("%w: --create-template cannot be used with %s",
			toolbox.ErrInvalidRequest, strings.Join(others, ", "))
	}
	p, err := create(".")
	if err != nil {
		return err
	}
	Log.WithField("path", p).Info("Template created")
	return nil
}

func printJSON(w io.Writer, v interface{}) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("toolbox: encoding response: %v", err)
	}
	_, err = fmt.Fprintln(w, string(b))
	return err
}
