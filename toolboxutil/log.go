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
	"io"
	"os"

	"github.com/copernicusmarine/toolbox"
	"github.com/natefinch/lumberjack"
	"github.com/sirupsen/logrus"
)

var logger = logrus.New()

// Log receives the messages of the commands. It is also the default
// logger of the library functions.
var Log logrus.FieldLogger = logger

var logLevels = map[toolbox.LogLevel]logrus.Level{
	toolbox.LogDebug: logrus.DebugLevel,
	toolbox.LogInfo:  logrus.InfoLevel,
	toolbox.LogWarn:  logrus.WarnLevel,
	toolbox.LogError: logrus.ErrorLevel,
	// Nothing is logged at the fatal level, which only filters out
	// errors here.
	toolbox.LogCritical: logrus.FatalLevel,
}

// setLogging sends log messages to console and, if file is not empty,
// to a log file rotated when it reaches maxSize megabytes and kept
// for maxAge days.
func setLogging(console io.Writer, level, file string, maxSize, maxAge int) error {
	var out io.Writer = console
	if file != "" {
		out = io.MultiWriter(console, &lumberjack.Logger{
			Filename: os.ExpandEnv(file),
			MaxSize:  maxSize, // megabytes
			MaxAge:   maxAge,  // days
		})
	}
	logger.SetOutput(out)
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	return setLogLevel(toolbox.LogLevel(level))
}

// setLogLevel sets the level of the logger. An empty level leaves it
// unchanged.
func setLogLevel(level toolbox.LogLevel) error {
	if level == "" {
		return nil
	}
	l, err := toolbox.ParseLogLevel(string(level))
	if err != nil {
		return err
	}
	if l == toolbox.LogQuiet {
		logger.SetOutput(io.Discard)
		return nil
	}
	logger.SetLevel(logLevels[l])
	return nil
}
