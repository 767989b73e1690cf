// Copyright 2017-25 the original author or authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package cli holds the root command of osmgraph and the helpers shared by
// its subcommands.
package cli

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Configuration keys shared by the subcommands.
const (
	KeyCPU   = "cpu"
	KeyDebug = "debug"
	KeyQuiet = "quiet"
)

var (
	cfgFile   string
	configErr error
)

// RootCmd is the base command; subcommands register themselves with it.
var RootCmd = &cobra.Command{
	Use:   "osmgraph",
	Short: "Inspect and compare OpenStreetMap extracts",
	Long: `osmgraph loads OpenStreetMap PBF extracts into versioned entity graphs.

It can report what an extract holds and compute the semantic difference
between two extracts, optionally writing the complete change set back out
as a PBF file.`,
	SilenceUsage: true,
	PersistentPreRunE: func(*cobra.Command, []string) error {
		return configErr
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	flags := RootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default is $XDG_CONFIG_HOME/osmgraph/config.yaml)")
	flags.Uint16P(KeyCPU, "c", uint16(runtime.GOMAXPROCS(-1)), "number of CPUs to use for decoding")
	flags.Bool(KeyDebug, false, "enable debug logging")
	flags.BoolP(KeyQuiet, "q", false, "do not show a progress bar")

	for _, key := range []string{KeyCPU, KeyDebug, KeyQuiet} {
		_ = viper.BindPFlag(key, flags.Lookup(key))
	}
}

// initConfig reads in the config file and environment variables, then
// installs the logger.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else if dir, err := os.UserConfigDir(); err == nil {
		viper.AddConfigPath(filepath.Join(dir, "osmgraph"))
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	viper.SetEnvPrefix("OSMGRAPH")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			configErr = fmt.Errorf("unable to read config: %w", err)
		}
	}

	level := slog.LevelInfo
	if viper.GetBool(KeyDebug) {
		level = slog.LevelDebug
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	if f := viper.ConfigFileUsed(); f != "" && configErr == nil {
		slog.Debug("using config file", "file", f)
	}
}

// NCpu returns the configured number of decoding CPUs.
func NCpu() uint16 {
	n := viper.GetInt(KeyCPU)
	if n < 0 || n > int(^uint16(0)) {
		return 0
	}

	return uint16(n)
}
