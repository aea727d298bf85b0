// Package config wires viper for the converter: an optional config file,
// K2M_* environment variables, and defaults. Flags bound by the caller win
// over all of these. The core packages never read viper themselves; the
// resolved values travel in an explicit Options struct.
package config

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mattsolo1/kmail2maildir/pkg/convert"
)

const EnvPrefix = "K2M"

func Init(cfgFile string) {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		configDir := filepath.Join(home, ".config", "kmail2maildir")
		viper.AddConfigPath(configDir)
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	viper.AutomaticEnv()
	viper.SetEnvPrefix(EnvPrefix)

	viper.SetDefault("hierarchy_separator", convert.DefaultHierarchySeparator)
	viper.SetDefault("index_file_patterns", convert.DefaultIndexFilePatterns)
	viper.SetDefault("merge_inbox", true)

	// A missing config file is fine, the defaults cover everything.
	_ = viper.ReadInConfig()
}
