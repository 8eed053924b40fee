/*
Copyright © 2018-2023 blacktop

Permission is hereby granted, free of charge, to any person obtaining a copy
of this software and associated documentation files (the "Software"), to deal
in the Software without restriction, including without limitation the rights
to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
copies of the Software, and to permit persons to whom the Software is
furnished to do so, subject to the following conditions:

The above copyright notice and this permission notice shall be included in
all copies or substantial portions of the Software.

THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
THE SOFTWARE.
*/
package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/apex/log"
	clihander "github.com/apex/log/handlers/cli"
	"github.com/blacktop/asmremap/internal/colors"
	"github.com/blacktop/asmremap/internal/download"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	// Verbose boolean flag for verbose logging
	Verbose bool
	// AppVersion stores the plugin's version
	AppVersion string
	// AppBuildTime stores the plugin's build time
	AppBuildTime string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "asmremap",
	Short: "Remap ASMifier dumps so they resolve names at runtime",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if Verbose {
			log.SetLevel(log.DebugLevel)
		}
		if viper.GetBool("no-color") {
			enabled := false
			colors.Init(&enabled)
		}
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	rootCmd.Version = AppVersion
	if err := rootCmd.Execute(); err != nil {
		log.Error(err.Error())
		os.Exit(1)
	}
}

func init() {
	log.SetHandler(clihander.Default)

	cobra.OnInitialize(initConfig)

	// Flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/asmremap/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&Verbose, "verbose", "V", false, "verbose output")
	rootCmd.PersistentFlags().Bool("no-color", false, "disable colorized output")
	viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	viper.BindPFlag("no-color", rootCmd.PersistentFlags().Lookup("no-color"))
	viper.BindEnv("no-color", "NO_COLOR")

	// Mappings flags shared by the remap and lookup commands
	rootCmd.PersistentFlags().StringP("mappings", "m", "", "Tiny v2 mappings archive (yarn-<version>+build.<n>-v2.jar)")
	rootCmd.PersistentFlags().String("proguard", "", "Local proguard mappings (fetched from the version manifest if omitted)")
	rootCmd.PersistentFlags().String("game-version", "", "Game version (derived from the mappings archive name if omitted)")
	rootCmd.PersistentFlags().String("side", string(download.SideClient), "Distribution whose proguard mappings to fetch (client|server)")
	rootCmd.PersistentFlags().String("cache", "", "Mappings cache directory (default is the user cache directory)")
	rootCmd.PersistentFlags().Bool("no-cache", false, "Do not read or write the mappings cache")
	rootCmd.PersistentFlags().String("proxy", "", "HTTP/HTTPS proxy")
	rootCmd.PersistentFlags().Bool("insecure", false, "do not verify ssl certs")
	rootCmd.PersistentFlags().Int("attempts", 1, "Number of times to try downloading the proguard mappings")
	rootCmd.MarkPersistentFlagFilename("mappings", "jar", "tiny")
	rootCmd.MarkPersistentFlagFilename("proguard", "txt")
	rootCmd.MarkPersistentFlagDirname("cache")
	viper.BindPFlag("mappings.tiny", rootCmd.PersistentFlags().Lookup("mappings"))
	viper.BindPFlag("mappings.proguard", rootCmd.PersistentFlags().Lookup("proguard"))
	viper.BindPFlag("mappings.game-version", rootCmd.PersistentFlags().Lookup("game-version"))
	viper.BindPFlag("mappings.side", rootCmd.PersistentFlags().Lookup("side"))
	viper.BindPFlag("mappings.cache", rootCmd.PersistentFlags().Lookup("cache"))
	viper.BindPFlag("mappings.no-cache", rootCmd.PersistentFlags().Lookup("no-cache"))
	viper.BindPFlag("download.proxy", rootCmd.PersistentFlags().Lookup("proxy"))
	viper.BindPFlag("download.insecure", rootCmd.PersistentFlags().Lookup("insecure"))
	viper.BindPFlag("download.attempts", rootCmd.PersistentFlags().Lookup("attempts"))

	// Settings
	rootCmd.CompletionOptions.HiddenDefaultCmd = true
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag.
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory.
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		// Search config in home directory with name "config" (without extension).
		viper.AddConfigPath(filepath.Join(home, ".config", "asmremap"))
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	viper.SetEnvPrefix("asmremap")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	viper.AutomaticEnv()

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}
