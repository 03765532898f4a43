/*
Copyright © 2021 Edmond Cotterell

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"fmt"
	"os"
	"strings"

	devconfig "github.com/Daskott/kavach/dev/config"
	"github.com/Daskott/kavach/server"
	"github.com/Daskott/kavach/shared"
	"github.com/go-playground/validator"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const ENV_PREFIX = "KAVACH"

// serverCmd represents the server command
var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start a kavach server",
	Long: `The kavach server resolves scanned QR codes to emergency profiles,
handles activation payments and serves the owner and admin APIs.`,
	Run: func(cmd *cobra.Command, args []string) {
		config, err := loadServerConfig()
		cobra.CheckErr(err)

		if isDevEnv && config.Kavach.Production {
			fmt.Fprintln(os.Stderr, warningLabel, "'kavach.production' is set while running with --dev")
		}

		server.Start(config, isDevEnv)
	},
}

var serverConfigFile string

func init() {
	rootCmd.AddCommand(serverCmd)
}

// loadServerConfig reads --sconfig, or the embedded dev config in dev mode.
// Every key can be overridden from the env e.g. KAVACH_RAZORPAY_KEYSECRET.
func loadServerConfig() (*shared.ServerConfig, error) {
	config := viper.New()
	config.SetEnvPrefix(ENV_PREFIX)
	config.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	config.AutomaticEnv()

	switch {
	case serverConfigFile != "":
		config.SetConfigFile(serverConfigFile)
		if err := config.ReadInConfig(); err != nil {
			return nil, formattedError("error reading server config file: %v", err)
		}
	case isDevEnv:
		config.SetConfigType("yaml")
		if err := config.ReadConfig(strings.NewReader(devconfig.SERVER_YML)); err != nil {
			return nil, formattedError("error reading dev server config: %v", err)
		}
	default:
		return nil, formattedError("--sconfig is required when not running with --dev")
	}

	serverConfig := shared.ServerConfig{}
	if err := config.Unmarshal(&serverConfig); err != nil {
		return nil, formattedError("invalid server config: %v", err)
	}

	if err := validator.New().Struct(serverConfig); err != nil {
		return nil, formattedError("invalid server config: %v", err)
	}

	return &serverConfig, nil
}
