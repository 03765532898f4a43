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

	"github.com/Daskott/kavach/server"
	"github.com/Daskott/kavach/server/models"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the kavach database schema and seed data",
	Run: func(cmd *cobra.Command, args []string) {
		config, err := loadServerConfig()
		cobra.CheckErr(err)

		cobra.CheckErr(server.MigrateDatabase(config, isDevEnv))
		cobra.CheckErr(models.Close())

		fmt.Println("Database is up to date")
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
