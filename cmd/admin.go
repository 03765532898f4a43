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
	"context"
	"fmt"

	"github.com/Daskott/kavach/server"
	"github.com/Daskott/kavach/server/models"
	"github.com/spf13/cobra"
)

var (
	adminEmail    string
	adminPassword string
)

var adminCmd = &cobra.Command{
	Use:   "admin",
	Short: "Manage kavach admins",
}

var adminCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create an admin who can manage users and QR codes",
	Run: func(cmd *cobra.Command, args []string) {
		if len(adminPassword) < 8 {
			cobra.CheckErr(formattedError("--password must be at least 8 characters"))
		}

		config, err := loadServerConfig()
		cobra.CheckErr(err)

		cobra.CheckErr(server.MigrateDatabase(config, isDevEnv))
		defer models.Close()

		admin, err := models.CreateAdmin(context.Background(), adminEmail, adminPassword)
		cobra.CheckErr(err)

		fmt.Printf("Created admin %v (%v)\n", admin.Email, admin.ID)
	},
}

func init() {
	adminCreateCmd.Flags().StringVar(&adminEmail, "email", "", "admin email")
	adminCreateCmd.Flags().StringVar(&adminPassword, "password", "", "admin password, at least 8 characters")
	adminCreateCmd.MarkFlagRequired("email")
	adminCreateCmd.MarkFlagRequired("password")

	adminCmd.AddCommand(adminCreateCmd)
	rootCmd.AddCommand(adminCmd)
}
