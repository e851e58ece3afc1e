package main

import (
	"Wishful/internal/subscription"
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

// GetLoginCmd returns the command printing an access token for the given credentials.
func GetLoginCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and print the access token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			serverUrl, _ := cmd.Flags().GetString(FlagServerUrl)
			username, _ := cmd.Flags().GetString(FlagUsername)
			password, _ := cmd.Flags().GetString(FlagPassword)
			if username == "" || password == "" {
				return fmt.Errorf("--%s and --%s are required", FlagUsername, FlagPassword)
			}

			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			token, err := subscription.NewRestClient(serverUrl).Login(ctx, username, password)
			if err != nil {
				return fmt.Errorf("login: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().String(FlagServerUrl, "http://localhost:8080", "(optional) server url")
	cmd.Flags().String(FlagUsername, "", "username")
	cmd.Flags().String(FlagPassword, "", "password")

	return cmd
}

func init() {
	rootCmd.AddCommand(GetLoginCmd())
}
