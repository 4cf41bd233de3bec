package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ibeckermayer/selectbot/internal/auth"
	"github.com/ibeckermayer/selectbot/internal/observability"
)

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the stored X session cookies",
	RunE: func(cmd *cobra.Command, args []string) error {
		cookiePath, err := auth.DefaultCookieStorePath()
		if err != nil {
			return err
		}
		m := auth.NewManager(auth.NewCookieStore(cookiePath), 0, observability.GetLogger())
		if !m.IsAuthenticated() {
			fmt.Println("No valid stored session")
		}
		if err := m.Logout(); err != nil {
			return err
		}
		fmt.Println("Stored cookies cleared, the next connect will log in again")
		return nil
	},
}
