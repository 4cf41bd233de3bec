package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ibeckermayer/selectbot/internal/auth"
	"github.com/ibeckermayer/selectbot/internal/bot"
	"github.com/ibeckermayer/selectbot/internal/observability"
)

var (
	loginUser  string
	loginPosts int
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in from the terminal, completing 2FA in the browser window",
	Long: `Log in to X with the configured account (or --username). The password is
read from TWITTER_PASSWORD, the config file or prompted for. If X asks for a
verification code, type it into the browser window.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := observability.GetLogger()

		username := loginUser
		if username == "" {
			username = cfg.Account.Username
		}
		if username == "" {
			return fmt.Errorf("no username: pass --username or set TWITTER_USERNAME")
		}
		password := cfg.Account.Password
		if password == "" {
			fmt.Print("Password: ")
			line, err := bufio.NewReader(os.Stdin).ReadString('\n')
			if err != nil {
				return err
			}
			password = strings.TrimSpace(line)
		}

		cookiePath, err := auth.DefaultCookieStorePath()
		if err != nil {
			return err
		}

		b, err := bot.Launch(cmd.Context(), cfg, auth.NewCookieStore(cookiePath), nil, logger)
		if err != nil {
			return err
		}
		defer b.Close()

		fmt.Println("Logging in... complete any verification in the browser window")
		if err := b.Login(cmd.Context(), username, password); err != nil {
			return err
		}
		fmt.Println("Login successful, cookies saved")

		if loginPosts > 0 {
			posts, err := b.Posts(cmd.Context(), username, loginPosts)
			if err != nil {
				logger.Warn("Could not load posts", zap.Error(err))
			}
			for i, p := range posts {
				fmt.Printf("%d. [%s] %s\n   %s\n", i+1, p.ID, p.Text, p.URL)
			}
		}

		fmt.Println("Press Enter to close the browser...")
		fmt.Scanln()
		return nil
	},
}

func init() {
	loginCmd.Flags().StringVarP(&loginUser, "username", "u", "", "X username (overrides config)")
	loginCmd.Flags().IntVar(&loginPosts, "posts", 0, "list this many of your posts after logging in")
}
