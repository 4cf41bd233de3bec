package main

import (
	"context"
	"fmt"

	"github.com/chromedp/chromedp"
	"github.com/spf13/cobra"

	"github.com/ibeckermayer/selectbot/internal/browser"
)

// botTestCmd opens bot.sannysoft.com with the same stealth options as the
// bot, so the browser fingerprint can be audited.
var botTestCmd = &cobra.Command{
	Use:   "bot-test",
	Short: "Open bot.sannysoft.com to audit browser fingerprint",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Println("Opening bot.sannysoft.com with stealth browser options...")

		browserCfg := cfg.Browser
		browserCfg.Headless = false // so you can see it

		allocCtx, cancel := chromedp.NewExecAllocator(context.Background(), browser.Options(browserCfg)...)
		defer cancel()

		ctx, cancel := chromedp.NewContext(allocCtx)
		defer cancel()

		err := chromedp.Run(ctx,
			chromedp.Navigate("https://bot.sannysoft.com"),
			chromedp.WaitVisible("body", chromedp.ByQuery),
		)
		if err != nil {
			return fmt.Errorf("failed to navigate: %w", err)
		}

		fmt.Println("Press Enter to close the browser...")
		fmt.Scanln()
		return nil
	},
}
