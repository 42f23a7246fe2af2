package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/novinrelay/lead-relay/internal/config"
	"github.com/novinrelay/lead-relay/internal/gateway"
)

var creditCmd = &cobra.Command{
	Use:   "credit",
	Short: "Show remaining SMS provider credit",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		gw, err := gateway.NewClient(gateway.Config{
			BaseURL: cfg.Gateway.BaseURL,
			APIKey:  cfg.Gateway.APIKey,
			Timeout: cfg.Gateway.Timeout,
		})
		if err != nil {
			return fmt.Errorf("gateway client: %w", err)
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		credit, err := gw.Credit(ctx)
		if err != nil {
			return fmt.Errorf("query credit: %w", err)
		}

		fmt.Printf("remaining credit: %.2f\n", credit)
		return nil
	},
}
