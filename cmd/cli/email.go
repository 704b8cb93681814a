package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	appservice "github.com/turtacn/taskhub/internal/application/service"
)

var emailQuotaCmd = &cobra.Command{
	Use:   "email-quota <user-id>",
	Short: "Show the outbound email quota of a user",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		store, release, err := openStore(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer release()

		res := appservice.NewEmailQuotaService(store, &cfg.Email, nil, nil).CheckEmailRateLimit(cmd.Context(), args[0])
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "allowed:   %t\nremaining: %d\ntier:      %s\n", res.Allowed, res.Remaining, res.Tier)
		if res.ResetAt != nil {
			fmt.Fprintf(out, "resets at: %s\n", res.ResetAt.Format("2006-01-02T15:04:05Z07:00"))
		}
		if res.Message != "" {
			fmt.Fprintf(out, "message:   %s\n", res.Message)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(emailQuotaCmd)
}
