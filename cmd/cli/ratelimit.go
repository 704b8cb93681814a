package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/turtacn/taskhub/internal/interfaces/http/limiters"
	"github.com/turtacn/taskhub/internal/interfaces/http/middleware"
)

var ratelimitCmd = &cobra.Command{
	Use:   "ratelimit",
	Short: "Rate limit policies and counters",
}

var policiesCmd = &cobra.Command{
	Use:   "policies",
	Short: "List every HTTP rate limit policy",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		fam, err := limiters.NewFamilies(&cfg.RateLimit)
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "NAMESPACE\tWINDOW\tMAX\tSKIP FAILED")
		for _, p := range fam.All() {
			fmt.Fprintf(w, "%s\t%s\t%d\t%t\n", p.Namespace(), p.Window, p.Max, p.SkipFailedRequests)
		}
		return w.Flush()
	},
}

var inspectCmd = &cobra.Command{
	Use:   "inspect <family> <policy> <identity>",
	Short: "Show the current counter of one identity under a policy",
	Long: `Show the current counter of one identity under a policy.

Policies keyed per user or address (search) take a tagged identity,
user:<id> or ip:<addr>.`,
	Args: cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		fam, err := limiters.NewFamilies(&cfg.RateLimit)
		if err != nil {
			return err
		}
		policy, ok := findPolicy(fam, args[0], args[1])
		if !ok {
			return fmt.Errorf("no policy %s/%s; see 'taskhub-admin ratelimit policies'", args[0], args[1])
		}

		store, release, err := openStore(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer release()

		key := policy.Key(args[2])
		count, ttl, err := store.Get(cmd.Context(), key)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "key:       %s\ncount:     %d/%d\nresets in: %s\n", key, count, policy.Max, ttl)
		return nil
	},
}

func findPolicy(fam *limiters.Families, family, name string) (middleware.Policy, bool) {
	for _, p := range fam.All() {
		if string(p.Family) == family && p.Name == name {
			return p, true
		}
	}
	return middleware.Policy{}, false
}

func init() {
	ratelimitCmd.AddCommand(policiesCmd, inspectCmd)
	rootCmd.AddCommand(ratelimitCmd)
}
