package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	cl "panelprofits/internal/cli"
	"panelprofits/internal/config"
)

const requestTimeout = 30 * time.Second

func main() {
	root := newRootCmd()
	if err := root.Execute(); err != nil {
		printError(fmt.Sprintf("error: %v", err))
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var apiBase string
	root := &cobra.Command{
		Use:          "pp",
		Short:        "Panel Profits market toolkit",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			apiBase = resolveAPIBase(apiBase)
			return nil
		},
	}
	root.PersistentFlags().StringVar(&apiBase, "api", "", "API base URL (overrides PP_API_BASE_URL and the saved profile)")

	root.AddCommand(
		newProfileCmd(),
		newOptionsCmd(&apiBase),
		newMarketsCmd(&apiBase),
		newVaultCmd(&apiBase),
		newTierCmd(&apiBase),
		newAssetsCmd(&apiBase),
		newSymbolsCmd(&apiBase),
		newNpcCmd(&apiBase),
	)
	return root
}

// resolveAPIBase picks the flag, then the environment, then the saved
// profile, then the built-in default.
func resolveAPIBase(flag string) string {
	if v := strings.TrimSpace(flag); v != "" {
		return strings.TrimRight(v, "/")
	}
	if strings.TrimSpace(os.Getenv("PP_API_BASE_URL")) == "" {
		if p, err := cl.LoadProfile(); err == nil && p.APIBaseURL != "" {
			return p.APIBaseURL
		}
	}
	return config.LoadCLIFromEnv().APIBaseURL
}

func newClient(apiBase *string) *cl.Client {
	return cl.NewClient(strings.TrimRight(strings.TrimSpace(*apiBase), "/"))
}

func withTimeout(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return context.WithTimeout(cmd.Context(), requestTimeout)
}

func newProfileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Show or change saved CLI defaults",
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := cl.LoadProfile()
			if err != nil {
				return err
			}
			renderProfile(p)
			return nil
		},
	}

	var set cl.Profile
	setCmd := &cobra.Command{
		Use:   "set",
		Short: "Save the API URL, default market and subscription tier",
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := cl.LoadProfile()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("api-url") {
				p.APIBaseURL = set.APIBaseURL
			}
			if cmd.Flags().Changed("market") {
				p.Market = set.Market
			}
			if cmd.Flags().Changed("tier") {
				p.Tier = set.Tier
			}
			if err := cl.SaveProfile(p); err != nil {
				return err
			}
			printSuccess("Profile saved.")
			return nil
		},
	}
	setCmd.Flags().StringVar(&set.APIBaseURL, "api-url", "", "API base URL")
	setCmd.Flags().StringVar(&set.Market, "market", "", "default market code, e.g. NYC")
	setCmd.Flags().StringVar(&set.Tier, "tier", "", "subscription tier: free, basic, pro or elite")

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete the saved profile",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cl.ClearProfile(); err != nil {
				return err
			}
			printSuccess("Profile cleared.")
			return nil
		},
	}
	cmd.AddCommand(setCmd, clearCmd)
	return cmd
}

func newOptionsCmd(apiBase *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "options",
		Short: "Black-Scholes pricing for comic options",
	}

	var in cl.OptionInput
	var rate float64
	bindOption := func(c *cobra.Command) {
		c.Flags().Float64Var(&in.Underlying, "underlying", 0, "underlying asset price")
		c.Flags().Float64Var(&in.Strike, "strike", 0, "strike price")
		c.Flags().Float64Var(&in.Years, "years", 0, "time to expiry in years")
		c.Flags().Float64Var(&rate, "rate", 0, "risk-free rate (server default when unset)")
		c.Flags().StringVar(&in.Type, "type", "call", "call or put")
		_ = c.MarkFlagRequired("underlying")
		_ = c.MarkFlagRequired("strike")
		_ = c.MarkFlagRequired("years")
	}
	applyRate := func(c *cobra.Command) {
		if c.Flags().Changed("rate") {
			r := rate
			in.Rate = &r
		}
	}

	priceCmd := &cobra.Command{
		Use:   "price",
		Short: "Price an option and its Greeks",
		RunE: func(cmd *cobra.Command, args []string) error {
			applyRate(cmd)
			ctx, cancel := withTimeout(cmd)
			defer cancel()
			out, err := newClient(apiBase).OptionPrice(ctx, in)
			if err != nil {
				return err
			}
			return renderOptionPrice(out, in)
		},
	}
	bindOption(priceCmd)
	priceCmd.Flags().Float64Var(&in.Volatility, "volatility", 0, "annualized volatility, e.g. 0.2")
	_ = priceCmd.MarkFlagRequired("volatility")

	var marketPrice float64
	ivCmd := &cobra.Command{
		Use:   "iv",
		Short: "Solve implied volatility from a market price",
		RunE: func(cmd *cobra.Command, args []string) error {
			applyRate(cmd)
			ctx, cancel := withTimeout(cmd)
			defer cancel()
			out, err := newClient(apiBase).ImpliedVolatility(ctx, marketPrice, in)
			if err != nil {
				return err
			}
			return renderImpliedVolatility(out, marketPrice)
		},
	}
	bindOption(ivCmd)
	ivCmd.Flags().Float64Var(&marketPrice, "market-price", 0, "observed option price")
	_ = ivCmd.MarkFlagRequired("market-price")

	cmd.AddCommand(priceCmd, ivCmd)
	return cmd
}

func newMarketsCmd(apiBase *string) *cobra.Command {
	var atRaw string
	parseAt := func() (time.Time, error) {
		if strings.TrimSpace(atRaw) == "" {
			return time.Time{}, nil
		}
		at, err := time.Parse(time.RFC3339, atRaw)
		if err != nil {
			return time.Time{}, fmt.Errorf("--at must be RFC3339: %w", err)
		}
		return at, nil
	}

	cmd := &cobra.Command{
		Use:   "markets [code]",
		Short: "Show exchange session status",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			at, err := parseAt()
			if err != nil {
				return err
			}
			ctx, cancel := withTimeout(cmd)
			defer cancel()
			client := newClient(apiBase)
			if len(args) == 1 {
				out, err := client.Market(ctx, args[0], at)
				if err != nil {
					return err
				}
				return renderMarket(out)
			}
			out, err := client.Markets(ctx, at)
			if err != nil {
				return err
			}
			return renderMarkets(out)
		},
	}
	cmd.PersistentFlags().StringVar(&atRaw, "at", "", "evaluate at an RFC3339 instant instead of now")

	crossCmd := &cobra.Command{
		Use:   "cross <primary> [trading]",
		Short: "Cross-market price adjustment and fee",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			at, err := parseAt()
			if err != nil {
				return err
			}
			primary, trading := args[0], ""
			if len(args) == 2 {
				trading = args[1]
			} else {
				p, err := cl.LoadProfile()
				if err != nil {
					return err
				}
				trading = p.Market
			}
			if trading == "" {
				return fmt.Errorf("trading market required (argument or `pp profile set --market`)")
			}
			ctx, cancel := withTimeout(cmd)
			defer cancel()
			out, err := newClient(apiBase).CrossMarket(ctx, primary, trading, at)
			if err != nil {
				return err
			}
			return renderCross(out)
		},
	}
	cmd.AddCommand(crossCmd)
	return cmd
}

func newVaultCmd(apiBase *string) *cobra.Command {
	var (
		total, circulation int64
		demand, supply     float64
		threshold          int
		holdingDays        int
		fee                float64
	)
	settings := func() map[string]any {
		return map[string]any{
			"total_shares_issued":     total,
			"shares_in_circulation":   circulation,
			"demand_pressure":         demand,
			"supply_constraint":       supply,
			"vaulting_threshold":      threshold,
			"min_holding_period_days": holdingDays,
			"vaulting_fee":            fee,
		}
	}

	cmd := &cobra.Command{
		Use:   "vault",
		Short: "Vaulting scarcity and fee calculations",
	}
	cmd.PersistentFlags().Int64Var(&total, "total", 0, "total shares issued")
	cmd.PersistentFlags().Int64Var(&circulation, "circulating", 0, "shares in circulation")
	cmd.PersistentFlags().Float64Var(&demand, "demand", 50, "demand pressure 0-100")
	cmd.PersistentFlags().Float64Var(&supply, "supply", 50, "supply constraint 0-100")
	cmd.PersistentFlags().IntVar(&threshold, "threshold", 10, "vaulting threshold percent")
	cmd.PersistentFlags().IntVar(&holdingDays, "holding-days", 30, "minimum holding period in days")
	cmd.PersistentFlags().Float64Var(&fee, "fee", 0.02, "vaulting fee rate")

	scarcityCmd := &cobra.Command{
		Use:   "scarcity",
		Short: "Scarcity price multiplier",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := withTimeout(cmd)
			defer cancel()
			out, err := newClient(apiBase).VaultScarcity(ctx, settings())
			if err != nil {
				return err
			}
			printBox("Scarcity", [][2]string{
				{"Multiplier", fmt.Sprintf("%.4fx", number(out["multiplier"]))},
			})
			return nil
		},
	}

	var shares int64
	var price float64
	feeCmd := &cobra.Command{
		Use:   "fee",
		Short: "Fee for vaulting shares at a price",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := withTimeout(cmd)
			defer cancel()
			out, err := newClient(apiBase).VaultFee(ctx, settings(), shares, price)
			if err != nil {
				return err
			}
			printBox("Vaulting Fee", [][2]string{
				{"Shares", fmt.Sprintf("%d", shares)},
				{"Price", fmt.Sprintf("%.2f", price)},
				{"Fee", fmt.Sprintf("%.2f", number(out["fee"]))},
			})
			return nil
		},
	}
	feeCmd.Flags().Int64Var(&shares, "shares", 0, "shares to vault")
	feeCmd.Flags().Float64Var(&price, "price", 0, "share price")

	cmd.AddCommand(scarcityCmd, feeCmd)
	return cmd
}

func newTierCmd(apiBase *string) *cobra.Command {
	var publishedRaw string
	cmd := &cobra.Command{
		Use:   "tier [name]",
		Short: "Subscription tier news delay and analysis quality",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tier := ""
			if len(args) == 1 {
				tier = args[0]
			} else {
				p, err := cl.LoadProfile()
				if err != nil {
					return err
				}
				tier = p.Tier
			}
			if tier == "" {
				tier = "free"
			}
			var published time.Time
			if strings.TrimSpace(publishedRaw) != "" {
				t, err := time.Parse(time.RFC3339, publishedRaw)
				if err != nil {
					return fmt.Errorf("--published-at must be RFC3339: %w", err)
				}
				published = t
			}
			ctx, cancel := withTimeout(cmd)
			defer cancel()
			out, err := newClient(apiBase).Tier(ctx, tier, published)
			if err != nil {
				return err
			}
			return renderTier(out)
		},
	}
	cmd.Flags().StringVar(&publishedRaw, "published-at", "", "check access to an article published at this RFC3339 instant")
	return cmd
}

func newAssetsCmd(apiBase *string) *cobra.Command {
	var assetType string
	var limit, offset int
	cmd := &cobra.Command{
		Use:   "assets",
		Short: "List tradable assets",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := withTimeout(cmd)
			defer cancel()
			out, err := newClient(apiBase).ListAssets(ctx, assetType, limit, offset)
			if err != nil {
				return err
			}
			return renderAssets(out)
		},
	}
	cmd.Flags().StringVar(&assetType, "type", "", "filter by asset type")
	cmd.Flags().IntVar(&limit, "limit", 50, "page size")
	cmd.Flags().IntVar(&offset, "offset", 0, "page offset")

	var params []string
	createCmd := &cobra.Command{
		Use:   "create <type> <name>",
		Short: "Create an asset with a generated symbol",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			metadata, err := parseParams(params)
			if err != nil {
				return err
			}
			ctx, cancel := withTimeout(cmd)
			defer cancel()
			out, err := newClient(apiBase).CreateAsset(ctx, args[1], args[0], metadata)
			if err != nil {
				return err
			}
			printSuccess(fmt.Sprintf("Created %s as %s (%s)", str(out["name"]), accent.Sprint(str(out["symbol"])), str(out["id"])))
			return nil
		},
	}
	createCmd.Flags().StringArrayVarP(&params, "param", "p", nil, "metadata key=value, repeatable")

	showCmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show an asset and its current price",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := withTimeout(cmd)
			defer cancel()
			out, err := newClient(apiBase).Asset(ctx, args[0])
			if err != nil {
				return err
			}
			return renderAsset(out)
		},
	}

	priceCmd := &cobra.Command{
		Use:   "price <id> <price>",
		Short: "Set an asset's current price",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := withTimeout(cmd)
			defer cancel()
			out, err := newClient(apiBase).SetPrice(ctx, args[0], args[1])
			if err != nil {
				return err
			}
			printSuccess(fmt.Sprintf("Price set to %s", str(out["price"])))
			return nil
		},
	}

	cmd.AddCommand(createCmd, showCmd, priceCmd)
	return cmd
}

func newSymbolsCmd(apiBase *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "symbols",
		Short: "Generate and regenerate ticker symbols",
	}

	var params []string
	generateCmd := &cobra.Command{
		Use:   "generate <type>",
		Short: "Preview the symbol an asset would receive",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := parseParams(params)
			if err != nil {
				return err
			}
			ctx, cancel := withTimeout(cmd)
			defer cancel()
			out, err := newClient(apiBase).GenerateSymbol(ctx, args[0], p)
			if err != nil {
				return err
			}
			return renderGeneratedSymbol(out)
		},
	}
	generateCmd.Flags().StringArrayVarP(&params, "param", "p", nil, "generator input key=value, repeatable")

	var apply bool
	regenerateCmd := &cobra.Command{
		Use:   "regenerate <asset-id>...",
		Short: "Recompute symbols for specific assets (dry run unless --apply)",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := withTimeout(cmd)
			defer cancel()
			out, err := newClient(apiBase).RegenerateSymbols(ctx, args, !apply)
			if err != nil {
				return err
			}
			return renderReport(out)
		},
	}
	regenerateCmd.Flags().BoolVar(&apply, "apply", false, "write the new symbols")

	var limit int
	var applyType bool
	byTypeCmd := &cobra.Command{
		Use:   "regenerate-type <type>",
		Short: "Recompute symbols for one asset type (dry run unless --apply)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := withTimeout(cmd)
			defer cancel()
			out, err := newClient(apiBase).RegenerateByType(ctx, args[0], limit, !applyType)
			if err != nil {
				return err
			}
			return renderReport(out)
		},
	}
	byTypeCmd.Flags().IntVar(&limit, "limit", 100, "maximum assets to process")
	byTypeCmd.Flags().BoolVar(&applyType, "apply", false, "write the new symbols")

	var batchSize int
	var dryRun bool
	allCmd := &cobra.Command{
		Use:   "regenerate-all",
		Short: "Recompute every asset's symbol",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Minute)
			defer cancel()
			out, err := newClient(apiBase).RegenerateAll(ctx, batchSize, dryRun)
			if err != nil {
				return err
			}
			return renderReport(out)
		},
	}
	allCmd.Flags().IntVar(&batchSize, "batch-size", 500, "assets per page")
	allCmd.Flags().BoolVar(&dryRun, "dry-run", false, "report without writing")

	cmd.AddCommand(generateCmd, regenerateCmd, byTypeCmd, allCmd)
	return cmd
}

func newNpcCmd(apiBase *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "npc",
		Short: "Simulated traders",
	}

	cycleCmd := &cobra.Command{
		Use:   "cycle",
		Short: "Run one NPC trading cycle now",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := withTimeout(cmd)
			defer cancel()
			out, err := newClient(apiBase).RunNpcCycle(ctx)
			if err != nil {
				return err
			}
			return renderCycle(out)
		},
	}

	var activeOnly bool
	tradersCmd := &cobra.Command{
		Use:   "traders",
		Short: "List NPC traders",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := withTimeout(cmd)
			defer cancel()
			out, err := newClient(apiBase).ListTraders(ctx, activeOnly)
			if err != nil {
				return err
			}
			return renderTraders(out)
		},
	}
	tradersCmd.Flags().BoolVar(&activeOnly, "active", false, "only active traders")

	cmd.AddCommand(cycleCmd, tradersCmd)
	return cmd
}
