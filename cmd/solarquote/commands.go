package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/bher20/solarquote/internal/alerting"
	"github.com/bher20/solarquote/internal/auth"
	"github.com/bher20/solarquote/internal/calculator"
	"github.com/bher20/solarquote/internal/config"
	"github.com/bher20/solarquote/internal/cron"
	"github.com/bher20/solarquote/internal/estimates"
	"github.com/bher20/solarquote/internal/migrate"
	"github.com/bher20/solarquote/internal/notification"
	"github.com/bher20/solarquote/internal/states"
)

func migrateCmd(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the SQL schema",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !sqlDriver(cfg.DBDriver) {
				return fmt.Errorf("migrations need --db-driver sqlite or postgres, got %q", cfg.DBDriver)
			}
			return nil
		},
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			RunE: func(cmd *cobra.Command, args []string) error {
				return migrate.Up(cmd.Context(), cfg.DBDriver, cfg.DBDSN)
			},
		},
		&cobra.Command{
			Use:   "down",
			Short: "Roll back the latest migration",
			RunE: func(cmd *cobra.Command, args []string) error {
				return migrate.Down(cmd.Context(), cfg.DBDriver, cfg.DBDSN)
			},
		},
		&cobra.Command{
			Use:   "status",
			Short: "Print applied and pending migrations",
			RunE: func(cmd *cobra.Command, args []string) error {
				if err := migrate.Status(cmd.Context(), cfg.DBDriver, cfg.DBDSN); err != nil {
					return err
				}
				v, err := migrate.Version(cmd.Context(), cfg.DBDriver, cfg.DBDSN)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "schema version %d\n", v)
				return nil
			},
		},
	)
	return cmd
}

func calcCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "calc",
		Short: "Run a calculator locally and print the result",
	}

	var state string
	fields := map[string]*string{}
	for _, kind := range calculator.Kinds() {
		var sub *cobra.Command
		switch kind {
		case calculator.KindSystemSize:
			sub = &cobra.Command{Use: "system-size", Short: "Size a grid-tied system from the monthly bill"}
			sub.Flags().StringVar(&state, "state", "", "two-letter state code used for rate and sun-hour defaults")
		case calculator.KindPayback:
			sub = &cobra.Command{Use: "payback", Short: "Project payback and 25-year return"}
		case calculator.KindBattery:
			sub = &cobra.Command{Use: "battery", Short: "Size backup storage for critical loads"}
		}
		for _, name := range calculator.Fields(kind) {
			v := new(string)
			fields[kind.String()+"."+name] = v
			sub.Flags().StringVar(v, name, "", name)
		}
		k := kind
		sub.RunE = func(cmd *cobra.Command, args []string) error {
			in := map[string]string{}
			for _, name := range calculator.Fields(k) {
				in[name] = *fields[k.String()+"."+name]
			}
			est, err := estimates.NewService(nil, estimates.Options{}).Calculate(cmd.Context(), estimates.Request{
				Kind:   k,
				State:  state,
				Fields: in,
			})
			if err != nil {
				return err
			}
			printResult(cmd.OutOrStdout(), est.Result)
			return nil
		}
		cmd.AddCommand(sub)
	}
	return cmd
}

func printResult(w io.Writer, res calculator.Result) {
	switch {
	case res.SystemSize != nil:
		r := res.SystemSize
		fmt.Fprintf(w, "Monthly usage:       %s\n", calculator.FormatKWh(calculator.Round(r.MonthlyUsageKWh, 0)))
		fmt.Fprintf(w, "Recommended size:    %.2f kW\n", r.SystemSizeKW)
		fmt.Fprintf(w, "Annual production:   %s\n", calculator.FormatKWh(r.AnnualProductionKWh))
		fmt.Fprintf(w, "Annual savings:      %s\n", calculator.FormatUSD(r.AnnualSavingsUSD))
		fmt.Fprintf(w, "Estimated DIY cost:  %s\n", calculator.FormatUSD(r.EstimatedCostUSD))
		fmt.Fprintf(w, "After tax credit:    %s\n", calculator.FormatUSD(r.EstimatedCostWithCredit))
	case res.Payback != nil:
		r := res.Payback
		fmt.Fprintf(w, "Annual savings:      %s\n", calculator.FormatUSD(r.AnnualSavingsUSD))
		fmt.Fprintf(w, "Payback:             %.1f years\n", r.PaybackYears)
		fmt.Fprintf(w, "25-year savings:     %s\n", calculator.FormatUSD(r.Lifetime25YearsUSD))
		fmt.Fprintf(w, "ROI:                 %.0f%%\n", r.ROIPercent)
		fmt.Fprintf(w, "Net profit:          %s\n", calculator.FormatUSD(r.NetProfitUSD))
	case res.Battery != nil:
		r := res.Battery
		fmt.Fprintf(w, "Energy needed:       %s\n", calculator.FormatKWh(r.EnergyNeededKWh))
		fmt.Fprintf(w, "Recommended size:    %s\n", calculator.FormatKWh(r.RecommendedSizeKWh))
		fmt.Fprintf(w, "Estimated cost:      %s\n", calculator.FormatUSD(r.EstimatedCostUSD))
		fmt.Fprintf(w, "Powerwall units:     %d\n", r.NumberOfPowerwalls)
	}
}

func digestCmd(cfg *config.Config) *cobra.Command {
	var once bool
	cmd := &cobra.Command{
		Use:   "digest",
		Short: "Run the estimate digest worker",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			st, err := openStore(ctx, cfg)
			if err != nil {
				return err
			}
			defer st.Close()

			deps := cron.Deps{
				Store:     st,
				Estimates: estimates.NewService(st, estimates.Options{}),
				Mailer:    notification.NewService(st),
				Alerter: alerting.NewAlerter(alerting.AlertConfig{
					WebhookURL:  cfg.AlertWebhookURL,
					WebhookType: cfg.AlertWebhookType,
				}),
				Schedule: cfg.DigestSchedule,
				To:       cfg.DigestTo,
			}
			if once {
				return cron.RunDigestOnce(ctx, deps)
			}
			err = cron.RunDigest(ctx, deps)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
	cmd.Flags().BoolVar(&once, "once", false, "send one digest now and exit")
	cmd.Flags().StringVar(&cfg.DigestTo, "to", cfg.DigestTo, "recipient when the digest_to setting is empty")
	return cmd
}

func usersCmd(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Manage admin API users",
	}

	var username, email, password, role, expires string
	create := &cobra.Command{
		Use:   "create",
		Short: "Create a user and print an API token",
		RunE: func(cmd *cobra.Command, args []string) error {
			if username == "" || password == "" {
				return errors.New("--username and --password are required")
			}
			exp, err := auth.ParseExpiry(expires, time.Now())
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			st, err := openStore(ctx, cfg)
			if err != nil {
				return err
			}
			defer st.Close()

			svc, err := auth.NewService(st)
			if err != nil {
				return err
			}
			u, err := svc.Register(ctx, username, email, password, role)
			if err != nil {
				return err
			}
			_, raw, err := svc.CreateToken(ctx, u, "cli", exp)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created %s (%s)\ntoken: %s\n", u.Username, u.Role, raw)
			return nil
		},
	}
	create.Flags().StringVar(&username, "username", "", "login name")
	create.Flags().StringVar(&email, "email", "", "contact email")
	create.Flags().StringVar(&password, "password", "", "login password")
	create.Flags().StringVar(&role, "role", auth.RoleViewer, "one of "+strings.Join(auth.Roles(), ", "))
	create.Flags().StringVar(&expires, "expires", "", "token lifetime such as 30d or 12h; empty never expires")

	cmd.AddCommand(create)
	return cmd
}

func ratesCmd(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rates",
		Short: "Manage per-state electricity rate overrides",
	}

	var state, file string
	imp := &cobra.Command{
		Use:   "import",
		Short: "Parse a tariff PDF and store it as the state's rate",
		RunE: func(cmd *cobra.Command, args []string) error {
			if state == "" || file == "" {
				return errors.New("--state and --file are required")
			}
			ctx := cmd.Context()
			st, err := openStore(ctx, cfg)
			if err != nil {
				return err
			}
			defer st.Close()

			rate, err := states.NewService(st).ImportRateSheetFile(ctx, state, file)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: energy %.4f $/kWh, fuel %.4f $/kWh, customer charge %s\n",
				rate.State, rate.EnergyUSDPerKWh, rate.FuelUSDPerKWh, calculator.FormatUSD(rate.CustomerChargeUSD))
			return nil
		},
	}
	imp.Flags().StringVar(&state, "state", "", "two-letter state code")
	imp.Flags().StringVar(&file, "file", "", "path to the tariff PDF")

	list := &cobra.Command{
		Use:   "list",
		Short: "Print effective rates for every state",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			st, err := openStore(ctx, cfg)
			if err != nil {
				return err
			}
			defer st.Close()

			profiles, err := states.NewService(st).List(ctx)
			if err != nil {
				return err
			}
			for _, p := range profiles {
				fmt.Fprintf(cmd.OutOrStdout(), "%s  %-16s %.4f $/kWh  %.1f sun-h  %s\n",
					p.Code, p.Name, p.AvgRateUSDPerKWh, p.PeakSunHours, p.RateSource)
			}
			return nil
		},
	}

	cmd.AddCommand(imp, list)
	return cmd
}
