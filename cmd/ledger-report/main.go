package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"fxledger/internal/cli"
	"fxledger/internal/core"
	"fxledger/internal/log"
	"fxledger/internal/services"
)

func main() {
	cli.LoadEnvFile()

	// stdout carries the report
	logger := cli.SetupLogger(os.Stderr)
	cfg := cli.LoadAndValidateConfig(logger)

	now := time.Now()
	monthStart := core.NewDate(now.Year(), int(now.Month()), 1)
	monthEnd := core.NewDate(now.Year(), int(now.Month())+1, 0)

	var (
		currency = flag.String("currency", cfg.DisplayCurrency, "report currency (ISO 4217)")
		from     = flag.String("from", monthStart.String(), "period start, YYYY-MM-DD")
		to       = flag.String("to", monthEnd.String(), "period end, YYYY-MM-DD")
		refresh  = flag.Bool("refresh", false, "ask the rates worker to refresh the report currency (needs AMQP_URL)")
	)
	flag.Parse()

	start, err := core.ParseDate(*from)
	if err != nil {
		logger.Error("Invalid -from date", log.FieldError, err)
		os.Exit(2)
	}
	end, err := core.ParseDate(*to)
	if err != nil {
		logger.Error("Invalid -to date", log.FieldError, err)
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	ctx = log.NewContext(ctx, logger)

	stores := cli.InitBackend(ctx, logger, cfg)
	defer stores.Cleanup()

	if *refresh {
		if client := cli.InitAMQP(logger, cfg); client != nil {
			defer client.Close()
			if err := requestRefresh(ctx, client, *currency); err != nil {
				logger.Warn("Refresh request not sent", log.FieldError, err)
			}
		} else {
			logger.Warn("-refresh ignored, AMQP is not configured")
		}
	}

	provider := cli.InitRateProvider(logger, cfg, stores.Snapshots)
	dashboard := services.NewDashboardService(stores.Entities, provider, logger)

	overview, err := dashboard.Overview(ctx, *currency, start, end)
	if err != nil {
		logger.Error("Failed to build overview", log.FieldError, err)
		os.Exit(1)
	}

	printOverview(os.Stdout, overview)
}

type refreshRequester interface {
	PublishRefreshRequest(ctx context.Context, base string) error
}

// requestRefresh asks the rates worker to force-refresh base. The report
// itself does not wait for the refresh.
func requestRefresh(ctx context.Context, r refreshRequester, base string) error {
	if err := core.ValidateCurrency(strings.ToUpper(strings.TrimSpace(base))); err != nil {
		return err
	}
	if err := r.PublishRefreshRequest(ctx, base); err != nil {
		return fmt.Errorf("publish refresh request: %w", err)
	}
	log.FromContext(ctx).InfoContext(ctx, "Refresh requested", log.FieldBaseCurrency, base)
	return nil
}

func printOverview(w io.Writer, ov *services.Overview) {
	fmt.Fprintf(w, "Period %s .. %s (%s)\n", ov.Start, ov.End, ov.Currency)
	rateNote := "live"
	if ov.Rates.FromCache {
		rateNote = "cached"
	}
	if ov.Rates.Stale {
		rateNote = "STALE"
	}
	fmt.Fprintf(w, "Rates: base %s, updated %s (%s)\n", ov.Rates.Base, ov.Rates.LastUpdated.Format(time.RFC3339), rateNote)
	if ov.DegradedRates > 0 {
		fmt.Fprintf(w, "Warning: %d conversions used a 1:1 fallback for missing rates\n", ov.DegradedRates)
	}

	fmt.Fprintln(w, "\nAccounts")
	for _, a := range ov.Accounts {
		note := ""
		if a.Account.IsArchived {
			note = " (archived)"
		}
		fmt.Fprintf(w, "  %-20s %16s %16s%s\n", a.Account.Name,
			core.FormatAmount(a.Balance, a.Account.Currency),
			core.FormatAmount(a.BalanceInTarget, ov.Currency), note)
	}
	fmt.Fprintf(w, "  %-20s %33s\n", "Net worth", core.FormatAmount(ov.NetWorth, ov.Currency))

	fmt.Fprintln(w, "\nThis period")
	fmt.Fprintf(w, "  Income   %16s  %+.1f%%\n", core.FormatAmount(ov.Current.Income, ov.Currency), ov.Deltas.Income)
	fmt.Fprintf(w, "  Expense  %16s  %+.1f%%\n", core.FormatAmount(ov.Current.Expense, ov.Currency), ov.Deltas.Expense)
	fmt.Fprintf(w, "  Net      %16s  %+.1f%%\n", formatSigned(ov.Current.Net, ov.Currency), ov.Deltas.Net)
	fmt.Fprintf(w, "  Transactions: %d (previous period %s .. %s: %d)\n",
		ov.Current.Count, ov.PrevStart, ov.PrevEnd, ov.Previous.Count)

	if len(ov.Budgets) > 0 {
		fmt.Fprintln(w, "\nBudgets")
		for _, b := range ov.Budgets {
			warn := ""
			if b.Projection.WillExceed {
				warn = fmt.Sprintf("  projected %s", core.FormatAmount(b.Projection.Projected, b.Budget.Currency))
			}
			fmt.Fprintf(w, "  %-20s %s / %s (%d%%, day %d/%d)%s\n", b.Budget.Name,
				core.FormatAmount(b.Spent, b.Budget.Currency),
				core.FormatAmount(b.Budget.Limit, b.Budget.Currency),
				b.Percentage, b.ElapsedDays, b.TotalDays, warn)
		}
	}

	if len(ov.Goals) > 0 {
		fmt.Fprintln(w, "\nGoals")
		for _, g := range ov.Goals {
			line := fmt.Sprintf("  %-20s %d%% of %s", g.Goal.Name, g.Percentage,
				core.FormatAmount(g.Goal.TargetAmount, g.Goal.Currency))
			if g.Projectable {
				line += fmt.Sprintf(", %s/day for %d days", core.FormatAmount(g.DailyRequired, g.Goal.Currency), g.DaysLeft)
			}
			fmt.Fprintln(w, line)
		}
	}
}

func formatSigned(amount int64, currency string) string {
	if amount < 0 {
		return "-" + core.FormatAmount(-amount, currency)
	}
	return core.FormatAmount(amount, currency)
}
