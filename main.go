package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/olekukonko/tablewriter"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"BNBPredictionBot/config"
	"BNBPredictionBot/internal/handlers"
	"BNBPredictionBot/internal/logger"
	"BNBPredictionBot/internal/operations/backtest"
)

var (
	envFile string
	cfg     *config.Config
	log     zerolog.Logger
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "bnbbot",
		Short: "BNB/USDT 5 minute direction prediction bot",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cfg, err = config.Load(envFile)
			if err != nil {
				return err
			}
			log, err = logger.New(logger.Config{
				Level:  cfg.Log.Level,
				Format: cfg.Log.Format,
				Output: cfg.Log.Output,
			})
			return err
		},
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&envFile, "env", ".env", "env file to load")

	rootCmd.AddCommand(botCmd(), predictCmd(), backtestCmd(), priceCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func botCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "bot",
		Short: "Run the Telegram bot, HTTP API and price recorder",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.RequireTelegram(); err != nil {
				return err
			}

			ctx, stop := signalContext()
			defer stop()

			a, err := newApp(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer a.Close()

			prices, err := a.hybridPrice()
			if err != nil {
				return err
			}
			predictions, err := a.livePredictions(prices)
			if err != nil {
				return err
			}

			bot, err := tgbotapi.NewBotAPI(cfg.Telegram.Token)
			if err != nil {
				return fmt.Errorf("telegram: %w", err)
			}
			log.Info().Str("username", bot.Self.UserName).Msg("telegram bot authorized")

			var telegram *handlers.TelegramHandler
			if cfg.Database.Enabled() {
				telegram = handlers.NewTelegramHandler(bot, predictions, a.predictions, cfg.Prediction.Symbol, log)
			} else {
				telegram = handlers.NewTelegramHandler(bot, predictions, nil, cfg.Prediction.Symbol, log)
			}
			server := handlers.NewHTTPServer(cfg.HTTP.Addr, predictions, prices, prometheus.DefaultGatherer, log)

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error { return telegram.Start(gctx) })
			g.Go(func() error { return server.Start(gctx) })
			if cfg.Database.Enabled() {
				recorder := handlers.NewPriceHandler(a.exchange, a.candles, a.recorder(), cfg.Prediction.Symbol, log)
				g.Go(func() error { return recorder.Start(gctx) })
			}

			log.Info().Str("symbol", cfg.Prediction.Symbol).Str("http", cfg.HTTP.Addr).Msg("bot started")
			err = g.Wait()
			log.Info().Msg("bot stopped")
			return err
		},
	}
}

func predictCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "predict",
		Short: "Generate one prediction and print it",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signalContext()
			defer stop()

			a, err := newApp(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer a.Close()

			prices, err := a.hybridPrice()
			if err != nil {
				return err
			}
			predictions, err := a.livePredictions(prices)
			if err != nil {
				return err
			}
			result, err := predictions.GeneratePrediction(ctx)
			if err != nil {
				return err
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(result)
			}
			fmt.Fprintln(cmd.OutOrStdout(), handlers.FormatPrediction(result))
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the raw prediction as JSON")
	return cmd
}

func backtestCmd() *cobra.Command {
	bc := backtest.NewConfig()
	var noProgress bool
	cmd := &cobra.Command{
		Use:   "backtest",
		Short: "Replay recent candles through the scoring pipeline",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signalContext()
			defer stop()

			a, err := newApp(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer a.Close()

			bc.Symbol = cfg.Prediction.Symbol
			bc.Interval = cfg.Prediction.Interval
			bc.ShowProgress = !noProgress

			candles, err := a.history().Load(ctx, bc.Symbol, bc.Interval, bc.Periods+bc.Warmup+1)
			if err != nil {
				return err
			}

			started := time.Now()
			results, err := backtest.NewEngine(a.offlinePredictions(), bc, log).Run(ctx, candles)
			if err != nil {
				return err
			}
			log.Info().Dur("elapsed", time.Since(started)).Msg("replay complete")

			backtest.WriteReport(cmd.OutOrStdout(), results)
			if bc.OutputPath != "" {
				if err := backtest.WriteJSON(bc.OutputPath, results); err != nil {
					return err
				}
				log.Info().Str("path", bc.OutputPath).Msg("results written")
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&bc.Periods, "periods", bc.Periods, "number of windows to evaluate")
	cmd.Flags().IntVar(&bc.Warmup, "warmup", bc.Warmup, "candles of history before the first window")
	cmd.Flags().StringVar(&bc.OutputPath, "output", "", "write results as JSON to this path")
	cmd.Flags().BoolVar(&noProgress, "no-progress", false, "hide the progress bar")
	return cmd
}

func priceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "price",
		Short: "Compare the oracle and exchange prices",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signalContext()
			defer stop()

			a, err := newApp(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer a.Close()

			prices, err := a.hybridPrice()
			if err != nil {
				return err
			}
			cmp, err := prices.Compare(ctx, cfg.Prediction.Symbol)
			if err != nil {
				return err
			}

			oracle := "unavailable"
			if cmp.Oracle != nil {
				oracle = fmt.Sprintf("$%.4f", *cmp.Oracle)
			}
			table := tablewriter.NewTable(cmd.OutOrStdout(), tablewriter.WithHeader([]string{"Source", "Value"}))
			table.Append([]string{"Chainlink", oracle})
			table.Append([]string{"Binance", fmt.Sprintf("$%.4f", cmp.Exchange)})
			table.Append([]string{"Difference", fmt.Sprintf("$%.4f (%.3f%%)", cmp.Difference, cmp.DifferencePercent)})
			table.Append([]string{"Recommendation", cmp.Recommendation})
			return table.Render()
		},
	}
}
