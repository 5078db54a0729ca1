package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"storefront-agent/agent"
	"storefront-agent/events"
	"storefront-agent/internal/types"
)

var (
	configPath  string
	sessionFile string
	outputFlag  string
	verbose     bool
	headless    bool
)

var rootCmd = &cobra.Command{
	Use:   "agent",
	Short: "Automate a storefront seller account through a real browser session",
	Long: `Drives a real browser against the storefront's seller pages: logs in
(restoring a persisted session when possible), extracts conversations and
orders from the live DOM, and polls for new activity.

Credentials come from STOREFRONT_EMAIL and STOREFRONT_PASSWORD (or a .env
file); without them the login command waits for a manual sign-in in the
browser window.`,
	SilenceUsage: true,
}

func main() {
	// Load .env file if present
	_ = godotenv.Load()

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "agent.yaml", "Config file path")
	rootCmd.PersistentFlags().StringVar(&sessionFile, "session-file", "", "Session cookie file (overrides config)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().BoolVar(&headless, "headless", false, "Run the browser headless (manual login needs a visible window)")

	messagesCmd.Flags().BoolVar(&onlyUnread, "unread", false, "Only unread conversations")
	messagesCmd.Flags().StringVar(&outputFlag, "output", "", "Output file path (default: stdout)")
	ordersCmd.Flags().StringVar(&statusFilter, "status", "", "Filter by order status (e.g. New)")
	ordersCmd.Flags().StringVar(&outputFlag, "output", "", "Output file path (default: stdout)")
	shipCmd.Flags().StringVar(&trackingNumber, "tracking", "", "Tracking number")
	runCmd.Flags().DurationVar(&messageInterval, "message-interval", 0, "Message poll interval (default from config)")
	runCmd.Flags().DurationVar(&orderInterval, "order-interval", 0, "Order poll interval (default from config)")

	rootCmd.AddCommand(runCmd, loginCmd, messagesCmd, ordersCmd, sendCmd, shipCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// setup builds a logged-in agent shared by every subcommand.
func setup(ctx context.Context) (*agent.Agent, *logrus.Logger, error) {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05.000",
	})
	if levelStr := os.Getenv("LOG_LEVEL"); levelStr != "" {
		if level, err := logrus.ParseLevel(levelStr); err == nil {
			logger.SetLevel(level)
		}
	} else if verbose {
		logger.SetLevel(logrus.DebugLevel)
	} else {
		logger.SetLevel(logrus.InfoLevel)
	}

	config, err := types.LoadConfig(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	if sessionFile != "" {
		config.SessionFile = sessionFile
	}
	if headless {
		config.Headless = true
	}

	a := agent.New(config, logger)
	if err := a.Initialize(ctx); err != nil {
		return nil, nil, err
	}

	if !a.Authenticated() {
		ok, err := a.Login(ctx, credentialsFromEnv())
		if err != nil {
			a.Close()
			return nil, nil, err
		}
		if !ok {
			a.Close()
			return nil, nil, fmt.Errorf("login did not complete")
		}
	}

	return a, logger, nil
}

// credentialsFromEnv reads caller-supplied credentials; nil triggers the
// manual login path.
func credentialsFromEnv() *types.Credentials {
	email := os.Getenv("STOREFRONT_EMAIL")
	password := os.Getenv("STOREFRONT_PASSWORD")
	if email == "" || password == "" {
		return nil
	}
	return &types.Credentials{Email: email, Password: password}
}

// writeResult marshals to the output file or stdout.
func writeResult(v interface{}) error {
	jsonData, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	if outputFlag != "" {
		if err := os.WriteFile(outputFlag, jsonData, 0644); err != nil {
			return fmt.Errorf("failed to write output file: %w", err)
		}
		return nil
	}
	fmt.Println(string(jsonData))
	return nil
}

var (
	onlyUnread      bool
	statusFilter    string
	trackingNumber  string
	messageInterval time.Duration
	orderInterval   time.Duration
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Log in and poll for new messages and orders until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		a, logger, err := setup(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		a.On(events.MessagesUpdated, func(payload interface{}) {
			s := payload.(types.MessagesSummary)
			logger.Infof("Inbox: %d total, %d unread, %d quote requests", s.Total, s.Unread, s.QuoteRequests)
		})
		a.On(events.NewMessages, func(payload interface{}) {
			for _, c := range payload.([]types.Conversation) {
				logger.Infof("New message from %s: %s", c.Customer, c.Preview)
			}
		})
		a.On(events.OrdersUpdated, func(payload interface{}) {
			s := payload.(types.OrdersSummary)
			logger.Infof("Orders: %d total, %d new, %d print orders", s.Total, s.New, s.PrintOrders)
		})
		a.On(events.NewOrders, func(payload interface{}) {
			for _, o := range payload.([]types.Order) {
				logger.Infof("New order %s from %s (%s)", o.OrderID, o.BuyerName, o.Total)
			}
		})

		a.StartMessagePolling(ctx, messageInterval)
		a.StartOrderPolling(ctx, orderInterval)

		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
		<-sig

		logger.Info("Shutting down")
		a.StopPolling()
		return nil
	},
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Authenticate and persist the session, then exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, logger, err := setup(context.Background())
		if err != nil {
			return err
		}
		defer a.Close()

		logger.Info("Login complete, session persisted")
		return nil
	},
}

var messagesCmd = &cobra.Command{
	Use:   "messages",
	Short: "Extract the conversation inbox as JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		a, _, err := setup(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		conversations, err := a.GetMessages(ctx, onlyUnread)
		if err != nil {
			return err
		}
		return writeResult(conversations)
	},
}

var ordersCmd = &cobra.Command{
	Use:   "orders",
	Short: "Extract sold orders as JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		a, _, err := setup(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		orders, err := a.GetOrders(ctx, statusFilter)
		if err != nil {
			return err
		}
		return writeResult(orders)
	},
}

var sendCmd = &cobra.Command{
	Use:   "send <conversation-id> <text>",
	Short: "Reply inside a conversation",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		a, _, err := setup(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		return a.SendMessage(ctx, args[0], args[1])
	},
}

var shipCmd = &cobra.Command{
	Use:   "ship <order-id>",
	Short: "Mark an order shipped, optionally with a tracking number",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		a, _, err := setup(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		return a.MarkOrderShipped(ctx, args[0], trackingNumber)
	},
}
