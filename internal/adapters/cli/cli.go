// Package cli is the smectl command tree: offline GST and identifier helpers, database
// migrations, and thin API commands that talk to a running server.
package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"smeaudit/internal/adapters/repl"
	"smeaudit/internal/apiclient"
)

// ErrInvalid marks a validation command whose input failed the check. main exits 1 on it
// without printing a usage block.
var ErrInvalid = errors.New("invalid")

type globalFlags struct {
	configPath string
	apiURL     string
	token      string
	username   string
}

// NewRootCommand builds the smectl command tree.
func NewRootCommand() *cobra.Command {
	g := &globalFlags{}

	root := &cobra.Command{
		Use:   "smectl",
		Short: "Command-line companion for the SME audit server",
		Long: `smectl checks Indian tax identifiers, computes GST, applies database
migrations and talks to a running SME audit server.

Examples:
  smectl validate gstin 27AAPFU0939F1ZV
  smectl gst 10000 18 --inter
  smectl vendors list --search steel
  smectl chat`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVarP(&g.configPath, "config", "c", "config.yml", "config file (optional)")
	root.PersistentFlags().StringVar(&g.apiURL, "url", envOr("SME_API_URL", "http://localhost:8080"), "server base URL")
	root.PersistentFlags().StringVar(&g.token, "token", os.Getenv("SME_TOKEN"), "bearer token (SME_TOKEN)")
	root.PersistentFlags().StringVarP(&g.username, "username", "u", os.Getenv("SME_USERNAME"), "log in as this user when no token is given; the password is read from SME_PASSWORD")

	root.AddCommand(
		newValidateCommand(),
		newGSTCommand(),
		newFYCommand(),
		newMigrateCommand(g),
		newUserCommand(g),
		newLoginCommand(g),
		newVendorsCommand(g),
		newStatsCommand(g),
		newChatCommand(g),
	)
	return root
}

// apiClient returns a client for the configured server, logging in first when only
// credentials were provided.
func (g *globalFlags) apiClient(ctx context.Context) (*apiclient.Client, error) {
	c := apiclient.New(g.apiURL, g.token)
	if c.Token != "" {
		return c, nil
	}
	if g.username == "" {
		return nil, errors.New("no token: pass --token, set SME_TOKEN, or give --username with SME_PASSWORD")
	}
	if _, err := c.Login(ctx, g.username, os.Getenv("SME_PASSWORD")); err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	return c, nil
}

func newLoginCommand(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Exchange --username and SME_PASSWORD for a bearer token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if g.username == "" {
				return errors.New("--username is required")
			}
			c := apiclient.New(g.apiURL, "")
			res, err := c.Login(cmd.Context(), g.username, os.Getenv("SME_PASSWORD"))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), res.Token)
			fmt.Fprintf(cmd.ErrOrStderr(), "token for %s expires %s\n", res.User.Username, res.ExpiresAt.Local().Format("2006-01-02 15:04"))
			return nil
		},
	}
}

func newVendorsCommand(g *globalFlags) *cobra.Command {
	vendors := &cobra.Command{
		Use:   "vendors",
		Short: "Vendor master commands",
	}

	var search string
	var all, asJSON bool
	list := &cobra.Command{
		Use:   "list",
		Short: "List vendors",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := g.apiClient(cmd.Context())
			if err != nil {
				return err
			}
			out, err := c.ListVendors(cmd.Context(), search, all)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), out)
			}
			repl.PrintVendors(cmd.OutOrStdout(), out)
			return nil
		},
	}
	list.Flags().StringVarP(&search, "search", "s", "", "filter by code or name")
	list.Flags().BoolVar(&all, "all", false, "include deactivated vendors")
	list.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of a table")

	vendors.AddCommand(list)
	return vendors
}

func newStatsCommand(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show dashboard counters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := g.apiClient(cmd.Context())
			if err != nil {
				return err
			}
			stats, err := c.DashboardStats(cmd.Context())
			if err != nil {
				return err
			}
			repl.PrintStats(cmd.OutOrStdout(), stats)
			return nil
		},
	}
}

func newChatCommand(g *globalFlags) *cobra.Command {
	var conversation string
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Talk to the audit assistant interactively",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := g.apiClient(cmd.Context())
			if err != nil {
				return err
			}
			s := repl.NewSession(c, conversation, cmd.OutOrStdout())
			return s.Run(cmd.Context(), cmd.InOrStdin())
		},
	}
	cmd.Flags().StringVar(&conversation, "conversation", "", "continue this conversation id")
	return cmd
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func envOr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}
