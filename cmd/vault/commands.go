package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	apiclient "github.com/splax/cybervault/pkg/api/client"
	"github.com/splax/cybervault/pkg/crypto"
)

const requestTimeout = 2 * time.Minute

func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return context.WithTimeout(cmd.Context(), requestTimeout)
}

// --- login ---

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Authenticate and store an access token",
	RunE: func(cmd *cobra.Command, args []string) error {
		username, _ := cmd.Flags().GetString("username")
		password, _ := cmd.Flags().GetString("password")
		signup, _ := cmd.Flags().GetBool("signup")
		if strings.TrimSpace(username) == "" {
			return fmt.Errorf("--username is required")
		}
		if password == "" {
			fmt.Fprint(cmd.OutOrStdout(), "Password: ")
			bytes, err := term.ReadPassword(int(os.Stdin.Fd()))
			fmt.Fprintln(cmd.OutOrStdout())
			if err != nil {
				return fmt.Errorf("read password: %w", err)
			}
			password = string(bytes)
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		cfg.APIBaseURL = resolveAPIBase(apiOverride, cfg)
		client, err := newClient()
		if err != nil {
			return err
		}
		ctx, cancel := commandContext(cmd)
		defer cancel()

		authenticate := client.Login
		if signup {
			authenticate = client.Signup
		}
		session, err := authenticate(ctx, username, password)
		if err != nil {
			return err
		}
		cfg.AccessToken = session.Token
		if err := saveConfig(cfg); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "logged in as %s\n", session.User.Username)
		return nil
	},
}

// --- did ---

var didCmd = &cobra.Command{
	Use:   "did",
	Short: "Manage decentralized identifiers",
}

var didListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered DIDs",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}
		ctx, cancel := commandContext(cmd)
		defer cancel()
		dids, err := client.ListDIDs(ctx)
		if err != nil {
			return err
		}
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tDID\tWALLET\tSTATUS\tCREATED")
		for _, d := range dids {
			fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", d.ID, d.DID, d.WalletAddress, d.Status, formatMillis(d.CreatedAt))
		}
		return tw.Flush()
	},
}

var didRegisterCmd = &cobra.Command{
	Use:   "register <did>",
	Short: "Register a DID and bind it to a wallet",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		wallet, _ := cmd.Flags().GetString("wallet")
		status, _ := cmd.Flags().GetString("status")
		if strings.TrimSpace(wallet) == "" {
			return fmt.Errorf("--wallet is required")
		}
		client, err := newClient()
		if err != nil {
			return err
		}
		ctx, cancel := commandContext(cmd)
		defer cancel()
		reg, err := client.RegisterDID(ctx, args[0], wallet, status)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), reg)
	},
}

var didStatusCmd = &cobra.Command{
	Use:   "status <id> <status>",
	Short: "Change the status of a DID",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid DID id %q", args[0])
		}
		client, err := newClient()
		if err != nil {
			return err
		}
		ctx, cancel := commandContext(cmd)
		defer cancel()
		did, err := client.UpdateDIDStatus(ctx, id, args[1])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s is now %s\n", did.DID, did.Status)
		return nil
	},
}

// --- doc ---

var docCmd = &cobra.Command{
	Use:   "doc",
	Short: "Notarize and verify documents",
}

var docNotarizeCmd = &cobra.Command{
	Use:   "notarize <file>",
	Short: "Hash a local file and notarize the digest",
	Long: `Hash a local file with SHA-256 and notarize the digest.
The file content never leaves this machine.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		category, _ := cmd.Flags().GetString("category")
		hash, err := crypto.DigestFile(args[0])
		if err != nil {
			return err
		}
		client, err := newClient()
		if err != nil {
			return err
		}
		ctx, cancel := commandContext(cmd)
		defer cancel()
		res, err := client.NotarizeDocument(ctx, hash, filepath.Base(args[0]), category, time.Now().UnixMilli())
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), res)
	},
}

var docListCmd = &cobra.Command{
	Use:   "list",
	Short: "List notarized documents",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}
		ctx, cancel := commandContext(cmd)
		defer cancel()
		docs, err := client.ListDocuments(ctx)
		if err != nil {
			return err
		}
		return printDocuments(cmd, docs)
	},
}

var docSearchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search documents by hash, file name or category",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}
		ctx, cancel := commandContext(cmd)
		defer cancel()
		docs, err := client.SearchDocuments(ctx, args[0])
		if err != nil {
			return err
		}
		return printDocuments(cmd, docs)
	},
}

var docVerifyCmd = &cobra.Command{
	Use:   "verify <hash|file>",
	Short: "Verify a digest, or a local file by hashing it first",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		hash, err := digestArg(args[0])
		if err != nil {
			return err
		}
		client, err := newClient()
		if err != nil {
			return err
		}
		ctx, cancel := commandContext(cmd)
		defer cancel()
		res, err := client.VerifyDocument(ctx, hash)
		if err != nil {
			return err
		}
		if err := printJSON(cmd.OutOrStdout(), res); err != nil {
			return err
		}
		if !res.Verified {
			return fmt.Errorf("%s is not notarized", hash)
		}
		return nil
	},
}

// digestArg returns arg when it already looks like a hex digest, otherwise
// hashes the file it names.
func digestArg(arg string) (string, error) {
	if info, err := os.Stat(arg); err == nil && !info.IsDir() {
		return crypto.DigestFile(arg)
	}
	return strings.ToLower(strings.TrimSpace(arg)), nil
}

func printDocuments(cmd *cobra.Command, docs []apiclient.Document) error {
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tFILE\tCATEGORY\tHASH\tCREATED")
	for _, d := range docs {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", d.ID, d.FileName, d.Category, d.Hash, formatMillis(d.CreatedAt))
	}
	return tw.Flush()
}

// --- dashboard ---

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show dashboard counters",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}
		ctx, cancel := commandContext(cmd)
		defer cancel()
		stats, err := client.Stats(ctx)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Registered DIDs:      %d\n", stats.RegisteredDIDs)
		fmt.Fprintf(out, "Notarized documents:  %d\n", stats.NotarizedDocuments)
		fmt.Fprintf(out, "Verifications:        %d\n", stats.Verifications)
		fmt.Fprintf(out, "Storage used:         %s GB\n", stats.StorageUsed)
		fmt.Fprintf(out, "Blockchain connected: %t\n", stats.BlockchainConnected)
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show notarization CLI availability",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}
		ctx, cancel := commandContext(cmd)
		defer cancel()
		status, err := client.ChainStatus(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", status.Status, status.Message)
		return nil
	},
}

var operationsCmd = &cobra.Command{
	Use:   "operations [id]",
	Short: "List recent operations, or show one",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}
		ctx, cancel := commandContext(cmd)
		defer cancel()
		if len(args) == 1 {
			op, err := client.GetOperation(ctx, args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), op)
		}
		limit, _ := cmd.Flags().GetInt("limit")
		ops, err := client.ListOperations(ctx, limit)
		if err != nil {
			return err
		}
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tKIND\tSUBJECT\tSTATUS\tSTEPS\tSTARTED")
		for _, op := range ops {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%s\n", op.ID, op.Kind, op.Subject, op.Status, len(op.Steps), op.StartedAt.Local().Format(time.DateTime))
		}
		return tw.Flush()
	},
}

func formatMillis(ms int64) string {
	if ms <= 0 {
		return "-"
	}
	return time.UnixMilli(ms).Local().Format(time.DateTime)
}

func init() {
	loginCmd.Flags().String("username", "", "account username")
	loginCmd.Flags().String("password", "", "password (prompted when omitted)")
	loginCmd.Flags().Bool("signup", false, "create the account first")

	didRegisterCmd.Flags().String("wallet", "", "wallet address to bind")
	didRegisterCmd.Flags().String("status", "active", "initial status")
	didCmd.AddCommand(didListCmd, didRegisterCmd, didStatusCmd)

	docNotarizeCmd.Flags().String("category", "Other", "document category")
	docCmd.AddCommand(docNotarizeCmd, docListCmd, docVerifyCmd, docSearchCmd)

	operationsCmd.Flags().Int("limit", 20, "number of operations to list")
}
