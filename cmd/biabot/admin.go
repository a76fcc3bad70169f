package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ashureev/biabot/internal/domain"
	"github.com/ashureev/biabot/internal/monday"
)

// errInvalidJSON is reported before any request is sent.
var errInvalidJSON = errors.New("invalid JSON")

func newAdminCmd(opts *globalOptions) *cobra.Command {
	adminCmd := &cobra.Command{
		Use:   "admin",
		Short: "Administration commands",
		Long:  "Manage client profiles, service options, request logs and the Monday connection.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if opts.adminPassword == "" {
				return errors.New("admin password is required (--admin-password or BIABOT_ADMIN_PASSWORD)")
			}
			return nil
		},
	}

	adminCmd.AddCommand(&cobra.Command{
		Use:   "login",
		Short: "Check the admin password",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := opts.client().AdminAuth(cmd.Context(), opts.adminPassword); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Admin password accepted")
			return nil
		},
	})

	adminCmd.AddCommand(newProfilesCmd(opts))
	adminCmd.AddCommand(newOptionsCmd(opts))
	adminCmd.AddCommand(newLogsCmd(opts))
	adminCmd.AddCommand(newMondayCmd(opts))

	return adminCmd
}

func newProfilesCmd(opts *globalOptions) *cobra.Command {
	profilesCmd := &cobra.Command{
		Use:   "profiles",
		Short: "Manage client profiles",
	}

	profilesCmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List client profiles",
		RunE: func(cmd *cobra.Command, args []string) error {
			profiles, err := opts.client().ListProfiles(cmd.Context())
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "CODE\tNAME\tTIER\tSERVICES")
			for _, p := range profiles {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%d\n", p.ClientCode, p.ClientName, p.SubscriptionTier, len(p.ServiceOptions))
			}
			return tw.Flush()
		},
	})

	profilesCmd.AddCommand(&cobra.Command{
		Use:   "get CODE",
		Short: "Show one client profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			profile, err := opts.client().GetProfile(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), profile)
		},
	})

	var file string
	upsertCmd := &cobra.Command{
		Use:   "upsert",
		Short: "Create or replace a client profile from a JSON file",
		Long: `Create or replace a client profile from a JSON file.
Use "-" to read the profile from stdin.
Example: biabot admin profiles upsert --file readyone.json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := readInput(cmd.InOrStdin(), file)
			if err != nil {
				return err
			}
			profile, err := parseProfile(raw)
			if err != nil {
				return err
			}
			saved, err := opts.client().UpsertProfile(cmd.Context(), profile)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved profile %s\n", saved.ClientCode)
			return nil
		},
	}
	upsertCmd.Flags().StringVarP(&file, "file", "f", "", "Profile JSON file")
	_ = upsertCmd.MarkFlagRequired("file")
	profilesCmd.AddCommand(upsertCmd)

	profilesCmd.AddCommand(&cobra.Command{
		Use:   "delete CODE",
		Short: "Delete a client profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			code := domain.NormalizeClientCode(args[0])
			if err := opts.client().DeleteProfile(cmd.Context(), code); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted profile %s\n", code)
			return nil
		},
	})

	return profilesCmd
}

func newOptionsCmd(opts *globalOptions) *cobra.Command {
	optionsCmd := &cobra.Command{
		Use:   "options",
		Short: "Manage the global service options",
	}

	optionsCmd.AddCommand(&cobra.Command{
		Use:   "get",
		Short: "List service options",
		RunE: func(cmd *cobra.Command, args []string) error {
			options, err := opts.client().ServiceOptions(cmd.Context())
			if err != nil {
				return err
			}
			for _, o := range options {
				fmt.Fprintln(cmd.OutOrStdout(), o)
			}
			return nil
		},
	})

	optionsCmd.AddCommand(&cobra.Command{
		Use:   "set OPTION...",
		Short: "Replace the service options",
		Example: `  biabot admin options set "Press release" "Social post" "Newsletter"
  biabot admin options set "Press release, Social post"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			options, err := opts.client().SetServiceOptions(cmd.Context(), splitOptions(args))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved %d service options\n", len(options))
			return nil
		},
	})

	return optionsCmd
}

func newLogsCmd(opts *globalOptions) *cobra.Command {
	var limit, offset int

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "List submitted requests, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			logs, err := opts.client().RequestLogs(cmd.Context(), limit, offset)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "CREATED\tCLIENT\tSERVICE\tTITLE\tBOARD ITEM")
			for _, l := range logs {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
					l.CreatedAt.Format("2006-01-02 15:04"), l.ClientCode, l.ServiceType, l.ProjectTitle, l.MondayItemID)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 50, "Maximum number of logs (1-500)")
	cmd.Flags().IntVar(&offset, "offset", 0, "Number of logs to skip")

	return cmd
}

func newMondayCmd(opts *globalOptions) *cobra.Command {
	mondayCmd := &cobra.Command{
		Use:   "monday",
		Short: "Monday board connection",
	}

	var req monday.VerifyRequest
	verifyCmd := &cobra.Command{
		Use:   "verify",
		Short: "Verify Monday credentials and board access",
		RunE: func(cmd *cobra.Command, args []string) error {
			check, err := opts.client().VerifyMonday(cmd.Context(), req)
			if err != nil {
				return err
			}
			if err := printJSON(cmd.OutOrStdout(), check); err != nil {
				return err
			}
			if !check.OK {
				return fmt.Errorf("monday verify failed: %s", check.Error)
			}
			return nil
		},
	}
	verifyCmd.Flags().StringVar(&req.APIToken, "token", "", "API token to test instead of the server's")
	verifyCmd.Flags().StringVar(&req.BoardID, "board", "", "Board id to look up")
	verifyCmd.Flags().StringVar(&req.Query, "query", "", "Custom GraphQL query")
	verifyCmd.Flags().BoolVar(&req.ForceLive, "force-live", false, "Call the API even in mock mode")
	mondayCmd.AddCommand(verifyCmd)

	return mondayCmd
}

func readInput(stdin io.Reader, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(stdin)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return raw, nil
}

// parseProfile decodes and validates a profile document locally.
func parseProfile(raw []byte) (domain.ClientProfile, error) {
	var profile domain.ClientProfile
	if !json.Valid(raw) {
		return profile, errInvalidJSON
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&profile); err != nil {
		return profile, fmt.Errorf("%w: %v", errInvalidJSON, err)
	}
	profile.Normalize()
	if err := profile.Validate(); err != nil {
		return profile, err
	}
	return profile, nil
}

// splitOptions accepts options as separate args or comma-separated.
func splitOptions(args []string) []string {
	var out []string
	for _, arg := range args {
		for _, part := range strings.Split(arg, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
