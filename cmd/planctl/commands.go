package main

import (
	"alcyxob/training-planner/internal/api"
	"alcyxob/training-planner/internal/app"
	"alcyxob/training-planner/internal/config"
	"alcyxob/training-planner/internal/domain"
	"alcyxob/training-planner/internal/logger"
	"alcyxob/training-planner/internal/seed"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
)

// --- Global Command Variables ---
var (
	configDir string
	logMode   string

	cfg         config.Config
	appLog      *logger.Logger
	application *app.App

	rootCmd = &cobra.Command{
		Use:           "planctl",
		Short:         "Operate on coaching plans outside the HTTP API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	importCmd = &cobra.Command{
		Use:     "import <file.yaml>",
		Short:   "Create a macrocycle from a YAML plan document",
		Args:    cobra.ExactArgs(1),
		PreRunE: openApp,
		RunE:    runImport,
	}

	gcCmd = &cobra.Command{
		Use:     "gc",
		Short:   "Remove overrides whose exercise or microcycle no longer exists",
		Args:    cobra.NoArgs,
		PreRunE: openApp,
		RunE:    runGC,
	}

	exportCmd = &cobra.Command{
		Use:     "export <macrocycleId>",
		Short:   "Write the effective plan to object storage and print a download URL",
		Args:    cobra.ExactArgs(1),
		PreRunE: openApp,
		RunE:    runExport,
	}

	showCmd = &cobra.Command{
		Use:     "show <microcycleId>",
		Short:   "Print the effective view of a microcycle as JSON",
		Args:    cobra.ExactArgs(1),
		PreRunE: openApp,
		RunE:    runShow,
	}

	tokenCmd = &cobra.Command{
		Use:   "token <userId>",
		Short: "Mint a bearer token signed with jwt.secret",
		Args:  cobra.ExactArgs(1),
		RunE:  runToken,
	}
	tokenRole string
	tokenTTL  time.Duration
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configDir, "config", ".", "directory containing config.yaml")
	rootCmd.PersistentFlags().StringVar(&logMode, "log", "", "log mode override (dev or prod)")
	rootCmd.PersistentPreRunE = loadConfig
	rootCmd.PersistentPostRunE = closeApp

	tokenCmd.Flags().StringVar(&tokenRole, "role", string(domain.RoleCoach), "role claim: coach or student")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 0, "token lifetime (default jwt.expiration)")

	rootCmd.AddCommand(importCmd, gcCmd, exportCmd, showCmd, tokenCmd)
}

func loadConfig(cmd *cobra.Command, _ []string) error {
	var err error
	cfg, err = config.LoadConfig(configDir)
	if err != nil {
		return err
	}
	if logMode != "" {
		cfg.Log.Mode = logMode
	}
	appLog, err = logger.New(cfg.Log.Mode)
	return err
}

func openApp(cmd *cobra.Command, _ []string) error {
	var err error
	application, err = app.New(cmd.Context(), cfg, appLog)
	return err
}

func closeApp(cmd *cobra.Command, _ []string) error {
	if appLog != nil {
		defer appLog.Sync()
	}
	if application == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return application.Close(ctx)
}

func runImport(cmd *cobra.Command, args []string) error {
	doc, err := seed.ParseFile(args[0])
	if err != nil {
		return err
	}
	res, err := seed.Import(cmd.Context(), application.PlanService, doc)
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), res)
}

func runGC(cmd *cobra.Command, _ []string) error {
	n, err := application.PlanService.CollectOrphanedOverrides(cmd.Context())
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "removed %d orphaned overrides\n", n)
	return nil
}

func runExport(cmd *cobra.Command, args []string) error {
	export, err := application.PlanService.ExportMacrocycle(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), export)
}

func runShow(cmd *cobra.Command, args []string) error {
	view, err := application.PlanService.MicrocycleView(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), view)
}

func runToken(cmd *cobra.Command, args []string) error {
	if cfg.JWT.Secret == "" {
		return fmt.Errorf("jwt.secret is not configured")
	}
	role := domain.Role(tokenRole)
	if role != domain.RoleCoach && role != domain.RoleStudent {
		return fmt.Errorf("unknown role %q", tokenRole)
	}
	ttl := tokenTTL
	if ttl <= 0 {
		ttl = cfg.JWT.Expiration
	}
	tok, err := api.IssueToken(cfg.JWT.Secret, args[0], role, ttl)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), tok)
	return nil
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
