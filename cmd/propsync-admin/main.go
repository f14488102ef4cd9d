package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mmdatafocus/property_backend/app"
	"github.com/mmdatafocus/property_backend/config"
	"github.com/mmdatafocus/property_backend/models"
	"github.com/mmdatafocus/property_backend/syncstatus"
	"github.com/spf13/cobra"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "propsync-admin: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "propsync-admin",
		Short:        "Operate the property sync engine",
		SilenceUsage: true,
	}
	cmd.AddCommand(
		newMigrateCmd(),
		newStatusCmd(),
		newFailedCmd(),
		newResyncPropertyCmd(),
		newResyncFileCmd(),
	)
	return cmd
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Run AutoMigrate for every table",
		RunE: func(cmd *cobra.Command, args []string) error {
			if config.GetDBDriver() == config.DBDriverMemory {
				return fmt.Errorf("nothing to migrate with DB_DRIVER=memory")
			}
			config.ConnectDatabaseWithRetry()
			models.MigrateTable(config.GetDB())
			return nil
		},
	}
}

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status <entityType> <entityId>",
		Short: "Show the sync status of one entity",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			entityType := models.SyncEntityType(args[0])
			if !entityType.IsValid() {
				return fmt.Errorf("unknown entity type %q", args[0])
			}
			a, err := app.Build(cmd.Context())
			if err != nil {
				return err
			}
			s, err := a.Tracker.Get(cmd.Context(), entityType, args[1])
			if err != nil {
				return err
			}
			if s == nil {
				return fmt.Errorf("no sync status for %s %s", entityType, args[1])
			}
			return printJSON(cmd, s)
		},
	}
}

func newFailedCmd() *cobra.Command {
	var entityType string
	var xlsxPath string
	var limit int
	cmd := &cobra.Command{
		Use:   "failed",
		Short: "List failed syncs",
		RunE: func(cmd *cobra.Command, args []string) error {
			et := models.SyncEntityType(entityType)
			if et != "" && !et.IsValid() {
				return fmt.Errorf("unknown entity type %q", entityType)
			}
			a, err := app.Build(cmd.Context())
			if err != nil {
				return err
			}
			rows, err := a.Tracker.List(cmd.Context(), syncstatus.ListFilter{Status: models.SyncStatusFailed, EntityType: et, Limit: limit})
			if err != nil {
				return err
			}
			if xlsxPath == "" {
				return printJSON(cmd, rows)
			}
			f, err := os.Create(xlsxPath)
			if err != nil {
				return err
			}
			if err := syncstatus.WriteXLSX(f, rows); err != nil {
				f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %d rows to %s\n", len(rows), xlsxPath)
			return nil
		},
	}
	cmd.Flags().StringVar(&entityType, "entity-type", "", "Only this entity type (Rental, RentalOwner, File, Bill)")
	cmd.Flags().StringVar(&xlsxPath, "xlsx", "", "Write an Excel workbook instead of JSON")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum rows (0 for all)")
	return cmd
}

func newResyncPropertyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "resync-property <propertyId>",
		Short: "Push a stored property to the remote system again",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := app.Build(cmd.Context())
			if err != nil {
				return err
			}
			res, err := a.Properties.ResyncProperty(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd, res)
		},
	}
}

func newResyncFileCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "resync-file <fileId>",
		Short: "Upload a stored attachment to the remote system again",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := app.Build(cmd.Context())
			if err != nil {
				return err
			}
			res, err := a.Attachments.Resync(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd, res)
		},
	}
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
