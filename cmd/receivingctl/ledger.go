package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"receiving-service/internal/export"
	"receiving-service/internal/models"

	"github.com/spf13/cobra"
)

var (
	wipePassphrase string
	exportFormat   string
	exportOut      string
)

var wipeCmd = &cobra.Command{
	Use:   "wipe",
	Short: "Irreversibly clear every product and import record",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		res, err := a.catalog.WipeAll(cmd.Context(), wipePassphrase)
		if err != nil {
			if errors.Is(err, models.ErrUnauthorized) {
				return errors.New("wrong passphrase, nothing was deleted")
			}
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Removed %d products and %d import records\n", res.Products, res.Records)
		return nil
	},
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the import ledger to a spreadsheet",
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := export.ParseFormat(exportFormat)
		if err != nil {
			return err
		}

		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		records, err := a.ledger.ListAll(cmd.Context())
		if err != nil {
			return err
		}
		if len(records) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "Nothing to export")
			return nil
		}

		out := exportOut
		if out == "" {
			out = filepath.Join(a.cfg.Export.Dir, format.FileName())
		}
		f, err := os.Create(out)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", out, err)
		}

		if err := export.Write(f, format, records); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return fmt.Errorf("failed to close %s: %w", out, err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Exported %d records to %s\n", len(records), out)
		return nil
	},
}

func init() {
	wipeCmd.Flags().StringVarP(&wipePassphrase, "passphrase", "p", "", "wipe passphrase (required)")
	wipeCmd.MarkFlagRequired("passphrase")

	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", "xlsx", "xlsx or csv")
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "output file (default imports.<format> in EXPORT_DIR)")
}
