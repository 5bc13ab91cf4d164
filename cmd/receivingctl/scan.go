package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"time"

	"receiving-service/internal/models"
	"receiving-service/internal/scanner"

	"github.com/spf13/cobra"
)

var (
	scanDevice  string
	scanTimeout time.Duration
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Read one barcode from the capture device and look it up",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		device := scanDevice
		if device == "" {
			device = a.cfg.Scanner.Device
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()
		if scanTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, scanTimeout)
			defer cancel()
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Scanning %s, press Ctrl+C to stop\n", device)

		loop := scanner.NewLoop(scanner.NewFileSource(device), scanner.NewImageDecoder(), a.cfg.Scanner.Tick)
		code, err := loop.Run(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				fmt.Fprintln(out, "Scan stopped")
				return nil
			}
			return err
		}

		p, err := a.catalog.FindByBarcode(ctx, code)
		if errors.Is(err, models.ErrNotFound) {
			fmt.Fprintf(out, "%s\tnot in catalog\n", code)
			return nil
		}
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%s\t%s\t%s\t%s\n", p.Barcode, p.SKU, p.Brand, p.Name)
		return nil
	},
}

func init() {
	scanCmd.Flags().StringVarP(&scanDevice, "device", "d", "", "capture snapshot file, overrides SCANNER_DEVICE")
	scanCmd.Flags().DurationVar(&scanTimeout, "timeout", 0, "give up after this long (0 waits until interrupted)")
}
