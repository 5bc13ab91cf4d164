package main

import (
	"fmt"
	"os"

	"receiving-service/internal/models"

	"github.com/spf13/cobra"
)

var (
	productFields models.Product
	productCSV    string
)

var productCmd = &cobra.Command{
	Use:   "product",
	Short: "Add, edit, find or bulk import catalog products",
}

var productAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a product; an existing barcode is left unchanged",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		outcome, err := a.catalog.CreateProduct(cmd.Context(), productFields)
		if err != nil {
			return err
		}
		if outcome == models.OutcomeIgnored {
			fmt.Fprintf(cmd.OutOrStdout(), "Barcode %s already exists, nothing changed\n", productFields.Barcode)
			return nil
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Product %s added\n", productFields.Barcode)
		return nil
	},
}

var productEditCmd = &cobra.Command{
	Use:   "edit",
	Short: "Edit the sku, brand and name of an existing product",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.catalog.UpdateProduct(cmd.Context(), productFields); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Product %s updated\n", productFields.Barcode)
		return nil
	},
}

var productFindCmd = &cobra.Command{
	Use:   "find <barcode>",
	Short: "Look a product up by barcode",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		p, err := a.catalog.FindByBarcode(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\t%s\n", p.Barcode, p.SKU, p.Brand, p.Name)
		return nil
	},
}

var productImportCmd = &cobra.Command{
	Use:   "import",
	Short: "Bulk add products from a CSV with barcode, sku, brand and name columns",
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(productCSV)
		if err != nil {
			return fmt.Errorf("failed to open CSV file: %w", err)
		}
		defer f.Close()

		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		summary, err := a.catalog.ImportCSV(cmd.Context(), f)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Created %d, ignored %d existing, rejected %d\n", summary.Created, summary.Ignored, len(summary.Rejected))
		for _, r := range summary.Rejected {
			fmt.Fprintf(out, "  line %d: missing %s\n", r.Line, r.Field)
		}
		return nil
	},
}

func init() {
	for _, c := range []*cobra.Command{productAddCmd, productEditCmd} {
		c.Flags().StringVarP(&productFields.Barcode, "barcode", "b", "", "product barcode (required)")
		c.Flags().StringVar(&productFields.SKU, "sku", "", "stock keeping unit (required)")
		c.Flags().StringVar(&productFields.Brand, "brand", "", "brand (required)")
		c.Flags().StringVarP(&productFields.Name, "name", "n", "", "product name (required)")
		c.MarkFlagRequired("barcode")
	}

	productImportCmd.Flags().StringVarP(&productCSV, "csv", "c", "", "CSV file to import (required)")
	productImportCmd.MarkFlagRequired("csv")

	productCmd.AddCommand(productAddCmd, productEditCmd, productFindCmd, productImportCmd)
}
