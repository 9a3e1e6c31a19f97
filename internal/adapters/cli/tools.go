package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"smeaudit/internal/core"
)

func newValidateCommand() *cobra.Command {
	validate := &cobra.Command{
		Use:   "validate",
		Short: "Check the shape of Indian tax identifiers",
	}

	validate.AddCommand(
		&cobra.Command{
			Use:   "gstin <gstin>",
			Short: "Validate a GSTIN and show its parts",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				d := core.DescribeGSTIN(core.NormalizeIdentifier(args[0]))
				w := cmd.OutOrStdout()
				if !d.Valid {
					fmt.Fprintf(w, "%s: INVALID\n", d.GSTIN)
					return ErrInvalid
				}
				state := d.StateName
				if state == "" {
					state = "unknown state"
				}
				fmt.Fprintf(w, "%s: VALID\n", d.GSTIN)
				fmt.Fprintf(w, "  State   : %s (%s)\n", d.StateCode, state)
				fmt.Fprintf(w, "  PAN     : %s\n", d.PAN)
				fmt.Fprintf(w, "  Entity  : %s\n", d.EntityNumber)
				fmt.Fprintf(w, "  Check   : %s\n", d.CheckChar)
				return nil
			},
		},
		identifierCommand("pan <pan>", "Validate a PAN", core.NormalizeIdentifier, core.ValidatePAN),
		identifierCommand("pincode <pincode>", "Validate a six-digit pincode", strings.TrimSpace, core.ValidatePincode),
		identifierCommand("hsn <code>", "Validate an HSN or SAC code", strings.TrimSpace, core.ValidateHSN),
	)
	return validate
}

func identifierCommand(use, short string, normalize func(string) string, valid func(string) bool) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v := normalize(args[0])
			if !valid(v) {
				fmt.Fprintf(cmd.OutOrStdout(), "%s: INVALID\n", v)
				return ErrInvalid
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: VALID\n", v)
			return nil
		},
	}
}

func newGSTCommand() *cobra.Command {
	var inter bool
	var supplier, recipient string
	cmd := &cobra.Command{
		Use:   "gst <taxable> <rate>",
		Short: "Compute CGST/SGST or IGST on a taxable value",
		Long: `Computes tax on a taxable value at a notified rate in percent.
The supply is intra-state unless --inter is set or the two GSTINs given
with --supplier and --recipient are registered in different states.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			taxable, err := decimal.NewFromString(args[0])
			if err != nil || taxable.IsNegative() {
				return fmt.Errorf("taxable must be a non-negative amount, got %q", args[0])
			}
			rate, err := decimal.NewFromString(args[1])
			if err != nil || !core.IsValidGSTRate(rate) {
				return fmt.Errorf("rate %q is not a notified GST rate", args[1])
			}

			intra := !inter
			if supplier != "" || recipient != "" {
				s, r := core.NormalizeIdentifier(supplier), core.NormalizeIdentifier(recipient)
				if !core.ValidateGSTIN(s) || !core.ValidateGSTIN(r) {
					return fmt.Errorf("--supplier and --recipient must both be valid GSTINs")
				}
				intra = core.IsIntraState(s, r)
			}

			tb := core.CalculateGST(taxable, rate, intra)
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "Taxable : %15s\n", tb.Taxable.StringFixed(2))
			fmt.Fprintf(w, "Rate    : %14s%%\n", tb.Rate.String())
			if intra {
				fmt.Fprintf(w, "CGST    : %15s\n", tb.CGST.StringFixed(2))
				fmt.Fprintf(w, "SGST    : %15s\n", tb.SGST.StringFixed(2))
			} else {
				fmt.Fprintf(w, "IGST    : %15s\n", tb.IGST.StringFixed(2))
			}
			fmt.Fprintf(w, "Tax     : %15s\n", tb.Total.StringFixed(2))
			fmt.Fprintf(w, "Invoice : %15s\n", tb.Taxable.Add(tb.Total).StringFixed(2))
			return nil
		},
	}
	cmd.Flags().BoolVar(&inter, "inter", false, "inter-state supply (IGST)")
	cmd.Flags().StringVar(&supplier, "supplier", "", "supplier GSTIN")
	cmd.Flags().StringVar(&recipient, "recipient", "", "recipient GSTIN")
	return cmd
}

func newFYCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "fy [YYYY-MM-DD]",
		Short: "Show the April to March financial year containing a date",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t := time.Now()
			if len(args) == 1 {
				var err error
				if t, err = time.Parse(time.DateOnly, args[0]); err != nil {
					return fmt.Errorf("date must be YYYY-MM-DD: %w", err)
				}
			}
			from, to := core.FinancialYearBounds(t)
			fmt.Fprintf(cmd.OutOrStdout(), "FY %s (%s to %s)\n", core.FinancialYear(t), from.Format(time.DateOnly), to.Format(time.DateOnly))
			return nil
		},
	}
}
