package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"settlement-form-backend/internal/form"
	"settlement-form-backend/internal/validate"
)

var (
	validateVariant string
	validateAt      string
)

var validateCmd = &cobra.Command{
	Use:   "validate <draft.json>",
	Short: "Check a form exported as JSON and list its errors",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		v, err := form.LookupVariant(validateVariant)
		if err != nil {
			return err
		}
		now := time.Now()
		if validateAt != "" {
			if now, err = time.Parse(time.DateOnly, validateAt); err != nil {
				return fmt.Errorf("invalid --at date: %w", err)
			}
		}
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()
		return runValidate(cmd.OutOrStdout(), f, v, now)
	},
}

func init() {
	validateCmd.Flags().StringVar(&validateVariant, "variant", form.Agreement.Name, "form variant (agreement or application)")
	validateCmd.Flags().StringVar(&validateAt, "at", "", "check as of this date (YYYY-MM-DD), default today")
}

func runValidate(out io.Writer, in io.Reader, v form.Variant, now time.Time) error {
	s := form.NewDefaults().State()
	if err := json.NewDecoder(in).Decode(&s); err != nil {
		return fmt.Errorf("failed to decode form: %w", err)
	}

	tree := validate.Validate(&s, v, now)
	progress := validate.ProgressOf(&s, v)
	fmt.Fprintf(out, "%s: %d/%d required fields filled (%d%%)\n", v.Name, progress.Filled, progress.Required, progress.Percent)
	if tree.Empty() {
		fmt.Fprintln(out, "no errors")
		return nil
	}
	for _, p := range tree.Paths() {
		message, _ := tree.Message(p)
		fmt.Fprintf(out, "%s\t%s\n", p, message)
	}
	return fmt.Errorf("%d fields have errors", tree.Len())
}
