package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ppiankov/decode/internal/model"
	"github.com/ppiankov/decode/internal/numerology"
)

var numerologyJSON bool

// numerologyCmd represents the numerology command
var numerologyCmd = &cobra.Command{
	Use:   "numerology [YYYY-MM-DD]",
	Short: "Print the numerology of a date",
	Long: `Numerology prints the digit sums, life path, master-day and palindrome
flags and sun sign of a date (default: today).

Example:
  decode numerology 2024-09-11
  decode numerology --json 2022-02-22`,
	Args: cobra.MaximumNArgs(1),
	RunE: runNumerology,
}

func init() {
	rootCmd.AddCommand(numerologyCmd)
	numerologyCmd.Flags().BoolVar(&numerologyJSON, "json", false, "print JSON")
}

type numerologyOutput struct {
	Date string `json:"date"`
	model.Numerology
	SunSign string `json:"sun_sign"`
}

func runNumerology(cmd *cobra.Command, args []string) error {
	date := numerology.FromTime(timeNow())
	if len(args) == 1 {
		d, err := numerology.ParseDate(args[0])
		if err != nil {
			return err
		}
		date = d
	}

	num, err := numerology.Compute(date)
	if err != nil {
		return err
	}
	out := numerologyOutput{Date: date.String(), Numerology: num, SunSign: numerology.SunSign(date)}

	w := cmd.OutOrStdout()
	if numerologyJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	fmt.Fprintf(w, "Date:        %s (%s)\n", out.Date, out.SunSign)
	fmt.Fprintf(w, "Digit sums:  year %d, month %d, day %d, full date %d\n", num.YearSum, num.MonthSum, num.DaySum, num.DateSum)
	fmt.Fprintf(w, "Life path:   %d\n", num.LifePath)
	fmt.Fprintf(w, "Master day:  %s\n", yesNo(num.MasterDay))
	fmt.Fprintf(w, "Palindrome:  %s\n", yesNo(num.Palindrome))
	return nil
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}
