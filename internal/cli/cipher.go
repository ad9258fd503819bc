package cli

import (
	"encoding/json"
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ppiankov/decode/internal/cipher"
	"github.com/ppiankov/decode/internal/match"
	"github.com/ppiankov/decode/internal/model"
	"github.com/ppiankov/decode/internal/pipeline"
	"github.com/ppiankov/decode/internal/refdb"
)

var (
	cipherMatch bool
	cipherJSON  bool
)

// cipherCmd represents the cipher command
var cipherCmd = &cobra.Command{
	Use:   "cipher <phrase>...",
	Short: "Print the cipher values of phrases",
	Long: `Cipher prints each phrase's value under every configured calculator.
With --match it also lists reference phrases sharing a value.

Example:
  decode cipher "Donald Trump" "Eclipse"
  decode cipher --match "Disaster"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runCipher,
}

var lookupCmd = &cobra.Command{
	Use:   "lookup <value>",
	Short: "List reference phrases worth a value",
	Long: `Lookup prints, per calculator, the reference phrases whose value equals
the given number.

Example:
  decode lookup 33`,
	Args: cobra.ExactArgs(1),
	RunE: runLookup,
}

func init() {
	rootCmd.AddCommand(cipherCmd, lookupCmd)
	lookupCmd.Flags().String("phrases", "", "reference phrase database (.json, .yaml, .db)")

	cipherCmd.Flags().BoolVar(&cipherMatch, "match", false, "list reference phrases with equal values")
	cipherCmd.Flags().BoolVar(&cipherJSON, "json", false, "print JSON")
	cipherCmd.Flags().String("phrases", "", "reference phrase database (.json, .yaml, .db)")
}

type cipherOutput struct {
	Values  model.ValueMap      `json:"values"`
	Matches []model.MatchRecord `json:"matches,omitempty"`
}

func runCipher(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup(cmd, map[string]string{"phrases": "reference.phrases_path"})
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	calcs, err := pipeline.Calculators(cfg.Engine)
	if err != nil {
		return err
	}

	out := cipherOutput{Values: calcs.Values(args)}
	if cipherMatch {
		idx, err := loadIndex(cmd, cfg.Reference.PhrasesPath, calcs)
		if err != nil {
			return err
		}
		out.Matches = match.Match(out.Values, idx)
	}

	w := cmd.OutOrStdout()
	if cipherJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprint(tw, "PHRASE")
	for _, name := range calcs.Names() {
		fmt.Fprintf(tw, "\t%s", name)
	}
	fmt.Fprintln(tw)
	for _, pv := range out.Values {
		fmt.Fprint(tw, pv.Phrase)
		for _, name := range calcs.Names() {
			fmt.Fprintf(tw, "\t%d", pv.Values[name])
		}
		fmt.Fprintln(tw)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if cipherMatch {
		fmt.Fprintf(w, "\n%d matches\n", len(out.Matches))
		for _, m := range out.Matches {
			fmt.Fprintf(w, "  %s = %s (%s %d)\n", m.Phrase, m.DBPhrase, m.Calculator, m.Value)
		}
	}
	return nil
}

func loadIndex(cmd *cobra.Command, path string, calcs *cipher.Set) (*match.Index, error) {
	phrases, err := refdb.Load(cmd.Context(), path)
	if err != nil {
		return nil, fmt.Errorf("load reference database: %w", err)
	}
	return match.BuildIndex(calcs, phrases)
}

func runLookup(cmd *cobra.Command, args []string) error {
	value, err := strconv.Atoi(args[0])
	if err != nil || value < 0 {
		return fmt.Errorf("invalid value %q: want a non-negative integer", args[0])
	}

	cfg, logger, err := setup(cmd, map[string]string{"phrases": "reference.phrases_path"})
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	calcs, err := pipeline.Calculators(cfg.Engine)
	if err != nil {
		return err
	}
	idx, err := loadIndex(cmd, cfg.Reference.PhrasesPath, calcs)
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	found := 0
	for _, name := range idx.Calculators() {
		phrases := idx.Lookup(name, value)
		if len(phrases) == 0 {
			continue
		}
		found += len(phrases)
		fmt.Fprintf(w, "%s:\n", name)
		for _, p := range phrases {
			fmt.Fprintf(w, "  %s\n", p)
		}
	}
	if found == 0 {
		fmt.Fprintf(w, "No reference phrase is worth %d\n", value)
	}
	return nil
}
