package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ppiankov/decode/internal/refdb"
)

var refdbCmd = &cobra.Command{
	Use:   "refdb",
	Short: "Manage the reference phrase database",
}

var refdbImportCmd = &cobra.Command{
	Use:   "import <phrases.json|yaml> <phrases.db>",
	Short: "Import a phrase mapping into a SQLite reference database",
	Long: `Import reads a {phrase: metadata} mapping and upserts every phrase into a
SQLite database, creating it when missing. Point reference.phrases_path at the
.db file to use it.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, logger, err := setup(cmd, nil)
		if err != nil {
			return err
		}
		defer func() { _ = logger.Sync() }()

		entries, err := refdb.ReadMapping(args[0])
		if err != nil {
			return err
		}
		if len(refdb.Keys(entries)) == 0 {
			return fmt.Errorf("%s: %w", args[0], refdb.ErrEmptyDatabase)
		}

		store, err := refdb.OpenSQLite(args[1])
		if err != nil {
			return err
		}
		defer store.Close()

		if err := store.Seed(cmd.Context(), entries); err != nil {
			return fmt.Errorf("import %s: %w", args[0], err)
		}
		n, err := store.Count(cmd.Context())
		if err != nil {
			return err
		}

		logger.Info("Imported reference phrases",
			zap.String("source", args[0]),
			zap.String("database", args[1]),
			zap.Int("total", n))
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %d phrases\n", args[1], n)
		return nil
	},
}

var listMeta bool

var refdbListCmd = &cobra.Command{
	Use:   "list [path]",
	Short: "List the phrases of a reference database",
	Long: `List prints every phrase of the given database, or of reference.phrases_path.
With --meta each phrase is followed by a tab and its metadata as JSON.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := setup(cmd, nil)
		if err != nil {
			return err
		}
		path := cfg.Reference.PhrasesPath
		if len(args) == 1 {
			path = args[0]
		}

		if !listMeta {
			phrases, err := refdb.Load(cmd.Context(), path)
			if err != nil {
				return err
			}
			for _, p := range phrases {
				fmt.Fprintln(cmd.OutOrStdout(), p)
			}
			return nil
		}

		entries, err := refdb.LoadEntries(cmd.Context(), path)
		if err != nil {
			return err
		}
		for _, p := range refdb.Keys(entries) {
			meta, err := json.Marshal(entries[p])
			if err != nil {
				return fmt.Errorf("encode metadata for %q: %w", p, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", p, meta)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(refdbCmd)
	refdbListCmd.Flags().BoolVar(&listMeta, "meta", false, "print each phrase's metadata")
	refdbCmd.AddCommand(refdbImportCmd, refdbListCmd)
}
