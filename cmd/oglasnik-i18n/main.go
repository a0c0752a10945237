// Command oglasnik-i18n keeps the locale files in step with the primary
// locale.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"

	"github.com/erazemk/oglasnik/internal/i18n"
)

// errIncomplete makes check exit non-zero without printing usage.
var errIncomplete = errors.New("locales are incomplete")

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var dir, primary string

	root := &cobra.Command{
		Use:           "oglasnik-i18n",
		Short:         "Maintain Oglasnik translation files",
		SilenceUsage:  true,
	}
	root.PersistentFlags().StringVarP(&dir, "dir", "d", "internal/i18n/locales", "directory with <locale>.json files")
	root.PersistentFlags().StringVarP(&primary, "primary", "p", i18n.DefaultPrimary, "locale other locales are synced from")

	var dryRun bool
	syncCmd := &cobra.Command{
		Use:   "sync",
		Short: "Copy missing keys from the primary locale, marked for translation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSync(cmd.OutOrStdout(), dir, primary, dryRun)
		},
	}
	syncCmd.Flags().BoolVarP(&dryRun, "dry-run", "n", false, "report changes without writing files")

	checkCmd := &cobra.Command{
		Use:   "check",
		Short: "Fail when a locale is missing keys or has untranslated values",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd.OutOrStdout(), dir, primary)
		},
	}

	root.AddCommand(syncCmd, checkCmd)
	return root
}

func loadTrees(dir, primary string) (map[string]map[string]any, map[string]any, error) {
	trees, err := i18n.ReadDir(os.DirFS(dir))
	if err != nil {
		return nil, nil, err
	}
	p, ok := trees[primary]
	if !ok {
		return nil, nil, fmt.Errorf("primary locale %q not found in %s", primary, dir)
	}
	return trees, p, nil
}

func sortedLocales(trees map[string]map[string]any, primary string) []string {
	var names []string
	for name := range trees {
		if name != primary {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

func runSync(out io.Writer, dir, primary string, dryRun bool) error {
	trees, p, err := loadTrees(dir, primary)
	if err != nil {
		return err
	}

	for _, name := range sortedLocales(trees, primary) {
		synced, added := i18n.Sync(p, trees[name])
		if len(added) == 0 {
			fmt.Fprintf(out, "%s: up to date\n", name)
			continue
		}

		fmt.Fprintf(out, "%s: %d new keys\n", name, len(added))
		for _, key := range added {
			fmt.Fprintf(out, "  + %s\n", key)
		}
		if dryRun {
			continue
		}

		data, err := i18n.Encode(synced)
		if err != nil {
			return fmt.Errorf("encoding %s: %w", name, err)
		}
		if err := os.WriteFile(filepath.Join(dir, name+".json"), data, 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", name, err)
		}
	}
	return nil
}

func runCheck(out io.Writer, dir, primary string) error {
	trees, p, err := loadTrees(dir, primary)
	if err != nil {
		return err
	}

	incomplete := false
	for _, name := range sortedLocales(trees, primary) {
		missing := i18n.Missing(p, trees[name])
		marked := i18n.Untranslated(trees[name])
		for _, key := range missing {
			fmt.Fprintf(out, "%s: missing %s\n", name, key)
		}
		for _, key := range marked {
			fmt.Fprintf(out, "%s: untranslated %s\n", name, key)
		}
		if len(missing)+len(marked) > 0 {
			incomplete = true
		}
	}
	if incomplete {
		return errIncomplete
	}
	fmt.Fprintln(out, "all locales complete")
	return nil
}
