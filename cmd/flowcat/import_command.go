package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"flowcatalog/internal/config"
	"flowcatalog/internal/importer"
	"flowcatalog/internal/notifications"
)

func newImportCommand(ctx *commandContext) *cobra.Command {
	var (
		tag        string
		credential string
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "import <file|dir>...",
		Short: "Create an import session from workflow files",
		Long: "Create an import session from workflow JSON files. Directories are searched\n" +
			"recursively for *.json files. Files already in the catalog, or repeated within\n" +
			"the batch, are skipped. Run `flowcat process` to work through the session.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			paths, err := collectWorkflowPaths(args)
			if err != nil {
				return err
			}
			files, err := readWorkflowFiles(cmd, paths)
			if err != nil {
				return err
			}
			imp, err := ctx.importer(cmd)
			if err != nil {
				return err
			}

			result, err := imp.Import(cmd.Context(), files, credential, tag)
			if errors.Is(err, importer.ErrNothingToImport) {
				if jsonOutput {
					return writeJSON(cmd, result)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Nothing to import: all %d file(s) already imported\n", result.SkippedCount)
				return nil
			}
			if err != nil {
				return err
			}

			ctx.notify(cmd, notifications.EventSessionCreated, notifications.Payload{
				"total":   result.TotalFiles,
				"skipped": result.SkippedCount,
				"tag":     result.Tag,
			})

			if jsonOutput {
				return writeJSON(cmd, result)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Session %s created\n", result.SessionID)
			fmt.Fprintf(out, "Queued: %d  Skipped: %d\n", result.TotalFiles, result.SkippedCount)
			fmt.Fprintln(out, "Run `flowcat process --drain` to import them.")
			return nil
		},
	}

	cmd.Flags().StringVarP(&tag, "tag", "t", "", "Tag attached to every imported workflow")
	cmd.Flags().StringVar(&credential, "credential", "", "Analyzer credential for this session (defaults to analyzer.api_key)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

// collectWorkflowPaths expands directory arguments into the *.json files
// beneath them. Results are de-duplicated and keep argument order, with each
// directory's files sorted.
func collectWorkflowPaths(args []string) ([]string, error) {
	seen := make(map[string]struct{})
	var paths []string
	add := func(path string) {
		if _, ok := seen[path]; ok {
			return
		}
		seen[path] = struct{}{}
		paths = append(paths, path)
	}

	for _, arg := range args {
		path, err := config.ExpandPath(strings.TrimSpace(arg))
		if err != nil {
			return nil, err
		}
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("inspect path %q: %w", path, err)
		}
		if !info.IsDir() {
			add(path)
			continue
		}
		var found []string
		err = filepath.WalkDir(path, func(p string, d fs.DirEntry, walkErr error) error {
			if walkErr != nil {
				return walkErr
			}
			if d.IsDir() {
				if p != path && strings.HasPrefix(d.Name(), ".") {
					return filepath.SkipDir
				}
				return nil
			}
			if strings.EqualFold(filepath.Ext(p), ".json") {
				found = append(found, p)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("scan %q: %w", path, err)
		}
		sort.Strings(found)
		for _, p := range found {
			add(p)
		}
	}
	if len(paths) == 0 {
		return nil, errors.New("no workflow files found")
	}
	return paths, nil
}

func readWorkflowFiles(cmd *cobra.Command, paths []string) ([]importer.File, error) {
	files := make([]importer.File, len(paths))
	g, gctx := errgroup.WithContext(cmd.Context())
	g.SetLimit(runtime.GOMAXPROCS(0))
	for idx, path := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			content, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("read %s: %w", path, err)
			}
			files[idx] = importer.File{
				Name:    filepath.Base(path),
				Path:    path,
				Content: content,
				Size:    int64(len(content)),
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return files, nil
}
