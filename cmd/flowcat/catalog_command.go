package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"flowcatalog/internal/catalog"
)

func newCatalogCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Browse and maintain the workflow catalog",
	}
	cmd.AddCommand(newCatalogListCommand(ctx))
	cmd.AddCommand(newCatalogDeleteTagCommand(ctx))
	cmd.AddCommand(newCatalogDedupeCommand(ctx))
	cmd.AddCommand(newCatalogFixNamesCommand(ctx))
	cmd.AddCommand(newCatalogRenameCommand(ctx))
	return cmd
}

func newCatalogListCommand(ctx *commandContext) *cobra.Command {
	var (
		tag        string
		name       string
		limit      int
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List catalog entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.catalogStore()
			if err != nil {
				return err
			}
			entries, err := store.List(cmd.Context(), catalog.ListOptions{Tag: tag, Name: name, Limit: limit})
			if err != nil {
				return err
			}
			if jsonOutput {
				return writeJSON(cmd, entries)
			}
			out := cmd.OutOrStdout()
			if len(entries) == 0 {
				fmt.Fprintln(out, "Catalog is empty")
				return nil
			}
			rows := make([][]string, 0, len(entries))
			for _, e := range entries {
				rows = append(rows, []string{
					e.ID,
					e.Name,
					e.Tag,
					strings.Join(e.Categories, ", "),
					strconv.Itoa(e.NodeCount),
					e.Complexity,
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"ID", "Name", "Tag", "Categories", "Nodes", "Complexity"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
			))
			return nil
		},
	}

	cmd.Flags().StringVarP(&tag, "tag", "t", "", "Only entries with this tag")
	cmd.Flags().StringVar(&name, "name", "", "Only entries with this exact name")
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Maximum entries to show (0 for all)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func newCatalogDeleteTagCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "delete-tag <tag>",
		Short: "Delete every entry with a tag, and the queue rows that produced them",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := ctx.maintenance(cmd)
			if err != nil {
				return err
			}
			removed, err := svc.DeleteByTag(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d entr%s tagged %q\n", removed, plural(removed, "y", "ies"), args[0])
			return nil
		},
	}
}

func newCatalogDedupeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "dedupe",
		Short: "Keep one entry per name, deleting the rest",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := ctx.maintenance(cmd)
			if err != nil {
				return err
			}
			removed, err := svc.DeleteDuplicates(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d duplicate entr%s\n", removed, plural(removed, "y", "ies"))
			return nil
		},
	}
}

func newCatalogFixNamesCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "fix-names",
		Short: "Suffix repeated entry names so every name is unique",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := ctx.maintenance(cmd)
			if err != nil {
				return err
			}
			renamed, err := svc.FixDuplicateNames(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Renamed %d entr%s\n", renamed, plural(renamed, "y", "ies"))
			return nil
		},
	}
}

func newCatalogRenameCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "rename <id> <name>",
		Short: "Rename a catalog entry",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := strings.TrimSpace(args[0])
			name := strings.TrimSpace(args[1])
			if name == "" {
				return errors.New("name must not be empty")
			}
			store, err := ctx.catalogStore()
			if err != nil {
				return err
			}
			if err := store.Rename(cmd.Context(), id, name); err != nil {
				if errors.Is(err, catalog.ErrNotFound) {
					return fmt.Errorf("catalog entry %s not found", id)
				}
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Renamed %s to %q\n", id, name)
			return nil
		},
	}
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
