package commands

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"smilestore/internal/domain"
)

// put <type> [id]: create a record, allocating the next id when none is given.
func putCmd() *cobra.Command {
	var data, file string
	var mustExist bool

	cmd := &cobra.Command{
		Use:   "put <type> [id]",
		Short: "Store a record (JSON) under a new or given id",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := parseType(args[0])
			if err != nil {
				return err
			}
			rec, err := readRecord(data, file, cmd.InOrStdin())
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			if len(args) == 1 {
				if mustExist {
					return fmt.Errorf("--update needs an id")
				}
				id, _, err := appCtx.Records.Create(ctx, t, rec)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), id)
				return nil
			}

			id := domain.EntityID(args[1])
			if mustExist {
				err = appCtx.Records.Update(ctx, t, id, rec)
			} else {
				err = appCtx.Records.Put(ctx, t, id, rec)
			}
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), id)
			return nil
		},
	}
	cmd.Flags().StringVar(&data, "data", "", "record as a JSON object")
	cmd.Flags().StringVarP(&file, "file", "f", "", "read the JSON record from a file (- for stdin)")
	cmd.Flags().BoolVar(&mustExist, "update", false, "fail unless the record already exists")
	return cmd
}

func getCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <type> <id>",
		Short: "Print one record as JSON",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := parseType(args[0])
			if err != nil {
				return err
			}
			rec, err := appCtx.Records.Get(t, domain.EntityID(args[1]))
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), rec)
		},
	}
}

func listCmd() *cobra.Command {
	var strict bool

	cmd := &cobra.Command{
		Use:   "list <type>",
		Short: "Print every record of a type as a JSON array",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := parseType(args[0])
			if err != nil {
				return err
			}
			listing, err := appCtx.Records.List(t)
			if err != nil {
				return err
			}
			for _, s := range listing.Skipped {
				log.Warn().Err(s.Err).Str("id", s.ID.String()).Msg("entry skipped")
			}
			if err := printJSON(cmd.OutOrStdout(), listing.Records); err != nil {
				return err
			}
			if strict && len(listing.Skipped) > 0 {
				return fmt.Errorf("%d indexed entries could not be read; run `smilestore reindex %s`", len(listing.Skipped), t)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&strict, "strict", false, "fail when any indexed entry is unreadable")
	return cmd
}

func deleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <type> <id>",
		Short: "Delete a record and its index entry",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := parseType(args[0])
			if err != nil {
				return err
			}
			if err := appCtx.Records.Delete(cmd.Context(), t, domain.EntityID(args[1])); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "deleted")
			return nil
		},
	}
}

// exists exits 0 when the record is present and 1 when it is not.
func existsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "exists <type> <id>",
		Short: "Report whether a record exists",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := parseType(args[0])
			if err != nil {
				return err
			}
			ok, err := appCtx.Records.Exists(t, domain.EntityID(args[1]))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), ok)
			if !ok {
				return exitError{code: 1}
			}
			return nil
		},
	}
}

func nextIDCmd() *cobra.Command {
	var prefix string

	cmd := &cobra.Command{
		Use:   "next-id <type>",
		Short: "Print the next free id for a type",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := parseType(args[0])
			if err != nil {
				return err
			}
			p := prefix
			if !cmd.Flags().Changed("prefix") {
				p = t.Prefix()
			}
			id, err := appCtx.Store.NextID(t, p)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), id)
			return nil
		},
	}
	cmd.Flags().StringVar(&prefix, "prefix", "", "id prefix (default: the type's own)")
	return cmd
}

func reindexCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reindex [type...]",
		Short: "Rebuild indexes from the blobs on disk",
		RunE: func(cmd *cobra.Command, args []string) error {
			types := domain.EntityTypes()
			if len(args) > 0 {
				types = types[:0]
				for _, a := range args {
					t, err := parseType(a)
					if err != nil {
						return err
					}
					types = append(types, t)
				}
			}
			for _, t := range types {
				idx, err := appCtx.Store.Reindex(t)
				if err != nil {
					return err
				}
				appCtx.Syncer.SyncIndex(cmd.Context(), t)
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %d entries\n", t, len(idx))
			}
			return nil
		},
	}
}
