package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/warp/carepoints/generic"
	"github.com/warp/carepoints/store/sqlite"
)

var historyLimit int

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Print every stored key as one JSON object",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, log, err := setup()
		if err != nil {
			return err
		}
		st, err := openStore(cfg.Storage, log)
		if err != nil {
			return err
		}
		defer st.Close()
		return export(cmd.Context(), st, cmd.OutOrStdout())
	},
}

var historyCmd = &cobra.Command{
	Use:   "history <key>",
	Short: "Print superseded values of a key, newest first",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := setup()
		if err != nil {
			return err
		}
		st, err := openStore(cfg.Storage, log)
		if err != nil {
			return err
		}
		defer st.Close()

		db, ok := st.(*sqlite.Store)
		if !ok {
			return errNoHistory
		}
		revs, err := db.History(cmd.Context(), args[0], historyLimit)
		if err != nil {
			return err
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(revs)
	},
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Maximum revisions to print")
}

// export writes {key: value} for every key. Values that are not JSON are
// written as strings.
func export(ctx context.Context, st generic.Store, w io.Writer) error {
	keys, err := st.Keys(ctx)
	if err != nil {
		return fmt.Errorf("list keys: %w", err)
	}

	out := make(map[string]json.RawMessage, len(keys))
	for _, k := range keys {
		v, ok, err := st.Get(ctx, k)
		if err != nil {
			return fmt.Errorf("get %s: %w", k, err)
		}
		if !ok {
			continue
		}
		if !json.Valid(v) {
			v, _ = json.Marshal(string(v))
		}
		out[k] = v
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
