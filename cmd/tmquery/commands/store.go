package commands

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/tendermint/tmquery/config"
	"github.com/tendermint/tmquery/internal/store"
	"github.com/tendermint/tmquery/libs/log"
)

const maxRecordSize = 16 << 20

// MakeStoreCommand constructs the command group that manages the record
// store.
func MakeStoreCommand(conf *config.Config, logger log.Logger) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "store",
		Short: "Manage the record store",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "load",
			Short: "Append JSON records read from stdin, one per line",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return withStore(conf, func(rs *store.RecordStore) error {
					n, err := loadRecords(rs, cmd.InOrStdin())
					logger.Info("loaded records", "count", n)
					return err
				})
			},
		},
		&cobra.Command{
			Use:   "count",
			Short: "Print the number of stored records",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return withStore(conf, func(rs *store.RecordStore) error {
					n, err := rs.Count()
					if err != nil {
						return err
					}
					fmt.Fprintln(cmd.OutOrStdout(), n)
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "get ID",
			Short: "Print a stored record",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				id, err := parseID(args[0])
				if err != nil {
					return err
				}
				return withStore(conf, func(rs *store.RecordStore) error {
					bz, err := rs.Get(id)
					if err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "%s\n", bz)
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "delete ID",
			Short: "Delete a stored record",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				id, err := parseID(args[0])
				if err != nil {
					return err
				}
				return withStore(conf, func(rs *store.RecordStore) error {
					return rs.Delete(id)
				})
			},
		},
		&cobra.Command{
			Use:   "prune BEFORE",
			Short: "Delete all records with IDs below BEFORE",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				before, err := parseID(args[0])
				if err != nil {
					return err
				}
				return withStore(conf, func(rs *store.RecordStore) error {
					n, err := rs.Prune(before)
					logger.Info("pruned records", "count", n, "before", before)
					return err
				})
			},
		},
	)
	return cmd
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id < 1 {
		return 0, fmt.Errorf("invalid record ID %q", s)
	}
	return id, nil
}

// withStore opens the configured record store, calls fn and closes it.
func withStore(conf *config.Config, fn func(*store.RecordStore) error) error {
	db, err := config.DefaultDBProvider(&config.DBContext{ID: "records", Config: conf})
	if err != nil {
		return fmt.Errorf("opening record store: %w", err)
	}
	rs, err := store.NewRecordStore(db)
	if err != nil {
		db.Close()
		return err
	}
	err = fn(rs)
	if cerr := rs.Close(); err == nil {
		err = cerr
	}
	return err
}

// loadRecords appends each line of r to rs and returns the number of records
// saved.
func loadRecords(rs *store.RecordStore, r io.Reader) (int, error) {
	var n int
	err := readLines(r, func(line int, data []byte) error {
		if _, err := rs.Put(append([]byte(nil), data...)); err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}
		n++
		return nil
	})
	return n, err
}

// readLines calls fn with each non-blank line of r and its 1-based line
// number. The data passed to fn is only valid during the call.
func readLines(r io.Reader, fn func(line int, data []byte) error) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64<<10), maxRecordSize)
	for line := 1; sc.Scan(); line++ {
		data := bytes.TrimSpace(sc.Bytes())
		if len(data) == 0 {
			continue
		}
		if err := fn(line, data); err != nil {
			return err
		}
	}
	return sc.Err()
}
