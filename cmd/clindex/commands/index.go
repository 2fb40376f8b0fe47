package commands

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/asarangaram/clmediakit"
)

func parseID(s string) (uint64, error) {
	id, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid id %q: %w", s, err)
	}
	return id, nil
}

// readItems parses "<id> <fingerprint>" lines. Blank lines and '#' comments are skipped.
func readItems(r io.Reader) ([]clmediakit.Item, error) {
	var items []clmediakit.Item
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		fields := strings.Fields(text)
		if len(fields) != 2 {
			return nil, fmt.Errorf("line %d: expected \"<id> <fingerprint>\"", line)
		}
		id, err := parseID(fields[0])
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		items = append(items, clmediakit.Item{ID: id, Hash: fields[1]})
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func (a *app) addCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "add [<id> <fingerprint>]",
		Short: "Add fingerprints",
		Long: `Add a fingerprint under a new id.

With --file, every "<id> <fingerprint>" line of the file ("-" for stdin) is
added in one atomic batch.

Example:
  clindex add 42 0b1011
  clindex add --file hashes.txt`,
		Args: func(cmd *cobra.Command, args []string) error {
			if file != "" {
				return cobra.NoArgs(cmd, args)
			}
			return cobra.ExactArgs(2)(cmd, args)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			var items []clmediakit.Item
			if file != "" {
				var r io.Reader = cmd.InOrStdin()
				if file != "-" {
					f, err := os.Open(file)
					if err != nil {
						return err
					}
					defer f.Close()
					r = f
				}
				var err error
				if items, err = readItems(r); err != nil {
					return err
				}
			} else {
				id, err := parseID(args[0])
				if err != nil {
					return err
				}
				items = []clmediakit.Item{{ID: id, Hash: args[1]}}
			}

			return a.withIndex(cmd, func(ctx context.Context, idx *clmediakit.Index) error {
				if err := idx.AddBatch(ctx, items); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "added %d\n", len(items))
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "read \"<id> <fingerprint>\" lines from file")
	return cmd
}

func (a *app) replaceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "replace <id> <fingerprint>",
		Short: "Replace the fingerprint stored under an id",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return a.withIndex(cmd, func(ctx context.Context, idx *clmediakit.Index) error {
				if err := idx.Replace(ctx, id, args[1]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "replaced %d\n", id)
				return nil
			})
		},
	}
}

func (a *app) removeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <id>...",
		Short: "Remove ids",
		Long:  `Remove ids from the index. Ids that are not present are reported and skipped.`,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids := make([]uint64, len(args))
			for i, s := range args {
				id, err := parseID(s)
				if err != nil {
					return err
				}
				ids[i] = id
			}
			return a.withIndex(cmd, func(ctx context.Context, idx *clmediakit.Index) error {
				for _, id := range ids {
					removed, err := idx.Remove(ctx, id)
					if err != nil {
						return err
					}
					if removed {
						fmt.Fprintf(cmd.OutOrStdout(), "removed %d\n", id)
					} else {
						fmt.Fprintf(cmd.OutOrStdout(), "not found %d\n", id)
					}
				}
				return nil
			})
		},
	}
}

func (a *app) queryCmd() *cobra.Command {
	var k int
	cmd := &cobra.Command{
		Use:   "query <fingerprint>",
		Short: "Find the nearest fingerprints",
		Long: `Print the k fingerprints nearest to the given one, closest first.
Distance is the number of differing bits.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withIndex(cmd, func(ctx context.Context, idx *clmediakit.Index) error {
				matches, err := idx.SearchHash(ctx, args[0], k)
				if err != nil {
					return err
				}
				out := make([]matchOutput, len(matches))
				for i, m := range matches {
					fp, _ := idx.Fingerprint(m.ID)
					out[i] = matchOutput{ID: m.ID, Distance: m.Distance, Fingerprint: fp}
				}
				return printMatches(cmd.OutOrStdout(), a.jsonOut, out)
			})
		},
	}
	cmd.Flags().IntVarP(&k, "k", "k", clmediakit.DefaultQueryK, "number of results")
	return cmd
}
