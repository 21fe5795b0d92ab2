package main

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/unkn0wn-root/nscache"
	"github.com/unkn0wn-root/nscache/internal/keys"
	"github.com/unkn0wn-root/nscache/provider/filesystem"
)

// withSession opens the configured cache around fn.
func withSession(fn func(ctx context.Context, s *session) error) error {
	ctx := context.Background()
	s, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer s.Close(ctx)
	return fn(ctx, s)
}

func getCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Print the cached value for id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(func(ctx context.Context, s *session) error {
				v, ok, err := s.cache.Fetch(ctx, args[0])
				if err != nil {
					return err
				}
				if !ok {
					return fmt.Errorf("%q: not found", args[0])
				}
				fmt.Fprintln(cmd.OutOrStdout(), v)
				return nil
			})
		},
	}
}

func setCmd() *cobra.Command {
	var ttl time.Duration
	var persist bool

	cmd := &cobra.Command{
		Use:   "set <id> <value>",
		Short: "Store value under id",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if persist {
				ttl = nscache.NoExpiration
			}
			return withSession(func(ctx context.Context, s *session) error {
				return s.cache.Save(ctx, args[0], args[1], ttl)
			})
		},
	}

	cmd.Flags().DurationVarP(&ttl, "ttl", "t", 0, "Time to live (0 = config default_ttl)")
	cmd.Flags().BoolVar(&persist, "no-expiry", false, "Never expire, even with a default_ttl")
	return cmd
}

func deleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "delete <id>",
		Short:   "Remove the entry for id",
		Aliases: []string{"rm"},
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(func(ctx context.Context, s *session) error {
				return s.cache.Delete(ctx, args[0])
			})
		},
	}
}

func containsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "contains <id>",
		Short: "Report whether id is cached",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(func(ctx context.Context, s *session) error {
				ok, err := s.cache.Contains(ctx, args[0])
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), ok)
				return nil
			})
		},
	}
}

func clearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Invalidate every entry of the namespace",
		Long:  "Moves the namespace to a new version. Old entries stay in the backend until they expire or are flushed.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(func(ctx context.Context, s *session) error {
				if err := s.cache.DeleteAll(ctx); err != nil {
					return err
				}
				v, err := currentVersion(ctx, s.versions, s.cache.Namespace())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "namespace %q now at version %d\n", s.cache.Namespace(), v)
				return nil
			})
		},
	}
}

func flushCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "flush",
		Short: "Drop every entry of the backend, in all namespaces",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(func(ctx context.Context, s *session) error {
				if err := s.cache.FlushAll(ctx); err != nil {
					if errors.Is(err, nscache.ErrUnsupported) {
						return fmt.Errorf("%s backend cannot flush", s.cfg.Backend)
					}
					return err
				}
				return nil
			})
		},
	}
}

func statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print backend statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(func(ctx context.Context, s *session) error {
				st, err := s.cache.Stats(ctx)
				if err != nil {
					return err
				}
				if st == nil {
					fmt.Fprintf(cmd.OutOrStdout(), "%s backend reports no statistics\n", s.cfg.Backend)
					return nil
				}
				m := st.Map()
				names := make([]string, 0, len(m))
				for k := range m {
					names = append(names, k)
				}
				sort.Strings(names)

				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
				for _, k := range names {
					fmt.Fprintf(w, "%s\t%d\n", k, m[k])
				}
				return w.Flush()
			})
		},
	}
}

func pathCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "path <id>",
		Short: "Print the file that holds id (filesystem backend)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(func(ctx context.Context, s *session) error {
				fsp, ok := s.provider.(*filesystem.Provider)
				if !ok {
					return fmt.Errorf("path needs the filesystem backend, have %s", s.cfg.Backend)
				}
				ns := s.cache.Namespace()
				v, err := currentVersion(ctx, s.versions, ns)
				if err != nil {
					return err
				}
				key := keys.Composite(ns, args[0], v)
				fmt.Fprintf(cmd.OutOrStdout(), "key:  %s\npath: %s\n", key, fsp.Path(key))
				return nil
			})
		},
	}
}

func mgetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mget <id>...",
		Short: "Print cached values for several ids",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(func(ctx context.Context, s *session) error {
				found, err := s.cache.FetchMulti(ctx, args)
				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
				fmt.Fprintln(w, "ID\tVALUE")
				for _, id := range args {
					v, ok := found[id]
					if !ok {
						v = "(miss)"
					}
					fmt.Fprintf(w, "%s\t%s\n", id, v)
				}
				if ferr := w.Flush(); err == nil {
					err = ferr
				}
				return err
			})
		},
	}
}

func msetCmd() *cobra.Command {
	var ttl time.Duration

	cmd := &cobra.Command{
		Use:   "mset <id=value>...",
		Short: "Store several entries at once",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			items, err := parsePairs(args)
			if err != nil {
				return err
			}
			return withSession(func(ctx context.Context, s *session) error {
				return s.cache.SaveMulti(ctx, items, ttl)
			})
		},
	}

	cmd.Flags().DurationVarP(&ttl, "ttl", "t", 0, "Time to live (0 = config default_ttl)")
	return cmd
}

func parsePairs(args []string) (map[string]string, error) {
	items := make(map[string]string, len(args))
	for _, a := range args {
		id, v, ok := strings.Cut(a, "=")
		if !ok {
			return nil, fmt.Errorf("invalid pair %q (want id=value)", a)
		}
		items[id] = v
	}
	return items, nil
}
