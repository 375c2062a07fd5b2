package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/dmitrymomot/kamu"
)

// addRouteFlags declares the route file flags shared by every command.
func addRouteFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("routes", "r", "", "Route file")
	cmd.Flags().String("route-cache", "", "Compiled route cache file")
}

// configFromCmd loads the config file and environment, then applies the
// flags the user set.
func configFromCmd(cmd *cobra.Command, path string) (Config, error) {
	cfg, err := loadConfig(path, cmd.Flags().Changed("config"), os.LookupEnv)
	if err != nil {
		return cfg, err
	}

	fs := cmd.Flags()
	str := func(name string, dst *string) {
		if fs.Changed(name) {
			*dst, _ = fs.GetString(name)
		}
	}
	boolean := func(name string, dst *bool) {
		if fs.Changed(name) {
			*dst, _ = fs.GetBool(name)
		}
	}
	str("address", &cfg.Address)
	str("routes", &cfg.Routes)
	str("route-cache", &cfg.RouteCache)
	str("redis-url", &cfg.RedisURL)
	boolean("watch", &cfg.Watch)
	boolean("strict", &cfg.Strict)
	return cfg, nil
}

func routeCacheCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "route:cache",
		Short: "Compile the route file into the cache",
		Long: `Evaluate the route file, check every action and middleware name
against the registered application, and write the compiled cache.
With a Redis URL the compiled table is also published for other instances.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := configFromCmd(cmd, *configPath)
			if err != nil {
				return err
			}

			t := kamu.NewTable()
			if err := t.LoadFile(cfg.Routes); err != nil {
				return err
			}
			opts := appOptions()
			if cfg.Strict {
				opts = append(opts, kamu.WithStrictRoutes())
			}
			if err := kamu.New(opts...).Load(t); err != nil {
				return err
			}
			if err := t.CompileToCache(cfg.RouteCache); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Routes cached: %d routes written to %s\n", t.Len(), cfg.RouteCache)

			if cfg.RedisURL == "" {
				return nil
			}
			st, err := openStores(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer st.Close(cmd.Context())
			if err := st.routes.Save(cmd.Context(), t); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Routes published to Redis")
			return nil
		},
	}

	cmd.Flags().Bool("strict", false, "Reject shadowed routes and duplicate names")
	cmd.Flags().String("redis-url", "", "Also publish to this Redis")
	addRouteFlags(cmd)

	return cmd
}

func routeClearCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "route:clear",
		Short: "Remove the compiled route cache",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := configFromCmd(cmd, *configPath)
			if err != nil {
				return err
			}
			if err := kamu.ClearCache(cfg.RouteCache); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Route cache cleared")

			if cfg.RedisURL == "" {
				return nil
			}
			st, err := openStores(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer st.Close(cmd.Context())
			if err := st.routes.Clear(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Shared route cache cleared")
			return nil
		},
	}

	cmd.Flags().String("redis-url", "", "Also clear this Redis")
	addRouteFlags(cmd)

	return cmd
}

func routeListCmd(configPath *string) *cobra.Command {
	var method, name string

	cmd := &cobra.Command{
		Use:   "route:list",
		Short: "List registered routes",
		Long: `List routes in match order with their action, middleware and name.

Examples:
  kamu route:list
  kamu route:list --method=POST
  kamu route:list --name=users.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := configFromCmd(cmd, *configPath)
			if err != nil {
				return err
			}

			t := kamu.NewTable()
			if _, err := kamu.LoadRoutes(t, cfg.Routes, cfg.RouteCache); err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "METHOD\tPATH\tACTION\tMIDDLEWARE\tNAME")
			for _, def := range t.Routes() {
				if method != "" && !strings.EqualFold(def.Method, method) {
					continue
				}
				if name != "" && !strings.HasPrefix(def.Name, name) {
					continue
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
					def.Method, def.Pattern, def.Action, strings.Join(def.Middleware, ","), def.Name)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVarP(&method, "method", "m", "", "Only routes with this method")
	cmd.Flags().StringVarP(&name, "name", "n", "", "Only routes whose name has this prefix")
	addRouteFlags(cmd)

	return cmd
}
