// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package main

import (
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/gogpu/hgraph"
	"github.com/gogpu/hgraph/internal/manifest"
	"github.com/gogpu/hgraph/metrics"
)

// options holds the persistent flags.
type options struct {
	backend  string
	logLevel string
	vars     []string
	trace    bool
	stats    bool
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:   "hgraph",
		Short: "Inspect GPU resource dependency graphs",
		Long: `hgraph loads a resource graph from an HCL manifest, creates every
resource on the selected backend and drives destroy or recreate operations
so their cascades can be inspected.

Examples:
  hgraph tree scene.hcl
  hgraph recreate scene.hcl gpu --trace
  hgraph destroy scene.hcl color --var width=1024`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return setupLogging(cmd.ErrOrStderr(), opts.logLevel)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&opts.backend, "backend", "", "override the backend of every instance (noop, vulkan)")
	flags.StringVar(&opts.logLevel, "log-level", "warn", "log level (debug, info, warn, error)")
	flags.StringArrayVar(&opts.vars, "var", nil, "set a manifest variable (name=value), repeatable")
	flags.BoolVar(&opts.trace, "trace", false, "print every lifecycle event")
	flags.BoolVar(&opts.stats, "stats", false, "print lifecycle event counters at the end")

	root.AddCommand(
		&cobra.Command{
			Use:   "tree MANIFEST",
			Short: "Create every resource and print the dependency tree",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return run(cmd.OutOrStdout(), opts, args[0], nil, nil)
			},
		},
		&cobra.Command{
			Use:   "recreate MANIFEST NAME...",
			Short: "Recreate resources and print what was rebuilt",
			Args:  cobra.MinimumNArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				return run(cmd.OutOrStdout(), opts, args[0], args[1:], func(n hgraph.Node) {
					n.Create()
				})
			},
		},
		&cobra.Command{
			Use:   "destroy MANIFEST NAME...",
			Short: "Destroy resources and print what the cascade reached",
			Args:  cobra.MinimumNArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				return run(cmd.OutOrStdout(), opts, args[0], args[1:], func(n hgraph.Node) {
					n.Destroy()
				})
			},
		},
		&cobra.Command{
			Use:   "kinds",
			Short: "List the resource kinds a manifest may declare",
			Args:  cobra.NoArgs,
			Run: func(cmd *cobra.Command, _ []string) {
				for _, k := range manifest.Kinds {
					fmt.Fprintf(cmd.OutOrStdout(), "%-20s %s\n", k, kindTitle(k))
				}
			},
		},
		&cobra.Command{
			Use:   "version",
			Short: "Print the hgraph API version",
			Args:  cobra.NoArgs,
			Run: func(cmd *cobra.Command, _ []string) {
				fmt.Fprintf(cmd.OutOrStdout(), "hgraph API %s\n", hgraph.APIVersion)
			},
		},
	)
	return root
}

// run loads the manifest, creates every resource, applies op to the named
// resources and prints the resulting tree.
func run(out io.Writer, opts *options, path string, names []string, op func(hgraph.Node)) error {
	overrides, err := parseVars(opts.vars)
	if err != nil {
		return err
	}
	m, err := manifest.Load(path, overrides)
	if err != nil {
		return err
	}

	collector := metrics.NewCollector()
	reg := prometheus.NewRegistry()
	if err := reg.Register(collector); err != nil {
		return fmt.Errorf("register metrics: %w", err)
	}
	observers := hgraph.MultiObserver{collector}
	if opts.trace {
		observers = append(observers, hgraph.ObserverFunc(func(e hgraph.Event) {
			fmt.Fprintf(out, "event %-16s %s (%s)\n", e.Kind, e.Label, e.Resource)
		}))
	}

	g := hgraph.NewGraph(hgraph.WithObserver(observers))
	defer g.Close()

	built, err := m.Build(g, manifest.BuildOptions{Backend: opts.backend})
	if err != nil {
		return err
	}
	if err := built.CreateAll(); err != nil {
		fmt.Fprintf(out, "warning: %v\n", err)
	}

	for _, name := range names {
		n, err := built.Lookup(name)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "== %s\n", name)
		op(n)
	}

	printTree(out, g)
	if opts.stats {
		return printStats(out, reg)
	}
	return nil
}

func printTree(out io.Writer, g *hgraph.Graph) {
	g.Walk(func(n hgraph.Node, depth int) bool {
		state := "absent"
		switch {
		case n.IsCreated() && !n.IsDestroyable():
			state = "external"
		case n.IsCreated():
			state = "created"
		}
		fmt.Fprintf(out, "%s%s %s [%s]\n", strings.Repeat("  ", depth), kindTitle(n.Kind()), n.Label(), state)
		return true
	})
}

func printStats(out io.Writer, reg *prometheus.Registry) error {
	families, err := reg.Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}
	var lines []string
	for _, mf := range families {
		for _, metric := range mf.GetMetric() {
			labels := make([]string, 0, len(metric.GetLabel()))
			for _, lp := range metric.GetLabel() {
				labels = append(labels, lp.GetName()+"="+lp.GetValue())
			}
			value := metric.GetCounter().GetValue()
			if metric.GetGauge() != nil {
				value = metric.GetGauge().GetValue()
			}
			lines = append(lines, fmt.Sprintf("%s{%s} %g", mf.GetName(), strings.Join(labels, ","), value))
		}
	}
	sort.Strings(lines)
	for _, l := range lines {
		fmt.Fprintln(out, l)
	}
	return nil
}

var titleCaser = cases.Title(language.English)

// kindTitle turns "texture_view" into "Texture View".
func kindTitle(kind string) string {
	return titleCaser.String(strings.ReplaceAll(kind, "_", " "))
}

func parseVars(vars []string) (map[string]string, error) {
	if len(vars) == 0 {
		return nil, nil
	}
	out := make(map[string]string, len(vars))
	for _, v := range vars {
		name, value, ok := strings.Cut(v, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid --var %q (want name=value)", v)
		}
		out[name] = value
	}
	return out, nil
}

func setupLogging(w io.Writer, level string) error {
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return fmt.Errorf("invalid --log-level %q: %w", level, err)
	}
	hgraph.SetLogger(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: l})))
	return nil
}
