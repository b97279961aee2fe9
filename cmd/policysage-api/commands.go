package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/fatih/color"
	"github.com/policysage/policysage-api/internal/config"
	"github.com/policysage/policysage-api/internal/domain/model"
	"github.com/policysage/policysage-api/internal/infrastructure/server"
	"github.com/policysage/policysage-api/internal/usecase/ingest"
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "policysage-api",
		Short:         "Answer banking policy questions from a Neo4j knowledge graph",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe()
		},
	}
	root.AddCommand(newServeCmd(), newAskCmd(), newIngestCmd())
	return root
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server (default)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe()
		},
	}
}

func runServe() error {
	log.Println("Starting PolicySage API...")
	cfg := config.Load()
	return server.New(cfg).Run()
}

func newAskCmd() *cobra.Command {
	var showDetails bool
	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Answer a single question and exit",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg := config.Load()

			graph, profile, err := server.OpenGraph(ctx, cfg)
			if err != nil {
				return err
			}
			defer func() { _ = graph.Close(context.Background()) }()

			pipeline, closeLLM, err := server.NewPipeline(ctx, cfg, graph, profile, nil)
			if err != nil {
				return err
			}
			defer func() { _ = closeLLM() }()

			turn := pipeline.Ask(ctx, strings.Join(args, " "))
			printTurn(cmd.OutOrStdout(), turn, showDetails)
			if turn.Failed() {
				return fmt.Errorf("question failed: %s", turn.Failure.Kind)
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&showDetails, "details", "d", false, "print the retrieved records after the answer")
	return cmd
}

func printTurn(w io.Writer, turn model.ChatTurn, showDetails bool) {
	if turn.Failed() {
		_, _ = color.New(color.FgRed, color.Bold).Fprintf(w, "[%s] ", turn.Failure.Kind)
		_, _ = fmt.Fprintln(w, turn.Answer)
		return
	}
	_, _ = color.New(color.FgGreen, color.Bold).Fprint(w, "Answer: ")
	_, _ = fmt.Fprintln(w, turn.Answer)

	if !turn.HasDetails() {
		return
	}
	if !showDetails {
		_, _ = color.New(color.Faint).Fprintf(w, "(%d details hidden, use --details to show)\n", len(turn.Details))
		return
	}
	_, _ = color.New(color.FgCyan, color.Bold).Fprintln(w, "\nDetails:")
	for _, d := range turn.Details {
		_, _ = fmt.Fprintln(w, d)
	}
}

func newIngestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ingest <file|dir>...",
		Short: "Load policy files (YAML or JSON) into the graph",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg := config.LoadStorage()

			paths, err := ingest.ExpandPaths(args)
			if err != nil {
				return err
			}
			if len(paths) == 0 {
				return fmt.Errorf("no policy files found in %s", strings.Join(args, ", "))
			}

			graph, profile, err := server.OpenGraph(ctx, cfg)
			if err != nil {
				return err
			}
			defer func() { _ = graph.Close(context.Background()) }()

			registry, err := server.OpenRegistry(ctx, cfg)
			if err != nil {
				return err
			}
			defer func() { _ = registry.Close() }()

			loader := ingest.NewLoader(graph, registry, profile, cfg.IngestConcurrency)
			results, err := loader.LoadFiles(ctx, paths)
			printResults(cmd.OutOrStdout(), results)
			return err
		},
	}
}

func printResults(w io.Writer, results []ingest.Result) {
	skipped := color.New(color.Faint).SprintFunc()
	loaded := color.New(color.FgGreen).SprintFunc()
	for _, r := range results {
		switch {
		case r.Skipped:
			_, _ = fmt.Fprintf(w, "%s %s (%s, unchanged)\n", skipped("skip"), r.Document, r.Path)
		case r.Replaced:
			_, _ = fmt.Fprintf(w, "%s %s (%s, %d records)\n", loaded("replace"), r.Document, r.Path, r.Records)
		default:
			_, _ = fmt.Fprintf(w, "%s %s (%s, %d records)\n", loaded("load"), r.Document, r.Path, r.Records)
		}
	}
}
