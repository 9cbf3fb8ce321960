package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/fxnatic/filehash-go/config"
	"github.com/fxnatic/filehash-go/solver"
)

type rootFlags struct {
	configPath   string
	logLevel     string
	logFormat    string
	wrapperIndex int
	timeout      time.Duration
	asJSON       bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}
	cfg := config.Default()

	root := &cobra.Command{
		Use:           "filehash",
		Short:         "Compute the file hash embedded in obfuscated sensor bundles",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			loaded, err := config.Load(flags.configPath)
			if err != nil {
				return err
			}
			*cfg = *loaded

			pf := cmd.Flags()
			if pf.Changed("log-level") {
				cfg.LogLevel = flags.logLevel
			}
			if pf.Changed("log-format") {
				cfg.LogFormat = flags.logFormat
			}
			if pf.Changed("wrapper-index") {
				cfg.WrapperIndex = flags.wrapperIndex
			}
			if pf.Changed("timeout") {
				cfg.Timeout = flags.timeout
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			return cfg.ConfigureLogger()
		},
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&flags.configPath, "config", "c", "", "path to a YAML config file")
	pf.StringVar(&flags.logLevel, "log-level", cfg.LogLevel, "log level (trace, debug, info, warn, error)")
	pf.StringVar(&flags.logFormat, "log-format", cfg.LogFormat, "log format (text, json)")
	pf.IntVar(&flags.wrapperIndex, "wrapper-index", cfg.WrapperIndex, "top-level statement index of the bundle wrapper")
	pf.DurationVar(&flags.timeout, "timeout", cfg.Timeout, "per bundle extraction timeout (0 disables)")
	pf.BoolVar(&flags.asJSON, "json", false, "print results as JSON")

	root.AddCommand(
		newExtractCmd(cfg, flags),
		newBatchCmd(cfg, flags),
		newFetchCmd(cfg, flags),
	)
	return root
}

func newExtractCmd(cfg *config.Config, flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "extract <bundle.js>...",
		Short: "Compute the hash of local bundle files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			results := solver.Batch(cmd.Context(), args, solver.BatchOptions{
				Workers: 1,
				Timeout: cfg.Timeout,
				Options: cfg.SolverOptions(),
			})
			return printResults(results, flags.asJSON, false)
		},
	}
}

func newBatchCmd(cfg *config.Config, flags *rootFlags) *cobra.Command {
	var (
		verify  bool
		workers int
		include string
	)

	cmd := &cobra.Command{
		Use:   "batch <dir|file>...",
		Short: "Compute hashes for every bundle under the given paths",
		Long: `Walks the given directories, selects files by the include glob and computes
their hashes concurrently. With --verify, a bundle named after its expected hash
(for example 9975588.js) is reported as passed or failed.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("workers") {
				cfg.Workers = workers
			}
			if cmd.Flags().Changed("include") {
				cfg.Include = include
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			var files []string
			for _, arg := range args {
				found, err := solver.CollectFiles(arg, cfg.Include)
				if err != nil {
					return err
				}
				files = append(files, found...)
			}
			log.WithField("files", len(files)).Debug("collected bundles")

			results := solver.Batch(cmd.Context(), files, solver.BatchOptions{
				Workers: cfg.Workers,
				Timeout: cfg.Timeout,
				Options: cfg.SolverOptions(),
			})
			return printResults(results, flags.asJSON, verify)
		},
	}

	cmd.Flags().BoolVar(&verify, "verify", false, "compare each hash with the numeric file name")
	cmd.Flags().IntVarP(&workers, "workers", "w", cfg.Workers, "concurrent extractions")
	cmd.Flags().StringVar(&include, "include", cfg.Include, "glob matched against file names")
	return cmd
}

func newFetchCmd(cfg *config.Config, flags *rootFlags) *cobra.Command {
	var save string

	cmd := &cobra.Command{
		Use:   "fetch <host-url>",
		Short: "Download the bundle referenced by a host's login page and compute its hash",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := cfg.FetchOptions()
			opts.Logger = log.NewEntry(log.StandardLogger())

			f, err := solver.NewFetcher(args[0], opts)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			if cfg.Timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
				defer cancel()
			}

			src, err := f.FetchBundle(ctx)
			if err != nil {
				return err
			}
			if save != "" {
				if err := os.WriteFile(save, []byte(src), 0o644); err != nil {
					return fmt.Errorf("failed to save bundle: %w", err)
				}
			}

			res := solver.BatchResult{File: args[0]}
			res.Hash, res.Err = solver.FileHash(ctx, src, cfg.SolverOptions()...)
			return printResults([]solver.BatchResult{res}, flags.asJSON, false)
		},
	}

	cmd.Flags().StringVarP(&save, "save", "o", "", "also write the downloaded bundle to this path")
	return cmd
}

func printResults(results []solver.BatchResult, asJSON, verify bool) error {
	failed := 0
	for _, r := range results {
		if r.Err != nil || (verify && r.HasExpected && !r.Passed()) {
			failed++
		}
	}

	if asJSON {
		out := make([]interface{}, 0, len(results))
		for _, r := range results {
			out = append(out, solver.ResultJSON(r, verify))
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(out); err != nil {
			return err
		}
	} else {
		for _, r := range results {
			printResult(r, verify)
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d bundles failed", failed, len(results))
	}
	return nil
}

func printResult(r solver.BatchResult, verify bool) {
	switch {
	case r.Err != nil:
		fmt.Printf("[FAILED] %s - %v\n", r.File, r.Err)
	case verify && r.HasExpected && !r.Passed():
		fmt.Printf("[FAILED] %s - Hash : %s (expected %s)\n", r.File, solver.FormatHash(r.Hash), solver.FormatHash(r.Expected))
	case verify && r.HasExpected:
		fmt.Printf("[PASSED] %s - Hash : %s\n", r.File, solver.FormatHash(r.Hash))
	default:
		fmt.Printf("%s\t%s\n", r.File, solver.FormatHash(r.Hash))
	}
}
