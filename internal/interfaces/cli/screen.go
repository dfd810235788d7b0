package cli

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/schollz/progressbar/v2"
	"github.com/spf13/cobra"

	"github.com/turtacn/ligandscreen/internal/application/reporting"
	"github.com/turtacn/ligandscreen/internal/application/screening"
	"github.com/turtacn/ligandscreen/internal/config"
	"github.com/turtacn/ligandscreen/internal/infrastructure/ingest"
	"github.com/turtacn/ligandscreen/internal/infrastructure/monitoring/logging"
)

// screenOptions holds the flags of the screen command.  Zero values leave
// the configuration untouched.
type screenOptions struct {
	input        string
	corpus       string
	output       string
	maxCorpus    int
	maxInput     int
	workers      int
	queryWorkers int
	offline      bool
	persist      bool
	upload       bool
	publish      bool
	progress     bool
}

// NewScreenCommand creates the screen command.
func NewScreenCommand() *cobra.Command {
	opts := &screenOptions{}
	cmd := &cobra.Command{
		Use:   "screen",
		Short: "Screen every compound of a query table against the ligand corpus",
		Long: "screen loads the corpus, ranks corpus ligands for each query compound and writes\n" +
			"three artifacts next to --output: the top-5 target matches, the detailed results\n" +
			"and a text analysis report.",
		Example: "  ligandscreen screen --input input/input_chemicals.csv --pdb pdb_ligands.csv --output output/results.csv",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScreen(cmd, opts)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.input, "input", "i", "", "query table (CSV)")
	f.StringVar(&opts.corpus, "corpus", "", "corpus table (CSV)")
	f.StringVar(&opts.corpus, "pdb", "", "alias for --corpus")
	f.StringVarP(&opts.output, "output", "o", "", "base path of the report files")
	f.IntVar(&opts.maxCorpus, "max-corpus", 0, "read at most this many corpus rows (0 = all)")
	f.IntVar(&opts.maxInput, "max-input", 0, "screen at most this many queries (0 = all)")
	f.IntVar(&opts.workers, "workers", 0, "corpus scan shards per query")
	f.IntVar(&opts.queryWorkers, "query-workers", 0, "queries screened concurrently")
	f.BoolVar(&opts.offline, "offline", false, "skip annotation lookups; every identifier is Unknown")
	f.BoolVar(&opts.persist, "persist", false, "store the run in postgres")
	f.BoolVar(&opts.upload, "upload", false, "upload the report files to minio")
	f.BoolVar(&opts.publish, "publish", false, "publish per-query results to kafka")
	f.BoolVar(&opts.progress, "progress", false, "show a progress bar on stderr")
	return cmd
}

// apply copies the flags that were set into cfg.
func (o *screenOptions) apply(cfg *config.Config) {
	if o.input != "" {
		cfg.Ingest.QueryPath = o.input
	}
	if o.corpus != "" {
		cfg.Ingest.CorpusPath = o.corpus
	}
	if o.output != "" {
		cfg.Report.Output = o.output
	}
	if o.maxCorpus > 0 {
		cfg.Ingest.MaxCorpus = o.maxCorpus
	}
	if o.maxInput > 0 {
		cfg.Ingest.MaxQueries = o.maxInput
	}
	if o.workers > 0 {
		cfg.Screening.ScanWorkers = o.workers
	}
	if o.queryWorkers > 0 {
		cfg.Screening.QueryWorkers = o.queryWorkers
	}
	if o.offline {
		cfg.Annotation.Offline = true
	}
}

func runScreen(cmd *cobra.Command, opts *screenOptions) error {
	cc, err := GetCLIContext(cmd)
	if err != nil {
		return err
	}
	cfg := *cc.Config
	opts.apply(&cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}
	logger := cc.Logger
	ctx := cmd.Context()

	a, err := newApp(ctx, &cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	src, err := ingest.OpenQueries(cfg.Ingest.QueryPath, cfg.Ingest.QueryColumns)
	if err != nil {
		return err
	}
	defer src.Close()

	runnerCfg := screening.RunnerConfig{
		Workers:       cfg.Screening.QueryWorkers,
		MaxQueries:    cfg.Ingest.MaxQueries,
		ProgressEvery: cfg.Screening.ProgressEvery,
	}
	var bar *progressbar.ProgressBar
	if opts.progress {
		runnerCfg.OnProgress = func(done, total int) {
			if bar == nil {
				bar = progressbar.NewOptions(total,
					progressbar.OptionSetWriter(cmd.ErrOrStderr()),
					progressbar.OptionSetDescription("screening"),
					progressbar.OptionSetRenderBlankState(true))
			}
			_ = bar.Add(1)
		}
	}

	run, err := screening.NewRunner(a.engine, a.resolver, runnerCfg, logger).Run(ctx, src)
	if bar != nil {
		_ = bar.Finish()
		fmt.Fprintln(cmd.ErrOrStderr())
	}
	if a.metrics != nil {
		a.metrics.RecordRun(err)
	}
	if err != nil {
		return err
	}

	artifacts, err := reporting.NewReporter(logger).Write(cfg.Report.Output, run)
	if err != nil {
		return err
	}

	dispatcher := a.newDispatcher(ctx, sinkSelection{persist: opts.persist, upload: opts.upload, publish: opts.publish})
	if dispatcher.Len() > 0 {
		if err := dispatcher.Deliver(ctx, run, artifacts); err != nil {
			logger.Warn("some sinks failed; reports on disk are complete", logging.Err(err))
		}
	}

	printSummary(cmd.OutOrStdout(), run, artifacts)
	return nil
}

// printSummary writes the per-query overview and the artifact paths.
func printSummary(w io.Writer, run *screening.Run, artifacts reporting.Artifacts) {
	s := run.Summary
	fmt.Fprintf(w, "Run %s: %s queries against %s corpus records in %s\n",
		s.RunID,
		humanize.Comma(s.Engine.QueriesSeen),
		humanize.Comma(int64(s.Corpus.Valid)),
		s.Duration.Round(time.Millisecond))
	fmt.Fprintf(w, "Matched %s, fallbacks %s, escalations %s, invalid %s, comparisons %s\n\n",
		humanize.Comma(s.Engine.QueriesMatched),
		humanize.Comma(s.Engine.Fallbacks),
		humanize.Comma(s.Engine.Escalations),
		humanize.Comma(s.Engine.QueriesInvalid),
		humanize.Comma(s.Engine.Comparisons))

	rows := make([][]string, 0, len(run.Results))
	for _, r := range run.Results {
		best, score := "-", "-"
		if len(r.Matches) > 0 {
			best = r.Matches[0].Identifier
			score = strconv.FormatFloat(r.Matches[0].Score, 'f', -1, 64)
		}
		name := r.Query.Name
		if name == "" {
			name = "#" + strconv.Itoa(r.Index+1)
		}
		rows = append(rows, []string{
			name,
			string(r.Outcome),
			strconv.Itoa(len(r.TargetMatches())),
			best,
			score,
		})
	}
	fmt.Fprint(w, FormatTable([]string{"QUERY", "OUTCOME", "TARGETS", "BEST", "SCORE"}, rows))

	fmt.Fprintln(w)
	for _, p := range artifacts.Paths() {
		fmt.Fprintf(w, "wrote %s\n", p)
	}
}

//Personal.AI order the ending
