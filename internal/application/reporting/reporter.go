// Package reporting turns a screening run into the three artifacts analysts
// consume: a top-5 target table, a per-match detail table and a plain-text
// analysis report.
package reporting

import (
	"bufio"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/turtacn/ligandscreen/internal/application/screening"
	"github.com/turtacn/ligandscreen/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ligandscreen/pkg/errors"
)

// Artifacts are the paths of one run's report files.
type Artifacts struct {
	Top5     string `json:"top5"`
	Detailed string `json:"detailed"`
	Analysis string `json:"analysis"`
}

// Paths lists the artifacts in write order.
func (a Artifacts) Paths() []string {
	return []string{a.Top5, a.Detailed, a.Analysis}
}

// ArtifactPaths derives the artifact names from the requested output path:
// results.csv becomes results_top5_targets.csv and so on.
func ArtifactPaths(output string) Artifacts {
	base := output
	if ext := filepath.Ext(base); strings.EqualFold(ext, ".csv") {
		base = strings.TrimSuffix(base, ext)
	}
	return Artifacts{
		Top5:     base + "_top5_targets.csv",
		Detailed: base + "_detailed_results.csv",
		Analysis: base + "_analysis_report.txt",
	}
}

// Reporter writes run artifacts to disk.
type Reporter struct {
	logger logging.Logger
	now    func() time.Time
}

// NewReporter returns a Reporter.  logger may be nil.
func NewReporter(logger logging.Logger) *Reporter {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Reporter{logger: logger, now: time.Now}
}

// Write renders all three artifacts next to output.
func (r *Reporter) Write(output string, run *screening.Run) (Artifacts, error) {
	a := ArtifactPaths(output)
	if dir := filepath.Dir(a.Top5); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return a, errors.Wrap(err, errors.ErrCodeReportFailed, "create output directory").WithDetail(dir)
		}
	}
	now := r.now()
	steps := []struct {
		path  string
		write func(io.Writer) error
	}{
		{a.Top5, func(w io.Writer) error { return WriteTop5(w, run.Results) }},
		{a.Detailed, func(w io.Writer) error { return WriteDetailed(w, run.Results, run.Summary.FinishedAt) }},
		{a.Analysis, func(w io.Writer) error { return WriteAnalysis(w, run, now) }},
	}
	for _, s := range steps {
		if err := writeFile(s.path, s.write); err != nil {
			return a, errors.Wrap(err, errors.ErrCodeReportFailed, "write report").WithDetail(s.path)
		}
	}
	r.logger.Info("reports written",
		logging.String("run_id", run.Summary.RunID),
		logging.String("top5", a.Top5),
		logging.String("detailed", a.Detailed),
		logging.String("analysis", a.Analysis))
	return a, nil
}

func writeFile(path string, fn func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	bw := bufio.NewWriter(f)
	if err := fn(bw); err != nil {
		_ = f.Close()
		return err
	}
	if err := bw.Flush(); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

//Personal.AI order the ending
