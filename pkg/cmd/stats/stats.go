package stats

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"sync/atomic"

	"github.com/MakeNowJust/heredoc/v2"
	dto "github.com/prometheus/client_model/go"
	"github.com/spf13/cobra"

	"github.com/Paintersrp/folio/internal/document"
	"github.com/Paintersrp/folio/internal/metrics"
	"github.com/Paintersrp/folio/internal/state"
	"github.com/Paintersrp/folio/internal/thumbnail"
	"github.com/Paintersrp/folio/pkg/flags"
)

const metricPrefix = "folio_"

func NewCmdStats(s *state.State) *cobra.Command {
	var scan bool

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Print cache and access metrics",
		Long: heredoc.Doc(`
			Prints the counters collected by this process. With --scan every
			workspace document is loaded and thumbnailed first, which reports
			how many documents decode and which thumbnail tiers they need.
		`),
		Example: heredoc.Doc(`
			folio stats --scan
		`),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			if scan {
				size, err := flags.HandleSize(cmd)
				if err != nil {
					return err
				}
				failed, total, err := Scan(cmd, s, size)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Scanned %d documents, %d failed to load\n\n", total, failed)
			}

			fmt.Fprintf(out, "documents cached:  %d\n", s.Documents.Len())
			fmt.Fprintf(out, "thumbnails cached: %d\n", s.Thumbnails.Cache().Len())
			fmt.Fprintf(out, "file grants:       %d\n\n", s.Config.FileTokenCount())

			families, err := metrics.Gatherer().Gather()
			if err != nil {
				return err
			}
			Write(out, families)
			return nil
		},
	}

	cmd.Flags().BoolVar(&scan, "scan", false, "Load and thumbnail every workspace document first")
	flags.AddSize(cmd, 160, 200)

	return cmd
}

// Scan loads and thumbnails the workspace documents on the worker pool.
func Scan(cmd *cobra.Command, s *state.State, size thumbnail.Size) (failed, total int, err error) {
	files, err := s.Workspace.Files(cmd.Context())
	if err != nil {
		return 0, 0, err
	}

	var failures atomic.Int64
	for _, f := range files {
		s.Loader.LoadAsync(f.Path, func(st document.State) {
			if st.Err != nil {
				failures.Add(1)
				fmt.Fprintf(cmd.ErrOrStderr(), "%s: %s\n", f.Rel, document.UserMessage(st.Err))
			}
		})
		s.Thumbnails.GenerateAsync(f.Path, size, func(thumbnail.Result) {})
	}
	s.Settle()

	return int(failures.Load()), len(files), nil
}

// Write prints the folio metric families, one sample per line.
func Write(w io.Writer, families []*dto.MetricFamily) {
	var lines []string
	for _, mf := range families {
		name := mf.GetName()
		if !strings.HasPrefix(name, metricPrefix) {
			continue
		}
		for _, m := range mf.GetMetric() {
			labels := formatLabels(m.GetLabel())
			switch mf.GetType() {
			case dto.MetricType_COUNTER:
				lines = append(lines, fmt.Sprintf("%s%s %g", name, labels, m.GetCounter().GetValue()))
			case dto.MetricType_GAUGE:
				lines = append(lines, fmt.Sprintf("%s%s %g", name, labels, m.GetGauge().GetValue()))
			case dto.MetricType_HISTOGRAM:
				h := m.GetHistogram()
				lines = append(lines,
					fmt.Sprintf("%s_count%s %d", name, labels, h.GetSampleCount()),
					fmt.Sprintf("%s_sum%s %g", name, labels, h.GetSampleSum()),
				)
			}
		}
	}
	sort.Strings(lines)
	for _, line := range lines {
		fmt.Fprintln(w, line)
	}
}

func formatLabels(pairs []*dto.LabelPair) string {
	if len(pairs) == 0 {
		return ""
	}
	parts := make([]string, 0, len(pairs))
	for _, p := range pairs {
		parts = append(parts, fmt.Sprintf("%s=%q", p.GetName(), p.GetValue()))
	}
	return "{" + strings.Join(parts, ",") + "}"
}
