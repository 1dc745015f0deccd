package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/legaltts/legaltts/internal/pipeline"
)

var doctorCmd = &cobra.Command{
	Use:     "doctor",
	Short:   "Check that the speech, language and recognition services are ready",
	Example: paragraph("legaltts doctor\nlegaltts doctor --model gemma3:4b --transcriber whisper"),
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, cancel := signalContext(cmd)
		defer cancel()

		p, err := pipeline.New(cfg)
		if err != nil {
			return err //nolint:wrapcheck
		}
		defer p.Close() //nolint:errcheck

		results := p.Check(ctx)
		fmt.Println(checkReport(results))
		if !pipeline.Ready(results) {
			return fmt.Errorf("%d of %d checks failed", failed(results), len(results))
		}
		return nil
	},
}

func failed(results []pipeline.CheckResult) int {
	n := 0
	for _, r := range results {
		if !r.Available {
			n++
		}
	}
	return n
}

func checkReport(results []pipeline.CheckResult) string {
	var b strings.Builder
	for _, r := range results {
		if r.Available {
			fmt.Fprintf(&b, "%s %s\n", keyword("✓"), r.Component)
		} else {
			fmt.Fprintf(&b, "%s %s: %s\n", warn("✗"), r.Component, r.Error)
		}

		keys := make([]string, 0, len(r.Details))
		for k := range r.Details {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			b.WriteString(faint(fmt.Sprintf("    %s: %s", k, r.Details[k])) + "\n")
		}
		if r.Guidance != "" {
			b.WriteString("\n" + indent(r.Guidance, "    ") + "\n\n")
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func indent(s, prefix string) string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		if l != "" {
			lines[i] = prefix + l
		}
	}
	return strings.Join(lines, "\n")
}
