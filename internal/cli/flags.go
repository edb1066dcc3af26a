package cli

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/akasha/internal/repo"
	"github.com/roach88/akasha/internal/timeline"
)

// cubeFlags select one cube. Empty values mean the current period and the
// configured author.
type cubeFlags struct {
	Period string
	Author string
}

func (c *cubeFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&c.Period, "period", "p", "", "cube period, YYYY-MM (default: current month)")
	cmd.Flags().StringVarP(&c.Author, "author", "a", "", "cube author (default: configured username)")
}

func (c *cubeFlags) resolve(r *repo.Repository) (period, author string) {
	period, author = c.Period, c.Author
	if period == "" {
		period = string(r.CurrentPeriod())
	}
	if author == "" {
		author = r.Identity.Author
	}
	return period, author
}

// filterFlags build a timeline.Filter.
type filterFlags struct {
	Kinds []string
	Since string
	Until string
	Grep  string
	Where string
}

func (f *filterFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringSliceVarP(&f.Kinds, "kind", "k", nil, "only these kinds (repeatable)")
	cmd.Flags().StringVar(&f.Since, "since", "", "only events at or after this time")
	cmd.Flags().StringVar(&f.Until, "until", "", "only events before this time")
	cmd.Flags().StringVarP(&f.Grep, "grep", "g", "", "only events whose summary or body contains text")
	cmd.Flags().StringVar(&f.Where, "where", "", `CEL predicate, e.g. 'kind == "fix" && body.contains("parser")'`)
}

func (f *filterFlags) build(loc *time.Location) (timeline.Filter, error) {
	filter := timeline.Filter{Kinds: f.Kinds, Text: f.Grep, Where: f.Where}
	var err error
	if f.Since != "" {
		if filter.Since, err = timeline.ParseInstant(f.Since, loc); err != nil {
			return timeline.Filter{}, WrapExitError(ExitCommandError, "invalid --since", err)
		}
	}
	if f.Until != "" {
		if filter.Until, err = timeline.ParseInstant(f.Until, loc); err != nil {
			return timeline.Filter{}, WrapExitError(ExitCommandError, "invalid --until", err)
		}
	}
	if _, err := filter.Compile(); err != nil {
		return timeline.Filter{}, WrapExitError(ExitCommandError, "invalid filter", err)
	}
	return filter, nil
}

func registerTimeFlag(cmd *cobra.Command) {
	cmd.Flags().String("time", "", "timestamp display: local, utc or iso8601 (default from config)")
}
