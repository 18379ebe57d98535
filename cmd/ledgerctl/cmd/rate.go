package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"tradeLedger/internal/domain"
)

type rateView struct {
	Rate    string `json:"rate" yaml:"rate"`
	AsOf    string `json:"asOf" yaml:"asOf"`
	State   string `json:"state" yaml:"state"`
	Source  string `json:"source" yaml:"source"`
	Updated *bool  `json:"updated,omitempty" yaml:"updated,omitempty"`
}

func newRateCmd(rc *rootConfig) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rate",
		Short: "Inspect or refresh the cached exchange rate",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "show",
			Short: "Show the rate summaries are computed with",
			RunE: func(cmd *cobra.Command, args []string) error {
				return rc.renderRate(rc.comp.Trades.RateSnapshot(), nil)
			},
		},
		&cobra.Command{
			Use:   "refresh",
			Short: "Fetch the latest rate from the quote source now",
			RunE: func(cmd *cobra.Command, args []string) error {
				updated := rc.comp.Rates.Refresh(cmd.Context())
				return rc.renderRate(rc.comp.Cache.Current(), &updated)
			},
		},
	)
	return cmd
}

func (rc *rootConfig) renderRate(snap domain.RateSnapshot, updated *bool) error {
	view := rateView{
		Rate:    snap.Rate.String(),
		AsOf:    domain.FormatDate(snap.AsOf),
		State:   string(snap.State),
		Source:  snap.Source,
		Updated: updated,
	}
	return rc.render(view, func(w io.Writer) error {
		fmt.Fprintf(w, "RATE\t%s\n", view.Rate)
		fmt.Fprintf(w, "AS OF\t%s\n", view.AsOf)
		fmt.Fprintf(w, "STATE\t%s\n", view.State)
		fmt.Fprintf(w, "SOURCE\t%s\n", view.Source)
		if updated != nil {
			fmt.Fprintf(w, "UPDATED\t%t\n", *updated)
		}
		return nil
	})
}
