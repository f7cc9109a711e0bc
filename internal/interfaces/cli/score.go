package cli

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dropsight/dropsight/internal/app"
	appscoring "github.com/dropsight/dropsight/internal/application/scoring"
	"github.com/dropsight/dropsight/internal/domain/product"
	"github.com/dropsight/dropsight/internal/domain/scoring"
)

func newScoreCmd(root *rootOptions) *cobra.Command {
	var (
		input          string
		seasonalLaunch bool
	)

	cmd := &cobra.Command{
		Use:   "score",
		Short: "Score products from a JSON file",
		Long:  "Score reads one product record, or an array of records, from a JSON\nfile and prints the score results.  Use \"-\" to read stdin.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.loadConfig()
			if err != nil {
				return err
			}
			log, err := newLogger(cfg)
			if err != nil {
				return err
			}

			records, single, err := readProducts(input)
			if err != nil {
				return err
			}

			engine, err := app.BuildEngine(cfg.Engine, log)
			if err != nil {
				return err
			}
			svc := appscoring.NewService(engine, log, appscoring.WithWorkers(cfg.Engine.Workers))

			opts := scoring.Options{SeasonalLaunch: seasonalLaunch}
			if single {
				result, err := svc.ScoreProduct(cmd.Context(),
					appscoring.Request{Product: records[0], Options: opts}, product.DataSourceBundle{})
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), result)
			}

			reqs := make([]appscoring.Request, len(records))
			for i, rec := range records {
				reqs[i] = appscoring.Request{Product: rec, Options: opts}
			}
			items := svc.ScoreBatch(cmd.Context(), reqs, product.DataSourceBundle{})
			if err := printJSON(cmd.OutOrStdout(), items); err != nil {
				return err
			}
			for _, it := range items {
				if it.Error != "" {
					return fmt.Errorf("%d of %d products failed to score", countFailed(items), len(items))
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&input, "input", "i", "", "product JSON file, or \"-\" for stdin [REQUIRED]")
	cmd.Flags().BoolVar(&seasonalLaunch, "seasonal-launch", false, "evaluate as a seasonal launch")
	_ = cmd.MarkFlagRequired("input")

	return cmd
}

// readProducts accepts either a single record object or an array of records,
// reporting which form it saw so single inputs print a single result.
func readProducts(path string) ([]product.Record, bool, error) {
	var raw json.RawMessage
	if err := readJSONFile(path, &raw); err != nil {
		return nil, false, err
	}
	trimmed := bytes.TrimLeft(raw, " \t\r\n")
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var records []product.Record
		if err := json.Unmarshal(raw, &records); err != nil {
			return nil, false, err
		}
		if len(records) == 0 {
			return nil, false, fmt.Errorf("%s contains no products", path)
		}
		return records, false, nil
	}
	var rec product.Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, false, err
	}
	return []product.Record{rec}, true, nil
}

func countFailed(items []appscoring.BatchItem) int {
	n := 0
	for _, it := range items {
		if it.Error != "" {
			n++
		}
	}
	return n
}
