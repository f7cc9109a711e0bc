package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dropsight/dropsight/internal/app"
	"github.com/dropsight/dropsight/internal/domain/association"
)

func newMineCmd(root *rootOptions) *cobra.Command {
	var (
		input         string
		minSupport    float64
		minConfidence float64
		minLift       float64
	)

	cmd := &cobra.Command{
		Use:   "mine",
		Short: "Mine association rules from an order-history JSON file",
		Long:  "Mine reads a JSON array of baskets (each an array of product ids) and\nprints the association rules that clear the thresholds.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.loadConfig()
			if err != nil {
				return err
			}

			transactions, err := readTransactions(input)
			if err != nil {
				return err
			}

			thresholds := app.MiningThresholds(cfg.Engine)
			if cmd.Flags().Changed("min-support") {
				thresholds.MinSupport = minSupport
			}
			if cmd.Flags().Changed("min-confidence") {
				thresholds.MinConfidence = minConfidence
			}
			if cmd.Flags().Changed("min-lift") {
				thresholds.MinLift = minLift
			}

			rules, err := association.Mine(transactions, thresholds)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), rules)
		},
	}

	cmd.Flags().StringVarP(&input, "input", "i", "", "baskets JSON file, or \"-\" for stdin [REQUIRED]")
	cmd.Flags().Float64Var(&minSupport, "min-support", 0, "minimum itemset support in (0,1]")
	cmd.Flags().Float64Var(&minConfidence, "min-confidence", 0, "minimum rule confidence in [0,1]")
	cmd.Flags().Float64Var(&minLift, "min-lift", 0, "minimum rule lift")
	_ = cmd.MarkFlagRequired("input")

	return cmd
}

// readTransactions decodes a JSON array of baskets, each basket an array of
// product ids.
func readTransactions(path string) ([]association.Transaction, error) {
	var baskets [][]string
	if err := readJSONFile(path, &baskets); err != nil {
		return nil, err
	}
	if len(baskets) == 0 {
		return nil, fmt.Errorf("%s contains no baskets", path)
	}
	transactions := make([]association.Transaction, len(baskets))
	for i, items := range baskets {
		transactions[i] = association.Transaction{Items: items}
	}
	return transactions, nil
}
