package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dropsight/dropsight/internal/app"
	apprec "github.com/dropsight/dropsight/internal/application/recommendation"
	"github.com/dropsight/dropsight/internal/domain/association"
	"github.com/dropsight/dropsight/internal/domain/product"
)

func newBundleCmd(root *rootOptions) *cobra.Command {
	var (
		transactionsPath string
		catalogPath      string
		seeds            string
		maxBundles       int
	)

	cmd := &cobra.Command{
		Use:   "bundle",
		Short: "Build product bundles from order history and a catalog",
		Long:  "Bundle mines the given order history, then grows discounted bundles\naround the seed products.  The catalog file is a JSON array of entries\nwith id, name, category, price, and popularity.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.loadConfig()
			if err != nil {
				return err
			}
			log, err := newLogger(cfg)
			if err != nil {
				return err
			}

			transactions, err := readTransactions(transactionsPath)
			if err != nil {
				return err
			}
			var entries []product.CatalogEntry
			if err := readJSONFile(catalogPath, &entries); err != nil {
				return err
			}

			seedIDs := splitSeeds(seeds)
			if len(seedIDs) == 0 {
				return fmt.Errorf("at least one seed product id is required")
			}

			svc, err := apprec.NewService(
				association.SliceSource(transactions),
				product.NewStaticCatalog(entries),
				app.MiningThresholds(cfg.Engine),
				app.RecommendationConfig(cfg.Engine),
				log,
			)
			if err != nil {
				return err
			}

			bundles, err := svc.Bundles(cmd.Context(), seedIDs, maxBundles, false)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), bundles)
		},
	}

	cmd.Flags().StringVarP(&transactionsPath, "transactions", "t", "", "baskets JSON file [REQUIRED]")
	cmd.Flags().StringVar(&catalogPath, "catalog", "", "catalog JSON file [REQUIRED]")
	cmd.Flags().StringVar(&seeds, "seeds", "", "comma-separated seed product ids [REQUIRED]")
	cmd.Flags().IntVar(&maxBundles, "max-bundles", 3, "maximum bundles to return")
	_ = cmd.MarkFlagRequired("transactions")
	_ = cmd.MarkFlagRequired("catalog")
	_ = cmd.MarkFlagRequired("seeds")

	return cmd
}

func splitSeeds(s string) []string {
	parts := strings.Split(s, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
