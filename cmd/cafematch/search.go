package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/cafematch"
	"github.com/kailas-cloud/cafematch/internal/config"
)

var (
	flagSearchFallback bool
	flagSearchCatalog  string
	flagSearchJSON     bool
	flagSearchLimit    int
)

func init() {
	searchCmd.Flags().BoolVar(&flagSearchFallback, "fallback", false, "skip the remote relevance service and use the keyword heuristic")
	searchCmd.Flags().StringVar(&flagSearchCatalog, "catalog", "", "catalog JSON file (overrides catalog.path)")
	searchCmd.Flags().BoolVar(&flagSearchJSON, "json", false, "print results as JSON")
	searchCmd.Flags().IntVarP(&flagSearchLimit, "limit", "n", 0, "print at most n results (0 = all)")

	rootCmd.AddCommand(searchCmd)
}

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Rank the catalog against a query once",
	Long: `Rank the catalog against a query with the configured relevance service
and print the matches, best first, with their 0-10 display score.

	Examples:
	  cafematch search "quiet place to study"
	  cafematch search --fallback "matcha"
	  cafematch search --catalog ./cafes.json --json "outdoor brunch"`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(environment())
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		catalogPath := cfg.Catalog.Path
		if flagSearchCatalog != "" {
			catalogPath = flagSearchCatalog
		}

		opts := []cafematch.Option{
			cafematch.WithCatalogFile(catalogPath),
			cafematch.WithRelevance(cfg.Relevance.APIKey, cfg.Relevance.BaseURL, cfg.Relevance.Model),
			cafematch.WithRelevanceTimeout(time.Duration(cfg.Relevance.TimeoutSec) * time.Second),
			cafematch.WithCandidateLimit(cfg.Fallback.CandidateLimit),
			cafematch.WithPolicy(cafematch.Policy{
				ForceFallback:       cfg.Fallback.Force || flagSearchFallback,
				OnMalformed:         cfg.Fallback.RecoverMalformed(),
				OnUnavailable:       cfg.Fallback.OnUnavailable,
				OnMissingCredential: cfg.Fallback.OnMissingCredential,
			}),
		}
		if cfg.Cache.Enabled() {
			opts = append(opts, cafematch.WithRedisCache(cfg.Cache.Addrs[0], cfg.Cache.Password,
				time.Duration(cfg.Cache.TTLSec)*time.Second))
		}

		client, err := cafematch.New(opts...)
		if err != nil {
			return err
		}
		defer client.Close()

		res, err := client.Search(cmd.Context(), strings.Join(args, " "))
		if err != nil {
			return err
		}
		if flagSearchLimit > 0 && len(res.Matches) > flagSearchLimit {
			res.Matches = res.Matches[:flagSearchLimit]
		}

		if flagSearchJSON {
			return printJSON(cmd.OutOrStdout(), res)
		}
		return printTable(cmd.OutOrStdout(), res)
	},
}

type jsonMatch struct {
	ID    int     `json:"id"`
	Name  string  `json:"name"`
	Score float64 `json:"score"`
}

func printJSON(w io.Writer, res cafematch.Results) error {
	out := struct {
		Query   string      `json:"query"`
		Source  string      `json:"source"`
		Matches []jsonMatch `json:"matches"`
	}{Query: res.Query, Source: string(res.Source), Matches: make([]jsonMatch, len(res.Matches))}
	for i, m := range res.Matches {
		out.Matches[i] = jsonMatch{ID: m.Cafe.ID, Name: m.Cafe.Name, Score: m.Score}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func printTable(w io.Writer, res cafematch.Results) error {
	if len(res.Matches) == 0 {
		_, err := fmt.Fprintln(w, "No matching cafés.")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "SCORE\tID\tNAME\tPRICE\n")
	for _, m := range res.Matches {
		fmt.Fprintf(tw, "%.1f\t%d\t%s\t%s\n", m.Score, m.Cafe.ID, m.Cafe.Name, m.Cafe.Price())
	}
	fmt.Fprintf(tw, "\n(%d results, source: %s)\n", len(res.Matches), res.Source)
	return tw.Flush()
}
