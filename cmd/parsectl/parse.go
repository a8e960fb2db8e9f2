package main

import (
	"encoding/json"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/tedgoddard/Stanford/internal/parse"
)

var (
	posTags []string
	simple  bool
)

var parseCmd = &cobra.Command{
	Use:   "parse <text>",
	Short: "Parse text and print the JSON response",
	Example: `  parsectl parse "The dog runs."
  parsectl parse "The dog runs." --pos-tags ,VB
  parsectl parse --simple "The dog runs."`,
	Args: cobra.MinimumNArgs(1),
	RunE: runParse,
}

func init() {
	parseCmd.Flags().StringSliceVar(&posTags, "pos-tags", nil, "comma separated tag overrides by token index; empty entries keep the tagger's tag")
	parseCmd.Flags().BoolVar(&simple, "simple", false, "only run PCFG and print tree and dependencies")
}

func runParse(cmd *cobra.Command, args []string) error {
	cfg, models, logger, err := setup()
	if err != nil {
		return err
	}
	defer logger.Sync()

	engine := parse.NewEngine(models, parse.OptionsFromConfig(cfg), logger)
	text := strings.Join(args, " ")

	var out interface{}
	if simple {
		out, err = engine.ParseSimple(cmd.Context(), text)
	} else {
		out, err = engine.Parse(cmd.Context(), parse.Request{Text: text, Overrides: parse.TagOverrides(posTags)})
	}
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
