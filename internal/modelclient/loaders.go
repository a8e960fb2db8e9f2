package modelclient

import (
	"context"

	"github.com/tedgoddard/Stanford/internal/config"
	"github.com/tedgoddard/Stanford/internal/nlp"
	"github.com/tedgoddard/Stanford/internal/registry"
)

// Loaders returns registry loaders for the models named in cfg. The
// dependency parser loader is omitted when it is disabled.
func (c *Client) Loaders(cfg *config.Config) registry.Loaders {
	l := registry.Loaders{
		Parser: func(ctx context.Context) (nlp.Parser, error) {
			return c.LoadParser(ctx, cfg.ParserModel)
		},
		Tagger: func(ctx context.Context) (nlp.Tagger, error) {
			return c.LoadTagger(ctx, cfg.TaggerModel)
		},
		Splitter: c.LoadSplitter,
	}
	if !cfg.DisableDepParse {
		l.DependencyParser = func(ctx context.Context) (nlp.DependencyParser, error) {
			return c.LoadDependencyParser(ctx, cfg.DepParseModel)
		}
	}
	return l
}
