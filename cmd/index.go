package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/spigell/hh-matcher/internal/headhunter"
	"github.com/spigell/hh-matcher/internal/indexing"
	"github.com/spigell/hh-matcher/internal/logger"
)

const (
	kindJobs    = "jobs"
	kindResumes = "resumes"
)

type indexOptions struct {
	Kind    string
	File    string
	Index   string
	FromHH  bool
	Details bool
}

var indexOpts indexOptions

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Embed documents and store them in a vector index",
	Run: func(_ *cobra.Command, _ []string) {
		index()
	},
}

func init() {
	rootCmd.AddCommand(indexCmd)

	indexCmd.Flags().StringVar(&indexOpts.Kind, "kind", kindJobs, "jobs or resumes")
	indexCmd.Flags().StringVarP(&indexOpts.File, "file", "f", "", "JSON array of documents ({id, title, text, metadata})")
	indexCmd.Flags().StringVar(&indexOpts.Index, "index", "", "target index (default from indexes config by kind)")
	indexCmd.Flags().BoolVar(&indexOpts.FromHH, "from-hh", false, "index vacancies found with the configured hh.ru search")
	indexCmd.Flags().BoolVar(&indexOpts.Details, "details", false, "fetch full vacancy descriptions (one request per vacancy)")
}

func index() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}
	defer logger.Sync()

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	count, err := runIndex(ctx, config, indexOpts, logger)
	if err != nil {
		logger.Fatal("indexing failed", failureFields(err)...)
	}

	logger.Info("indexing finished", zap.Int("count", count))
}

func runIndex(ctx context.Context, config *Config, opts indexOptions, log *zap.Logger) (int, error) {
	indexName := opts.Index
	switch {
	case indexName != "":
	case opts.Kind == kindJobs:
		indexName = config.Indexes.Jobs
	case opts.Kind == kindResumes:
		indexName = config.Indexes.Resumes
	default:
		return 0, fmt.Errorf("unknown kind %q (expected jobs or resumes)", opts.Kind)
	}

	if (opts.File == "") == !opts.FromHH {
		return 0, errors.New("exactly one of --file or --from-hh is required")
	}

	var docs []indexing.Document
	if opts.File != "" {
		loaded, err := indexing.LoadDocuments(opts.File)
		if err != nil {
			return 0, err
		}
		docs = loaded
	} else {
		if opts.Kind != kindJobs {
			return 0, errors.New("--from-hh only supports --kind jobs")
		}
		fetched, err := vacancyDocuments(ctx, config, opts.Details, log)
		if err != nil {
			return 0, err
		}
		docs = fetched
	}

	if len(docs) == 0 {
		log.Info("nothing to index")
		return 0, nil
	}

	p, err := newPipeline(ctx, config, log)
	if err != nil {
		return 0, err
	}
	defer p.Close()

	records, err := indexing.New(p.embedder, p.store, config.Matching.IndexConcurrency, log).Index(ctx, indexName, docs)
	if err != nil {
		return 0, err
	}

	return len(records), nil
}

// vacancyDocuments runs the configured hh.ru search and converts the found
// vacancies into documents.
func vacancyDocuments(ctx context.Context, config *Config, details bool, log *zap.Logger) ([]indexing.Document, error) {
	hh, err := newHeadhunter(config.Headhunter, log)
	if err != nil {
		return nil, err
	}

	log.Info("starting the search", zap.Any("search", config.Headhunter.Search))

	vacancies, err := hh.Search(ctx, config.Headhunter.Search)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}

	log.Info("getting vacancies", zap.Int("count", vacancies.Len()))

	if details {
		if err := fillDetails(ctx, hh, vacancies, config.Matching.IndexConcurrency); err != nil {
			return nil, err
		}
	}

	docs := make([]indexing.Document, 0, vacancies.Len())
	for _, vacancy := range vacancies.Items {
		docs = append(docs, indexing.Document{
			ID:       vacancy.ID,
			Title:    vacancy.Name,
			Text:     vacancy.Text(),
			Metadata: vacancy.Metadata(),
		})
	}

	return docs, nil
}

func fillDetails(ctx context.Context, hh *headhunter.Client, vacancies *headhunter.Vacancies, concurrency int) error {
	if concurrency <= 0 {
		concurrency = 1
	}

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for i, vacancy := range vacancies.Items {
		g.Go(func() error {
			full, err := hh.GetVacancy(gCtx, vacancy.ID)
			if err != nil {
				return err
			}
			vacancies.Items[i] = full
			return nil
		})
	}

	return g.Wait()
}
