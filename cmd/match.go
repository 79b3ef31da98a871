package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/hh-matcher/internal/headhunter"
	"github.com/spigell/hh-matcher/internal/indexing"
	"github.com/spigell/hh-matcher/internal/logger"
	"github.com/spigell/hh-matcher/internal/matching"
	"github.com/spigell/hh-matcher/internal/pipelineerr"
)

type matchOptions struct {
	Direction   string
	File        string
	Index       string
	Corpus      string
	InitialTopK int
	FinalTopK   int
	// HHResume is the title of one of the user's hh.ru resumes. An empty
	// title with HHResumeSet opens an interactive picker.
	HHResume    string
	HHResumeSet bool
	HHVacancy   string
}

var matchOpts matchOptions

var matchCmd = &cobra.Command{
	Use:   "match",
	Short: "Find the best jobs for a resume or the best resumes for a job",
	Run: func(cmd *cobra.Command, _ []string) {
		matchOpts.HHResumeSet = cmd.Flags().Changed("hh-resume")
		match(cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(matchCmd)

	matchCmd.Flags().StringVar(&matchOpts.Direction, "direction", "resume", "resume (find jobs for a resume) or job (find resumes for a job)")
	matchCmd.Flags().StringVarP(&matchOpts.File, "file", "f", "", "file with the source text, - for stdin")
	matchCmd.Flags().StringVar(&matchOpts.Index, "index", "", "index to search (default from indexes config by direction)")
	matchCmd.Flags().StringVar(&matchOpts.Corpus, "corpus", "", "JSON documents to index into the searched index before matching")
	matchCmd.Flags().IntVar(&matchOpts.InitialTopK, "initial-top-k", 0, "candidates fetched from vector search (0 uses the configured default)")
	matchCmd.Flags().IntVar(&matchOpts.FinalTopK, "final-top-k", 0, "results returned after reranking (0 uses the configured default)")
	matchCmd.Flags().StringVar(&matchOpts.HHResume, "hh-resume", "", "use one of your hh.ru resumes as the source, empty value to choose interactively")
	matchCmd.Flags().StringVar(&matchOpts.HHVacancy, "hh-vacancy", "", "use the hh.ru vacancy with this id as the source")
}

func match(out io.Writer) {
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

	logger.Info("starting the hh-matcher", zap.String("version", version), zap.String("mode", config.Mode))

	if err := runMatch(ctx, config, matchOpts, out, logger); err != nil {
		logger.Fatal("matching failed", failureFields(err)...)
	}
}

func runMatch(ctx context.Context, config *Config, opts matchOptions, out io.Writer, log *zap.Logger) error {
	direction, err := matching.ParseDirection(opts.Direction)
	if err != nil {
		return err
	}

	indexName := opts.Index
	if indexName == "" {
		indexName = config.indexFor(direction)
	}

	p, err := newPipeline(ctx, config, log)
	if err != nil {
		return err
	}
	defer p.Close()

	if opts.Corpus != "" {
		docs, err := indexing.LoadDocuments(opts.Corpus)
		if err != nil {
			return err
		}
		indexer := indexing.New(p.embedder, p.store, config.Matching.IndexConcurrency, log)
		if _, err := indexer.Index(ctx, indexName, docs); err != nil {
			return fmt.Errorf("indexing corpus: %w", err)
		}
	}

	source, err := sourceText(ctx, config, opts, direction, log)
	if err != nil {
		return err
	}

	results, err := p.matcher.FindTopMatches(ctx, matching.MatchQuery{
		SourceText:  source,
		InitialTopK: opts.InitialTopK,
		FinalTopK:   opts.FinalTopK,
	}, direction, indexName)
	if err != nil {
		return err
	}

	log.Info("found matches", zap.Int("count", len(results)), zap.String("direction", direction.String()))

	pretty, err := json.MarshalIndent(matching.Shape(direction, results), "", "  ")
	if err != nil {
		return fmt.Errorf("encode results: %w", err)
	}

	_, err = fmt.Fprintln(out, string(pretty))
	return err
}

// sourceText returns the text to match from a file, stdin or hh.ru.
func sourceText(ctx context.Context, config *Config, opts matchOptions, direction matching.Direction, log *zap.Logger) (string, error) {
	sources := 0
	for _, set := range []bool{opts.File != "", opts.HHResumeSet || opts.HHResume != "", opts.HHVacancy != ""} {
		if set {
			sources++
		}
	}
	if sources != 1 {
		return "", errors.New("exactly one of --file, --hh-resume or --hh-vacancy is required")
	}

	switch {
	case opts.File == "-":
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("reading stdin: %w", err)
		}
		return string(data), nil
	case opts.File != "":
		data, err := os.ReadFile(opts.File)
		if err != nil {
			return "", fmt.Errorf("reading source file: %w", err)
		}
		return string(data), nil
	}

	hh, err := newHeadhunter(config.Headhunter, log)
	if err != nil {
		return "", err
	}

	if opts.HHVacancy != "" {
		if direction != matching.JobToResumes {
			return "", errors.New("--hh-vacancy requires --direction job")
		}
		vacancy, err := hh.GetVacancy(ctx, opts.HHVacancy)
		if err != nil {
			return "", err
		}
		return vacancy.Text(), nil
	}

	if direction != matching.ResumeToJobs {
		return "", errors.New("--hh-resume requires --direction resume")
	}

	return resumeText(ctx, hh, opts.HHResume, log)
}

func resumeText(ctx context.Context, hh *headhunter.Client, title string, log *zap.Logger) (string, error) {
	resumes, err := hh.GetMineResumes(ctx)
	if err != nil {
		return "", fmt.Errorf("getting mine resumes: %w", err)
	}

	log.Info("getting mine resumes", zap.Int("count", resumes.Len()))

	if strings.TrimSpace(title) == "" {
		if resumes.Len() == 0 {
			return "", errors.New("there are no resumes on hh.ru")
		}

		prompt := promptui.Select{
			Label: "Choose a resume",
			Items: resumes.Titles(),
		}
		if _, title, err = prompt.Run(); err != nil {
			return "", err
		}
	}

	selected := resumes.FindByTitle(title)
	if selected == nil {
		return "", fmt.Errorf("resume with title %q not found (existing titles: %s)", title, strings.Join(resumes.Titles(), ", "))
	}

	details, err := hh.GetResumeDetails(ctx, selected.ID)
	if err != nil {
		return "", fmt.Errorf("getting resume details: %w", err)
	}

	return details.Text()
}

// failureFields adds the failed pipeline stage so operators can tell
// backend outages apart.
func failureFields(err error) []zap.Field {
	fields := []zap.Field{zap.Error(err)}
	if stage := pipelineerr.StageOf(err); stage != "" {
		fields = append(fields, zap.String(logger.FieldStage, string(stage)))
	}
	return fields
}
