package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/samvad-hq/samvad-news-curator/internal/domain"
	"github.com/samvad-hq/samvad-news-curator/pkg/curation"
	"github.com/samvad-hq/samvad-news-curator/pkg/imageprobe"
)

type curateOptions struct {
	file        string
	limit       int
	concurrency int
}

func curateCommand() *cobra.Command {
	opts := curateOptions{}
	cmd := &cobra.Command{
		Use:   "curate",
		Short: "Curate a JSON file of candidate articles and print the result",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, done, err := setup(os.Stderr)
			if err != nil {
				return err
			}
			defer done()

			in, err := openInput(opts.file)
			if err != nil {
				return err
			}
			defer in.Close()

			candidates, err := readCandidates(in)
			if err != nil {
				return err
			}

			prober := imageprobe.New(nil, imageprobe.Options{
				Timeout:   cfg.ProbeTimeout,
				UserAgent: cfg.ProbeUserAgent,
				HostRPS:   cfg.ProbeHostRPS,
				HostBurst: cfg.ProbeHostBurst,
			})
			curator := curation.New(prober, curation.Options{Concurrency: opts.concurrency}, log)
			curated := curator.Curate(cmd.Context(), candidates, opts.limit)

			log.InfoObj("curation finished", "curate_result", map[string]any{
				"candidates": len(candidates),
				"curated":    len(curated),
				"limit":      opts.limit,
			})
			return writeArticles(cmd.OutOrStdout(), curated)
		},
	}

	cmd.Flags().StringVarP(&opts.file, "file", "f", "-", "candidates JSON file (- for stdin)")
	cmd.Flags().IntVar(&opts.limit, "limit", curation.DefaultLimit, "maximum number of curated articles")
	cmd.Flags().IntVar(&opts.concurrency, "concurrency", curation.DefaultConcurrency, "maximum image probes in flight")
	return cmd
}

func openInput(path string) (io.ReadCloser, error) {
	if path == "" || path == "-" {
		return io.NopCloser(os.Stdin), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open candidates file: %w", err)
	}
	return f, nil
}

// readCandidates accepts either a bare JSON array of articles or an object
// with an "articles" array, as returned by news APIs.
func readCandidates(r io.Reader) ([]domain.Article, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read candidates: %w", err)
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, nil
	}

	if raw[0] == '[' {
		var list []domain.Article
		if err := json.Unmarshal(raw, &list); err != nil {
			return nil, fmt.Errorf("decode candidates: %w", err)
		}
		return list, nil
	}

	var envelope struct {
		Articles []domain.Article `json:"articles"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, fmt.Errorf("decode candidates: %w", err)
	}
	return envelope.Articles, nil
}

func writeArticles(w io.Writer, articles []domain.Article) error {
	if articles == nil {
		articles = []domain.Article{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(articles); err != nil {
		return fmt.Errorf("write curated articles: %w", err)
	}
	return nil
}
