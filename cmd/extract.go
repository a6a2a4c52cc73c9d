package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/contract-extract/internal/annotate"
	"github.com/sells-group/contract-extract/internal/model"
	"github.com/sells-group/contract-extract/internal/pipeline"
	anthropicpkg "github.com/sells-group/contract-extract/pkg/anthropic"
	"github.com/sells-group/contract-extract/pkg/mistral"
)

var (
	extractDir    string
	extractPDF    string
	extractFormat string
	extractOut    string
	extractReport bool
)

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Extract terms from one scanned contract packet",
	Long:  "Reads a directory of page images (sorted by filename, one image per page), runs the extraction pipeline, and writes the result as JSON or YAML.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		pages, err := loadPages(extractDir)
		if err != nil {
			return err
		}

		source, err := buildSource()
		if err != nil {
			return err
		}

		client := anthropicpkg.NewClient(cfg.Anthropic.Key)
		p := pipeline.New(client, cfg, source)

		result, err := p.Extract(ctx, pages)
		if err != nil {
			return eris.Wrap(err, "extract packet")
		}

		if err := writeResult(result); err != nil {
			return err
		}

		if extractReport {
			fmt.Println(formatReport(result))
		}

		if result.NeedsReview {
			zap.L().Warn("result flagged for review",
				zap.Strings("errors", result.Validation.Errors),
				zap.Strings("warnings", result.Validation.Warnings))
		}
		return nil
	},
}

// buildSource picks the extraction backend from config. The document
// backend additionally needs the assembled packet PDF.
func buildSource() (pipeline.RecordSource, error) {
	if cfg.Pipeline.Backend != "document" {
		return nil, nil // pipeline defaults to vision
	}
	if extractPDF == "" {
		return nil, eris.New("document backend requires --pdf")
	}
	doc, err := os.ReadFile(extractPDF)
	if err != nil {
		return nil, eris.Wrapf(err, "read packet PDF %s", extractPDF)
	}
	mc := mistral.NewClient(cfg.Mistral.Key, mistralOptions()...)
	return annotate.NewSource(mc, cfg.Mistral, cfg.Pipeline.AnnotatePageLimit, doc, filepath.Base(extractPDF)), nil
}

func mistralOptions() []mistral.Option {
	if cfg.Mistral.BaseURL == "" {
		return nil
	}
	return []mistral.Option{mistral.WithBaseURL(cfg.Mistral.BaseURL)}
}

var imageMediaTypes = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".webp": "image/webp",
	".gif":  "image/gif",
}

// loadPages reads every recognized image in dir, sorted by filename,
// as consecutive packet pages.
func loadPages(dir string) ([]model.Page, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, eris.Wrapf(err, "read page directory %s", dir)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if _, ok := imageMediaTypes[strings.ToLower(filepath.Ext(e.Name()))]; ok {
			names = append(names, e.Name())
		}
	}
	if len(names) == 0 {
		return nil, eris.Errorf("no page images found in %s", dir)
	}
	sort.Strings(names)

	pages := make([]model.Page, 0, len(names))
	for i, name := range names {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, eris.Wrapf(err, "read page image %s", name)
		}
		pages = append(pages, model.Page{
			PageNumber: i + 1,
			Image:      data,
			MediaType:  imageMediaTypes[strings.ToLower(filepath.Ext(name))],
		})
	}
	return pages, nil
}

func writeResult(result *model.ExtractionResult) error {
	var out []byte
	var err error
	switch extractFormat {
	case "json":
		out, err = json.MarshalIndent(result, "", "  ")
	case "yaml":
		out, err = yaml.Marshal(result)
	default:
		return eris.Errorf("unknown output format %q (json or yaml)", extractFormat)
	}
	if err != nil {
		return eris.Wrap(err, "marshal result")
	}

	if extractOut == "" || extractOut == "-" {
		fmt.Println(string(out))
		return nil
	}
	if err := os.WriteFile(extractOut, out, 0o644); err != nil {
		return eris.Wrapf(err, "write result to %s", extractOut)
	}
	zap.L().Info("result written", zap.String("path", extractOut))
	return nil
}

func init() {
	extractCmd.Flags().StringVar(&extractDir, "dir", "", "directory of page images (required)")
	extractCmd.Flags().StringVar(&extractPDF, "pdf", "", "assembled packet PDF (document backend only)")
	extractCmd.Flags().StringVar(&extractFormat, "format", "json", "output format: json or yaml")
	extractCmd.Flags().StringVar(&extractOut, "out", "", "output file (default stdout)")
	extractCmd.Flags().BoolVar(&extractReport, "report", false, "print a human-readable summary")
	_ = extractCmd.MarkFlagRequired("dir")
	rootCmd.AddCommand(extractCmd)
}
