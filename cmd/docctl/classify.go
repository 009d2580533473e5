package main

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/kmrl/docintel/internal/bootstrap"
	"github.com/kmrl/docintel/internal/core/domain"
	"github.com/kmrl/docintel/internal/core/ports"
	"github.com/kmrl/docintel/internal/infrastructure/classifier/rulebased"
)

type classifyOutput struct {
	Filename   string                `json:"filename"`
	MimeType   string                `json:"mime_type"`
	Extraction domain.ExtractedText  `json:"extraction"`
	Analysis   domain.AnalysisResult `json:"analysis"`
}

func newClassifyCmd(opts *rootOptions) *cobra.Command {
	var showText bool
	cmd := &cobra.Command{
		Use:   "classify <file>",
		Short: "Extract text from a file and print its keyword-rule analysis without storing anything",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := classifyFile(cmd.Context(), bootstrap.NewExtractor(opts.cfg), rulebased.New(), args[0])
			if err != nil {
				return err
			}
			if !showText {
				out.Extraction.Text = ""
			}
			return printJSON(cmd.OutOrStdout(), out)
		},
	}
	cmd.Flags().BoolVar(&showText, "text", false, "include the extracted text in the output")
	return cmd
}

func classifyFile(ctx context.Context, extractor ports.TextExtractor, rules ports.RuleClassifier, path string) (classifyOutput, error) {
	name := filepath.Base(path)
	mimeType, ok := domain.MimeTypeForFilename(name)
	if !ok {
		return classifyOutput{}, fmt.Errorf("classify %s: %w: %q", name, domain.ErrUnsupportedType, filepath.Ext(name))
	}
	extracted, err := extractor.Extract(ctx, path, mimeType, name)
	if err != nil {
		return classifyOutput{}, err
	}
	return classifyOutput{
		Filename:   name,
		MimeType:   mimeType,
		Extraction: extracted,
		Analysis:   rules.Classify(extracted.Text, name),
	}, nil
}
