package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/kmrl/docintel/internal/bootstrap"
	"github.com/kmrl/docintel/internal/core/domain"
	"github.com/kmrl/docintel/internal/infrastructure/storage/localfs"
)

func newIngestCmd(opts *rootOptions) *cobra.Command {
	var mimeType string
	cmd := &cobra.Command{
		Use:   "ingest <file>...",
		Short: "Run files through the full pipeline and store the resulting records",
		Long: "Each file is copied into the upload spool first, so the originals are left untouched.\n" +
			"Records go to Postgres when POSTGRES_DSN is set and are otherwise only printed.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := opts.cfg
			cfg.MetricsEnabled = false

			app, err := bootstrap.New(cmd.Context(), cfg, bootstrap.Options{Service: serviceName})
			if err != nil {
				return err
			}
			defer app.Close()

			files, err := spoolInputs(cmd.Context(), app.Spool, app.Files, args, mimeType, cfg.MaxUploadBytes())
			if err != nil {
				return err
			}
			result := app.Ingest.ProcessBatch(cmd.Context(), files)
			if err := printJSON(cmd.OutOrStdout(), result); err != nil {
				return err
			}
			if result.Failed > 0 {
				return fmt.Errorf("%d of %d files failed", result.Failed, len(result.Results))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&mimeType, "mime-type", "", "override the MIME type detected from each file extension")
	return cmd
}

// unknownMimeType lets the pipeline report unrecognised extensions as
// unsupported per file.
const unknownMimeType = "application/octet-stream"

type fileRemover interface {
	Delete(ctx context.Context, path string) error
}

// spoolInputs copies every path into the spool. On failure the copies made so
// far are removed.
func spoolInputs(ctx context.Context, spool *localfs.Spool, files fileRemover, paths []string, mimeType string, limit int64) ([]domain.UploadedFile, error) {
	out := make([]domain.UploadedFile, 0, len(paths))
	cleanup := func() {
		for _, f := range out {
			_ = files.Delete(ctx, f.TempPath)
		}
	}
	for _, path := range paths {
		f, err := os.Open(path)
		if err != nil {
			cleanup()
			return nil, err
		}
		name := filepath.Base(path)
		tempPath, size, err := spool.Write(name, f, limit)
		_ = f.Close()
		if err != nil {
			cleanup()
			return nil, err
		}
		detected := mimeType
		if detected == "" {
			detected = unknownMimeType
			if byName, ok := domain.MimeTypeForFilename(name); ok {
				detected = byName
			}
		}
		out = append(out, domain.UploadedFile{
			TempPath:     tempPath,
			OriginalName: name,
			MimeType:     detected,
			SizeBytes:    size,
		})
	}
	return out, nil
}
