package httpadapter

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strings"

	"github.com/kmrl/docintel/internal/core/domain"
)

const multipartOverhead = 1 << 20

type uploadResponse struct {
	Success  bool                   `json:"success"`
	Message  string                 `json:"message,omitempty"`
	Document *domain.DocumentRecord `json:"document,omitempty"`
	Filename string                 `json:"filename,omitempty"`
	Error    string                 `json:"error,omitempty"`
	Code     string                 `json:"error_code,omitempty"`
}

type batchUploadResponse struct {
	Success bool `json:"success"`
	domain.BatchResult
}

// uploadDocuments accepts one or more parts named "file" or "files". A single
// file answers 201 or 400; several files always answer 207 with one result
// per file.
func (rt *Router) uploadDocuments(w http.ResponseWriter, r *http.Request) {
	files, err := rt.receiveUploads(w, r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, uploadResponse{Success: false, Error: err.Error(), Code: "invalid_upload"})
		return
	}
	if len(files) == 0 {
		writeJSON(w, http.StatusBadRequest, uploadResponse{Success: false, Error: "no files uploaded", Code: "invalid_upload"})
		return
	}

	if rt.deps.Metrics != nil {
		var total int64
		for _, file := range files {
			total += file.SizeBytes
		}
		rt.deps.Metrics.RecordUpload(serviceName, len(files), total)
	}

	batch := rt.deps.Ingestor.ProcessBatch(r.Context(), files)

	if len(files) > 1 {
		writeJSON(w, http.StatusMultiStatus, batchUploadResponse{Success: batch.Successful > 0, BatchResult: batch})
		return
	}

	result := batch.Results[0]
	if !result.Success {
		writeJSON(w, http.StatusBadRequest, uploadResponse{
			Success:  false,
			Filename: result.Filename,
			Error:    result.Error,
			Code:     result.ErrorCode,
		})
		return
	}
	writeJSON(w, http.StatusCreated, uploadResponse{
		Success:  true,
		Message:  "Document uploaded and processed successfully",
		Document: result.Document,
	})
}

// receiveUploads streams every file part into the spool. On error any part
// already spooled is removed before returning.
func (rt *Router) receiveUploads(w http.ResponseWriter, r *http.Request) (files []domain.UploadedFile, err error) {
	maxFiles := rt.cfg.MaxFilesPerUpload
	perFile := rt.cfg.MaxUploadBytes()
	if perFile > 0 && maxFiles > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, perFile*int64(maxFiles)+multipartOverhead)
	}

	defer func() {
		if err == nil {
			return
		}
		for _, file := range files {
			if delErr := rt.deps.Files.Delete(r.Context(), file.TempPath); delErr != nil {
				slog.WarnContext(r.Context(), "temp_file_cleanup_failed", "path", file.TempPath, "error", delErr)
			}
		}
		files = nil
	}()

	reader, err := r.MultipartReader()
	if err != nil {
		return nil, fmt.Errorf("expected multipart form data: %w", err)
	}
	for {
		part, err := reader.NextPart()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return files, nil
			}
			return files, fmt.Errorf("read multipart body: %w", err)
		}
		name := part.FormName()
		if (name != "file" && name != "files") || part.FileName() == "" {
			_ = part.Close()
			continue
		}
		if maxFiles > 0 && len(files) >= maxFiles {
			_ = part.Close()
			return files, fmt.Errorf("too many files: at most %d per upload", maxFiles)
		}

		filename := part.FileName()
		path, size, err := rt.deps.Spool.Write(filename, part, perFile)
		_ = part.Close()
		if err != nil {
			return files, fmt.Errorf("receive %s: %w", filename, err)
		}
		files = append(files, domain.UploadedFile{
			TempPath:     path,
			OriginalName: filename,
			MimeType:     detectMimeType(part.Header.Get("Content-Type"), filename),
			SizeBytes:    size,
		})
	}
}

// detectMimeType trusts the part's declared type unless it is missing or
// generic, in which case the file extension decides.
func detectMimeType(declared, filename string) string {
	mediaType, _, err := mime.ParseMediaType(declared)
	if err == nil {
		mediaType = strings.ToLower(mediaType)
	}
	if err == nil && mediaType != "application/octet-stream" {
		return mediaType
	}
	if byName, ok := domain.MimeTypeForFilename(filename); ok {
		return byName
	}
	if mediaType != "" {
		return mediaType
	}
	return "application/octet-stream"
}
