package domain

import (
	"path/filepath"
	"strings"
)

const (
	MimePDF       = "application/pdf"
	MimeDOC       = "application/msword"
	MimeDOCX      = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	MimeXLS       = "application/vnd.ms-excel"
	MimeXLSX      = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	MimeJPEG      = "image/jpeg"
	MimeJPG       = "image/jpg"
	MimePNG       = "image/png"
	MimePlainText = "text/plain"
)

var SupportedMimeTypes = []string{
	MimePDF, MimeDOC, MimeDOCX, MimeXLS, MimeXLSX, MimeJPEG, MimeJPG, MimePNG, MimePlainText,
}

func IsSupportedMimeType(mimeType string) bool {
	return contains(SupportedMimeTypes, mimeType)
}

var extensionMimeTypes = map[string]string{
	".pdf":  MimePDF,
	".doc":  MimeDOC,
	".docx": MimeDOCX,
	".xls":  MimeXLS,
	".xlsx": MimeXLSX,
	".jpeg": MimeJPEG,
	".jpg":  MimeJPEG,
	".png":  MimePNG,
	".txt":  MimePlainText,
}

// MimeTypeForFilename maps a file name to a supported MIME type by extension.
// The second return value is false for unknown extensions.
func MimeTypeForFilename(name string) (string, bool) {
	mimeType, ok := extensionMimeTypes[strings.ToLower(filepath.Ext(name))]
	return mimeType, ok
}
