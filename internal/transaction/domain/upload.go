package domain

import (
	"io"
	"path/filepath"
	"slices"
	"strings"
)

// MaxUploadFileSize caps every uploaded file.
const MaxUploadFileSize = 10 << 20

// Wire names given to uploaded files in the backend multipart body.
const (
	// NameOriginal keeps the client file name.
	NameOriginal = "original"
	// NameReference uses the payload referenceNumber plus the original extension.
	NameReference = "reference"
	// NameField uses the form field name plus the original extension.
	NameField = "field"
)

var (
	documentTypes = []string{
		"application/pdf",
		"application/msword",
		"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	}
	spreadsheetTypes = []string{
		"application/vnd.ms-excel",
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	}
	imageTypes = []string{"image/jpeg", "image/png"}
)

// UploadProfile is the file policy of one upload route.
type UploadProfile struct {
	// Route is the path under /{app}/main.
	Route string
	// TransactionType selects the schema and endpoint the upload runs as.
	TransactionType string
	// Dir is the subdirectory of the upload directory the files are stored in.
	Dir          string
	MaxFiles     int
	MaxFileSize  int64
	AllowedTypes []string
	Naming       string
}

// UploadProfiles lists the document upload routes. The withdrawal route keeps
// the spelling clients already call.
var UploadProfiles = []UploadProfile{
	{
		Route:           "upload-docs",
		TransactionType: "mg-docs",
		Dir:             "mgdocs",
		MaxFiles:        5,
		MaxFileSize:     MaxUploadFileSize,
		AllowedTypes:    slices.Concat(documentTypes, spreadsheetTypes),
		Naming:          NameOriginal,
	},
	{
		Route:           "withdarawal-upload-docs",
		TransactionType: "alt-withdrawal-docs",
		Dir:             "cash-withdrawal",
		MaxFiles:        1,
		MaxFileSize:     MaxUploadFileSize,
		AllowedTypes:    slices.Concat(documentTypes, imageTypes),
		Naming:          NameReference,
	},
	{
		Route:           "registration-upload-docs",
		TransactionType: "registration-docs",
		Dir:             "customer-registration",
		MaxFiles:        3,
		MaxFileSize:     MaxUploadFileSize,
		AllowedTypes:    slices.Concat(documentTypes, imageTypes),
		Naming:          NameField,
	},
}

// Allows reports whether mimeType is on the profile's allowlist. Parameters
// such as charset are ignored.
func (p UploadProfile) Allows(mimeType string) bool {
	base, _, _ := strings.Cut(mimeType, ";")
	return slices.Contains(p.AllowedTypes, strings.ToLower(strings.TrimSpace(base)))
}

// MaxBodyBytes bounds a whole upload request: every file plus the form fields.
func (p UploadProfile) MaxBodyBytes() int64 {
	return int64(p.MaxFiles)*p.MaxFileSize + 1<<20
}

// WireName is the file name the backend receives.
func (p UploadProfile) WireName(fieldName, fileName string, payload map[string]any) string {
	base := filepath.Base(fileName)
	ext := filepath.Ext(base)
	switch p.Naming {
	case NameReference:
		if ref, ok := payload["referenceNumber"].(string); ok && ref != "" {
			return ref + ext
		}
	case NameField:
		if fieldName != "" {
			return fieldName + ext
		}
	}
	return base
}

// UploadedFile is one file part of an upload request, not yet stored.
type UploadedFile struct {
	FieldName string
	FileName  string
	MimeType  string
	Size      int64
	// Open returns the part contents.
	Open func() (io.ReadCloser, error)
}

// UploadInput is a parsed upload request.
type UploadInput struct {
	Profile UploadProfile
	Payload map[string]any
	Files   []UploadedFile
}
