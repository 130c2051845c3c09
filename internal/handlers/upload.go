package handlers

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/gofiber/fiber/v2"

	"alfredoptarigan/resume-polisher/internal/services"
)

const maxFormTextLength = 50000

var safeFilenamePattern = regexp.MustCompile(`^[\p{L}\p{N}_\-. ]+$`)

var imageMediaTypes = map[string]services.MediaType{
	"image/jpeg": services.MediaJPEG,
	"image/png":  services.MediaPNG,
	"image/webp": services.MediaWebP,
}

// uploadRule describes the multipart field and extensions one endpoint accepts.
type uploadRule struct {
	field      string
	extensions []string
}

var (
	resumeUpload = uploadRule{
		field:      "resume",
		extensions: []string{".pdf", ".jpg", ".jpeg", ".png", ".webp"},
	}
	contractUpload = uploadRule{
		field:      "contract",
		extensions: []string{".pdf", ".doc", ".docx", ".txt", ".jpg", ".jpeg", ".png", ".webp"},
	}
)

func (r uploadRule) allows(ext string) bool {
	for _, e := range r.extensions {
		if e == ext {
			return true
		}
	}
	return false
}

// readUpload reads and validates the uploaded file. Validation failures are
// returned as *fiber.Error with status 400.
func readUpload(c *fiber.Ctx, rule uploadRule, maxFileSize int64) (services.Document, error) {
	header, err := c.FormFile(rule.field)
	if err != nil {
		return services.Document{}, fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("%s file is required", rule.field))
	}

	filename := header.Filename
	if err := validateFilename(filename); err != nil {
		return services.Document{}, err
	}

	ext := strings.ToLower(filepath.Ext(filename))
	if !rule.allows(ext) {
		return services.Document{}, fiber.NewError(fiber.StatusBadRequest,
			fmt.Sprintf("Unsupported file type. Allowed: %s", strings.Join(rule.extensions, ", ")))
	}

	if header.Size > maxFileSize {
		return services.Document{}, fileTooLarge(maxFileSize)
	}

	f, err := header.Open()
	if err != nil {
		return services.Document{}, fmt.Errorf("failed to open uploaded file: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxFileSize+1))
	if err != nil {
		return services.Document{}, fmt.Errorf("failed to read uploaded file: %w", err)
	}
	if len(data) == 0 {
		return services.Document{}, fiber.NewError(fiber.StatusBadRequest, "File is empty")
	}
	if int64(len(data)) > maxFileSize {
		return services.Document{}, fileTooLarge(maxFileSize)
	}

	mediaType, _ := services.MediaTypeFromFilename(filename)
	mediaType, err = checkContent(data, mediaType)
	if err != nil {
		return services.Document{}, err
	}

	return services.Document{
		Filename:  filename,
		Data:      data,
		MediaType: mediaType,
	}, nil
}

func validateFilename(filename string) error {
	if strings.TrimSpace(filename) == "" {
		return fiber.NewError(fiber.StatusBadRequest, "Filename must not be empty")
	}
	if filepath.Base(filename) != filename || strings.ContainsAny(filename, `/\`) {
		return fiber.NewError(fiber.StatusBadRequest, "Filename must not contain path components")
	}
	if !safeFilenamePattern.MatchString(filename) {
		return fiber.NewError(fiber.StatusBadRequest, "Filename contains invalid characters")
	}
	return nil
}

// checkContent verifies the bytes match the declared type. Images are
// reported with their sniffed type.
func checkContent(data []byte, declared services.MediaType) (services.MediaType, error) {
	switch {
	case declared == services.MediaPDF:
		if !bytes.HasPrefix(data, []byte("%PDF-")) {
			return "", fiber.NewError(fiber.StatusBadRequest, "File content is not a valid PDF")
		}
	case declared == services.MediaDOCX:
		if !bytes.HasPrefix(data, []byte("PK\x03\x04")) {
			return "", fiber.NewError(fiber.StatusBadRequest, "File content is not a valid DOCX document")
		}
	case declared.IsImage():
		detected := http.DetectContentType(data)
		sniffed, ok := imageMediaTypes[detected]
		if !ok {
			return "", fiber.NewError(fiber.StatusBadRequest,
				fmt.Sprintf("File content does not match the declared image format, detected: %s", detected))
		}
		return sniffed, nil
	}
	return declared, nil
}

func fileTooLarge(maxFileSize int64) error {
	return fiber.NewError(fiber.StatusBadRequest,
		fmt.Sprintf("File too large. Max size: %d MB", maxFileSize/(1024*1024)))
}

// formText trims a form value and enforces the length limit.
func formText(c *fiber.Ctx, field string, required bool) (string, error) {
	value := strings.TrimSpace(c.FormValue(field))
	if required && value == "" {
		return "", fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("%s is required", field))
	}
	if utf8.RuneCountInString(value) > maxFormTextLength {
		return "", fiber.NewError(fiber.StatusBadRequest,
			fmt.Sprintf("%s is too long, keep it within %d characters", field, maxFormTextLength))
	}
	return value, nil
}
