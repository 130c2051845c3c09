package services

import (
	"path/filepath"
	"strings"
)

type MediaType string

const (
	MediaPDF  MediaType = "application/pdf"
	MediaJPEG MediaType = "image/jpeg"
	MediaPNG  MediaType = "image/png"
	MediaWebP MediaType = "image/webp"
	MediaBMP  MediaType = "image/bmp"
	MediaText MediaType = "text/plain"
	MediaDOCX MediaType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	MediaDOC  MediaType = "application/msword"
)

var mediaByExtension = map[string]MediaType{
	".pdf":  MediaPDF,
	".jpg":  MediaJPEG,
	".jpeg": MediaJPEG,
	".png":  MediaPNG,
	".webp": MediaWebP,
	".bmp":  MediaBMP,
	".txt":  MediaText,
	".docx": MediaDOCX,
	".doc":  MediaDOC,
}

// MediaTypeFromFilename maps a file extension to its media type.
func MediaTypeFromFilename(filename string) (MediaType, bool) {
	mt, ok := mediaByExtension[strings.ToLower(filepath.Ext(filename))]
	return mt, ok
}

func (m MediaType) IsImage() bool {
	return strings.HasPrefix(string(m), "image/")
}
