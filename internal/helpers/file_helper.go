package helpers

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type UploadConfig struct {
	MaxSizeBytes     int64
	AllowedMimeTypes []string
	UploadBasePath   string
}

var DefaultImageUploadConfig = UploadConfig{
	MaxSizeBytes: 5 * 1024 * 1024, // 5MB
	AllowedMimeTypes: []string{
		"image/jpeg",
		"image/png",
		"image/gif",
		"image/webp",
	},
	UploadBasePath: "./uploads/",
}

var (
	ErrFileTooLarge    = errors.New("file too large")
	ErrInvalidFileType = errors.New("invalid file type")
)

// UploadFile stores fileHeader under <base>/<uploadType>/ with a random name
// and returns the path relative to the base directory, using forward
// slashes so it can be appended to the /uploads URL prefix.
func UploadFile(c *gin.Context, fileHeader *multipart.FileHeader, uploadType string, config UploadConfig) (string, error) {
	if fileHeader.Size == 0 {
		return "", fmt.Errorf("%w: file is empty", ErrInvalidFileType)
	}
	if fileHeader.Size > config.MaxSizeBytes {
		return "", fmt.Errorf("%w: maximum is %d MB", ErrFileTooLarge, config.MaxSizeBytes/(1024*1024))
	}

	src, err := fileHeader.Open()
	if err != nil {
		return "", err
	}
	defer src.Close()

	buffer := make([]byte, 512)
	n, err := src.Read(buffer)
	if errors.Is(err, io.EOF) || n == 0 {
		return "", fmt.Errorf("%w: file is empty", ErrInvalidFileType)
	}
	if err != nil {
		return "", err
	}
	mimeType := http.DetectContentType(buffer[:n])

	if !slices.Contains(config.AllowedMimeTypes, mimeType) {
		return "", fmt.Errorf("%w: allowed types are %s", ErrInvalidFileType, strings.Join(config.AllowedMimeTypes, ", "))
	}

	uploadPath := filepath.Join(config.UploadBasePath, uploadType)
	if err := os.MkdirAll(uploadPath, os.ModePerm); err != nil {
		return "", err
	}

	filename := uuid.New().String() + strings.ToLower(filepath.Ext(fileHeader.Filename))
	if err := c.SaveUploadedFile(fileHeader, filepath.Join(uploadPath, filename)); err != nil {
		return "", err
	}

	return uploadType + "/" + filename, nil
}

// DeleteFile removes a file previously returned by UploadFile. A missing
// file is not an error.
func DeleteFile(basePath, relPath string) error {
	if relPath == "" {
		return nil
	}
	clean := filepath.Clean(filepath.FromSlash(relPath))
	if filepath.IsAbs(clean) || strings.HasPrefix(clean, "..") {
		return fmt.Errorf("refusing to delete %q outside the upload directory", relPath)
	}
	err := os.Remove(filepath.Join(basePath, clean))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}
