package util

import (
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// ValidateMimeType 深度校验文件 MIME 类型
// allowedTypes: 允许的 MIME 前缀或完整类型，如 "image/", "video/", "application/pdf"
func ValidateMimeType(reader io.Reader, allowedTypes []string) (string, error) {
	buffer := make([]byte, 512)
	n, err := reader.Read(buffer)
	if err != nil && err != io.EOF {
		return "", err
	}

	mimeType := http.DetectContentType(buffer[:n])
	for _, allowed := range allowedTypes {
		if strings.HasPrefix(mimeType, allowed) || mimeType == allowed {
			return mimeType, nil
		}
	}
	return mimeType, fmt.Errorf("%w: type %s", ErrInvalidFile, mimeType)
}

func IsImage(mimeType string) bool {
	return strings.HasPrefix(mimeType, MimeImage)
}

// IsMedia 音视频文件
func IsMedia(mimeType, filename string) bool {
	if strings.HasPrefix(mimeType, MimeVideo) || strings.HasPrefix(mimeType, MimeAudio) {
		return true
	}
	ext := strings.ToLower(filepath.Ext(filename))
	for _, e := range AllowedMediaExtensions {
		if ext == e {
			return true
		}
	}
	return false
}

// ObjectKey 生成存储对象键：<dir>/<uuid><ext>
func ObjectKey(dir, filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	return fmt.Sprintf("%s/%s%s", dir, uuid.New().String(), ext)
}

// BaseName 从存储路径或 URL 中取出文件名
func BaseName(path string) string {
	path = strings.TrimSpace(path)
	if path == "" {
		return ""
	}
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	path = strings.ReplaceAll(path, "\\", "/")
	if i := strings.LastIndex(path, "/"); i >= 0 {
		return path[i+1:]
	}
	return path
}
