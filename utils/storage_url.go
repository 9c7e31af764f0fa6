package utils

import (
	"net/url"
	"os"
	"strings"
)

func BuildObjectAccessURL(objectKey string) string {
	if objectKey == "" {
		return ""
	}
	base := strings.TrimSpace(os.Getenv("STORAGE_ACCESS_BASE_URL"))
	if base != "" {
		if strings.Contains(base, "{objectKey}") {
			escaped := objectKey
			if strings.Contains(base, "?") {
				escaped = url.QueryEscape(objectKey)
			}
			return strings.ReplaceAll(base, "{objectKey}", escaped)
		}
		if strings.Contains(base, "?") {
			return base + url.QueryEscape(objectKey)
		}
		return strings.TrimRight(base, "/") + "/" + objectKey
	}

	gcsBucket := strings.TrimSpace(os.Getenv("GCS_BUCKET"))
	if gcsBucket != "" {
		return "https://storage.googleapis.com/" + gcsBucket + "/" + objectKey
	}

	return objectKey
}

// IsValidObjectKey rejects absolute paths, URLs and traversal.
func IsValidObjectKey(key string) bool {
	key = strings.TrimSpace(key)
	if key == "" || len(key) > 255 {
		return false
	}
	if strings.Contains(key, "://") || strings.HasPrefix(key, "/") || strings.Contains(key, "..") {
		return false
	}
	return true
}
