package channel

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"speakeasy/internal/domain"
)

// attachmentFromFile reads a local file and wraps it as an attachment.
// The kind is inferred from the extension; unknown extensions are treated
// as plain text.
func attachmentFromFile(path string) (*domain.Attachment, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read attachment: %w", err)
	}
	return attachmentFromBytes(filepath.Base(path), data), nil
}

func attachmentFromBytes(name string, data []byte) *domain.Attachment {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".pdf":
		return &domain.Attachment{
			Name:    name,
			Kind:    domain.AttachmentPDF,
			Content: domain.BinaryDataURL("application/pdf", data),
		}
	case ".png":
		return &domain.Attachment{
			Name:    name,
			Kind:    domain.AttachmentImage,
			Content: domain.BinaryDataURL("image/png", data),
		}
	case ".jpg", ".jpeg":
		return &domain.Attachment{
			Name:    name,
			Kind:    domain.AttachmentImage,
			Content: domain.BinaryDataURL("image/jpeg", data),
		}
	case ".webp":
		return &domain.Attachment{
			Name:    name,
			Kind:    domain.AttachmentImage,
			Content: domain.BinaryDataURL("image/webp", data),
		}
	default:
		return &domain.Attachment{
			Name:    name,
			Kind:    domain.AttachmentText,
			Content: string(data),
		}
	}
}
