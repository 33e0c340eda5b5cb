package mailer

import (
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

// NormalizeAttachments resolves path-based attachments into bytes. An
// attachment whose file cannot be read is logged and dropped.
func NormalizeAttachments(logger *zap.Logger, attachments []Attachment) []Attachment {
	if logger == nil {
		logger = zap.NewNop()
	}
	if len(attachments) == 0 {
		return nil
	}

	out := make([]Attachment, 0, len(attachments))
	for _, attachment := range attachments {
		if attachment.Content == nil && attachment.Path != "" {
			content, err := os.ReadFile(attachment.Path)
			if err != nil {
				logger.Warn("attachment dropped",
					zap.String("path", attachment.Path),
					zap.String("content_id", attachment.ContentID),
					zap.Error(err),
				)
				continue
			}
			attachment.Content = content
		}
		if attachment.Content == nil {
			logger.Warn("attachment dropped: no content", zap.String("filename", attachment.Filename))
			continue
		}
		if attachment.Filename == "" && attachment.Path != "" {
			attachment.Filename = filepath.Base(attachment.Path)
		}
		attachment.Path = ""
		out = append(out, attachment)
	}

	return out
}
