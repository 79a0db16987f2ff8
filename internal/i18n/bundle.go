package i18n

import "speakeasy/internal/domain"

// DefaultBundle is the built-in English interface strings. Keys are
// stable identifiers; values may carry {placeholders} that survive
// translation verbatim.
func DefaultBundle() domain.Bundle {
	return domain.Bundle{
		"greeting":        "Hello! Send me a message or a document and I'll explain it in plain language.",
		"thinking":        "Thinking...",
		"language_set":    "Language set to {language}.",
		"error_generic":   "Something went wrong. Please try again.",
		"error_file_read": "Sorry, I could not read that file. Please try again.",
		"form_no_fields":  "This document has no fillable fields.",
		"form_prompt":     "Please fill in {field}.",
		"audio_label":     "Listen to this explanation",
		"upload_hint":     "You can send .txt and .pdf documents, or a photo of a document.",
	}
}
