package service

import (
	"strings"

	"github.com/tasklane/taskapi/internal/core/domain"
)

type field struct {
	path  string
	value string
}

// requireFields is the last-line presence check for use cases that can be
// reached without the HTTP validator.
func requireFields(fields ...field) *domain.Error {
	var failed []domain.FieldError
	for _, f := range fields {
		if strings.TrimSpace(f.value) == "" {
			failed = append(failed, domain.FieldError{Path: f.path, Message: "is required"})
		}
	}
	if len(failed) > 0 {
		return domain.Validation(failed...)
	}
	return nil
}
