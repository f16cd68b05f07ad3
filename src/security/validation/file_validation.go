package validation

import (
	"bytes"
	"fmt"
	"net/http"
	"strings"

	"github.com/username/cashflowrisk/backend/src/logger"
	"github.com/username/cashflowrisk/backend/src/models"
)

// zipMagic is the local file header signature every xlsx/xlsm package starts with.
var zipMagic = []byte("PK\x03\x04")

// sniffLen is how much of the payload is inspected for content detection.
const sniffLen = 1024

// allowedDetectedTypes lists the sniffed MIME types accepted for delimited text.
var allowedDetectedTypes = map[string]bool{
	"text/plain":      true,
	"text/csv":        true,
	"application/csv": true,
}

// isBinaryContent reports whether a buffer contains NUL bytes. Invalid UTF-8 is
// not treated as binary: legacy Cyrillic exports are single-byte encoded.
func isBinaryContent(buf []byte) bool {
	return bytes.IndexByte(buf, 0) != -1
}

// ValidateSourceContent checks a located source before it reaches a parser:
// the size limit, the zip signature for workbooks, and text-only content for
// delimited files. maxBytes <= 0 disables the size check.
func ValidateSourceContent(kind models.SourceKind, data []byte, maxBytes int64) error {
	if maxBytes > 0 && int64(len(data)) > maxBytes {
		logger.L.Warn("Source rejected: size limit exceeded", "size", len(data), "limit", maxBytes)
		return fmt.Errorf("%w: file size %d exceeds limit of %d bytes", ErrValidationFailed, len(data), maxBytes)
	}
	if len(data) == 0 {
		return fmt.Errorf("%w: file is empty", ErrValidationFailed)
	}

	head := data
	if len(head) > sniffLen {
		head = head[:sniffLen]
	}

	switch kind {
	case models.SourceXLSX:
		if !bytes.HasPrefix(data, zipMagic) {
			logger.L.Warn("Source rejected: workbook without zip signature")
			return fmt.Errorf("%w: workbook does not start with a zip signature", ErrValidationFailed)
		}
		return nil

	case models.SourceCSV:
		if isBinaryContent(head) {
			logger.L.Warn("Source rejected: binary content detected in delimited file")
			return fmt.Errorf("%w: file appears to be binary, not delimited text", ErrValidationFailed)
		}
		detected := http.DetectContentType(head)
		detected = strings.ToLower(strings.TrimSpace(strings.Split(detected, ";")[0]))
		if !allowedDetectedTypes[detected] {
			logger.L.Warn("Disallowed detected file content type", "detectedContentType", detected)
			return fmt.Errorf("%w: detected content type '%s' is not allowed", ErrValidationFailed, detected)
		}
		logger.L.Debug("Source content type validated", "detectedContentType", detected)
		return nil

	default:
		return fmt.Errorf("%w: unsupported source kind '%s'", ErrValidationFailed, kind)
	}
}
