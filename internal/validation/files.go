package validation

import (
	"fmt"
	"strings"
)

const MB = 1024 * 1024

const (
	MimeJPEG = "image/jpeg"
	MimePNG  = "image/png"
	MimePDF  = "application/pdf"
)

// FileRule is the allow-list and size ceiling for one upload zone.
type FileRule struct {
	Label   string
	MaxSize int64
	Types   []string
}

var (
	imageTypes    = []string{MimeJPEG, MimePNG}
	documentTypes = []string{MimeJPEG, MimePNG, MimePDF}

	ApplicationPhoto           = FileRule{Label: "Passport photograph", MaxSize: 2 * MB, Types: imageTypes}
	ApplicationIDSlip          = FileRule{Label: "NIN slip", MaxSize: 5 * MB, Types: documentTypes}
	DigitizationPhoto          = FileRule{Label: "Passport photograph", MaxSize: 1 * MB, Types: imageTypes}
	DigitizationIDSlip         = FileRule{Label: "NIN slip", MaxSize: 2 * MB, Types: documentTypes}
	DigitizationScan           = FileRule{Label: "Certificate scan", MaxSize: 5 * MB, Types: documentTypes}
	DigitizationMaxTotal int64 = 6 * MB
)

// AggregateSizeMessage is shown when digitization attachments exceed the total ceiling.
const AggregateSizeMessage = "Total file size exceeds 6MB. Please upload smaller files."

// NormalizeType lower-cases a MIME type, drops parameters and folds image/jpg.
func NormalizeType(contentType string) string {
	t := strings.ToLower(strings.TrimSpace(contentType))
	if i := strings.Index(t, ";"); i >= 0 {
		t = strings.TrimSpace(t[:i])
	}
	if t == "image/jpg" || t == "image/pjpeg" {
		return MimeJPEG
	}
	return t
}

func (r FileRule) Allows(contentType string) bool {
	t := NormalizeType(contentType)
	for _, allowed := range r.Types {
		if allowed == t {
			return true
		}
	}
	return false
}

// Check validates type first, then size.
func (r FileRule) Check(contentType string, size int64) Result {
	if !r.Allows(contentType) {
		return fail(FieldKey(r.Label), fmt.Sprintf("%s must be one of: %s", r.Label, r.describeTypes()))
	}
	if size <= 0 {
		return fail(FieldKey(r.Label), r.Label+" is empty")
	}
	if size > r.MaxSize {
		return fail(FieldKey(r.Label), fmt.Sprintf("%s must not exceed %s", r.Label, FormatSize(r.MaxSize)))
	}
	return OK
}

func (r FileRule) describeTypes() string {
	names := make([]string, 0, len(r.Types))
	for _, t := range r.Types {
		switch t {
		case MimeJPEG:
			names = append(names, "JPEG")
		case MimePNG:
			names = append(names, "PNG")
		case MimePDF:
			names = append(names, "PDF")
		default:
			names = append(names, t)
		}
	}
	return strings.Join(names, ", ")
}

// CheckAggregate enforces the combined ceiling for a set of attachment sizes.
func CheckAggregate(limit int64, sizes ...int64) Result {
	var total int64
	for _, s := range sizes {
		total += s
	}
	if total > limit {
		return fail("attachments", AggregateSizeMessage)
	}
	return OK
}

func FormatSize(n int64) string {
	if n%MB == 0 {
		return fmt.Sprintf("%dMB", n/MB)
	}
	if n >= MB {
		return fmt.Sprintf("%.1fMB", float64(n)/MB)
	}
	return fmt.Sprintf("%dKB", n/1024)
}
