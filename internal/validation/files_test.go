package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFileRuleCheck(t *testing.T) {
	r := ApplicationIDSlip.Check("application/pdf", 4*MB)
	assert.True(t, r.Valid)

	r = ApplicationIDSlip.Check("image/gif", 1024)
	assert.False(t, r.Valid)
	assert.Equal(t, "NIN slip must be one of: JPEG, PNG, PDF", r.Message)

	r = ApplicationIDSlip.Check("image/jpeg", 6*MB)
	assert.Equal(t, "NIN slip must not exceed 5MB", r.Message)

	r = ApplicationPhoto.Check("application/pdf", 1024)
	assert.False(t, r.Valid, "photos are images only")
}

func TestFileRuleBoundaries(t *testing.T) {
	assert.True(t, DigitizationPhoto.Check(MimePNG, 1*MB).Valid)
	assert.False(t, DigitizationPhoto.Check(MimePNG, 1*MB+1).Valid)
	assert.True(t, ApplicationPhoto.Check("image/jpg", 2*MB).Valid)
	assert.False(t, ApplicationPhoto.Check(MimeJPEG, 0).Valid)
}

func TestNormalizeType(t *testing.T) {
	assert.Equal(t, MimeJPEG, NormalizeType("IMAGE/JPG"))
	assert.Equal(t, MimePDF, NormalizeType("application/pdf; charset=binary"))
}

func TestCheckAggregate(t *testing.T) {
	assert.True(t, CheckAggregate(DigitizationMaxTotal, 5*MB, 1*MB).Valid)

	r := CheckAggregate(DigitizationMaxTotal, 5*MB, 1*MB, 1)
	assert.False(t, r.Valid)
	assert.Equal(t, "Total file size exceeds 6MB. Please upload smaller files.", r.Message)
}

func TestFormatSize(t *testing.T) {
	assert.Equal(t, "2MB", FormatSize(2*MB))
	assert.Equal(t, "1.5MB", FormatSize(3*MB/2))
	assert.Equal(t, "512KB", FormatSize(512*1024))
}
