package upload

import (
	"github.com/lgcert/indigene-certificate/internal/validation"
)

const defaultMaxDimension = 1200

func fromRule(rule validation.FileRule, compress bool) Config {
	return Config{
		Label:        rule.Label,
		AllowedTypes: rule.Types,
		MaxSize:      rule.MaxSize,
		Compress:     compress,
		MaxDimension: defaultMaxDimension,
		Quality:      80,
	}
}

// PhotoConfig is a JPEG/PNG passport photo slot capped at maxSize.
func PhotoConfig(maxSize int64) Config {
	rule := validation.ApplicationPhoto
	rule.MaxSize = maxSize
	return fromRule(rule, true)
}

// IDSlipConfig accepts JPEG, PNG or PDF up to maxSize.
func IDSlipConfig(maxSize int64) Config {
	rule := validation.ApplicationIDSlip
	rule.MaxSize = maxSize
	return fromRule(rule, true)
}

func CertificateScanConfig() Config {
	return fromRule(validation.DigitizationScan, true)
}

// ApplicationConfigs returns the photo and ID slip slots of the application form.
func ApplicationConfigs() (photo, idSlip Config) {
	return PhotoConfig(validation.ApplicationPhoto.MaxSize), IDSlipConfig(validation.ApplicationIDSlip.MaxSize)
}

// DigitizationConfigs returns the photo, ID slip and scan slots of the digitization flow.
func DigitizationConfigs() (photo, idSlip, scan Config) {
	return PhotoConfig(validation.DigitizationPhoto.MaxSize),
		IDSlipConfig(validation.DigitizationIDSlip.MaxSize),
		CertificateScanConfig()
}

// CheckAggregate fails with the total-size message when files exceed limit together.
func CheckAggregate(limit int64, files ...*File) error {
	sizes := make([]int64, 0, len(files))
	for _, f := range files {
		if f != nil {
			sizes = append(sizes, f.Size)
		}
	}
	return validation.CheckAggregate(limit, sizes...).Err()
}
