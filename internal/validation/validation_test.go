package validation

import (
	"math/rand"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestValidateNIN(t *testing.T) {
	tests := []struct {
		name    string
		nin     string
		valid   bool
		message string
	}{
		{"eleven digits", "12345678901", true, ""},
		{"empty", "", false, "NIN is required"},
		{"too short", "1234567890", false, "NIN must be exactly 11 digits"},
		{"too long", "123456789012", false, "NIN must be exactly 11 digits"},
		{"letter inside", "1234567890a", false, "NIN must contain only digits"},
		{"space inside", "12345 78901", false, "NIN must contain only digits"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := ValidateNIN(tt.nin)
			assert.Equal(t, tt.valid, r.Valid)
			assert.Equal(t, tt.message, r.Message)
		})
	}
}

func TestValidateNINAcceptsEveryElevenDigitString(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 500; i++ {
		var b strings.Builder
		for j := 0; j < NINLength; j++ {
			b.WriteByte(byte('0' + rng.Intn(10)))
		}
		assert.True(t, ValidateNIN(b.String()).Valid, b.String())
	}
}

func TestValidateNINRejectsOtherLengths(t *testing.T) {
	for n := 1; n < 20; n++ {
		if n == NINLength {
			continue
		}
		r := ValidateNIN(strings.Repeat("4", n))
		assert.False(t, r.Valid)
		assert.Equal(t, "NIN must be exactly 11 digits", r.Message)
	}
}

func TestValidatePhone(t *testing.T) {
	valid := []string{"08031234567", "07011112222", "09123456789", "08101234567"}
	invalid := []string{"1234567890", "", "0803123456", "080312345678", "06031234567", "08231234567", "+2348031234567", "0803123456a"}

	for _, p := range valid {
		assert.True(t, ValidatePhone(p).Valid, p)
	}
	for _, p := range invalid {
		assert.False(t, ValidatePhone(p).Valid, p)
	}
}

func TestValidateEmail(t *testing.T) {
	assert.True(t, ValidateEmail("ada@lga.gov.ng").Valid)
	assert.False(t, ValidateEmail("ada@lga").Valid)
	assert.False(t, ValidateEmail("ada lovelace@lga.ng").Valid)
	assert.Equal(t, "Email is required", ValidateEmail("  ").Message)
}

func TestValidatePassword(t *testing.T) {
	r := ValidatePassword("short")
	assert.False(t, r.Valid)
	assert.Equal(t, "Password must be at least 8 characters", r.Message)

	r = ValidatePassword("longenough1", "different")
	assert.False(t, r.Valid)
	assert.Equal(t, "Passwords do not match", r.Message)

	assert.True(t, ValidatePassword("longenough1", "longenough1").Valid)
	assert.True(t, ValidatePassword("longenough1").Valid)
}

func TestValidatorsAreDeterministic(t *testing.T) {
	inputs := []string{"", "x", "08031234567", "12345678901", "a@b.co", "not valid"}
	for _, in := range inputs {
		assert.Equal(t, ValidateNIN(in), ValidateNIN(in))
		assert.Equal(t, ValidatePhone(in), ValidatePhone(in))
		assert.Equal(t, ValidateEmail(in), ValidateEmail(in))
		assert.Equal(t, ValidatePassword(in, in), ValidatePassword(in, in))
	}
}

func TestValidateDates(t *testing.T) {
	assert.True(t, ValidateDate("Date of birth", "1990-02-28").Valid)
	assert.Equal(t, "Date of birth must be a valid date (YYYY-MM-DD)", ValidateDate("Date of birth", "1990-02-30").Message)

	limit := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	assert.True(t, ValidateNotAfter("Date of birth", "2025-12-31", limit).Valid)
	assert.Equal(t, "Date of birth cannot be in the future", ValidateNotAfter("Date of birth", "2026-01-02", limit).Message)

	assert.True(t, ValidateYear("Issue year", "1998").Valid)
	assert.False(t, ValidateYear("Issue year", "98").Valid)
	assert.False(t, ValidateYear("Issue year", "1850").Valid)
}

func validApplication() ApplicationForm {
	return ApplicationForm{
		FullName:          "Adaeze Okafor",
		NIN:               "12345678901",
		DateOfBirth:       "1994-06-12",
		State:             "Anambra",
		LocalGovernmentID: 3,
		Village:           "Umuoji",
		Phone:             "08031234567",
		Email:             "adaeze@example.com",
		Address:           "12 Market Road",
	}
}

func TestValidateApplication(t *testing.T) {
	assert.True(t, ValidateApplication(validApplication()).Valid)
}

func TestValidateApplicationReturnsFirstFailureInOrder(t *testing.T) {
	f := validApplication()
	f.NIN = "123"
	f.Phone = "bad"
	f.Email = "bad"

	r := ValidateApplication(f)
	assert.False(t, r.Valid)
	assert.Equal(t, ValidateNIN(f.NIN).Message, r.Message)

	f.NIN = "12345678901"
	r = ValidateApplication(f)
	assert.Equal(t, ValidatePhone(f.Phone).Message, r.Message)

	f.FullName = ""
	assert.Equal(t, "Full name is required", ValidateApplication(f).Message)
}

func TestValidateApplicationSteps(t *testing.T) {
	f := validApplication()
	f.Address = ""
	assert.True(t, ValidateApplicationPersonal(f).Valid)
	assert.Equal(t, "Address is required", ValidateApplicationContact(f).Message)

	f.LocalGovernmentID = 0
	assert.Equal(t, "Local government is required", ValidateApplicationPersonal(f).Message)
}

func TestFormsRejectFutureDateOfBirth(t *testing.T) {
	future := time.Now().AddDate(0, 0, 2).Format(DateLayout)

	app := validApplication()
	app.DateOfBirth = future
	assert.Equal(t, "Date of birth cannot be in the future", ValidateApplicationPersonal(app).Message)
	assert.Equal(t, "Date of birth cannot be in the future", ValidateApplication(app).Message)

	dig := DigitizationForm{DateOfBirth: future, FullName: "Musa Bello", NIN: "98765432109"}
	assert.Equal(t, "Date of birth cannot be in the future", ValidateDigitizationPersonal(dig).Message)
}

func TestValidateDigitization(t *testing.T) {
	f := DigitizationForm{
		FullName:             "Musa Bello",
		NIN:                  "98765432109",
		DateOfBirth:          "1980-01-01",
		State:                "Kano",
		LocalGovernmentID:    1,
		Phone:                "07012345678",
		Email:                "musa@example.com",
		OldCertificateNumber: "KN/LG/1999/0042",
		IssueYear:            "1999",
	}
	assert.True(t, ValidateDigitization(f).Valid)

	f.IssueYear = ""
	assert.Equal(t, "Issue year is required", ValidateDigitization(f).Message)
	assert.True(t, ValidateDigitizationPersonal(f).Valid)
}

func TestValidateRegistration(t *testing.T) {
	f := RegistrationForm{FullName: "Ada", Email: "ada@example.com", Phone: "08031234567", Password: "password1", ConfirmPassword: "password2"}
	assert.Equal(t, "Passwords do not match", ValidateRegistration(f).Message)
	f.ConfirmPassword = "password1"
	assert.True(t, ValidateRegistration(f).Valid)
}

func TestResultErr(t *testing.T) {
	assert.NoError(t, OK.Err())
	err := ValidateNIN("").Err()
	var vErr *Error
	assert.ErrorAs(t, err, &vErr)
	assert.Equal(t, "NIN is required", err.Error())
}

func TestResultCarriesFieldKey(t *testing.T) {
	assert.Equal(t, "nin", ValidateNIN("1").Field)
	assert.Equal(t, "confirm_password", ValidatePassword("longenough1", "x").Field)
	assert.Equal(t, "full_name", ValidateRequired("Full name", "").Field)
	assert.Equal(t, "old_certificate_number", FieldKey(" Old certificate number"))
}
