package validation

import "time"

// ApplicationForm carries the typed fields of a certificate application.
type ApplicationForm struct {
	FullName          string            `json:"full_name" yaml:"full_name"`
	NIN               string            `json:"nin" yaml:"nin"`
	DateOfBirth       string            `json:"date_of_birth" yaml:"date_of_birth"`
	State             string            `json:"state" yaml:"state"`
	LocalGovernmentID uint              `json:"local_government_id" yaml:"local_government_id"`
	Village           string            `json:"village" yaml:"village"`
	Phone             string            `json:"phone" yaml:"phone"`
	Email             string            `json:"email" yaml:"email"`
	Address           string            `json:"address" yaml:"address"`
	Landmark          string            `json:"landmark,omitempty" yaml:"landmark"`
	ExtraFields       map[string]string `json:"extra_fields,omitempty" yaml:"extra_fields"`
}

// DigitizationForm is the application shape plus the paper certificate details.
type DigitizationForm struct {
	FullName             string `json:"full_name" yaml:"full_name"`
	NIN                  string `json:"nin" yaml:"nin"`
	DateOfBirth          string `json:"date_of_birth" yaml:"date_of_birth"`
	State                string `json:"state" yaml:"state"`
	LocalGovernmentID    uint   `json:"local_government_id" yaml:"local_government_id"`
	Village              string `json:"village" yaml:"village"`
	Phone                string `json:"phone" yaml:"phone"`
	Email                string `json:"email" yaml:"email"`
	OldCertificateNumber string `json:"old_certificate_number" yaml:"old_certificate_number"`
	IssueYear            string `json:"issue_year" yaml:"issue_year"`
	Address              string `json:"address,omitempty" yaml:"address"`
}

func (f ApplicationForm) personalChecks() []func() Result {
	return []func() Result{
		func() Result { return ValidateRequired("Full name", f.FullName) },
		func() Result { return ValidateNIN(f.NIN) },
		func() Result { return ValidateNotAfter("Date of birth", f.DateOfBirth, time.Now()) },
		func() Result { return ValidateRequired("State", f.State) },
		func() Result { return ValidateSelected("Local government", f.LocalGovernmentID) },
		func() Result { return ValidateRequired("Village", f.Village) },
	}
}

func (f ApplicationForm) contactChecks() []func() Result {
	return []func() Result{
		func() Result { return ValidatePhone(f.Phone) },
		func() Result { return ValidateEmail(f.Email) },
		func() Result { return ValidateRequired("Address", f.Address) },
	}
}

// ValidateApplication runs every field check in declaration order and
// returns the first failure.
func ValidateApplication(f ApplicationForm) Result {
	return First(append(f.personalChecks(), f.contactChecks()...)...)
}

// ValidateApplicationPersonal covers the first wizard step.
func ValidateApplicationPersonal(f ApplicationForm) Result {
	return First(f.personalChecks()...)
}

// ValidateApplicationContact covers the second wizard step.
func ValidateApplicationContact(f ApplicationForm) Result {
	return First(f.contactChecks()...)
}

func (f DigitizationForm) personalChecks() []func() Result {
	return []func() Result{
		func() Result { return ValidateRequired("Full name", f.FullName) },
		func() Result { return ValidateNIN(f.NIN) },
		func() Result { return ValidateNotAfter("Date of birth", f.DateOfBirth, time.Now()) },
		func() Result { return ValidateRequired("State", f.State) },
		func() Result { return ValidateSelected("Local government", f.LocalGovernmentID) },
		func() Result { return ValidatePhone(f.Phone) },
		func() Result { return ValidateEmail(f.Email) },
	}
}

func (f DigitizationForm) certificateChecks() []func() Result {
	return []func() Result{
		func() Result { return ValidateRequired("Old certificate number", f.OldCertificateNumber) },
		func() Result { return ValidateYear("Issue year", f.IssueYear) },
	}
}

func ValidateDigitization(f DigitizationForm) Result {
	return First(append(f.personalChecks(), f.certificateChecks()...)...)
}

func ValidateDigitizationPersonal(f DigitizationForm) Result {
	return First(f.personalChecks()...)
}

func ValidateDigitizationCertificate(f DigitizationForm) Result {
	return First(f.certificateChecks()...)
}

// RegistrationForm is the applicant sign-up payload.
type RegistrationForm struct {
	FullName        string `json:"fullName"`
	Email           string `json:"email"`
	Phone           string `json:"phone"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

func ValidateRegistration(f RegistrationForm) Result {
	return First(
		func() Result { return ValidateRequired("Full name", f.FullName) },
		func() Result { return ValidateEmail(f.Email) },
		func() Result { return ValidatePhone(f.Phone) },
		func() Result { return ValidatePassword(f.Password, f.ConfirmPassword) },
	)
}
