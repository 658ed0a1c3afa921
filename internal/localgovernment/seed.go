package localgovernment

import "gorm.io/gorm"

var sampleLGAs = []LocalGovernment{
	{Name: "Ikeja", State: "Lagos", Code: "IKJ", ApplicationFee: 5000, DigitizationFee: 3000, IsActive: true},
	{Name: "Eti-Osa", State: "Lagos", Code: "ETO", ApplicationFee: 5000, DigitizationFee: 3000, IsActive: true},
	{Name: "Nsukka", State: "Enugu", Code: "NSK", ApplicationFee: 3500, DigitizationFee: 2000, IsActive: true},
	{Name: "Kano Municipal", State: "Kano", Code: "KMC", ApplicationFee: 4000, DigitizationFee: 2500, IsActive: true},
	{Name: "Ibadan North", State: "Oyo", Code: "IBN", ApplicationFee: 4500, DigitizationFee: 2500, IsActive: true},
}

// SeedLocalGovernments inserts sample LGAs when the table is empty.
func SeedLocalGovernments(db *gorm.DB) error {
	var count int64
	if err := db.Model(&LocalGovernment{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	rows := SampleLocalGovernments()
	return db.Create(&rows).Error
}

// SampleLocalGovernments returns a fresh copy of the seed rows.
func SampleLocalGovernments() []LocalGovernment {
	rows := make([]LocalGovernment, len(sampleLGAs))
	copy(rows, sampleLGAs)
	return rows
}
