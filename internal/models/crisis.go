package models

// CrisisContact is a per-country record of emergency hotline numbers.
// PhoneNumber and SMSNumber are nullable; not every hotline offers both.
type CrisisContact struct {
	ID          int64   `json:"id"`
	CountryCode string  `json:"country_code"`
	CountryName string  `json:"country_name"`
	PhoneNumber *string `json:"phone_number"`
	SMSNumber   *string `json:"sms_number"`
	Description string  `json:"description"`
	IsActive    bool    `json:"is_active"`
}
