package db

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"

	"github.com/havenchat/haven/internal/models"
)

// FallbackCountry is used when no country is requested or the requested code
// has no active row.
const FallbackCountry = "US"

// seedContacts is inserted once, the first time the table is found empty.
var seedContacts = []models.CrisisContact{
	{CountryCode: "US", CountryName: "United States", PhoneNumber: models.StringPtr("988"), SMSNumber: models.StringPtr("741741"), Description: "National Suicide Prevention Lifeline"},
	{CountryCode: "UK", CountryName: "United Kingdom", PhoneNumber: models.StringPtr("116 123"), Description: "Samaritans"},
	{CountryCode: "CA", CountryName: "Canada", PhoneNumber: models.StringPtr("1-833-456-4566"), SMSNumber: models.StringPtr("45645"), Description: "Talk Suicide Canada"},
	{CountryCode: "AU", CountryName: "Australia", PhoneNumber: models.StringPtr("13 11 14"), Description: "Lifeline Australia"},
	{CountryCode: "DE", CountryName: "Germany", PhoneNumber: models.StringPtr("0800 111 0 111"), Description: "Telefonseelsorge"},
	{CountryCode: "FR", CountryName: "France", PhoneNumber: models.StringPtr("3114"), Description: "Numéro national français de prévention du suicide"},
}

// GetCrisisContact returns the first active contact for countryCode, seeding
// the table if it is empty. An unknown code falls back to the US row. Returns
// (nil, nil) when even the fallback row is missing.
func (s *Store) GetCrisisContact(ctx context.Context, countryCode string) (*models.CrisisContact, error) {
	if countryCode == "" {
		countryCode = FallbackCountry
	}

	if err := s.seedCrisisContacts(ctx); err != nil {
		return nil, errors.Wrap(err, "seed crisis contacts")
	}

	contact, err := s.firstActiveContact(ctx, countryCode)
	if err != nil {
		return nil, err
	}
	if contact == nil && countryCode != FallbackCountry {
		return s.firstActiveContact(ctx, FallbackCountry)
	}
	return contact, nil
}

// CreateCrisisContact inserts a new contact row. Phone, SMS and description
// are optional.
func (s *Store) CreateCrisisContact(ctx context.Context, contact *models.CrisisContact) (*models.CrisisContact, error) {
	err := s.db.QueryRowContext(ctx, `
        INSERT INTO crisis_contacts (country_code, country_name, phone_number, sms_number, description)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING id, is_active`,
		contact.CountryCode, contact.CountryName, contact.PhoneNumber, contact.SMSNumber, contact.Description).
		Scan(&contact.ID, &contact.IsActive)
	if err != nil {
		return nil, errors.Wrap(err, "insert crisis contact")
	}
	return contact, nil
}

func (s *Store) seedCrisisContacts(ctx context.Context) error {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM crisis_contacts`).Scan(&count); err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	for _, c := range seedContacts {
		if _, err := s.db.ExecContext(ctx, `
            INSERT INTO crisis_contacts (country_code, country_name, phone_number, sms_number, description)
            VALUES ($1, $2, $3, $4, $5)`,
			c.CountryCode, c.CountryName, c.PhoneNumber, c.SMSNumber, c.Description); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) firstActiveContact(ctx context.Context, countryCode string) (*models.CrisisContact, error) {
	contact := &models.CrisisContact{}
	err := s.db.QueryRowContext(ctx, `
        SELECT id, country_code, country_name, phone_number, sms_number, description, is_active
        FROM crisis_contacts
        WHERE country_code = $1 AND is_active = true
        ORDER BY id ASC
        LIMIT 1`, countryCode).
		Scan(&contact.ID, &contact.CountryCode, &contact.CountryName,
			&contact.PhoneNumber, &contact.SMSNumber, &contact.Description, &contact.IsActive)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "get crisis contact")
	}
	return contact, nil
}
