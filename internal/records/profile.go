// Package records manages citizen and customer profiles.
package records

import (
	"github.com/ahmetcoskunkizilkaya/citizen-admin/internal/docstore"
	"github.com/shopspring/decimal"
)

const (
	CitizensCollection  = "citizens"
	CustomersCollection = "customers"
)

// Profile is a citizen or customer record.
type Profile struct {
	ID            string           `json:"id,omitempty"`
	Name          string           `json:"name" validate:"required"`
	Surname       string           `json:"surname" validate:"required"`
	Identity      string           `json:"identity"`
	TaxID         string           `json:"cpf" validate:"required"`
	HealthCard    string           `json:"sus"`
	Phone         string           `json:"phone" validate:"required"`
	Address1      string           `json:"address1"`
	Address2      string           `json:"address2"`
	Address3      string           `json:"address3"`
	Address4      string           `json:"address4"`
	MonthlyIncome *decimal.Decimal `json:"monthly_income"`
	Profession    string           `json:"profession"`
	Ethnicity     string           `json:"ethnicity"`
	Sector        []string         `json:"sector" validate:"required,min=1,dive,sector"`
}

// validIncome reports whether the income is non-negative with at most two
// significant fraction digits; trailing zeros do not count.
func validIncome(d *decimal.Decimal) bool {
	return d == nil || (!d.IsNegative() && d.Equal(d.Round(2)))
}

// fields returns the document fields of p. The id is the document key and
// is not stored; the income is stored as a JSON number.
func (p Profile) fields() (map[string]any, error) {
	fields, err := docstore.ToMap(p)
	if err != nil {
		return nil, err
	}
	delete(fields, "id")
	if p.MonthlyIncome != nil {
		fields["monthly_income"] = p.MonthlyIncome.InexactFloat64()
	}
	return fields, nil
}

func fromDocument(doc docstore.Document) (Profile, error) {
	var p Profile
	if err := doc.Decode(&p); err != nil {
		return Profile{}, err
	}
	p.ID = doc.ID
	return p, nil
}
