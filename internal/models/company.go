package models

// CompanyEnrichment is the best-effort bag returned by the company registry
// lookups. Error is set instead of the data fields when the identifier-based
// lookup could not produce a result.
type CompanyEnrichment struct {
	Siren        string `json:"siren,omitempty"`
	Siret        string `json:"siret,omitempty"`
	DateCreation string `json:"date_creation,omitempty"`
	NafApeCode   string `json:"naf_ape_code,omitempty"`
	Error        string `json:"error,omitempty"`
}

// CompanyError returns an error-marker bag.
func CompanyError(msg string) CompanyEnrichment {
	return CompanyEnrichment{Error: msg}
}

// IsEmpty reports whether no data field is populated.
func (c CompanyEnrichment) IsEmpty() bool {
	return c.Siren == "" && c.Siret == "" && c.DateCreation == "" && c.NafApeCode == ""
}

// Available reports whether the bag carries usable enrichment. Both the empty
// bag and an error-marker bag mean "no enrichment available".
func (c CompanyEnrichment) Available() bool {
	return c.Error == "" && !c.IsEmpty()
}

// Combined returns the "siren/siret" value stored in the flat record: both
// parts joined by a slash when present, otherwise whichever exists.
func (c CompanyEnrichment) Combined() string {
	switch {
	case c.Siren != "" && c.Siret != "":
		return c.Siren + "/" + c.Siret
	case c.Siren != "":
		return c.Siren
	default:
		return c.Siret
	}
}
