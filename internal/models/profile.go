package models

// ScrapedProfile is the flat record captured from one profile page plus its
// company enrichment. Every field defaults to the empty string when the page
// (or the enrichment service) did not provide it.
type ScrapedProfile struct {
	Name               string
	RPPSNumber         string
	PhoneNumber        string
	FaxNumber          string
	FinessID           string
	Address            string
	PostalCode         string
	City               string
	Region             string
	Specialty          string
	CombinedSirenSiret string
	DateCreation       string
	NafApeCode         string
	SourceURL          string
}

// ProfileCSVHeader is the tabular header, in column order.
func ProfileCSVHeader() []string {
	return []string{
		"Name",
		"RPPS Number",
		"Phone Number",
		"FAX Number",
		"Finess ID",
		"Address",
		"Postal Code",
		"City",
		"Region",
		"Specialty",
		"Siren/Siret",
		"Date Creation",
		"NAF/APE CODE",
		"Source URL",
	}
}

// CSVRow returns the profile values in ProfileCSVHeader order.
func (p ScrapedProfile) CSVRow() []string {
	return []string{
		p.Name,
		p.RPPSNumber,
		p.PhoneNumber,
		p.FaxNumber,
		p.FinessID,
		p.Address,
		p.PostalCode,
		p.City,
		p.Region,
		p.Specialty,
		p.CombinedSirenSiret,
		p.DateCreation,
		p.NafApeCode,
		p.SourceURL,
	}
}

// StructuredRecord is the nested document appended to the JSON Lines store.
type StructuredRecord struct {
	Identification Identification `json:"identification"`
	Contact        Contact        `json:"contact"`
	Address        AddressInfo    `json:"address"`
	Meta           RecordMeta     `json:"meta"`
}

type Identification struct {
	Name         string `json:"name"`
	RPPSNumber   string `json:"rpps_number"`
	Specialty    string `json:"specialty"`
	FinessID     string `json:"finess_id"`
	Siren        string `json:"siren"`
	Siret        string `json:"siret"`
	NafApeCode   string `json:"naf_ape_code"`
	DateCreation string `json:"date_creation"`
}

type Contact struct {
	Phone string `json:"phone"`
	Fax   string `json:"fax"`
}

type AddressInfo struct {
	Raw        string `json:"raw"`
	PostalCode string `json:"postal_code"`
	City       string `json:"city"`
	Region     string `json:"region"`
}

type RecordMeta struct {
	SourceURL string `json:"source_url"`
	ScrapedAt string `json:"scraped_at"`
}
