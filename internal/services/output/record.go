package output

import (
	"strings"
	"time"

	"github.com/ternarybob/annuaire/internal/models"
)

// BuildStructuredRecord maps a flat profile to its nested form. The combined
// "siren/siret" value is split on the first slash; without a slash the whole
// value is the siren. now is stamped as scraped_at in UTC.
func BuildStructuredRecord(flat models.ScrapedProfile, now time.Time) models.StructuredRecord {
	siren, siret, _ := strings.Cut(flat.CombinedSirenSiret, "/")

	return models.StructuredRecord{
		Identification: models.Identification{
			Name:         flat.Name,
			RPPSNumber:   flat.RPPSNumber,
			Specialty:    flat.Specialty,
			FinessID:     flat.FinessID,
			Siren:        siren,
			Siret:        siret,
			NafApeCode:   flat.NafApeCode,
			DateCreation: flat.DateCreation,
		},
		Contact: models.Contact{
			Phone: flat.PhoneNumber,
			Fax:   flat.FaxNumber,
		},
		Address: models.AddressInfo{
			Raw:        flat.Address,
			PostalCode: flat.PostalCode,
			City:       flat.City,
			Region:     flat.Region,
		},
		Meta: models.RecordMeta{
			SourceURL: flat.SourceURL,
			ScrapedAt: now.UTC().Format(time.RFC3339),
		},
	}
}
