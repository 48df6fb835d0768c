package scraper

import (
	"time"

	"github.com/ternarybob/annuaire/internal/services/parser"
)

// Locators of the annuaire.sante.fr markup. XPath expressions start with "/".
const (
	LoadingLocator = "//img[contains(@src, 'loading')]"
	NoDataLocator  = `//div[@class= 'blocs_details_infos_identif']/span[text()= "Pas d'information renseignée dans cette rubrique"]`

	SearchSubmitLocator   = ".champ_submit"
	SearchKeywordLocator  = "input[id='_rechercheportlet_INSTANCE_ctPdpHA24ctE_texttofind']"
	SearchLocationLocator = "input[id='_rechercheportlet_INSTANCE_ctPdpHA24ctE_adresse']"
	ResultLinksLocator    = "div[class='nom_prenom'] > a"
	NextPageLocator       = "a[title='Suivant']"

	NameLocator             = "div[class='details_entete_synthese'] > div[class='nom_prenom']"
	RPPSLocator             = "div[class='rpps'] > span"
	SecondaryAddressLocator = "//span[contains(@class, 'label FINESS')]/following-sibling::span[1]"
	SpecialtyLocator        = "div[class='ico_etat_main'] ~ div"
)

// Field labels shown next to the profile values.
const (
	PhoneLabel   = "Téléphone"
	FaxLabel     = "Fax"
	FinessLabel  = "Identifiant FINESS"
	SirenLabel   = "SIREN"
	AddressLabel = "Adresse :"
	RegionLabel  = "Région"
)

const (
	loadingTimeout = 10 * time.Second
	existsTimeout  = 3 * time.Second
	headerTimeout  = 3 * time.Second
	fieldTimeout   = 2 * time.Second
)

var (
	PhoneLocator   = parser.LocatorForLabel(PhoneLabel)
	FaxLocator     = parser.LocatorForLabel(FaxLabel)
	FinessLocator  = parser.LocatorForLabel(FinessLabel)
	SirenLocator   = parser.LocatorForLabel(SirenLabel)
	AddressLocator = parser.LocatorForLabel(AddressLabel)
	RegionLocator  = parser.LocatorForLabel(RegionLabel)
)
