// Package pricing maintains the SKU price lookup: a built-in catalog of
// Microsoft 365 list prices keyed by SKU part number, and a sync that
// aligns the lookup table with the SKUs actually present in the tenant.
package pricing

// CatalogEntry is one known SKU with its friendly name and list price.
type CatalogEntry struct {
	FriendlyName string
	MonthlyCost  float64
}

// Catalog maps SKU part numbers to published monthly per-user prices
// (2024 Microsoft 365 pricing pages). Per-tenant and free SKUs carry the
// price noted next to them.
var Catalog = map[string]CatalogEntry{
	// Enterprise plans
	"ENTERPRISEPREMIUM": {"Microsoft 365 E5", 57.00},
	"ENTERPRISEPACK":    {"Microsoft 365 E3", 36.00},
	"STANDARDPACK":      {"Office 365 E1", 8.00},
	"STANDARDWOFFPACK":  {"Office 365 E2", 10.00},
	"DESKLESSPACK":      {"Microsoft 365 F3", 8.00},

	// Business plans
	"O365_BUSINESS_ESSENTIALS": {"Microsoft 365 Business Basic", 6.00},
	"O365_BUSINESS_PREMIUM":    {"Microsoft 365 Business Premium", 22.00},
	"O365_BUSINESS":            {"Microsoft 365 Apps for business", 8.25},
	"SPB":                      {"Microsoft 365 Business Premium", 22.00},
	"SMB_BUSINESS":             {"Microsoft 365 Business Basic", 6.00},
	"SMB_BUSINESS_PREMIUM":     {"Microsoft 365 Business Premium", 22.00},

	// E3/E5 variants
	"Microsoft_365_E3_(no_Teams)": {"Microsoft 365 E3 (no Teams)", 36.00},
	"SPE_E3":                      {"Microsoft 365 E3", 36.00},
	"SPE_E5":                      {"Microsoft 365 E5", 57.00},

	// Exchange
	"EXCHANGESTANDARD":   {"Exchange Online Plan 1", 4.00},
	"EXCHANGEENTERPRISE": {"Exchange Online Plan 2", 8.00},
	"EXCHANGEDESKLESS":   {"Exchange Online Kiosk", 2.00},

	// SharePoint
	"SHAREPOINTSTANDARD":   {"SharePoint Online Plan 1", 5.00},
	"SHAREPOINTENTERPRISE": {"SharePoint Online Plan 2", 10.00},
	"SHAREPOINTSTORAGE":    {"SharePoint Online Storage", 0.20}, // per GB

	// Teams & Communication
	"MCOSTANDARD":                {"Microsoft Teams Essentials", 4.00},
	"MCOPSTN1":                   {"Calling Plan", 12.00},
	"MCOPSTNC":                   {"Communication Credits", 0.00}, // variable
	"PHONESYSTEM_VIRTUALUSER":    {"Phone System Virtual User", 15.00},
	"Microsoft_Teams_Rooms_Basic": {"Teams Rooms Basic", 0.00}, // free
	"Microsoft_Teams_Rooms_Pro":   {"Teams Rooms Pro", 40.00},

	// Power Platform
	"FLOW_FREE":                  {"Power Automate Free", 0.00},
	"FLOW_PER_USER":              {"Power Automate per user", 15.00},
	"POWERAUTOMATE_ATTENDED_RPA": {"Power Automate attended RPA", 40.00},
	"POWERAPPS_PER_USER":         {"Power Apps per user", 20.00},
	"POWERAPPS_PER_APP_NEW":      {"Power Apps per app", 5.00},
	"POWERAPPS_DEV":              {"Power Apps Developer", 0.00}, // free
	"POWER_BI_PRO":               {"Power BI Pro", 9.99},
	"POWER_BI_STANDARD":          {"Power BI Premium", 20.00},

	// Project & Visio
	"PROJECTPROFESSIONAL": {"Project Plan 5", 55.00},
	"PROJECT_P1":          {"Project Plan 1", 10.00},
	"PROJECTESSENTIALS":   {"Project Plan 3", 30.00},
	"VISIOCLIENT":         {"Visio Plan 2", 15.00},
	"VISIO_PLAN1":         {"Visio Plan 1", 5.00},

	// Dynamics 365
	"DYN365_BUSCENTRAL_ESSENTIAL":      {"Dynamics 365 Business Central Essentials", 70.00},
	"DYN365_BUSCENTRAL_TEAM_MEMBER":    {"Dynamics 365 Business Central Team Member", 8.00},
	"DYN365_FINANCIALS_ACCOUNTANT_SKU": {"Dynamics 365 Business Central Accountant", 0.00}, // free
	"D365_MARKETING_USER":              {"Dynamics 365 Marketing", 1500.00},                // per tenant

	// Security & Compliance
	"AAD_PREMIUM":                 {"Azure AD Premium P1", 6.00},
	"AAD_PREMIUM_P2":              {"Azure AD Premium P2", 9.00},
	"INTUNE_A":                    {"Microsoft Intune", 6.00},
	"INTUNE_A_D":                  {"Microsoft Intune Device", 6.00},
	"INTUNE_DEVICE_ENTERPRISE_New": {"Microsoft Intune Device", 6.00},
	"EMS":                         {"Enterprise Mobility + Security E3", 10.60},

	// Microsoft 365 Copilot
	"Microsoft_365_Copilot": {"Microsoft 365 Copilot", 30.00},

	// Forms & Stream
	"FORMS_PRO": {"Microsoft Forms Pro", 200.00}, // per tenant
	"STREAM":    {"Microsoft Stream", 0.00},      // included

	// Other/Legacy
	"WINDOWS_STORE":                  {"Windows Store for Business", 0.00},
	"SPZA_IW":                        {"App Connect", 0.00},
	"CPC_B_2C_4RAM_64GB_WHB":         {"Cloud PC", 31.00},
	"CCIBOTS_PRIVPREV_VIRAL":         {"Copilot Studio Trial", 0.00},
	"PROJECT_MADEIRA_PREVIEW_IW_SKU": {"Business Central Preview", 0.00},
}

// Lookup returns the catalog entry for a SKU part number.
func Lookup(partNumber string) (CatalogEntry, bool) {
	e, ok := Catalog[partNumber]
	return e, ok
}
