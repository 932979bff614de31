package verify

import (
	"encoding/json"
	"strings"
)

// GSTResult is the stable shape the UI consumes for a GSTIN lookup,
// regardless of which provider fields were populated.
type GSTResult struct {
	LegalName        *string         `json:"legalName"`
	TradeName        *string         `json:"tradeName"`
	Status           *string         `json:"status"`
	Constitution     *string         `json:"constitution"`
	Address          *string         `json:"address"`
	StateCode        *string         `json:"stateCode"`
	RegistrationDate *string         `json:"registrationDate"`
	Raw              json.RawMessage `json:"raw"`
}

// PANResult is the stable shape for a PAN lookup.
type PANResult struct {
	Valid      bool            `json:"valid"`
	HolderName *string         `json:"holder_name"`
	Status     *string         `json:"status"`
	Raw        json.RawMessage `json:"raw"`
}

type gstAddress struct {
	FullAddress    string `json:"full_address"`
	BuildingName   string `json:"building_name"`
	BuildingNumber string `json:"building_number"`
	FlatNumber     string `json:"flat_number"`
	Street         string `json:"street"`
	Location       string `json:"location"`
	District       string `json:"district"`
	StateCode      string `json:"state_code"`
	Pincode        string `json:"pincode"`
}

type gstPayload struct {
	Result struct {
		LegalName            string      `json:"legal_name"`
		TradeName            string      `json:"trade_name"`
		RegistrationStatus   string      `json:"current_registration_status"`
		BusinessConstitution string      `json:"business_constitution"`
		RegisterDate         string      `json:"register_date"`
		Address              *gstAddress `json:"primary_business_address"`
	} `json:"result"`
}

// NormalizeGST reshapes a raw provider payload. Unparseable payloads yield
// an all-null result with the raw body attached.
func NormalizeGST(payload json.RawMessage) GSTResult {
	out := GSTResult{Raw: payload}
	var p gstPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return out
	}
	r := p.Result
	out.LegalName = optional(r.LegalName)
	out.TradeName = optional(r.TradeName)
	out.Status = optional(r.RegistrationStatus)
	out.Constitution = optional(r.BusinessConstitution)
	out.RegistrationDate = optional(r.RegisterDate)
	if a := r.Address; a != nil {
		if a.FullAddress != "" {
			out.Address = optional(a.FullAddress)
		} else {
			out.Address = optional(composeAddress(a))
		}
		out.StateCode = optional(a.StateCode)
	}
	return out
}

// composeAddress joins the non-empty address components in postal order when
// the provider omits full_address.
func composeAddress(a *gstAddress) string {
	parts := []string{
		a.BuildingName, a.BuildingNumber, a.FlatNumber,
		a.Street, a.Location, a.District, a.StateCode, a.Pincode,
	}
	var keep []string
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			keep = append(keep, p)
		}
	}
	return strings.Join(keep, ", ")
}

type panPayload struct {
	Result struct {
		Status        string `json:"status"`
		PanStatus     string `json:"pan_status"`
		Name          string `json:"name"`
		PanHolderName string `json:"pan_holder_name"`
	} `json:"result"`
}

// NormalizePAN reshapes a raw PAN payload. Providers spell the status and
// holder-name fields differently across plan tiers so both spellings are
// accepted.
func NormalizePAN(payload json.RawMessage) PANResult {
	out := PANResult{Raw: payload}
	var p panPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return out
	}
	status := p.Result.Status
	if status == "" {
		status = p.Result.PanStatus
	}
	name := p.Result.Name
	if name == "" {
		name = p.Result.PanHolderName
	}
	out.Status = optional(status)
	out.HolderName = optional(name)
	out.Valid = strings.EqualFold(status, "VALID")
	return out
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
