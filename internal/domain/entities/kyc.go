package entities

import (
	"io"
	"strings"

	domainerrors "finstack-p2p.backend/internal/domain/errors"
)

// KYCDocument is an uploaded file forwarded to the backend as a multipart part.
type KYCDocument struct {
	Field       string
	Filename    string
	ContentType string
	Open        func() (io.ReadCloser, error)
}

// KYCSubmission is the normalized identity verification request
type KYCSubmission struct {
	Country    string
	Firstname  string
	Lastname   string
	Middlename string
	DOB        string
	Phone      string
	Address    string

	BVN           string
	NIN           string
	BankCode      string
	AccountNumber string

	IDType     string
	IDNumber   string
	ProofFront string
	ProofBack  string

	LivelinessProviderReference string
	LivelinessConfidence        string

	Documents []KYCDocument
}

// IsNigeria selects the bank-style branch
func (k *KYCSubmission) IsNigeria() bool {
	c := strings.ToLower(strings.TrimSpace(k.Country))
	return c == "nigeria" || c == "ng"
}

// HasDocument reports whether a file was uploaded for field
func (k *KYCSubmission) HasDocument(field string) bool {
	for _, d := range k.Documents {
		if d.Field == field {
			return true
		}
	}
	return false
}

// Validate checks the fields the chosen branch requires
func (k *KYCSubmission) Validate() error {
	required := []struct{ name, value string }{
		{"firstname", k.Firstname},
		{"lastname", k.Lastname},
		{"dob", k.DOB},
		{"phone", k.Phone},
		{"address", k.Address},
		{"country", k.Country},
	}
	if k.IsNigeria() {
		required = append(required,
			struct{ name, value string }{"bvn", k.BVN},
			struct{ name, value string }{"nin", k.NIN},
			struct{ name, value string }{"bank_code", k.BankCode},
			struct{ name, value string }{"account_number", k.AccountNumber},
		)
	} else {
		required = append(required,
			struct{ name, value string }{"id_type", k.IDType},
			struct{ name, value string }{"id_number", k.IDNumber},
		)
	}
	for _, f := range required {
		if strings.TrimSpace(f.value) == "" {
			return domainerrors.BadRequest(f.name + " is required")
		}
	}
	if !k.IsNigeria() && k.ProofFront == "" && !k.HasDocument("proof_id.front") {
		return domainerrors.BadRequest("proof_id.front is required")
	}
	return nil
}

// Fields returns the upstream form fields for the chosen branch, empty values omitted.
func (k *KYCSubmission) Fields() map[string]string {
	out := map[string]string{}
	put := func(name, value string) {
		if v := strings.TrimSpace(value); v != "" {
			out[name] = v
		}
	}
	put("firstname", k.Firstname)
	put("lastname", k.Lastname)
	put("middlename", k.Middlename)
	put("dob", k.DOB)
	put("phone", k.Phone)
	put("address", k.Address)
	put("country", k.Country)
	if k.IsNigeria() {
		put("bvn", k.BVN)
		put("nin", k.NIN)
		put("bank_code", k.BankCode)
		put("account_number", k.AccountNumber)
	} else {
		put("id_type", k.IDType)
		put("id_number", k.IDNumber)
		put("proof_id.front", k.ProofFront)
		put("proof_id.back", k.ProofBack)
	}
	put("liveliness_provider_reference", k.LivelinessProviderReference)
	put("liveliness_confidence", k.LivelinessConfidence)
	return out
}

// KYCFieldLookup returns the first non-empty value among the given input names
type KYCFieldLookup func(names ...string) string

// NewKYCSubmission builds a submission from loosely named input fields.
func NewKYCSubmission(lookup KYCFieldLookup) *KYCSubmission {
	return &KYCSubmission{
		Country:    lookup("country", "Country", "countryName", "country_name"),
		Firstname:  lookup("firstname", "firstName", "first_name"),
		Lastname:   lookup("lastname", "lastName", "last_name"),
		Middlename: lookup("middlename", "middleName", "middle_name"),
		DOB:        lookup("dob", "dateOfBirth", "date_of_birth"),
		Phone:      lookup("phone", "phoneNumber", "phone_number"),
		Address:    lookup("address", "residentialAddress", "residential_address"),

		BVN:           lookup("bvn", "BVN"),
		NIN:           lookup("nin", "NIN"),
		BankCode:      lookup("bank_code", "bankCode"),
		AccountNumber: lookup("account_number", "accountNumber"),

		IDType:     lookup("id_type", "idType"),
		IDNumber:   lookup("id_number", "idNumber"),
		ProofFront: lookup("proof_id.front", "proofIdFront", "proof_id_front", "proofFront"),
		ProofBack:  lookup("proof_id.back", "proofIdBack", "proof_id_back", "proofBack"),

		LivelinessProviderReference: lookup("liveliness_provider_reference", "livelinessProviderReference", "livenessReference"),
		LivelinessConfidence:        lookup("liveliness_confidence", "livelinessConfidence", "livenessConfidence"),
	}
}

// KYCDocumentFields maps accepted upload field names to the upstream part name.
var KYCDocumentFields = map[string]string{
	"proof_id.front": "proof_id.front",
	"proofIdFront":   "proof_id.front",
	"proof_id_front": "proof_id.front",
	"proofFront":     "proof_id.front",
	"proof_id.back":  "proof_id.back",
	"proofIdBack":    "proof_id.back",
	"proof_id_back":  "proof_id.back",
	"proofBack":      "proof_id.back",
	"selfie":         "selfie",
	"liveliness":     "selfie",
}
