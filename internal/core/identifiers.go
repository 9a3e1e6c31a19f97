package core

import (
	"regexp"
	"strings"
)

// Identifier patterns for Indian tax registrations and postal codes.
// PincodePattern is the single canonical pincode rule: six digits, no leading zero.
const (
	GSTINPattern   = `^[0-9]{2}[A-Z]{5}[0-9]{4}[A-Z]{1}[1-9A-Z]{1}Z[0-9A-Z]{1}$`
	PANPattern     = `^[A-Z]{5}[0-9]{4}[A-Z]{1}$`
	PincodePattern = `^[1-9][0-9]{5}$`
	HSNPattern     = `^[0-9]{4,8}$`
)

var (
	gstinRe   = regexp.MustCompile(GSTINPattern)
	panRe     = regexp.MustCompile(PANPattern)
	pincodeRe = regexp.MustCompile(PincodePattern)
	hsnRe     = regexp.MustCompile(HSNPattern)
)

// ValidateGSTIN reports whether s has the shape of a 15-character GSTIN.
// Only the shape is checked; the trailing checksum character is not verified.
func ValidateGSTIN(s string) bool {
	return s != "" && gstinRe.MatchString(s)
}

// ValidatePAN reports whether s has the shape of a 10-character PAN.
func ValidatePAN(s string) bool {
	return s != "" && panRe.MatchString(s)
}

// ValidatePincode reports whether s is a 6-digit Indian pincode.
func ValidatePincode(s string) bool {
	return s != "" && pincodeRe.MatchString(s)
}

// ValidateHSN reports whether s is a 4 to 8 digit HSN/SAC code.
func ValidateHSN(s string) bool {
	return s != "" && hsnRe.MatchString(s)
}

// StateCodeFromGSTIN returns the two-digit state code prefix of a valid GSTIN, or "".
func StateCodeFromGSTIN(gstin string) string {
	if !ValidateGSTIN(gstin) {
		return ""
	}
	return gstin[:2]
}

// PANFromGSTIN returns the PAN embedded in a valid GSTIN (characters 3-12), or "".
func PANFromGSTIN(gstin string) string {
	if !ValidateGSTIN(gstin) {
		return ""
	}
	return gstin[2:12]
}

// IsIntraState reports whether supplier and recipient are registered in the same state.
// Either GSTIN being invalid makes the supply inter-state.
func IsIntraState(supplierGSTIN, recipientGSTIN string) bool {
	s := StateCodeFromGSTIN(supplierGSTIN)
	return s != "" && s == StateCodeFromGSTIN(recipientGSTIN)
}

// NormalizeIdentifier upper-cases and trims an identifier typed by a user.
func NormalizeIdentifier(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

var gstStates = map[string]string{
	"01": "Jammu and Kashmir",
	"02": "Himachal Pradesh",
	"03": "Punjab",
	"04": "Chandigarh",
	"05": "Uttarakhand",
	"06": "Haryana",
	"07": "Delhi",
	"08": "Rajasthan",
	"09": "Uttar Pradesh",
	"10": "Bihar",
	"11": "Sikkim",
	"12": "Arunachal Pradesh",
	"13": "Nagaland",
	"14": "Manipur",
	"15": "Mizoram",
	"16": "Tripura",
	"17": "Meghalaya",
	"18": "Assam",
	"19": "West Bengal",
	"20": "Jharkhand",
	"21": "Odisha",
	"22": "Chhattisgarh",
	"23": "Madhya Pradesh",
	"24": "Gujarat",
	"25": "Daman and Diu",
	"26": "Dadra and Nagar Haveli and Daman and Diu",
	"27": "Maharashtra",
	"28": "Andhra Pradesh (Old)",
	"29": "Karnataka",
	"30": "Goa",
	"31": "Lakshadweep",
	"32": "Kerala",
	"33": "Tamil Nadu",
	"34": "Puducherry",
	"35": "Andaman and Nicobar Islands",
	"36": "Telangana",
	"37": "Andhra Pradesh",
	"38": "Ladakh",
	"97": "Other Territory",
}

// StateName returns the GST state name for a two-digit state code.
func StateName(code string) (string, bool) {
	name, ok := gstStates[code]
	return name, ok
}

// GSTINDetails is the decomposition of a GSTIN into its parts.
type GSTINDetails struct {
	GSTIN        string `json:"gstin"`
	Valid        bool   `json:"valid"`
	StateCode    string `json:"state_code,omitempty"`
	StateName    string `json:"state_name,omitempty"`
	PAN          string `json:"pan,omitempty"`
	EntityNumber string `json:"entity_number,omitempty"`
	CheckChar    string `json:"check_char,omitempty"`
}

// DescribeGSTIN splits a GSTIN into state, PAN, entity number and check character.
// A GSTIN with an unknown state code is still shape-valid; StateName is left empty.
func DescribeGSTIN(gstin string) GSTINDetails {
	d := GSTINDetails{GSTIN: gstin, Valid: ValidateGSTIN(gstin)}
	if !d.Valid {
		return d
	}
	d.StateCode = gstin[:2]
	d.StateName, _ = StateName(d.StateCode)
	d.PAN = gstin[2:12]
	d.EntityNumber = gstin[12:13]
	d.CheckChar = gstin[14:15]
	return d
}
