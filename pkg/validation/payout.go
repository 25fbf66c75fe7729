package validation

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	accountNumberPattern = regexp.MustCompile(`^[0-9]{6,20}$`)
	ifscPattern          = regexp.MustCompile(`^[A-Z]{4}0[A-Z0-9]{6}$`)
	upiPattern           = regexp.MustCompile(`^[a-zA-Z0-9._-]{2,256}@[a-zA-Z][a-zA-Z0-9]{1,63}$`)
)

// payoutFields lists the required detail keys per payout method type.
var payoutFields = map[string][]string{
	"bank":   {"accountHolderName", "accountNumber", "ifsc"},
	"upi":    {"upiId"},
	"wallet": {"provider", "walletId"},
}

// ValidatePayoutMethod checks that details carries every field the method type needs
// and that the formatted ones are well formed.
func ValidatePayoutMethod(methodType string, details map[string]string) error {
	fields, ok := payoutFields[methodType]
	if !ok {
		return fmt.Errorf("unsupported payout method %q", methodType)
	}
	for _, field := range fields {
		if strings.TrimSpace(details[field]) == "" {
			return fmt.Errorf("payoutMethod.%s is required for %s payouts", field, methodType)
		}
	}

	switch methodType {
	case "bank":
		if err := ValidateAccountNumber(details["accountNumber"]); err != nil {
			return err
		}
		if err := ValidateIFSC(details["ifsc"]); err != nil {
			return err
		}
	case "upi":
		if err := ValidateUPI(details["upiId"]); err != nil {
			return err
		}
	}
	return nil
}

// ValidateAccountNumber accepts 6 to 20 digits, ignoring spaces.
func ValidateAccountNumber(number string) error {
	if !accountNumberPattern.MatchString(NormalizeAccountNumber(number)) {
		return fmt.Errorf("payoutMethod.accountNumber must be 6 to 20 digits")
	}
	return nil
}

// ValidateIFSC checks an Indian Financial System Code, case-insensitively.
func ValidateIFSC(code string) error {
	if !ifscPattern.MatchString(strings.ToUpper(strings.TrimSpace(code))) {
		return fmt.Errorf("payoutMethod.ifsc %q is not a valid IFSC code", code)
	}
	return nil
}

func ValidateUPI(id string) error {
	if !upiPattern.MatchString(strings.TrimSpace(id)) {
		return fmt.Errorf("payoutMethod.upiId %q must look like handle@provider", id)
	}
	return nil
}

func NormalizeAccountNumber(number string) string {
	return strings.ReplaceAll(strings.TrimSpace(number), " ", "")
}

// NormalizePayoutDetails trims every value and canonicalizes bank fields.
func NormalizePayoutDetails(methodType string, details map[string]string) map[string]string {
	out := make(map[string]string, len(details))
	for k, v := range details {
		out[k] = strings.TrimSpace(v)
	}
	if methodType == "bank" {
		out["accountNumber"] = NormalizeAccountNumber(out["accountNumber"])
		out["ifsc"] = strings.ToUpper(out["ifsc"])
	}
	return out
}
