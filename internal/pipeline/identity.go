package pipeline

import (
	"fmt"
	"strings"

	"github.com/dvloznov/reckless-spender/internal/domain"
)

const unknownInstitution = "Unknown Institution"

// InstitutionLabel names the institution by org, then by FID.
func InstitutionLabel(inst domain.Institution) string {
	switch {
	case inst.Org != "":
		return inst.Org
	case inst.FID != "":
		return "Institution FID: " + inst.FID
	default:
		return unknownInstitution
	}
}

// ResolveAccountName derives the display name that identifies an account
// across imports.
func ResolveAccountName(acc *domain.ParsedAccount) string {
	return fmt.Sprintf("%s - %s (%s)",
		InstitutionLabel(acc.Institution), acc.AccountID, strings.ToUpper(acc.AccountType))
}
