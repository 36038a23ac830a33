package intelligence

import (
	"strings"

	"sales-crm-workers/internal/models"
)

var customerTable = concat(
	keywordRules(CustomerArchitect, "architect", "design", "elevation"),
	keywordRules(CustomerBuilder, "bulk", "project", "builder"),
	keywordRules(CustomerContractor, "contractor", "labour"),
	keywordRules(CustomerHomeowner, "home", "villa", "house"),
)

// DetectCustomerType prefers the recorded project type and falls back to
// keywords in the message.
func DetectCustomerType(lead *models.Lead, text string) CustomerType {
	if lead != nil {
		switch lead.ProjectType {
		case models.ProjectCommercial:
			return CustomerBuilder
		case models.ProjectVilla:
			return CustomerHomeowner
		}
	}
	return CustomerTypeFromText(text)
}

// CustomerTypeFromText runs the keyword table only.
func CustomerTypeFromText(text string) CustomerType {
	return customerTable.Classify(strings.ToLower(text), CustomerUnknown)
}
