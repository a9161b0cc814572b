package discovery

import (
	"fmt"
	"strings"
)

// categoryKeywords seed the model search per category. Data, not code: the
// vocabulary is a deployment concern.
var categoryKeywords = map[string]string{
	"food":      "restaurant deals, dining promotions, cafe discounts, hawker specials, 1-for-1 meals",
	"fashion":   "clothing sales, shoe discounts, apparel promotions, outlet deals",
	"events":    "attraction ticket deals, museum promotions, cinema discounts, activity bundles",
	"groceries": "supermarket promotions, grocery discounts, convenience store offers",
}

func systemPrompt(country, category string) string {
	return fmt.Sprintf(
		"You are a deals-discovery agent for %s. Search the web for currently running, "+
			"verifiable %s deals near the given location. Report each deal as a numbered item "+
			"with these labeled lines: Business Name, Address, Deal Details, Contact, Validity. "+
			"Only include offers from real businesses with a concrete discount or promotion. "+
			"Do not invent deals.",
		country, category)
}

func userPrompt(locationLabel, category string, excludeNames []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Find up to 8 active %s deals near %s.", category, locationLabel)
	if kw := categoryKeywords[category]; kw != "" {
		fmt.Fprintf(&b, " Focus on: %s.", kw)
	}
	if len(excludeNames) > 0 {
		fmt.Fprintf(&b, " The user has already seen offers from: %s. Exclude those businesses.",
			strings.Join(excludeNames, ", "))
	}
	return b.String()
}
