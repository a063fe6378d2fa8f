package extract

import (
	"encoding/json"
	"fmt"
	"strings"
)

// buildExtractionPrompt constructs the system instruction for the fact
// extraction call. The payee list and override merchants are embedded so
// the model normalizes known merchants instead of inventing variants.
func buildExtractionPrompt(in Input) string {
	var b strings.Builder

	b.WriteString("You will be provided with a credit card alert, and your task is to ")
	b.WriteString("extract the amount and merchant from it.\n\n")
	b.WriteString("Rules:\n")
	b.WriteString("- The amount is the positive purchase amount; never include a currency symbol.\n")
	b.WriteString("- Once you have extracted the merchant, match it to a payee from the ")
	b.WriteString("provided list. If no match is found, create a new human-readable payee ")
	fmt.Fprintf(&b, "using the merchant name, ensuring it's less than %d characters.\n", MaxPayeeNameLength)
	fmt.Fprintf(&b, "- %s are payment processors, not merchants. Never return a payment processor as the merchant.\n",
		joinProcessors(PaymentProcessors))
	b.WriteString("- If the merchant matches one of the override merchants, return it exactly as listed there.\n\n")

	b.WriteString("Payees:\n")
	b.WriteString(jsonList(in.Payees))
	b.WriteString("\n\nOverride merchants:\n")
	b.WriteString(jsonList(in.OverrideMerchants))

	return b.String()
}

// buildMatchPrompt constructs the system instruction for the payee
// reconciliation call.
func buildMatchPrompt(payees []string) string {
	var b strings.Builder

	b.WriteString("You will be provided with a merchant name from a credit card alert. ")
	b.WriteString("Match it to the single best payee from the provided list, ignoring ")
	b.WriteString("abbreviations, trailing store numbers and payment-processor prefixes. ")
	b.WriteString("If none of the payees plausibly refer to the same merchant, create a ")
	fmt.Fprintf(&b, "new human-readable payee name from the merchant, less than %d characters. ", MaxPayeeNameLength)
	b.WriteString("Always return exactly one payee name.\n\n")

	b.WriteString("Payees:\n")
	b.WriteString(jsonList(payees))

	return b.String()
}

func jsonList(items []string) string {
	if items == nil {
		items = []string{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		// []string cannot fail to marshal; keep the prompt builder total.
		return "[]"
	}
	return string(data)
}

func joinProcessors(names []string) string {
	if len(names) == 0 {
		return ""
	}
	if len(names) == 1 {
		return names[0]
	}
	return strings.Join(names[:len(names)-1], ", ") + " and " + names[len(names)-1]
}
