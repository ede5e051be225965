package utils

import (
	"fmt"
	"net/url"
)

// UPILink builds a upi://pay deep link addressed to the payee's virtual
// payment address. Amount is formatted to paise precision.
func UPILink(vpa, payeeName string, amount float64, note string) string {
	v := url.Values{}
	v.Set("pa", vpa)
	v.Set("pn", payeeName)
	v.Set("am", fmt.Sprintf("%.2f", amount))
	v.Set("cu", "INR")
	if note != "" {
		v.Set("tn", note)
	}
	return "upi://pay?" + v.Encode()
}

// BankTransferInstructions renders human-readable transfer instructions for
// payers who cannot use UPI.
func BankTransferInstructions(beneficiary, vpa string, amount float64, reference string) string {
	return fmt.Sprintf(
		"Transfer %.2f INR to %s (VPA: %s).\n"+
			"Use reference %q so the payment can be matched to your loan.\n"+
			"Payments without the reference may take longer to reconcile.",
		amount, beneficiary, vpa, reference,
	)
}
