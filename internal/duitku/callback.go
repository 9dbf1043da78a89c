package duitku

import "net/url"

// ParseCallback maps the x-www-form-urlencoded fields of a gateway callback
// into CallbackParams. Absent fields become empty strings; presence of the
// required ones is checked separately via HasRequiredFields.
func ParseCallback(form url.Values) CallbackParams {
	return CallbackParams{
		MerchantCode:     form.Get("merchantCode"),
		Amount:           form.Get("amount"),
		MerchantOrderID:  form.Get("merchantOrderId"),
		ProductDetail:    form.Get("productDetail"),
		AdditionalParam:  form.Get("additionalParam"),
		PaymentCode:      form.Get("paymentCode"),
		ResultCode:       form.Get("resultCode"),
		MerchantUserID:   form.Get("merchantUserId"),
		Reference:        form.Get("reference"),
		Signature:        form.Get("signature"),
		PublisherOrderID: form.Get("publisherOrderId"),
		SpUserHash:       form.Get("spUserHash"),
		SettlementDate:   form.Get("settlementDate"),
		IssuerCode:       form.Get("issuerCode"),
	}
}
