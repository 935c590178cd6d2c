package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// SignatureHeader carries the hex HMAC-SHA256 of the raw webhook body.
const SignatureHeader = "x-razorpay-signature"

// Sign returns the hex-encoded HMAC-SHA256 of body keyed by secret.
func Sign(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature reports whether signature is the HMAC-SHA256 of the raw,
// unparsed body under secret. The body must be the exact bytes received.
func VerifySignature(rawBody []byte, signature, secret string) bool {
	signature = strings.TrimSpace(signature)
	if signature == "" || secret == "" {
		return false
	}
	expected := Sign(rawBody, secret)
	return hmac.Equal([]byte(expected), []byte(signature))
}

// VerifyPaymentSignature checks a checkout confirmation submitted by the
// client, signed over "orderID|paymentID".
func VerifyPaymentSignature(orderID, paymentID, signature, secret string) bool {
	orderID = strings.TrimSpace(orderID)
	paymentID = strings.TrimSpace(paymentID)
	if orderID == "" || paymentID == "" {
		return false
	}
	return VerifySignature([]byte(orderID+"|"+paymentID), signature, secret)
}
