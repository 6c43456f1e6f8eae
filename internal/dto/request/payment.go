package request

// VerifyPaymentRequest is what the Razorpay checkout hands back to the client
// after a successful payment.
type VerifyPaymentRequest struct {
	OrderID   string `json:"razorpay_order_id" validate:"required,max=100"`
	PaymentID string `json:"razorpay_payment_id" validate:"required,max=100"`
	Signature string `json:"razorpay_signature" validate:"required,max=256"`
}
