package toyyibpay

// CreateBillRequest carries the fields of a toyyibpay createBill call.
// AmountCents is the bill amount in sen; ExternalRef is the reference the
// gateway echoes back to the callback endpoint.
type CreateBillRequest struct {
	BillName        string
	BillDescription string
	AmountCents     int64
	ExternalRef     string
	PayorName       string
	PayorEmail      string
	ReturnURL       string
	CallbackURL     string
}

// CreateBillResponse is the successful result of a createBill call.
type CreateBillResponse struct {
	BillCode   string
	PaymentURL string
}

// billCode is one element of the JSON array toyyibpay answers with.
type billCode struct {
	BillCode string `json:"BillCode"`
}
