package model

// CartItem is a single checkout line supplied by the caller.
type CartItem struct {
	VendorID   string
	MaterialID string
	SupplierID string
	Quantity   int64
}

// CheckoutFailure explains why a cart line could not be placed.
type CheckoutFailure struct {
	MaterialID string
	SupplierID string
	Requested  int64
	Available  int64
	Reason     string
}

// CheckoutResult is the outcome of a checkout call.
type CheckoutResult struct {
	Orders   []Order
	Failures []CheckoutFailure
}
