package domain

import "errors"

var (
	// ErrEmptyCart rejects a checkout attempt against a cart with no lines.
	ErrEmptyCart = errors.New("cart is empty, nothing to checkout")

	// ErrPaymentInitiation covers provider failures while creating a
	// checkout session.
	ErrPaymentInitiation = errors.New("payment session could not be created")

	// ErrOrderNotFound means no local order matches the given id or
	// provider session id.
	ErrOrderNotFound = errors.New("order not found")

	// ErrAmountMismatch marks a completed-payment event whose amount does
	// not equal the order total. The order is never marked paid from it.
	ErrAmountMismatch = errors.New("event amount does not match order total")

	// ErrInvalidSignature rejects a webhook payload whose signature does
	// not verify against the shared secret.
	ErrInvalidSignature = errors.New("webhook signature verification failed")
)
