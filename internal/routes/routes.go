// Package routes names the client-side screens the application navigates between.
package routes

const (
	Landing      = "/"
	Registration = "/create-point"
	Checkout     = "/checkout-point"
)
