package request

type PlaceOrderRequest struct {
	ID string
}
