// FilePath: api/resources/api.resource.orders.go
package resources

import (
	"encoding/json"
	"net/http"

	"github.com/airflowiq/hub/internal/errors"
	"github.com/airflowiq/hub/internal/export"
	"github.com/airflowiq/hub/internal/models"
	"github.com/airflowiq/hub/internal/service"
	"github.com/gorilla/mux"
	nuts "github.com/vaudience/go-nuts"
)

// OrderHandlers encapsulates the product and order HTTP handlers
type OrderHandlers struct {
	orders *service.OrderService
}

// @Summary List products
// @Description Active products ordered by name
// @Tags orders
// @Produce json
// @Success 200 {array} models.Product
// @Router /products [get]
// @Security BearerAuth
func (h *OrderHandlers) ListProducts(w http.ResponseWriter, r *http.Request) {
	requestID := nuts.NID("req", 12)
	products, err := h.orders.Products(r.Context())
	if err != nil {
		respondWithError(w, toAPIError(err, "failed to list products").WithRequestID(requestID))
		return
	}
	respondWithJSON(w, http.StatusOK, products)
}

// @Summary List orders
// @Description The caller's orders, newest first
// @Tags orders
// @Produce json
// @Success 200 {array} models.Order
// @Router /orders [get]
// @Security BearerAuth
func (h *OrderHandlers) ListOrders(w http.ResponseWriter, r *http.Request) {
	requestID := nuts.NID("req", 12)
	userID, apiErr := currentUser(r)
	if apiErr != nil {
		respondWithError(w, apiErr.WithRequestID(requestID))
		return
	}

	orders, err := h.orders.List(r.Context(), userID)
	if err != nil {
		respondWithError(w, toAPIError(err, "failed to list orders").WithRequestID(requestID))
		return
	}
	respondWithJSON(w, http.StatusOK, orders)
}

// @Summary Place an order
// @Description Price the cart server-side and store the order with its items
// @Tags orders
// @Accept json
// @Produce json
// @Param order body models.PlaceOrderRequest true "Cart and shipping address"
// @Success 201 {object} models.Order
// @Failure 400 {object} errors.APIError
// @Router /orders [post]
// @Security BearerAuth
func (h *OrderHandlers) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	requestID := nuts.NID("req", 12)
	userID, apiErr := currentUser(r)
	if apiErr != nil {
		respondWithError(w, apiErr.WithRequestID(requestID))
		return
	}

	var req models.PlaceOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, errors.NewValidationError("invalid request body", err).WithRequestID(requestID))
		return
	}

	order, err := h.orders.Place(r.Context(), userID, req)
	if err != nil {
		respondWithError(w, toAPIError(err, "failed to place order").WithRequestID(requestID))
		return
	}
	respondWithJSON(w, http.StatusCreated, order)
}

// @Summary Download an order receipt
// @Tags orders
// @Produce application/pdf
// @Param id path string true "Order ID"
// @Success 200 {file} file
// @Router /orders/{id}/receipt [get]
// @Security BearerAuth
func (h *OrderHandlers) GetReceipt(w http.ResponseWriter, r *http.Request) {
	requestID := nuts.NID("req", 12)
	userID, apiErr := currentUser(r)
	if apiErr != nil {
		respondWithError(w, apiErr.WithRequestID(requestID))
		return
	}

	order, err := h.orders.Get(r.Context(), userID, mux.Vars(r)["id"])
	if err != nil {
		respondWithError(w, toAPIError(err, "failed to load order").WithRequestID(requestID))
		return
	}

	data, err := export.ReceiptPDF(order)
	if err != nil {
		respondWithError(w, errors.NewInternalError("failed to render receipt", err).WithRequestID(requestID))
		return
	}
	respondWithFile(w, "application/pdf", "receipt-"+order.ID+".pdf", data)
}
