package dto

import (
	"time"

	"distance-request-service/internal/domain"
)

type CreateTransactionRequest struct {
	ReportID string `json:"report_id"`
	Comment  string `json:"comment"`
	Currency string `json:"currency"`
}

type TransactionResponse struct {
	TransactionID string             `json:"transaction_id"`
	ReportID      string             `json:"report_id"`
	Amount        string             `json:"amount"`
	Currency      string             `json:"currency"`
	Merchant      string             `json:"merchant"`
	Comment       string             `json:"comment"`
	Waypoints     domain.WaypointSet `json:"waypoints"`
	Route         *RouteResponse     `json:"route"`
	IsLoading     bool               `json:"is_loading"`
	RouteErrors   map[int64]string   `json:"route_errors,omitempty"`
	PendingAction string             `json:"pending_action,omitempty"`
	Created       time.Time          `json:"created"`
}

func NewRouteResponse(r *domain.Route) *RouteResponse {
	if r == nil {
		return nil
	}
	return &RouteResponse{
		DistanceMeters:  r.DistanceMeters,
		DurationSeconds: r.DurationSeconds,
		Geometry:        r.Geometry,
	}
}

func NewTransactionResponse(tx *domain.Transaction) TransactionResponse {
	return TransactionResponse{
		TransactionID: tx.TransactionID,
		ReportID:      tx.ReportID,
		Amount:        tx.Amount.StringFixed(2),
		Currency:      tx.Currency,
		Merchant:      tx.Merchant,
		Comment:       tx.Comment.Comment,
		Waypoints:     tx.Waypoints(),
		Route:         NewRouteResponse(tx.Route),
		IsLoading:     tx.IsLoadingRoute(),
		RouteErrors:   tx.ErrorFields[domain.ErrorFieldRoute],
		PendingAction: tx.PendingAction,
		Created:       tx.Created,
	}
}
