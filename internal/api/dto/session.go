package dto

import "distance-request-service/internal/domain"

type OpenSessionRequest struct {
	TransactionID string `json:"transaction_id"`
	ReportID      string `json:"report_id"`
	IOUType       string `json:"iou_type"`
	Mode          string `json:"mode"`
	BackTo        string `json:"back_to"`
}

type WaypointRequest struct {
	Address string   `json:"address"`
	Name    string   `json:"name"`
	Lat     *float64 `json:"lat"`
	Lng     *float64 `json:"lng"`
}

type ReorderRequest struct {
	Order []string `json:"order"`
}

type RouteResponse struct {
	DistanceMeters  int         `json:"distance_meters"`
	DurationSeconds int         `json:"duration_seconds"`
	Geometry        [][]float64 `json:"geometry"`
}

type SessionViewResponse struct {
	SessionID         string             `json:"session_id"`
	TransactionID     string             `json:"transaction_id"`
	Mode              string             `json:"mode"`
	Waypoints         domain.WaypointSet `json:"waypoints"`
	ValidCount        int                `json:"valid_count"`
	Route             *RouteResponse     `json:"route"`
	Amount            string             `json:"amount"`
	Merchant          string             `json:"merchant"`
	Errors            map[int64]string   `json:"errors"`
	HasError          bool               `json:"has_error"`
	IsLoadingRoute    bool               `json:"is_loading_route"`
	IsLoading         bool               `json:"is_loading"`
	ShouldShowLoading bool               `json:"should_show_loading"`
	Optimistic        bool               `json:"optimistic"`
	Offline           bool               `json:"offline"`
	CanAddStop        bool               `json:"can_add_stop"`
	EditState         string             `json:"edit_state,omitempty"`
}

// NavigationResponse reports where the client should go after a command.
// GoBack means "pop the screen", with NextRoute as the fallback target.
type NavigationResponse struct {
	NextRoute string `json:"next_route,omitempty"`
	GoBack    bool   `json:"go_back,omitempty"`
}
