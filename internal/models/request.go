package models

import "time"

// CreateTripRequest is the payload for creating a trip. Hub references are
// hex object ids.
type CreateTripRequest struct {
	Status             string                 `json:"status"`
	MovementStatus     string                 `json:"movementStatus"`
	LocationStatus     string                 `json:"locationStatus"`
	StartDate          *time.Time             `json:"startDate"`
	EndDate            *time.Time             `json:"endDate"`
	IsBlocked          bool                   `json:"isBlocked"`
	RouteDetails       RouteDetailsRequest    `json:"routeDetails" validate:"required"`
	VehicleDetails     map[string]interface{} `json:"vehicleDetails"`
	ClientDetails      *ClientDetails         `json:"clientDetails"`
	OtherDetails       *OtherDetails          `json:"otherDetails"`
	AlertConfiguration []AlertConfiguration   `json:"alertConfiguration" validate:"omitempty,dive"`
}

type RouteDetailsRequest struct {
	SourceHub      string   `json:"sourceHub" validate:"required,mongodb"`
	DestinationHub string   `json:"destinationHub" validate:"required,mongodb"`
	ViaHub         []string `json:"viaHub" validate:"omitempty,dive,mongodb"`
}

// UpdateTripRequest is a partial update; nil fields are left untouched and
// non-nil fields replace the stored value.
type UpdateTripRequest struct {
	Status             *string                `json:"status"`
	MovementStatus     *string                `json:"movementStatus"`
	LocationStatus     *string                `json:"locationStatus"`
	StartDate          *time.Time             `json:"startDate"`
	EndDate            *time.Time             `json:"endDate"`
	IsBlocked          *bool                  `json:"isBlocked"`
	RouteDetails       *UpdateRouteRequest    `json:"routeDetails"`
	VehicleDetails     map[string]interface{} `json:"vehicleDetails"`
	ClientDetails      *ClientDetails         `json:"clientDetails"`
	OtherDetails       *OtherDetails          `json:"otherDetails"`
	AlertConfiguration *[]AlertConfiguration  `json:"alertConfiguration"`
}

type UpdateRouteRequest struct {
	SourceHub      *string   `json:"sourceHub" validate:"omitempty,mongodb"`
	DestinationHub *string   `json:"destinationHub" validate:"omitempty,mongodb"`
	ViaHub         *[]string `json:"viaHub" validate:"omitempty,dive,mongodb"`
}
