package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Trip statuses that end a trip. Any other status counts as active for the
// duplicate-trip guard.
const (
	TripStatusCompleted = "COMPLETED"
	TripStatusCancelled = "CANCELLED"
)

// Trip represents a shipment or vehicle movement between geofenced hubs, as stored.
type Trip struct {
	ID                 primitive.ObjectID   `json:"_id" bson:"_id,omitempty"`
	TripID             string               `json:"tripId" bson:"tripId"`
	Status             string               `json:"status,omitempty" bson:"status,omitempty"`
	MovementStatus     string               `json:"movementStatus,omitempty" bson:"movementStatus,omitempty"`
	LocationStatus     string               `json:"locationStatus,omitempty" bson:"locationStatus,omitempty"`
	StartDate          *time.Time           `json:"startDate,omitempty" bson:"startDate,omitempty"`
	EndDate            *time.Time           `json:"endDate,omitempty" bson:"endDate,omitempty"`
	IsBlocked          bool                 `json:"isBlocked" bson:"isBlocked"`
	RouteDetails       RouteDetails         `json:"routeDetails" bson:"routeDetails"`
	VehicleDetails     bson.M               `json:"vehicleDetails,omitempty" bson:"vehicleDetails,omitempty"` // shape not fixed, see resolver
	ClientDetails      *ClientDetails       `json:"clientDetails,omitempty" bson:"clientDetails,omitempty"`
	OtherDetails       *OtherDetails        `json:"otherDetails,omitempty" bson:"otherDetails,omitempty"`
	AlertConfiguration []AlertConfiguration `json:"alertConfiguration,omitempty" bson:"alertConfiguration,omitempty"`
	CreatedAt          time.Time            `json:"createdAt" bson:"createdAt"`
	UpdatedAt          time.Time            `json:"updatedAt" bson:"updatedAt"`
}

// RouteDetails holds weak references into the geofences collection.
// ViaHub order is the route sequence.
type RouteDetails struct {
	SourceHub      primitive.ObjectID   `json:"sourceHub" bson:"sourceHub,omitempty"`
	DestinationHub primitive.ObjectID   `json:"destinationHub" bson:"destinationHub,omitempty"`
	ViaHub         []primitive.ObjectID `json:"viaHub" bson:"viaHub"`
}

// HubIDs returns every hub reference of the route, source first.
func (r RouteDetails) HubIDs() []primitive.ObjectID {
	ids := make([]primitive.ObjectID, 0, len(r.ViaHub)+2)
	if !r.SourceHub.IsZero() {
		ids = append(ids, r.SourceHub)
	}
	if !r.DestinationHub.IsZero() {
		ids = append(ids, r.DestinationHub)
	}
	for _, id := range r.ViaHub {
		if !id.IsZero() {
			ids = append(ids, id)
		}
	}
	return ids
}

type ClientDetails struct {
	ConsigneeName string `json:"ConsigneeName,omitempty" bson:"ConsigneeName,omitempty"`
	ConsignorName string `json:"ConsignorName,omitempty" bson:"ConsignorName,omitempty"`
	ReceiptNo     string `json:"receiptNo,omitempty" bson:"receiptNo,omitempty"`
	GstNo         string `json:"gstNo,omitempty" bson:"gstNo,omitempty"`
}

type OtherDetails struct {
	Comments []string `json:"comments" bson:"comments"`
}

// AlertConfiguration is an alert rule attached to a trip. The interval is
// stored under its legacy field name.
type AlertConfiguration struct {
	AlertName     string  `json:"alertName,omitempty" bson:"alertName,omitempty"`
	AlertType     string  `json:"alertType,omitempty" bson:"alertType,omitempty"`
	Value         string  `json:"value,omitempty" bson:"value,omitempty"`
	AlertInterval float64 `json:"alertInterval,omitempty" bson:"alertInterval(in minutes),omitempty"`
}

// TripView is a trip with its route hubs joined against the geofences collection.
type TripView struct {
	Trip
	RouteDetails ResolvedRoute `json:"routeDetails"`
}

// ResolvedRoute is RouteDetails with references replaced by the geofences
// they point at. Missing geofences are left out.
type ResolvedRoute struct {
	SourceHub      *Geofence  `json:"sourceHub,omitempty"`
	DestinationHub *Geofence  `json:"destinationHub,omitempty"`
	ViaHub         []Geofence `json:"viaHub"`
}

// TripPage is one page of a trip query.
type TripPage struct {
	Items []TripView `json:"items"`
	Total int64      `json:"total"`
	Page  int        `json:"page"`
	Limit int        `json:"limit"`
}
