package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Geofence is a hub a trip can start, end or pass through. Trips reference
// geofences by id only.
type Geofence struct {
	ID           primitive.ObjectID `json:"_id" bson:"_id,omitempty"`
	ClientID     string             `json:"clientId,omitempty" bson:"clientId,omitempty"`
	Name         string             `json:"name" bson:"name"`
	LocationType string             `json:"locationType,omitempty" bson:"locationType,omitempty"`
	MobileNumber int64              `json:"mobileNumber,omitempty" bson:"mobileNumber,omitempty"`
	Address      *Address           `json:"address,omitempty" bson:"address,omitempty"`
	FinalAddress string             `json:"finalAddress,omitempty" bson:"finalAddress,omitempty"`
	GeoCodeData  *GeoCode           `json:"geoCodeData,omitempty" bson:"geoCodeData,omitempty"`
	CreatedBy    string             `json:"createdBy,omitempty" bson:"createdBy,omitempty"`
	CreatedAt    time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt    time.Time          `json:"updatedAt" bson:"updatedAt"`
}

type Address struct {
	ZipCode  string `json:"zipCode,omitempty" bson:"zipCode,omitempty"`
	Country  string `json:"country,omitempty" bson:"country,omitempty"`
	State    string `json:"state,omitempty" bson:"state,omitempty"`
	Area     string `json:"area,omitempty" bson:"area,omitempty"`
	City     string `json:"city,omitempty" bson:"city,omitempty"`
	District string `json:"district,omitempty" bson:"district,omitempty"`
}

type GeoCode struct {
	Type     string   `json:"type,omitempty" bson:"type,omitempty"`
	Geometry Geometry `json:"geometry" bson:"geometry"`
}

// Geometry is a point or polygon; Radius is in meters for circular fences.
type Geometry struct {
	Type        string    `json:"type,omitempty" bson:"type,omitempty"`
	Coordinates []float64 `json:"coordinates,omitempty" bson:"coordinates,omitempty"`
	Radius      float64   `json:"radius,omitempty" bson:"radius,omitempty"`
}
