package models

import "go.mongodb.org/mongo-driver/bson"

// Well-known keys inside Trip.VehicleDetails.
const (
	VehicleKeyVehID = "vehid"
	VehicleKeyIMEI  = "imei"

	// A sub-document carrying a "field" document with a DBmaster collection
	// name points at a vehicle master record in that collection.
	VehicleKeyField    = "field"
	VehicleKeyDBMaster = "DBmaster"
	VehicleKeyValue    = "value"
	VehicleKeyID       = "_id"
)

// VehicleIdentity returns the vehid and imei carried by vehicle details, if any.
func VehicleIdentity(details bson.M) (vehid interface{}, imei interface{}) {
	if details == nil {
		return nil, nil
	}
	return details[VehicleKeyVehID], details[VehicleKeyIMEI]
}
