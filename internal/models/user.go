package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Roles. Admin spelling matches the role stored by the dashboard tooling.
const (
	RoleUser  = "user"
	RoleAdmin = "Admin"
)

// Avatar references an image hosted on Cloudinary.
type Avatar struct {
	PublicID string `bson:"public_id,omitempty" json:"public_id,omitempty"`
	URL      string `bson:"url,omitempty" json:"url,omitempty"`
}

// Address is one entry of a user's address book. At most one entry per
// AddressType value; enforced at write time, not by the storage schema.
type Address struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"_id,omitempty"`
	Country     string             `bson:"country,omitempty" json:"country,omitempty"`
	City        string             `bson:"city,omitempty" json:"city,omitempty"`
	Address1    string             `bson:"address1,omitempty" json:"address1,omitempty"`
	Address2    string             `bson:"address2,omitempty" json:"address2,omitempty"`
	ZipCode     string             `bson:"zipCode,omitempty" json:"zipCode,omitempty"`
	AddressType string             `bson:"addressType" json:"addressType"`
}

// User is a customer account. Password is the argon2id hash; it is excluded
// from JSON always and from default store projections (opt-in via the
// WithPassword store methods).
type User struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	Name        string             `bson:"name" json:"name"`
	Email       string             `bson:"email" json:"email"`
	Password    string             `bson:"password,omitempty" json:"-"`
	PhoneNumber string             `bson:"phoneNumber,omitempty" json:"phoneNumber,omitempty"`
	Role        string             `bson:"role" json:"role"`
	Avatar      Avatar             `bson:"avatar" json:"avatar"`
	Addresses   []Address          `bson:"addresses,omitempty" json:"addresses,omitempty"`
	CreatedAt   time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time          `bson:"updatedAt" json:"updatedAt"`
}
