package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Shop is a seller account. Same lifecycle as User (activation via signed
// token, argon2id password hash, Cloudinary avatar).
type Shop struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	Name        string             `bson:"name" json:"name"`
	Email       string             `bson:"email" json:"email"`
	Password    string             `bson:"password,omitempty" json:"-"`
	PhoneNumber string             `bson:"phoneNumber,omitempty" json:"phoneNumber,omitempty"`
	Description string             `bson:"description,omitempty" json:"description,omitempty"`
	Address     string             `bson:"address,omitempty" json:"address,omitempty"`
	ZipCode     string             `bson:"zipCode,omitempty" json:"zipCode,omitempty"`
	Role        string             `bson:"role" json:"role"`
	Avatar      Avatar             `bson:"avatar" json:"avatar"`
	CreatedAt   time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time          `bson:"updatedAt" json:"updatedAt"`
}
