package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Event is a time-boxed promotional listing created by a shop.
type Event struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	Name          string             `bson:"name" json:"name"`
	Description   string             `bson:"description" json:"description"`
	Category      string             `bson:"category,omitempty" json:"category,omitempty"`
	Tags          string             `bson:"tags,omitempty" json:"tags,omitempty"`
	OriginalPrice float64            `bson:"originalPrice,omitempty" json:"originalPrice,omitempty"`
	DiscountPrice float64            `bson:"discountPrice" json:"discountPrice"`
	Stock         int                `bson:"stock" json:"stock"`
	Images        []Avatar           `bson:"images,omitempty" json:"images,omitempty"`
	StartDate     time.Time          `bson:"start_Date,omitempty" json:"start_Date,omitempty"`
	FinishDate    time.Time          `bson:"Finish_Date,omitempty" json:"Finish_Date,omitempty"`
	Status        string             `bson:"status,omitempty" json:"status,omitempty"`
	ShopID        primitive.ObjectID `bson:"shopId" json:"shopId"`
	SoldOut       int                `bson:"sold_out,omitempty" json:"sold_out,omitempty"`
	CreatedAt     time.Time          `bson:"createdAt" json:"createdAt"`
}
