package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Conversation links a buyer and a seller. GroupTitle is the caller-supplied
// pairing key (productID+userID on the storefront) used for find-or-create.
type Conversation struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	GroupTitle    string             `bson:"groupTitle" json:"groupTitle"`
	Members       []string           `bson:"members" json:"members"`
	LastMessage   string             `bson:"lastMessage,omitempty" json:"lastMessage,omitempty"`
	LastMessageID string             `bson:"lastMessageId,omitempty" json:"lastMessageId,omitempty"`
	CreatedAt     time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt     time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// Message is a single chat message inside a conversation.
type Message struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	ConversationID string             `bson:"conversationId" json:"conversationId"`
	Sender         string             `bson:"sender" json:"sender"`
	Text           string             `bson:"text,omitempty" json:"text,omitempty"`
	Images         *Avatar            `bson:"images,omitempty" json:"images,omitempty"`
	CreatedAt      time.Time          `bson:"createdAt" json:"createdAt"`
}
