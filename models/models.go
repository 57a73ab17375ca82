package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Event is a stored event. Participants lists the users who joined it, in
// the order they registered.
type Event struct {
	ID           primitive.ObjectID   `bson:"_id,omitempty" json:"_id"`
	Title        string               `bson:"title" json:"title"`
	Description  string               `bson:"description" json:"description"`
	Location     string               `bson:"location" json:"location"`
	Date         time.Time            `bson:"date" json:"date"`
	CreatedBy    primitive.ObjectID   `bson:"createdBy,omitempty" json:"createdBy,omitempty"`
	CreatedAt    time.Time            `bson:"createdAt" json:"createdAt"`
	Participants []primitive.ObjectID `bson:"participants" json:"participants"`
}

// User is a stored account. Email is unique across users and Password holds
// a bcrypt hash. RegisteredEvents mirrors Event.Participants.
type User struct {
	ID                primitive.ObjectID   `bson:"_id,omitempty" json:"_id"`
	Name              string               `bson:"name" json:"name"`
	Email             string               `bson:"email" json:"email"`
	Password          string               `bson:"password" json:"-"`
	University        string               `bson:"university,omitempty" json:"university,omitempty"`
	Department        string               `bson:"department,omitempty" json:"department,omitempty"`
	UniversityYear    string               `bson:"universityYear,omitempty" json:"universityYear,omitempty"`
	IsVerified        bool                 `bson:"isVerified" json:"isVerified"`
	VerificationCode  string               `bson:"verificationCode,omitempty" json:"-"`
	ResetPasswordCode string               `bson:"resetPasswordCode,omitempty" json:"-"`
	RegisteredEvents  []primitive.ObjectID `bson:"registeredEvents" json:"registeredEvents"`
}

// HasEvent reports whether the user's registered-events list holds id.
func (u *User) HasEvent(id primitive.ObjectID) bool {
	return containsID(u.RegisteredEvents, id)
}

// HasParticipant reports whether the event's participant list holds id.
func (e *Event) HasParticipant(id primitive.ObjectID) bool {
	return containsID(e.Participants, id)
}

func containsID(ids []primitive.ObjectID, id primitive.ObjectID) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
