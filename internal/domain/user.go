package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Role type to distinguish between user roles
type Role string

const (
	RoleTrainer Role = "trainer"
	RoleClient  Role = "client"
)

// User is the local profile of an account managed by the identity provider.
// The ID is the subject of the provider's token.
type User struct {
	ID        primitive.ObjectID `bson:"_id" json:"id"`
	Name      string             `bson:"name" json:"name"`
	Email     string             `bson:"email" json:"email"`
	Role      Role               `bson:"role" json:"role"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt" json:"updatedAt"`

	// Trainer only: clients managed by this trainer.
	ClientIDs []primitive.ObjectID `bson:"clientIds,omitempty" json:"clientIds,omitempty"`

	// Client only: the trainer managing this client, if any.
	TrainerID *primitive.ObjectID `bson:"trainerId,omitempty" json:"trainerId,omitempty"`
}

func (u *User) IsTrainer() bool {
	return u.Role == RoleTrainer
}

func (u *User) IsClient() bool {
	return u.Role == RoleClient
}

// Manages reports whether the trainer manages the given client.
func (u *User) Manages(clientID primitive.ObjectID) bool {
	for _, id := range u.ClientIDs {
		if id == clientID {
			return true
		}
	}
	return false
}
