package repoargs

import "github.com/google/uuid"

type CreateAccount struct {
	UserID   uuid.UUID
	Currency string
}
