package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ContextUserID is the context key set by the auth middleware.
const ContextUserID = "userID"

// ActorID returns the authenticated actor set by the auth middleware.
func ActorID(c *gin.Context) (uuid.UUID, bool) {
	v, exists := c.Get(ContextUserID)
	if !exists {
		return uuid.Nil, false
	}
	id, ok := v.(uuid.UUID)
	return id, ok
}
