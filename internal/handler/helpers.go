package handler

import (
	"net/http"

	"Talk_Flow/internal/pkg"

	"github.com/gin-gonic/gin"
)

const ContextUserIDKey = "user_id"

func userIDFromCtx(c *gin.Context) uint64 {
	if v, ok := c.Get(ContextUserIDKey); ok {
		if id, ok2 := v.(uint64); ok2 {
			return id
		}
	}
	return 0
}

// fail maps the failure taxonomy onto HTTP statuses: validation 400,
// authorization 403, not-found 404, everything else 503 so callers know a
// retry may help.
func fail(c *gin.Context, err error) {
	status := http.StatusServiceUnavailable
	switch pkg.Kind(err) {
	case pkg.KindValidation:
		status = http.StatusBadRequest
	case pkg.KindAuthorization:
		status = http.StatusForbidden
	case pkg.KindNotFound:
		status = http.StatusNotFound
	}
	c.JSON(status, gin.H{"msg": err.Error()})
}
