package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/cleversamer/chatting-app/pkg/apperr"
)

func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) > 0 {
			err := c.Errors.Last()

			c.JSON(apperr.HTTPStatus(err.Err), gin.H{
				"error": err.Error(),
			})
		}
	}
}
