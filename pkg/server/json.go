package server

import (
	"reflect"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"

	"github.com/GYB356/climabill-sub002/pkg/models"
)

var jsonHandler = sonic.Config{
	EscapeHTML: true,
}.Froze()

func init() {
	// Pretouch the hot response types
	sonic.Pretouch(reflect.TypeOf(models.CarbonUsage{}))
	sonic.Pretouch(reflect.TypeOf(models.FootprintSummary{}))
	sonic.Pretouch(reflect.TypeOf(models.Estimate{}))
}

// respondJSON writes v with sonic, falling back to gin's encoder on error.
func respondJSON(c *gin.Context, status int, v interface{}) {
	data, err := jsonHandler.Marshal(v)
	if err != nil {
		c.JSON(status, v)
		return
	}
	c.Data(status, "application/json; charset=utf-8", data)
}

func respondError(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{"error": message})
}
