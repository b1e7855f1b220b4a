package router

import (
	"github.com/gin-gonic/gin"

	"github.com/pawel-modine/AsanaBot/internal/http/handler"
)

func DeliveryRouter(router *gin.RouterGroup, handler *handler.DeliveryHandler) {
	router.GET("", handler.List)
	router.GET("/:source/:delivery_id", handler.Get)
}
