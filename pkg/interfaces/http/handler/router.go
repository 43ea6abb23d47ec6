package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/vsinha/fuelrecon/pkg/app"
	"github.com/vsinha/fuelrecon/pkg/infrastructure/logger"
)

// NewRouter builds the gin engine with logging and recovery middleware
func NewRouter(a *app.App) *gin.Engine {
	if a.Config.Environment != "development" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(logger.Recovery(a.Logger), logger.GinMiddleware(a.Logger))
	New(a).Register(r)
	return r
}
