package http

import (
	"laptopkita/internal/logging"
	"laptopkita/internal/server/config"
	"laptopkita/internal/server/handlers"
	"laptopkita/internal/server/middleware"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func NewRouter(cfg config.Config, log *logging.Logger, h *handlers.LaptopHandler) *gin.Engine {
	origins := cfg.AllowOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(log))
	r.Use(cors.New(cors.Config{
		AllowOrigins: origins,
		AllowMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Authorization", "Content-Type"},
	}))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// Images are linked directly from listings, so they bypass the token.
	r.GET("/laptops/images/:image_id", h.GetImage)

	laptops := r.Group("/laptops")
	laptops.Use(middleware.Auth(cfg))
	{
		laptops.GET("/", h.ListLaptops)
		laptops.POST("/", h.CreateLaptop)
		laptops.DELETE("/:laptop_id", h.DeleteLaptop)
	}
	return r
}
