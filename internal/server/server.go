package server

import (
	"github.com/CivicMesh/app/internal/cache"
	"github.com/CivicMesh/app/internal/config"
	"github.com/CivicMesh/app/internal/filter"
	"github.com/CivicMesh/app/internal/gateway"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

type Server struct {
	App     *fiber.App
	Cfg     config.Config
	Gateway gateway.Gateway
	Posts   *cache.Store
	Filters *filter.Coordinator
}

func NewServer(cfg config.Config, gw gateway.Gateway, posts *cache.Store, filters *filter.Coordinator) *Server {
	app := fiber.New()
	app.Use(recover.New())
	app.Use(logger.New())

	s := &Server{
		App:     app,
		Cfg:     cfg,
		Gateway: gw,
		Posts:   posts,
		Filters: filters,
	}

	registerRoutes(s)
	return s
}

func registerRoutes(s *Server) {
	s.App.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "mock": s.Cfg.UseMockData})
	})

	registerVocabRoutes(s.App.Group("/categories"))
	registerPostRoutes(s.App.Group("/posts"), s)
	registerFilterRoutes(s.App.Group("/filters"), s.Filters)

	s.App.Post("/sync", func(c *fiber.Ctx) error {
		silent := c.QueryBool("silent", false)
		if err := s.Posts.Refresh(c.Context(), silent); err != nil {
			return gatewayError(err)
		}
		return c.JSON(fiber.Map{"count": len(s.Posts.Posts())})
	})
}

// gatewayError maps tagged gateway failures onto HTTP statuses.
func gatewayError(err error) error {
	switch gateway.KindOf(err) {
	case gateway.KindValidation:
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case gateway.KindNotFound:
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case gateway.KindServer:
		return fiber.NewError(fiber.StatusBadGateway, err.Error())
	case gateway.KindNetwork:
		return fiber.NewError(fiber.StatusServiceUnavailable, err.Error())
	}
	return fiber.NewError(fiber.StatusInternalServerError, err.Error())
}
