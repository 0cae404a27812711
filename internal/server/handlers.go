package server

import (
	"github.com/CivicMesh/app/internal/cache"
	"github.com/CivicMesh/app/internal/filter"
	"github.com/CivicMesh/app/internal/post"
	"github.com/CivicMesh/app/internal/vocab"

	"github.com/gofiber/fiber/v2"
)

func registerVocabRoutes(r fiber.Router) {
	r.Get("/", func(c *fiber.Ctx) error {
		type categoryInfo struct {
			ID            vocab.Category      `json:"id"`
			Label         string              `json:"label"`
			Subcategories []vocab.Subcategory `json:"subcategories"`
		}
		out := make([]categoryInfo, 0, len(vocab.Categories()))
		for _, cat := range vocab.Categories() {
			out = append(out, categoryInfo{
				ID:            cat,
				Label:         vocab.Label(cat),
				Subcategories: vocab.Subcategories(cat),
			})
		}
		return c.JSON(out)
	})
}

func registerPostRoutes(r fiber.Router, s *Server) {
	r.Get("/", func(c *fiber.Ctx) error {
		posts := s.Posts.Posts()
		if scope := c.Query("scope"); scope != "" {
			posts = s.Filters.Apply(scope, posts)
		}
		return c.JSON(fiber.Map{
			"posts":   posts,
			"loading": s.Posts.Loading(),
		})
	})

	r.Get("/:id", func(c *fiber.Ctx) error {
		if p, ok := s.Posts.Get(c.Params("id")); ok {
			return c.JSON(p)
		}
		p, err := s.Gateway.GetPost(c.Context(), c.Params("id"))
		if err != nil {
			return gatewayError(err)
		}
		return c.JSON(p)
	})

	r.Post("/", func(c *fiber.Ctx) error {
		var req post.CreateParams
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		p, err := s.Gateway.CreatePost(c.Context(), req)
		if err != nil {
			return gatewayError(err)
		}
		s.Posts.AddLocal(p)
		return c.Status(fiber.StatusCreated).JSON(p)
	})

	r.Post("/:id/onmyway", func(c *fiber.Ctx) error {
		var body struct {
			UserID string `json:"user_id"`
		}
		if err := c.BodyParser(&body); err != nil || body.UserID == "" {
			return fiber.NewError(fiber.StatusBadRequest, "user_id required")
		}
		p, err := s.Gateway.MarkOnMyWay(c.Context(), c.Params("id"), body.UserID)
		if err != nil {
			return gatewayError(err)
		}
		s.Posts.MergeLocal(p.ID, cache.Patch{
			OnMyWayBy: p.OnMyWayBy,
			UpdatedAt: &p.UpdatedAt,
		})
		return c.JSON(p)
	})

	r.Post("/:id/resolve", func(c *fiber.Ctx) error {
		var req post.ResolveParams
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		req.PostID = c.Params("id")

		snapshot, cached := s.Posts.Get(req.PostID)
		if !cached {
			var err error
			snapshot, err = s.Gateway.GetPost(c.Context(), req.PostID)
			if err != nil {
				return gatewayError(err)
			}
		}

		p, err := s.Gateway.ResolvePost(c.Context(), snapshot, req)
		if err != nil {
			return gatewayError(err)
		}
		if cached {
			s.Posts.MergeLocal(p.ID, cache.Patch{
				Resolution: p.Resolution,
				UpdatedAt:  &p.UpdatedAt,
			})
		} else {
			s.Posts.AddLocal(p)
		}
		return c.JSON(p)
	})
}

func registerFilterRoutes(r fiber.Router, filters *filter.Coordinator) {
	r.Get("/:scope", func(c *fiber.Ctx) error {
		return c.JSON(filters.Selection(c.Params("scope")))
	})

	r.Post("/:scope/category", func(c *fiber.Ctx) error {
		var body struct {
			Category string `json:"category"`
		}
		if err := c.BodyParser(&body); err != nil || body.Category == "" {
			return fiber.NewError(fiber.StatusBadRequest, "category required")
		}
		filters.ToggleCategory(c.Params("scope"), vocab.MatchCategory(body.Category))
		return c.JSON(filters.Selection(c.Params("scope")))
	})

	r.Post("/:scope/subcategory", func(c *fiber.Ctx) error {
		var body struct {
			Category    string `json:"category"`
			Subcategory string `json:"subcategory"`
		}
		if err := c.BodyParser(&body); err != nil || body.Category == "" || body.Subcategory == "" {
			return fiber.NewError(fiber.StatusBadRequest, "category and subcategory required")
		}
		cat := vocab.MatchCategory(body.Category)
		filters.ToggleSubcategory(c.Params("scope"), cat, vocab.MatchSubcategory(cat, body.Subcategory))
		return c.JSON(filters.Selection(c.Params("scope")))
	})

	r.Delete("/:scope", func(c *fiber.Ctx) error {
		filters.Clear(c.Params("scope"))
		return c.SendStatus(fiber.StatusNoContent)
	})
}
