package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/santiagomed/chef/llm"
)

type GenerateImageRequest struct {
	Title string `json:"title"`
}

func (s *Server) handleHome(c *gin.Context) {
	c.String(http.StatusOK, "Hello World")
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"uptime": time.Since(s.started).String(),
		"images": s.images != nil,
	})
}

func (s *Server) handleGenerate(c *gin.Context) {
	var body map[string]interface{}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": msgInvalidIngredients})
		return
	}
	raw, ok := body["ingredients"].(string)
	if !ok || strings.TrimSpace(raw) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": msgInvalidIngredients})
		return
	}

	ingredients := strings.Split(raw, ",")
	for i := range ingredients {
		ingredients[i] = strings.TrimSpace(ingredients[i])
	}
	s.logger.WithField("ingredients", ingredients).Info("generating recipe")

	r, err := llm.GenerateRecipe(c.Request.Context(), s.recipes, ingredients)
	recordGeneration("recipe", err)
	if err != nil {
		s.logger.WithField("error", err.Error()).Error("recipe generation failed")
		if errors.Is(err, llm.ErrInvalidRecipeJSON) {
			c.JSON(http.StatusInternalServerError, gin.H{"error": msgInvalidRecipeJSON})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": msgRecipeFailed})
		return
	}

	c.IndentedJSON(http.StatusOK, r)
}

func (s *Server) handleGenerateImage(c *gin.Context) {
	var req GenerateImageRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Title) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": msgNoTitle})
		return
	}
	if s.images == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": msgNoImageKey})
		return
	}

	key := cacheKey(req.Title)
	v, err, shared := s.inflight.Do(key, func() (interface{}, error) {
		// callers share this generation, so no single client may cancel it
		ctx, cancel := context.WithTimeout(context.WithoutCancel(c.Request.Context()), s.timeout)
		defer cancel()

		img, ok, err := s.cache.Get(ctx, key)
		if err != nil {
			s.logger.WithField("error", err.Error()).Warn("image cache lookup failed")
		}
		recordCacheLookup(ok)
		if ok {
			return img, nil
		}

		img, err = llm.GenerateStepImage(ctx, s.images, req.Title)
		recordGeneration("image", err)
		if err != nil {
			return nil, err
		}
		if err := s.cache.Set(ctx, key, img); err != nil {
			s.logger.WithField("error", err.Error()).Warn("image cache store failed")
		}
		return img, nil
	})
	if err != nil {
		s.logger.WithField("title", req.Title).WithField("error", err.Error()).Error("image generation failed")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   msgImageFailed,
			"details": err.Error(),
		})
		return
	}
	if shared {
		s.logger.WithField("title", req.Title).Debug("image request shared with an in-flight generation")
	}

	c.JSON(http.StatusOK, v.(*llm.GeneratedImage))
}
