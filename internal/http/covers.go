package http

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/library/internal/database/books"
)

// CoversController serves catalog cover images from the local cache.
type CoversController struct {
	cache   CoverCache
	catalog CatalogService
}

func NewCoversController(cache CoverCache, catalog CatalogService) *CoversController {
	return &CoversController{
		cache:   cache,
		catalog: catalog,
	}
}

// GetCover serves a cached cover, falling back to a redirect when the download fails.
// GET /api/books/:id/cover
func (cc *CoversController) GetCover(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	book, err := cc.catalog.GetBook(c.Request.Context(), id)
	if errors.Is(err, books.ErrBookNotFound) {
		respondNotFound(c, "Book")
		return
	}
	if err != nil {
		respondInternalError(c, err, "get book")
		return
	}
	if book.CoverImage == "" {
		respondNotFound(c, "Cover")
		return
	}

	path, err := cc.cache.Path(c.Request.Context(), book.ID, book.CoverImage)
	if err != nil || path == "" {
		if err != nil {
			log.Printf("[COVERS] Serving remote cover for book %d: %v", book.ID, err)
		}
		c.Redirect(http.StatusTemporaryRedirect, book.CoverImage)
		return
	}

	c.Header("Cache-Control", "public, max-age=86400")
	c.File(path)
}
