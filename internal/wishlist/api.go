// Exposes all of the REST APIs related to Wishlist Model in Wishful.

package wishlist

import (
	"Wishful/internal/entity"
	"Wishful/internal/errors"
	"Wishful/pkg/log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// Registers all of the REST API handlers related to internal package wishlist onto the gin server.
func APIHandlers(router *gin.Engine, service Service, AuthWithAcc gin.HandlerFunc, logger log.Logger) {
	wishlistGroup := router.Group("/api/wishlists", AuthWithAcc)
	{
		wishlistGroup.GET("", listWishlists(service, logger))
		wishlistGroup.POST("", createWishlist(service, logger))
		wishlistGroup.GET("/:id", getWishlist(service, logger))
		wishlistGroup.PUT("/:id", updateWishlist(service, logger))
		wishlistGroup.DELETE("/:id", deleteWishlist(service, logger))
		wishlistGroup.GET("/:id/categories", getCategories(service, logger))
		wishlistGroup.GET("/:id/products/filter", filterProducts(service, logger))
	}
}

// Helper writing err as the response, err is expected to be an errors.ErrorResponse.
func abortWithError(gctx *gin.Context, err error) {
	resp, ok := err.(errors.ErrorResponse)
	if !ok {
		// Type assertion error
		gctx.AbortWithStatusJSON(http.StatusInternalServerError, errors.InternalServerError(""))
		return
	}
	gctx.AbortWithStatusJSON(resp.Status, resp)
}

// listWishlists returns a handler listing the wishlists visible to the user.
func listWishlists(service Service, logger log.Logger) gin.HandlerFunc {
	return func(gctx *gin.Context) {
		wishlists, err := service.listwishlists(gctx)
		if err != nil {
			abortWithError(gctx, err)
			return
		}
		gctx.JSON(http.StatusOK, gin.H{
			"wishlists": wishlists,
		})
	}
}

// createWishlist returns a handler which takes care of creating a wishlist.
func createWishlist(service Service, logger log.Logger) gin.HandlerFunc {
	return func(gctx *gin.Context) {
		var input entity.WishlistInput
		// Serialize received data into WishlistInput struct
		if binderr := gctx.ShouldBindJSON(&input); binderr != nil {
			// Error occured during serialization
			logger.WithCtx(gctx).Warn().Err(binderr).Msg("Binding error occured with WishlistInput struct.")
			gctx.AbortWithStatusJSON(http.StatusUnprocessableEntity, errors.UnprocessableEntity(""))
			return
		}
		w, err := service.createwishlist(gctx, input)
		if err != nil {
			abortWithError(gctx, err)
			return
		}
		gctx.JSON(http.StatusCreated, w)
	}
}

// getWishlist returns a handler answering the wishlist with its populated products.
func getWishlist(service Service, logger log.Logger) gin.HandlerFunc {
	return func(gctx *gin.Context) {
		detail, err := service.getwishlist(gctx, gctx.Param("id"))
		if err != nil {
			abortWithError(gctx, err)
			return
		}
		gctx.JSON(http.StatusOK, detail)
	}
}

// updateWishlist returns a handler which takes care of partial wishlist updates.
func updateWishlist(service Service, logger log.Logger) gin.HandlerFunc {
	return func(gctx *gin.Context) {
		var update entity.WishlistUpdate
		// Serialize received data into WishlistUpdate struct
		if binderr := gctx.ShouldBindJSON(&update); binderr != nil {
			// Error occured during serialization
			logger.WithCtx(gctx).Warn().Err(binderr).Msg("Binding error occured with WishlistUpdate struct.")
			gctx.AbortWithStatusJSON(http.StatusUnprocessableEntity, errors.UnprocessableEntity(""))
			return
		}
		w, err := service.updatewishlist(gctx, gctx.Param("id"), update)
		if err != nil {
			abortWithError(gctx, err)
			return
		}
		gctx.JSON(http.StatusOK, w)
	}
}

// deleteWishlist returns a handler which takes care of wishlist deletion.
func deleteWishlist(service Service, logger log.Logger) gin.HandlerFunc {
	return func(gctx *gin.Context) {
		if err := service.deletewishlist(gctx, gctx.Param("id")); err != nil {
			abortWithError(gctx, err)
			return
		}
		gctx.JSON(http.StatusOK, gin.H{
			"message": "Wishlist deleted",
		})
	}
}

// getCategories returns a handler listing the distinct product categories of a wishlist.
func getCategories(service Service, logger log.Logger) gin.HandlerFunc {
	return func(gctx *gin.Context) {
		categories, err := service.categories(gctx, gctx.Param("id"))
		if err != nil {
			abortWithError(gctx, err)
			return
		}
		gctx.JSON(http.StatusOK, gin.H{
			"categories": categories,
		})
	}
}

// filterProducts returns a handler answering the products matching category, tags and search.
func filterProducts(service Service, logger log.Logger) gin.HandlerFunc {
	return func(gctx *gin.Context) {
		filter := entity.ProductFilter{
			Category: gctx.Query("category"),
			Search:   gctx.Query("search"),
		}
		for _, tag := range strings.Split(gctx.Query("tags"), ",") {
			if tag = strings.TrimSpace(tag); tag != "" {
				filter.Tags = append(filter.Tags, tag)
			}
		}
		products, err := service.filterproducts(gctx, gctx.Param("id"), filter)
		if err != nil {
			abortWithError(gctx, err)
			return
		}
		gctx.JSON(http.StatusOK, gin.H{
			"products": products,
		})
	}
}
