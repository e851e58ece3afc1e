// Exposes all of the REST APIs related to Wishlist Templates in Wishful.

package template

import (
	"Wishful/internal/entity"
	"Wishful/internal/errors"
	"Wishful/pkg/log"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Registers all of the REST API handlers related to internal package template onto the gin server.
func APIHandlers(router *gin.Engine, service Service, AuthWithAcc gin.HandlerFunc, logger log.Logger) {
	templateGroup := router.Group("/api/templates", AuthWithAcc)
	{
		templateGroup.GET("", listTemplates(service, logger))
		templateGroup.POST("", createTemplate(service, logger))
		templateGroup.GET("/:id", getTemplate(service, logger))
		templateGroup.PUT("/:id", updateTemplate(service, logger))
		templateGroup.DELETE("/:id", deleteTemplate(service, logger))
		templateGroup.POST("/:id/use", useTemplate(service, logger))
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

func listTemplates(service Service, logger log.Logger) gin.HandlerFunc {
	return func(gctx *gin.Context) {
		templates, err := service.listtemplates(gctx)
		if err != nil {
			abortWithError(gctx, err)
			return
		}
		gctx.JSON(http.StatusOK, gin.H{
			"templates": templates,
		})
	}
}

func getTemplate(service Service, logger log.Logger) gin.HandlerFunc {
	return func(gctx *gin.Context) {
		t, err := service.gettemplate(gctx, gctx.Param("id"))
		if err != nil {
			abortWithError(gctx, err)
			return
		}
		gctx.JSON(http.StatusOK, t)
	}
}

// createTemplate returns a handler which takes care of saving a new template.
func createTemplate(service Service, logger log.Logger) gin.HandlerFunc {
	return func(gctx *gin.Context) {
		var input entity.TemplateInput
		// Serialize received data into TemplateInput struct
		if binderr := gctx.ShouldBindJSON(&input); binderr != nil {
			// Error occured during serialization
			logger.WithCtx(gctx).Warn().Err(binderr).Msg("Binding error occured with TemplateInput struct.")
			gctx.AbortWithStatusJSON(http.StatusUnprocessableEntity, errors.UnprocessableEntity(""))
			return
		}
		t, err := service.createtemplate(gctx, input)
		if err != nil {
			abortWithError(gctx, err)
			return
		}
		gctx.JSON(http.StatusCreated, t)
	}
}

func updateTemplate(service Service, logger log.Logger) gin.HandlerFunc {
	return func(gctx *gin.Context) {
		var update entity.TemplateUpdate
		// Serialize received data into TemplateUpdate struct
		if binderr := gctx.ShouldBindJSON(&update); binderr != nil {
			// Error occured during serialization
			logger.WithCtx(gctx).Warn().Err(binderr).Msg("Binding error occured with TemplateUpdate struct.")
			gctx.AbortWithStatusJSON(http.StatusUnprocessableEntity, errors.UnprocessableEntity(""))
			return
		}
		t, err := service.updatetemplate(gctx, gctx.Param("id"), update)
		if err != nil {
			abortWithError(gctx, err)
			return
		}
		gctx.JSON(http.StatusOK, t)
	}
}

func deleteTemplate(service Service, logger log.Logger) gin.HandlerFunc {
	return func(gctx *gin.Context) {
		if err := service.deletetemplate(gctx, gctx.Param("id")); err != nil {
			abortWithError(gctx, err)
			return
		}
		gctx.JSON(http.StatusOK, gin.H{
			"message": "Template deleted",
		})
	}
}

// useTemplate returns a handler creating a wishlist out of a template.
// The body is optional, everything in it defaults from the template.
func useTemplate(service Service, logger log.Logger) gin.HandlerFunc {
	return func(gctx *gin.Context) {
		var use entity.TemplateUse
		if gctx.Request.ContentLength != 0 {
			// Serialize received data into TemplateUse struct
			if binderr := gctx.ShouldBindJSON(&use); binderr != nil {
				// Error occured during serialization
				logger.WithCtx(gctx).Warn().Err(binderr).Msg("Binding error occured with TemplateUse struct.")
				gctx.AbortWithStatusJSON(http.StatusUnprocessableEntity, errors.UnprocessableEntity(""))
				return
			}
		}
		used, err := service.usetemplate(gctx, gctx.Param("id"), use)
		if err != nil {
			abortWithError(gctx, err)
			return
		}
		gctx.JSON(http.StatusCreated, used)
	}
}
