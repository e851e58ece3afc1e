// Middlewares needed by tus upload handling service are defined here.

package storage

import (
	"Wishful/internal/errors"
	"Wishful/pkg/log"
	"context"
	"net/http"
	"syscall"

	"github.com/gin-gonic/gin"
)

// Free disk space kept aside besides the upload itself, 50MBs.
const diskHeadroom uint64 = 50 * 1024 * 1024

// Validates incoming tus requests which write to the upload directory.
func UploadStorageMiddleware(uploadPath string, maxUploadSize int64, logger log.Logger) gin.HandlerFunc {
	return func(gctx *gin.Context) {
		// Fetch username from context, tusd callbacks log it
		username, ok := gctx.Value("Username").(string)
		if !ok {
			// Type assertion error
			logger.WithCtx(gctx).Error().Msg("Type assertion error in UploadStorageMiddleware")
			gctx.AbortWithStatusJSON(http.StatusInternalServerError, errors.InternalServerError(""))
			return
		}
		// Check if enough disk space is available to accept another upload
		diskSpaceAvail, err := getAvailableDiskSpace(gctx, uploadPath, logger)
		if err != nil {
			gctx.AbortWithStatusJSON(http.StatusInternalServerError, errors.InternalServerError(""))
			return
		} else if diskSpaceAvail < diskHeadroom+uint64(maxUploadSize) {
			// Not enough space available
			gctx.AbortWithStatus(http.StatusInsufficientStorage)
			return
		}
		gctx.Request.Header.Set("User", username) // to be used in tusd callbacks
		gctx.Next()
	}
}

// Helper method to get available disk space
func getAvailableDiskSpace(ctx context.Context, uploadPath string, logger log.Logger) (uint64, error) {
	fs := syscall.Statfs_t{}
	err := syscall.Statfs(uploadPath, &fs)
	if err != nil {
		// Error occured in Statfs()
		logger.WithCtx(ctx).Error().Err(err).Msg("Error occured while trying to fetch available disk space")
		return 0, err
	}
	return fs.Bavail * uint64(fs.Bsize), nil
}
