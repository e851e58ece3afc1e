// External pkg tusd to handle product image uploads with resumable feature and file chunking.

package storage

import (
	"Wishful/pkg/cleanup"
	"Wishful/pkg/log"
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/h2non/filetype"
	"github.com/tus/tusd/pkg/filestore"
	tusd "github.com/tus/tusd/pkg/handler"
)

// BasePath of the upload endpoints, a finished upload is served at BasePath + id.
const BasePath = "/api/upload/"

// Default bound of a single upload, 5MBs.
const defaultMaxUploadSize int64 = 5 * 1024 * 1024

var (
	errNotAnImage     = tusd.NewHTTPError(errors.New("upload is not an image"), http.StatusUnsupportedMediaType)
	errMissingName    = tusd.NewHTTPError(errors.New("filename metadata is required"), http.StatusBadRequest)
	errUploadNotFound = tusd.NewHTTPError(errors.New("uploaded file is gone"), http.StatusInternalServerError)
)

// ImageURL returns where the finished upload with id is downloadable, stored as a product's imageUrl.
func ImageURL(id string) string {
	return BasePath + id
}

// Returns a Tusd Unrouted handler storing product images under uploadPath.
func NewTusdStorageHandler(uploadPath string, maxUploadSize int64, logger log.Logger) (*tusd.UnroutedHandler, error) {
	ctx := context.Background()
	// Check if upload directory exists, if not make one
	if _, err := os.Stat(uploadPath); errors.Is(err, os.ErrNotExist) {
		if err := os.MkdirAll(uploadPath, 0755); err != nil {
			logger.WithCtx(ctx).Error().Err(err).Msg("Error during creating upload directory for tusd storage")
			return nil, err
		}
	}
	if maxUploadSize <= 0 {
		maxUploadSize = defaultMaxUploadSize
	}

	store := filestore.FileStore{Path: uploadPath}
	composer := tusd.NewStoreComposer()
	store.UseIn(composer)

	handler, tusderr := tusd.NewUnroutedHandler(tusd.Config{
		BasePath:                BasePath,
		MaxSize:                 maxUploadSize,
		StoreComposer:           composer,
		NotifyCompleteUploads:   true,
		DisableDownload:         false,
		RespectForwardedHeaders: true,
		PreUploadCreateCallback: func(hook tusd.HookEvent) error {
			// Validate metadata attached with the upload request
			if !strings.HasPrefix(hook.Upload.MetaData["filetype"], "image/") {
				return errNotAnImage
			}
			if len(strings.TrimSpace(hook.Upload.MetaData["filename"])) == 0 {
				// filename cannot be blank
				return errMissingName
			}
			return nil
		},
		PreFinishResponseCallback: func(hook tusd.HookEvent) error {
			// The declared filetype is not trusted, sniff the content itself
			file, oserr := os.Open(filepath.Join(uploadPath, hook.Upload.ID))
			if oserr != nil {
				logger.Error().Err(oserr).Msg("Cannot open upload - " + hook.Upload.ID)
				return errUploadNotFound
			}
			defer file.Close()
			head := make([]byte, 261)
			n, _ := file.Read(head)
			if !filetype.IsImage(head[:n]) {
				logger.Warn().Str("Upload", hook.Upload.ID).Str("User", hook.HTTPRequest.Header.Get("User")).Msg("Rejected upload which is not an image")
				cleanup.DeleteUploadFiles(uploadPath, hook.Upload.ID, logger)
				return errNotAnImage
			}
			return nil
		},
	})
	if tusderr != nil {
		logger.WithCtx(ctx).Error().Err(tusderr).Msg("Unable to create tusd handler")
		return nil, tusderr
	}
	// Start a goroutine for receiving events from the handler whenever
	// an upload is completed. The event will contains details about the upload
	// itself and the relevant HTTP request.
	go func() {
		for event := range handler.CompleteUploads {
			logger.Info().Str("User", event.HTTPRequest.Header.Get("User")).Msgf("Upload %s finished, served at %s", event.Upload.ID, ImageURL(event.Upload.ID))
		}
	}()
	return handler, nil
}
