package cleanup

import (
	"Wishful/pkg/log"
	"os"
	"path/filepath"
)

// DeleteUploadFiles removes an upload and its tusd ".info" sidecar from dir.
// Used when an uploaded product image fails validation after the transfer finished.
func DeleteUploadFiles(dir, uploadID string, logger log.Logger) {
	if len(uploadID) == 0 {
		return
	}
	base := filepath.Join(dir, filepath.Base(uploadID))
	for _, ext := range []string{"", ".info"} {
		oserr := os.Remove(base + ext)
		if oserr != nil && !os.IsNotExist(oserr) {
			logger.Error().Err(oserr).Msgf("Error occured during deleting upload file - %s", base+ext)
		}
	}
}
