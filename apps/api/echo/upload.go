package echoapi

import (
	"fmt"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/shuleapp/shule/core/account"
)

const maxUploadSize = 5 << 20 // 5MiB

var (
	errUploadMissing = echo.NewHTTPError(http.StatusBadRequest, "an image file is required")
	errUploadTooBig  = echo.NewHTTPError(http.StatusBadRequest, "image must not exceed 5MB")
	errUploadBadType = echo.NewHTTPError(http.StatusBadRequest, "only JPEG and PNG images are allowed")

	imageExts = map[string]string{
		"image/jpeg": ".jpg",
		"image/png":  ".png",
	}
)

// uploadProfilePicture relays a multipart image to the media store and
// records its URL on the account. Cleaning up the previous image is
// best-effort; its failure never fails the upload.
func (api *accountApi) uploadProfilePicture(ctx echo.Context) error {
	acct, ok := ctx.Get(accountContextKey).(account.Account)
	if !ok {
		return errors.Wrap(errAcctNotFoundInCtx, "retrieving profile from context")
	}

	fh, err := ctx.FormFile("profilePicture")
	if err != nil {
		return errUploadMissing
	}
	if fh.Size > maxUploadSize {
		return errUploadTooBig
	}

	src, err := fh.Open()
	if err != nil {
		return errors.Wrap(err, "opening uploaded file")
	}
	defer src.Close()

	// sniff the actual content type; the client-declared header is not trusted
	head := make([]byte, 512)
	n, err := src.Read(head)
	if err != nil && err != io.EOF {
		return errors.Wrap(err, "reading uploaded file")
	}
	ext, ok := imageExts[http.DetectContentType(head[:n])]
	if !ok {
		return errUploadBadType
	}
	if _, err := src.Seek(0, io.SeekStart); err != nil {
		return errors.Wrap(err, "rewinding uploaded file")
	}

	url, err := api.media.Save(acct.ID+ext, src)
	if err != nil {
		return errors.Wrap(err, "saving uploaded file")
	}

	updated, old, err := api.svc.SetProfilePicture(ctx.Request().Context(), acct.ID, url)
	if err != nil {
		return errors.Wrap(err, "recording profile picture")
	}
	if old != "" && old != url {
		if err := api.media.Delete(old); err != nil {
			api.logger.Warn(fmt.Sprintf("removing old profile picture %s: %v", old, err))
		}
	}
	return ctx.JSON(http.StatusOK, echo.Map{"profilePicture": updated.ProfilePicture})
}
