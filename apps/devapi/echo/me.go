package echoapi

import (
	"encoding/json"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trainingcmd/portal/core/user"
)

const avatarsDir = "avatars"

// avatarExts maps sniffed image types to file extensions.
var avatarExts = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
	"image/bmp":  ".bmp",
}

type meApi struct {
	svc      *user.Service
	mediaDir string
}

func registerMeAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *user.Service, mediaDir string) {
	api := meApi{svc: svc, mediaDir: mediaDir}

	mg := g.Group("/me", jwt)
	mg.GET("", api.retrieve)
	mg.PUT("", api.update)
	mg.POST("/avatar", api.uploadAvatar)
	mg.POST("/change-password", api.changePassword)
}

func (api *meApi) retrieve(ctx echo.Context) error {
	acc, err := getContextUser(ctx, api.svc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	return ctx.JSON(http.StatusOK, UserResponse{User: acc.User})
}

func (api *meApi) update(ctx echo.Context) error {
	acc, err := getContextUser(ctx, api.svc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	var raw map[string]json.RawMessage
	if err = json.NewDecoder(ctx.Request().Body).Decode(&raw); err != nil && err != io.EOF {
		return echo.NewHTTPError(http.StatusBadRequest, "request body must be a JSON object").SetInternal(err)
	}
	flds, err := user.DecodeFields(raw)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error()).SetInternal(err)
	}

	if len(flds) > 0 {
		if acc, err = api.svc.UpdateProfile(ctx.Request().Context(), acc.ID, flds); err != nil {
			return errors.Wrap(err, "updating profile")
		}
	}
	return ctx.JSON(http.StatusOK, UserResponse{User: acc.User})
}

func (api *meApi) uploadAvatar(ctx echo.Context) error {
	acc, err := getContextUser(ctx, api.svc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	fh, err := ctx.FormFile("avatar")
	if err != nil {
		return errNoAvatar
	}
	src, err := fh.Open()
	if err != nil {
		return errors.Wrap(err, "opening avatar")
	}
	defer src.Close()

	head := make([]byte, 512)
	n, err := io.ReadFull(src, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return errors.Wrap(err, "reading avatar")
	}
	ctype := strings.SplitN(http.DetectContentType(head[:n]), ";", 2)[0]
	ext, ok := avatarExts[ctype]
	if !ok {
		return errAvatarNotAnImage
	}

	dir := filepath.Join(api.mediaDir, avatarsDir)
	if err = os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrap(err, "creating avatars dir")
	}
	name := uuid.New().String() + ext
	dst, err := os.Create(filepath.Join(dir, name))
	if err != nil {
		return errors.Wrap(err, "creating avatar file")
	}
	if _, err = dst.Write(head[:n]); err == nil {
		_, err = io.Copy(dst, src)
	}
	if cErr := dst.Close(); err == nil {
		err = cErr
	}
	if err != nil {
		return errors.Wrap(err, "writing avatar file")
	}

	ref := "/media/" + avatarsDir + "/" + name
	if acc, err = api.svc.SetAvatar(ctx.Request().Context(), acc.ID, ref); err != nil {
		return errors.Wrap(err, "setting avatar")
	}
	return ctx.JSON(http.StatusOK, AvatarResponse{Avatar: ref, User: acc.User})
}

func (api *meApi) changePassword(ctx echo.Context) error {
	acc, err := getContextUser(ctx, api.svc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	var data ChangePasswordRequest
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ChangePasswordRequest")
	}
	if err = api.svc.ChangePassword(ctx.Request().Context(), acc.ID, data.CurrentPassword, data.NewPassword); err != nil {
		return errors.Wrap(err, "changing password")
	}
	return ctx.JSON(http.StatusOK, MessageResponse{Message: "Password changed."})
}

type (
	UserResponse struct {
		User user.User `json:"user"`
	}

	AvatarResponse struct {
		Avatar string    `json:"avatar"`
		User   user.User `json:"user"`
	}

	ChangePasswordRequest struct {
		CurrentPassword string `json:"currentPassword"`
		NewPassword     string `json:"newPassword"`
	}

	MessageResponse struct {
		Message string `json:"message"`
	}
)
