package portalapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/tidwall/gjson"

	"github.com/trainingcmd/portal/core/password"
	"github.com/trainingcmd/portal/core/profile"
	"github.com/trainingcmd/portal/core/user"
)

var (
	_ profile.API       = (*Client)(nil)
	_ profile.AvatarAPI = (*Client)(nil)
	_ password.API      = (*Client)(nil)
)

const avatarField = "avatar"

// Me fetches the profile of the current user.
func (c *Client) Me(ctx context.Context) (*user.User, error) {
	var raw json.RawMessage
	if err := c.doJSON(ctx, http.MethodGet, "/api/me", nil, &raw); err != nil {
		return nil, errors.Wrap(err, "fetching profile")
	}
	var usr user.User
	if err := json.Unmarshal(unwrap(raw, "user"), &usr); err != nil {
		return nil, errors.Wrap(err, "decoding profile")
	}
	return &usr, nil
}

// UpdateMe sends a partial profile update and returns the recognized fields of the response.
func (c *Client) UpdateMe(ctx context.Context, flds user.Fields) (user.Fields, error) {
	var raw json.RawMessage
	if err := c.doJSON(ctx, http.MethodPut, "/api/me", flds, &raw); err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return user.Fields{}, nil
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(unwrap(raw, "user"), &obj); err != nil {
		return user.Fields{}, nil
	}
	return user.DecodeFields(obj)
}

// UploadAvatar posts the image as the multipart field "avatar" and returns the new reference.
func (c *Client) UploadAvatar(ctx context.Context, filename string, r io.Reader) (string, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile(avatarField, filepath.Base(filename))
	if err != nil {
		return "", errors.Wrap(err, "creating form file")
	}
	if _, err = io.Copy(part, r); err != nil {
		return "", errors.Wrap(err, "reading avatar")
	}
	if err = mw.Close(); err != nil {
		return "", errors.Wrap(err, "closing form")
	}

	var raw json.RawMessage
	if err = c.do(ctx, http.MethodPost, "/api/me/avatar", &body, mw.FormDataContentType(), &raw); err != nil {
		return "", err
	}
	for _, path := range []string{"avatar", "user.avatar", "url"} {
		if v := gjson.GetBytes(raw, path); v.Type == gjson.String && v.String() != "" {
			return v.String(), nil
		}
	}
	return "", errors.New("uploading avatar: no avatar in response")
}

// ChangePassword sends the current and new passwords.
func (c *Client) ChangePassword(ctx context.Context, current, newPassword string) error {
	in := map[string]string{"currentPassword": current, "newPassword": newPassword}
	return c.doJSON(ctx, http.MethodPost, "/api/me/change-password", in, nil)
}
