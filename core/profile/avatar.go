package profile

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	pkgerrors "github.com/pkg/errors"

	"github.com/trainingcmd/portal/core"
	"github.com/trainingcmd/portal/core/events"
	"github.com/trainingcmd/portal/core/user"
)

const avatarKey = "avatar"

var (
	nowFunc = time.Now // mockable

	ErrNotAnImage = errors.New("avatar must be an image")
)

// AvatarAPI uploads an avatar image and returns the new avatar reference.
type AvatarAPI interface {
	UploadAvatar(ctx context.Context, filename string, r io.Reader) (string, error)
}

// AvatarUploader replaces the avatar of the current user. The new reference is merged
// like a single-field profile update.
type AvatarUploader struct {
	api     AvatarAPI
	editor  *Editor
	bus     *events.Bus
	baseURL *url.URL

	mu      sync.Mutex
	version int64
}

// NewAvatarUploader returns an uploader resolving relative avatar references against baseURL,
// taken as a directory. editor may be nil when no form is mounted.
func NewAvatarUploader(api AvatarAPI, editor *Editor, bus *events.Bus, baseURL string) (*AvatarUploader, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "parsing base url")
	}
	if !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}
	return &AvatarUploader{api: api, editor: editor, bus: bus, baseURL: u}, nil
}

// Upload sends the image read from r. Nothing is kept locally when the upload fails.
func (au *AvatarUploader) Upload(ctx context.Context, filename string, r io.Reader) (string, error) {
	head := make([]byte, 512)
	n, err := io.ReadFull(r, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return "", pkgerrors.Wrap(err, "reading avatar")
	}
	head = head[:n]
	if !strings.HasPrefix(http.DetectContentType(head), "image/") {
		return "", core.NewValidationError(ErrNotAnImage, core.FieldError{Field: avatarKey, Error: ErrNotAnImage.Error()})
	}

	ref, err := au.api.UploadAvatar(ctx, filename, io.MultiReader(bytes.NewReader(head), r))
	if err != nil {
		return "", pkgerrors.Wrap(err, "uploading avatar")
	}

	merged := user.Fields{avatarKey: ref}
	if au.editor != nil {
		au.editor.merge(merged, nil)
	}
	au.bus.PublishProfileUpdated(events.ProfileUpdated{Fields: merged, Refresh: true})
	return au.DisplayURL(ref), nil
}

// DisplayURL resolves ref against the API base URL and stamps it with a version strictly
// greater than any previously issued one, so image caches never serve a replaced avatar.
func (au *AvatarUploader) DisplayURL(ref string) string {
	if ref == "" {
		return ""
	}
	u, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	if !u.IsAbs() {
		u = au.baseURL.ResolveReference(u)
	}
	q := u.Query()
	q.Set("v", strconv.FormatInt(au.nextVersion(), 10))
	u.RawQuery = q.Encode()
	return u.String()
}

func (au *AvatarUploader) nextVersion() int64 {
	au.mu.Lock()
	defer au.mu.Unlock()
	v := nowFunc().UnixNano() / int64(time.Millisecond)
	if v <= au.version {
		v = au.version + 1
	}
	au.version = v
	return v
}
