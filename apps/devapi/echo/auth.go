package echoapi

import (
	"net/http"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/trainingcmd/portal/core"
	"github.com/trainingcmd/portal/core/user"
)

// token types
const (
	tokenAccess  = "access"
	tokenRefresh = "refresh"
)

var (
	nowFunc = time.Now // mockable

	contextTokenKey = "userToken"
	contextUserKey  = "user"
)

// Claims represents the authorization claims transmitted via a JWT.
type Claims struct {
	jwt.StandardClaims
	Type         string `json:"typ"`
	OrigIssuedAt int64  `json:"oriat,omitempty"`
	Username     string `json:"username,omitempty"`
	Role         string `json:"role,omitempty"`
}

// tokenIssuer signs and verifies the access and refresh tokens.
type tokenIssuer struct {
	key        []byte
	issuer     string
	expiration time.Duration
	refreshExp time.Duration
}

func newTokenIssuer(conf *core.Config) *tokenIssuer {
	return &tokenIssuer{
		key:        []byte(conf.Server.SecretKey),
		issuer:     conf.AppName,
		expiration: conf.Server.JWTExpirationDelta,
		refreshExp: conf.Server.JWTRefreshExpirationDelta,
	}
}

// middleware authenticates requests carrying an access token.
func (ti *tokenIssuer) middleware() echo.MiddlewareFunc {
	jwtMw := middleware.JWTWithConfig(middleware.JWTConfig{
		SigningKey:    ti.key,
		SigningMethod: middleware.AlgorithmHS256,
		ContextKey:    contextTokenKey,
		Claims:        new(Claims),
	})
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return jwtMw(func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil || claims.Type != tokenAccess {
				return errUnauthorized
			}
			return next(ctx)
		})
	}
}

// claims returns the claims of a token of type typ for usr.
// A refresh token keeps origIat so it cannot outlive the refresh expiration of the first login.
func (ti *tokenIssuer) claims(usr user.User, typ string, origIat int64) *Claims {
	now := nowFunc()
	if origIat == 0 {
		origIat = now.Unix()
	}
	exp := now.Add(ti.expiration).Unix()
	if typ == tokenRefresh {
		exp = time.Unix(origIat, 0).Add(ti.refreshExp).Unix()
	}
	return &Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    ti.issuer,
			Subject:   usr.ID,
			ExpiresAt: exp,
			IssuedAt:  now.Unix(),
		},
		Type:         typ,
		OrigIssuedAt: origIat,
		Username:     usr.Username,
		Role:         user.NormalizeRole(usr.Role),
	}
}

// GenerateToken generates a signed JWT token string representing the user Claims.
func (ti *tokenIssuer) GenerateToken(claims *Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	ss, err := token.SignedString(ti.key)
	if err != nil {
		return "", errors.Wrap(err, "signing token")
	}
	return ss, nil
}

// issue returns a fresh access and refresh token pair for usr.
func (ti *tokenIssuer) issue(usr user.User, origIat int64) (access, refresh string, err error) {
	if access, err = ti.GenerateToken(ti.claims(usr, tokenAccess, origIat)); err != nil {
		return "", "", err
	}
	refreshClaims := ti.claims(usr, tokenRefresh, origIat)
	if refresh, err = ti.GenerateToken(refreshClaims); err != nil {
		return "", "", err
	}
	return access, refresh, nil
}

// parseRefresh verifies a refresh token and returns its claims.
func (ti *tokenIssuer) parseRefresh(token string) (*Claims, error) {
	claims := new(Claims)
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != middleware.AlgorithmHS256 {
			return nil, errors.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return ti.key, nil
	})
	if err != nil || !parsed.Valid || claims.Type != tokenRefresh {
		return nil, errInvalidRefresh
	}
	return claims, nil
}

func getContextClaims(ctx echo.Context) (Claims, error) {
	if token, ok := ctx.Get(contextTokenKey).(*jwt.Token); ok {
		if claims, ok := token.Claims.(*Claims); ok {
			return *claims, nil
		}
	}
	return Claims{}, errUnauthorized
}

// getContextUser loads the account of the authenticated user, once per request.
func getContextUser(ctx echo.Context, svc *user.Service) (user.Account, error) {
	if acc, ok := ctx.Get(contextUserKey).(user.Account); ok {
		return acc, nil
	}
	claims, err := getContextClaims(ctx)
	if err != nil {
		return user.Account{}, err
	}
	acc, err := svc.GetByID(ctx.Request().Context(), claims.Subject)
	if err != nil {
		if errors.Cause(err) == user.ErrNotFound {
			return user.Account{}, errUnauthorized
		}
		return user.Account{}, errors.Wrap(err, "finding user by ID")
	}
	if !acc.IsActive {
		return user.Account{}, errUnauthorized
	}
	ctx.Set(contextUserKey, acc)
	return acc, nil
}

type authApi struct {
	tokens   *tokenIssuer
	svc      *user.Service
	resetter *user.PasswordResetter
	validate *validator.Validate
}

func registerAuthAPI(g *echo.Group, tokens *tokenIssuer, svc *user.Service, resetter *user.PasswordResetter, validate *validator.Validate) {
	api := authApi{tokens: tokens, svc: svc, resetter: resetter, validate: validate}

	// un-authed endpoints
	g.POST("/login", api.login)
	g.POST("/refresh-token", api.refreshToken)
	g.POST("/password-reset", api.requestPasswordReset)
	g.POST("/password-reset/confirm", api.confirmPasswordReset)
}

func (api *authApi) login(ctx echo.Context) error {
	var data LoginRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LoginRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	acc, err := api.svc.Authenticate(ctx.Request().Context(), data.Username, data.Password)
	if err != nil {
		return errors.Wrap(err, "authenticating")
	}
	access, refresh, err := api.tokens.issue(acc.User, 0)
	if err != nil {
		return errors.Wrap(err, "generating tokens")
	}
	return ctx.JSON(http.StatusOK, LoginResponse{Token: access, RefreshToken: refresh, User: acc.User})
}

func (api *authApi) refreshToken(ctx echo.Context) error {
	var data RefreshRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to RefreshRequest")
	}
	claims, err := api.tokens.parseRefresh(data.RefreshToken)
	if err != nil {
		return err
	}

	acc, err := api.svc.GetByID(ctx.Request().Context(), claims.Subject)
	if err != nil {
		if errors.Cause(err) == user.ErrNotFound {
			return errInvalidRefresh
		}
		return errors.Wrap(err, "finding user by ID")
	}
	// check if user is still active
	if !acc.IsActive {
		return errInvalidRefresh
	}

	access, refresh, err := api.tokens.issue(acc.User, claims.OrigIssuedAt)
	if err != nil {
		return errors.Wrap(err, "generating tokens")
	}
	return ctx.JSON(http.StatusOK, RefreshResponse{AccessToken: access, RefreshToken: refresh, User: acc.User})
}

func (api *authApi) requestPasswordReset(ctx echo.Context) error {
	var data PasswordResetRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to PasswordResetRequest")
	}
	if err := api.validate.Struct(data); err != nil {
		return err
	}
	if err := api.resetter.Request(ctx.Request().Context(), data.Email); err != nil {
		return errors.Wrap(err, "requesting password reset")
	}
	return ctx.JSON(http.StatusOK, MessageResponse{Message: msgPasswordResetSent})
}

func (api *authApi) confirmPasswordReset(ctx echo.Context) error {
	var data PasswordResetConfirmRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to PasswordResetConfirmRequest")
	}
	if err := api.validate.Struct(data); err != nil {
		return err
	}
	if err := api.resetter.Reset(ctx.Request().Context(), data.UID, data.Token, data.NewPassword); err != nil {
		return errors.Wrap(err, "resetting password")
	}
	return ctx.JSON(http.StatusOK, MessageResponse{Message: msgPasswordReset})
}

const (
	msgPasswordResetSent = "If an account is registered with this address, a password reset link has been sent to it."
	msgPasswordReset     = "Password has been reset."
)

type (
	LoginRequest struct {
		Username string `json:"username" validate:"required"`
		Password string `json:"password" validate:"required"`
	}

	LoginResponse struct {
		Token        string    `json:"token"`
		RefreshToken string    `json:"refreshToken"`
		User         user.User `json:"user"`
	}

	RefreshRequest struct {
		RefreshToken string `json:"refreshToken"`
	}

	RefreshResponse struct {
		AccessToken  string    `json:"accessToken"`
		RefreshToken string    `json:"refreshToken"`
		User         user.User `json:"user"`
	}

	PasswordResetRequest struct {
		Email string `json:"email" validate:"required"`
	}

	PasswordResetConfirmRequest struct {
		UID         string `json:"uid" validate:"required"`
		Token       string `json:"token" validate:"required"`
		NewPassword string `json:"newPassword" validate:"required"`
	}
)

func (lr *LoginRequest) Validate(validate *validator.Validate) error {
	lr.Username = core.CleanString(lr.Username, true /* lower */)
	return validate.Struct(lr)
}
