package echoapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/auth"
	"github.com/trezcool/academia/core/identity"
	"github.com/trezcool/academia/core/session"
)

var (
	contextTokenKey   = "userToken"
	contextSessionKey = "session"

	errInvalidCredentials = errors.New("invalid credentials")
)

// Claims represents the authorization claims transmitted via a JWT.
// StandardClaims.Id carries the session ID and StandardClaims.Subject the identity ID.
type Claims struct {
	jwt.StandardClaims
	OrigIssuedAt int64         `json:"oriat,omitempty"`
	Email        string        `json:"email,omitempty"`
	Role         identity.Role `json:"role,omitempty"`
}

// tokenIssuer signs and checks the JWTs handed to logged in sessions.
type tokenIssuer struct {
	conf      *core.Config
	jwtConfig middleware.JWTConfig
}

func newTokenIssuer(conf *core.Config) *tokenIssuer {
	return &tokenIssuer{
		conf: conf,
		jwtConfig: middleware.JWTConfig{
			SigningKey:    []byte(conf.SecretKey),
			SigningMethod: middleware.AlgorithmHS256,
			ContextKey:    contextTokenKey,
			Claims:        new(Claims),
		},
	}
}

func (ti *tokenIssuer) sessionClaims(sess *session.Session, origIat ...int64) *Claims {
	now := core.Now()
	nownix := now.Unix()

	oriat := nownix
	if len(origIat) > 0 {
		oriat = origIat[0]
	}

	userID, _ := sess.UserID()
	return &Claims{
		StandardClaims: jwt.StandardClaims{
			Id:        sess.ID(),
			Issuer:    ti.conf.AppName,
			Subject:   strconv.Itoa(userID),
			ExpiresAt: now.Add(ti.conf.Server.JWTExpirationDelta).Unix(),
			IssuedAt:  nownix,
		},
		OrigIssuedAt: oriat,
		Email:        sess.Username(),
		Role:         sess.Role(),
	}
}

// GenerateToken generates a signed JWT token string representing the session Claims.
func (ti *tokenIssuer) GenerateToken(claims *Claims) (string, error) {
	method := jwt.GetSigningMethod(ti.jwtConfig.SigningMethod)
	token := jwt.NewWithClaims(method, claims)

	ss, err := token.SignedString(ti.jwtConfig.SigningKey)
	if err != nil {
		return "", errors.Wrap(err, "signing token")
	}
	return ss, nil
}

// refreshToken issues a new token for the same session until the refresh window of the first token closes.
func (ti *tokenIssuer) refreshToken(ctx echo.Context) (string, error) {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return "", errors.Wrap(err, "getting context claims")
	}
	sess, err := getContextSession(ctx)
	if err != nil {
		return "", errors.Wrap(err, "getting context session")
	}

	expTime := time.Unix(claims.OrigIssuedAt, 0).Add(ti.conf.Server.JWTRefreshExpirationDelta)
	if core.Now().After(expTime) {
		return "", errRefreshExpired
	}

	token, err := ti.GenerateToken(ti.sessionClaims(sess, claims.OrigIssuedAt))
	return token, errors.Wrap(err, "generating token")
}

func getContextClaims(ctx echo.Context) (Claims, error) {
	if token, ok := ctx.Get(contextTokenKey).(*jwt.Token); ok {
		if claims, ok := token.Claims.(*Claims); ok {
			return *claims, nil
		}
	}
	return Claims{}, errUnauthorized
}

func getContextSession(ctx echo.Context) (*session.Session, error) {
	if sess, ok := ctx.Get(contextSessionKey).(*session.Session); ok {
		return sess, nil
	}
	return nil, errUnauthorized
}

// contextIdentity describes the logged in caller for error reports.
func contextIdentity(ctx echo.Context) identity.Identity {
	var idt identity.Identity
	if sess, err := getContextSession(ctx); err == nil {
		idt.ID, _ = sess.UserID()
		idt.Email = sess.Username()
		idt.Role = sess.Role()
	}
	return idt
}

type authApi struct {
	tokens    *tokenIssuer
	svc       *auth.Service
	sessions  session.Store
	validator *core.Validator
}

func registerAuthAPI(
	g *echo.Group,
	authed []echo.MiddlewareFunc,
	tokens *tokenIssuer,
	svc *auth.Service,
	sessions session.Store,
	v *core.Validator,
) {
	api := authApi{
		tokens:    tokens,
		svc:       svc,
		sessions:  sessions,
		validator: v,
	}

	ag := g.Group("/auth")

	// un-authed endpoints
	ag.POST("/login", api.login)

	// authed endpoints
	sg := ag.Group("", authed...)
	sg.POST("/logout", api.logout)
	sg.POST("/token-refresh", api.refreshToken)
	sg.POST("/password", api.changePassword)
}

// Handlers

func (api *authApi) login(ctx echo.Context) error {
	var data LoginRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LoginRequest")
	}
	if err := api.validator.Struct(data); err != nil {
		return err
	}

	reqCtx := ctx.Request().Context()
	sess := session.New()
	ok, err := api.svc.Authenticate(reqCtx, sess, data.Email, data.Password)
	if err != nil {
		return errors.Wrap(err, "authenticating")
	}
	if !ok {
		return core.NewValidationError(errInvalidCredentials)
	}
	if err = api.sessions.Save(reqCtx, sess); err != nil {
		return errors.Wrap(err, "saving session")
	}

	token, err := api.tokens.GenerateToken(api.tokens.sessionClaims(sess))
	if err != nil {
		return errors.Wrap(err, "generating token")
	}
	return ctx.JSON(http.StatusOK, LoginResponse{Token: token, Role: sess.Role()})
}

func (api *authApi) logout(ctx echo.Context) error {
	sess, err := getContextSession(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context session")
	}

	reqCtx := ctx.Request().Context()
	api.svc.Logout(reqCtx, sess)
	if err = api.sessions.Delete(reqCtx, sess.ID()); err != nil {
		return errors.Wrap(err, "deleting session")
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: "Logged out."})
}

func (api *authApi) refreshToken(ctx echo.Context) error {
	token, err := api.tokens.refreshToken(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, LoginResponse{Token: token})
}

func (api *authApi) changePassword(ctx echo.Context) error {
	var data PasswordChangeRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to PasswordChangeRequest")
	}
	if err := api.validator.Struct(data); err != nil {
		return err
	}
	sess, err := getContextSession(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context session")
	}

	ok, err := api.svc.ChangePassword(ctx.Request().Context(), sess.Username(), data.OldPassword, data.NewPassword)
	if err != nil {
		return errors.Wrap(err, "changing password")
	}
	if !ok {
		return core.NewValidationError(
			errInvalidCredentials,
			core.FieldError{Field: "old_password", Error: errInvalidCredentials.Error()},
		)
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: "Password has been changed."})
}
