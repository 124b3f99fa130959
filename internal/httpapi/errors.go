package httpapi

import (
	"context"
	"errors"
	"strconv"

	"goreal-engine/pkg/errutil"
	"goreal-engine/services/strava"
	syncsvc "goreal-engine/services/sync"
	"goreal-engine/services/tokenvault"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// respondError translates domain errors into errutil JSON bodies. Anything
// unrecognized is logged and reported as internal.
func respondError(c *gin.Context, err error) {
	var (
		rateLimited  *syncsvc.RateLimitedError
		notConnected *tokenvault.NotConnectedError
		credExpired  *tokenvault.CredentialExpiredError
		upstreamAuth *strava.UpstreamAuthError
		upstreamDown *strava.UpstreamUnavailableError
		base         errutil.BaseError
	)

	switch {
	case errors.As(err, &rateLimited):
		retryAfter := int(rateLimited.RetryAfter.Seconds()) + 1
		c.Header("Retry-After", strconv.Itoa(retryAfter))
		writeError(c, errutil.TooManyRequest("sync rate limited",
			errutil.WithDetails(errutil.Detail{Field: "retry_after", Message: strconv.Itoa(retryAfter)}),
		))

	case errors.As(err, &notConnected):
		writeError(c, errutil.Conflict("strava account not connected"))

	case errors.As(err, &credExpired):
		writeError(c, errutil.Conflict("strava authorization expired, reconnect required"))

	case errors.Is(err, strava.ErrInvalidGrant):
		writeError(c, errutil.BadRequest("authorization code rejected"))

	case errors.As(err, &upstreamAuth), errors.As(err, &upstreamDown):
		writeError(c, errutil.BadGateway("upstream provider unavailable", errutil.WithErr(err)))

	case errors.Is(err, context.DeadlineExceeded):
		writeError(c, errutil.Timeout("request deadline exceeded"))

	case errors.As(err, &base):
		c.JSON(base.Code.HTTPStatus(), base.JSON())

	default:
		zap.L().Error("unhandled request error",
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
		writeError(c, errutil.Internal("internal error"))
	}
}

func writeError(c *gin.Context, err error) {
	var base errutil.BaseError
	if !errors.As(err, &base) {
		base = errutil.BaseError{Code: errutil.StatusInternal, Message: err.Error()}
	}
	c.JSON(base.Code.HTTPStatus(), base.JSON())
}
