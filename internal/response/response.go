// Package response writes the JSON envelope shared by every endpoint:
//
//	{"data":…, "isSuccess":bool, "statusCode":int, "message":string, "developerError":string}
package response

import (
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/tts-access-api/internal/service"
)

// Envelope is the body of every API response.
type Envelope struct {
	Data           any    `json:"data"`
	IsSuccess      bool   `json:"isSuccess"`
	StatusCode     int    `json:"statusCode"`
	Message        string `json:"message"`
	DeveloperError string `json:"developerError"`
}

// Writer renders envelopes.  With Dev set, failures carry the underlying
// cause in developerError; otherwise that field is always empty.  Causes of
// 5xx failures are logged to Log when it is set.
type Writer struct {
	Dev bool
	Log *zap.Logger
}

// OK writes a success envelope.  A nil data is rendered as {}.
func (w Writer) OK(c echo.Context, status int, message string, data any) error {
	if data == nil {
		data = struct{}{}
	}
	return c.JSON(status, Envelope{Data: data, IsSuccess: true, StatusCode: status, Message: message})
}

// Err maps err onto its status and writes a failure envelope.
func (w Writer) Err(c echo.Context, err error) error {
	ae := service.AsAppError(err)
	status := ae.Status()
	env := Envelope{Data: struct{}{}, StatusCode: status, Message: ae.Message}
	if w.Dev {
		env.DeveloperError = ae.Detail()
	}
	if status >= 500 && w.Log != nil {
		req := c.Request()
		w.Log.Error("request failed",
			zap.String("method", req.Method),
			zap.String("path", c.Path()),
			zap.Int("status", status),
			zap.String("code", string(ae.Code)),
			zap.Error(ae.Err),
		)
	}
	return c.JSON(status, env)
}

// Fail writes a failure envelope for errors raised outside the service
// layer (binding, rate limiting).
func (w Writer) Fail(c echo.Context, status int, message, detail string) error {
	env := Envelope{Data: struct{}{}, StatusCode: status, Message: message}
	if w.Dev {
		env.DeveloperError = detail
	}
	return c.JSON(status, env)
}
