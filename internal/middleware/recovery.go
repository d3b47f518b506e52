package middleware

import (
	"fmt"

	"github.com/gin-gonic/gin"

	"github.com/errata-io/errata/backend/internal/apperror"
	"github.com/errata-io/errata/backend/internal/logger"
	"github.com/errata-io/errata/backend/internal/monitor"
	"github.com/errata-io/errata/backend/internal/response"
)

// Recovery converts handler panics into INTERNAL taxonomy errors and
// runs them through the full pipeline: logged, recorded on the monitor,
// and answered with the standard error payload.
func Recovery(rep *logger.Reporter, mon *monitor.Monitor, fmtr *response.Formatter) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			r := recover()
			if r == nil {
				return
			}

			e := apperror.NewInternal("unhandled panic in request handler",
				apperror.WithRequestID(GetRequestID(c)),
				apperror.WithContextValue("panic", fmt.Sprint(r)),
				apperror.WithContextValue("path", c.Request.URL.Path),
				apperror.WithContextValue("method", c.Request.Method),
			)

			rep.Error("request handler panicked", e)
			mon.RecordError(e, monitor.Meta{Operation: c.FullPath()})

			if !c.Writer.Written() {
				fmtr.Write(c, e)
			}
			c.Abort()
		}()

		c.Next()
	}
}
