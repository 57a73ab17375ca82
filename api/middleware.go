package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jlynch25/eventreg/auth"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

const (
	userIDKey       = "userID"
	requestIDHeader = "X-Request-ID"
)

// requestLogger logs one line per request with its status and duration.
func requestLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		requestID := c.GetHeader(requestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Header(requestIDHeader, requestID)

		c.Next()

		fields := []zap.Field{
			zap.String("request_id", requestID),
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.String("ip", c.ClientIP()),
			zap.Duration("duration", time.Since(start)),
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("error", c.Errors.String()))
		}

		switch status := c.Writer.Status(); {
		case status >= http.StatusInternalServerError:
			log.Error("http request", fields...)
		case status >= http.StatusBadRequest:
			log.Warn("http request", fields...)
		default:
			log.Info("http request", fields...)
		}
	}
}

// requireUser resolves the bearer token into the caller's user id.
func requireUser(v *auth.Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, err := v.UserID(c.GetHeader("Authorization"))
		if err != nil {
			msg := "Token is not valid"
			if errors.Is(err, auth.ErrMissingToken) {
				msg = "No token, authorization denied"
			}
			_ = c.Error(err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, errorBody{Msg: msg})
			return
		}
		c.Set(userIDKey, userID)
		c.Next()
	}
}

func currentUser(c *gin.Context) primitive.ObjectID {
	return c.MustGet(userIDKey).(primitive.ObjectID)
}
