package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// errorBody is the JSON shape of every failed response.
type errorBody struct {
	Msg string `json:"msg"`
}

// httpStatus maps a service status code onto the HTTP status clients
// expect. Duplicates are reported as a bad request.
func httpStatus(code codes.Code) int {
	if code == codes.AlreadyExists {
		return http.StatusBadRequest
	}
	return runtime.HTTPStatusFromCode(code)
}

// abortWithError writes err as {msg} and stops the handler chain.
func abortWithError(c *gin.Context, err error) {
	st := status.Convert(err)
	code := httpStatus(st.Code())
	msg := st.Message()
	if code == http.StatusInternalServerError {
		msg = "Server error"
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(code, errorBody{Msg: msg})
}
