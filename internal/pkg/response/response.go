package response

import (
	"github.com/gin-gonic/gin"
	"github.com/xxxsen/common/webapi/proxyutil"

	"github.com/xxxsen/chatrecall/internal/pkg/errcode"
)

// apiError carries a wire code alongside the message so proxyutil can
// surface both in the failure envelope.
type apiError struct {
	code    uint32
	message string
}

func (e apiError) Error() string {
	return e.message
}

func (e apiError) Code() uint32 {
	return e.code
}

func Success(c *gin.Context, data interface{}) {
	proxyutil.SuccessJson(c, data)
}

func Error(c *gin.Context, code int, message string) {
	proxyutil.FailJson(c, 200, apiError{code: uint32(code), message: message})
}

// Invalid rejects a malformed request. Most handler bind failures end here.
func Invalid(c *gin.Context, message string) {
	Error(c, errcode.ErrInvalid, message)
}
