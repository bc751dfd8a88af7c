package result

import (
	"SocialSync/consts"
	"SocialSync/pkg/ctxmeta"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Response HTTP 侧路由的统一响应结构
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data"`
	TraceId string      `json:"trace_id"`
}

// Result 返回响应
func Result(c *gin.Context, status int, data interface{}, message string, code int) {
	if message == "" {
		message = consts.GetMessage(code)
	}
	c.JSON(status, Response{
		Code:    code,
		Message: message,
		Data:    data,
		TraceId: ctxmeta.TraceIDFromGin(c),
	})
}

// Success 返回成功响应
func Success(c *gin.Context, data interface{}) {
	Result(c, http.StatusOK, data, "", consts.CodeSuccess)
}

// Fail 返回失败响应
func Fail(c *gin.Context, status int, code int) {
	Result(c, status, nil, "", code)
}
