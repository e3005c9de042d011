package middleware

import (
	"github.com/gin-gonic/gin"

	"ultra-prompt-ai-api/internal/domain/entity"
	"ultra-prompt-ai-api/pkg/logger"
)

const (
	// BrowserIDHeader 浏览器标识头
	BrowserIDHeader = "X-Browser-ID"

	ownerKey = "owner"
)

// Owner 由客户端 IP 与浏览器标识构造归属指纹
// 缺失或格式不符的浏览器标识会被重新生成并通过响应头返回
func Owner() gin.HandlerFunc {
	return func(c *gin.Context) {
		browserID := c.GetHeader(BrowserIDHeader)
		if !entity.ValidBrowserID(browserID) {
			browserID = entity.NewBrowserID()
		}
		owner := entity.OwnerFingerprint{OwnerIP: c.ClientIP(), BrowserID: browserID}

		c.Set(ownerKey, owner)
		ctx := logger.WithContext(c.Request.Context(), logger.OwnerIPKey, owner.OwnerIP)
		c.Request = c.Request.WithContext(ctx)
		c.Header(BrowserIDHeader, browserID)

		c.Next()
	}
}

// OwnerFromGin 读取 Owner 中间件写入的指纹
func OwnerFromGin(c *gin.Context) entity.OwnerFingerprint {
	if v, ok := c.Get(ownerKey); ok {
		if owner, ok := v.(entity.OwnerFingerprint); ok {
			return owner
		}
	}
	return entity.OwnerFingerprint{OwnerIP: c.ClientIP()}
}
