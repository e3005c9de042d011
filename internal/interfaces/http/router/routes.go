package router

import (
	"github.com/gin-gonic/gin"
)

// RegisterV1Routes 注册 v1 版本路由
func RegisterV1Routes(v1 *gin.RouterGroup, h Handlers) {
	v1.GET("/options", h.Options.GetOptions)
	v1.POST("/rewrite", h.Rewrite.RewriteText)

	// 生成会话
	sessions := v1.Group("/sessions")
	{
		sessions.POST("", h.Session.CreateSession)
		sessions.GET("/:sid", h.Session.GetSession)
		sessions.DELETE("/:sid", h.Session.DeleteSession)

		sessions.PUT("/:sid/inputs", h.Session.SetInputs)
		sessions.POST("/:sid/questions", h.Session.ProposeQuestions)
		sessions.PUT("/:sid/answers", h.Session.SetAnswers)
		sessions.POST("/:sid/generate", h.Session.Generate)

		sessions.POST("/:sid/refine", h.Session.Refine)
		sessions.POST("/:sid/rewrite", h.Session.RewriteField)
		sessions.PATCH("/:sid/document", h.Session.EditDocument)

		sessions.POST("/:sid/reset", h.Session.Reset)
		sessions.POST("/:sid/edit-inputs", h.Session.EditInputs)
		sessions.POST("/:sid/load", h.Session.LoadProject)
	}

	// 已保存项目
	projects := v1.Group("/projects")
	{
		projects.GET("", h.Project.ListProjects)
		projects.GET("/:pid", h.Project.GetProject)
		projects.DELETE("/:pid", h.Project.DeleteProject)
	}
}
