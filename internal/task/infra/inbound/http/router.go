package http

import "github.com/gin-gonic/gin"

func RegisterTaskRoutes(r *gin.Engine, handler *TaskHandler) {
	tasks := r.Group("/tasks")
	{
		tasks.POST("/", handler.CreateTask)
		tasks.GET("/execution/:executionId", handler.ListByExecution)
		tasks.GET("/:id", handler.GetTask)
		tasks.PUT("/:id", handler.UpdateTask)
		tasks.DELETE("/:id", handler.DeleteTask)
		tasks.POST("/:id/start", handler.StartTask)
		tasks.POST("/:id/complete", handler.CompleteTask)
	}
}
