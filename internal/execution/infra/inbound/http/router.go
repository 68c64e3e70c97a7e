package http

import "github.com/gin-gonic/gin"

func RegisterExecutionRoutes(r *gin.Engine, handler *ExecutionHandler) {
	executions := r.Group("/executions")
	{
		executions.POST("/", handler.CreateExecution)
		executions.GET("/", handler.ListExecutions)
		// Rutas fijas antes que las parametrizadas para evitar conflictos en gin.
		executions.GET("/time/average", handler.GetAverageExecutionTime)
		executions.GET("/service-order/:serviceOrderId", handler.GetByServiceOrder)
		executions.GET("/:id", handler.GetExecution)
		executions.GET("/:id/time", handler.GetExecutionTime)
		executions.POST("/:id/start", handler.StartExecution)
		executions.POST("/:id/finish", handler.FinishExecution)
		executions.POST("/:id/deliver", handler.DeliverExecution)
	}
}
