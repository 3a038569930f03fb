package simulate

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/testops/taskwatch/internal/api"
	"github.com/testops/taskwatch/internal/stream"
	"github.com/testops/taskwatch/internal/task"
)

// Handler serves the engine under /api/v1 with the gateway's routes.
func (e *Engine) Handler() http.Handler {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	v1 := r.Group("/api/v1")
	{
		v1.GET("/tasks", e.handleList)
		v1.GET("/tasks/:id", e.handleGet)
		v1.POST("/tasks/:id/resume", e.handleResume)
		v1.POST("/generate/test-cases", e.handleGenerateTestCases)
		v1.POST("/generate/api-tests", e.handleGenerateAPITests)
		v1.GET("/stream/:id", e.handleStream)
	}
	return r
}

func writeError(c *gin.Context, err error) {
	var de *api.DomainError
	if errors.As(err, &de) {
		c.JSON(de.StatusCode, gin.H{"detail": de.Detail})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"detail": err.Error()})
}

func (e *Engine) handleList(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit < 1 || limit > 100 {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": "limit must be between 1 and 100"})
		return
	}
	offset, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil || offset < 0 {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": "offset must not be negative"})
		return
	}

	tasks, err := e.ListTasks(c.Request.Context(), api.ListOptions{
		Limit:  limit,
		Offset: offset,
		Status: task.State(c.Query("status")),
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, tasks)
}

func (e *Engine) handleGet(c *gin.Context) {
	t, err := e.GetTask(c.Request.Context(), c.Param("id"), api.DetailOptions{
		IncludeTests:   c.Query("include_tests") == "true",
		IncludeMetrics: c.Query("include_metrics") == "true",
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

func (e *Engine) handleResume(c *gin.Context) {
	resp, err := e.ResumeTask(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (e *Engine) handleGenerateTestCases(c *gin.Context) {
	var req api.GenerateTestCasesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": err.Error()})
		return
	}
	if err := req.Validate(); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": err.Error()})
		return
	}
	e.accept(c, e.Launch(LaunchOptions{TestType: string(req.TestType)}), nil)
}

func (e *Engine) handleGenerateAPITests(c *gin.Context) {
	var req api.GenerateAPITestsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": err.Error()})
		return
	}
	if err := req.Validate(); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": err.Error()})
		return
	}
	endpoints := len(req.Endpoints)
	e.accept(c, e.Launch(LaunchOptions{TestType: "api"}), &endpoints)
}

func (e *Engine) accept(c *gin.Context, t task.Task, endpoints *int) {
	c.JSON(http.StatusOK, api.GenerateResponse{
		RequestID:      t.RequestID,
		TaskID:         "sim-" + t.RequestID,
		Status:         string(t.Status),
		StreamURL:      "/api/v1/stream/" + t.RequestID,
		CreatedAt:      e.now().UTC(),
		EndpointsCount: endpoints,
	})
}

func (e *Engine) handleStream(c *gin.Context) {
	body, err := e.Dial(c.Request.Context(), c.Param("id"), c.GetHeader("Last-Event-ID"))
	if err != nil {
		var pe *stream.PermanentError
		if errors.As(err, &pe) {
			c.Data(pe.StatusCode, "application/json", []byte(pe.Body))
			return
		}
		writeError(c, err)
		return
	}
	defer body.Close()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Status(http.StatusOK)
	c.Writer.Flush()

	buf := make([]byte, 4096)
	for {
		n, err := body.Read(buf)
		if n > 0 {
			if _, werr := c.Writer.Write(buf[:n]); werr != nil {
				return
			}
			c.Writer.Flush()
		}
		if err != nil {
			return
		}
	}
}
