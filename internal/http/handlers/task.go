package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/buyerdesk-backend/internal/data/repos"
	"github.com/yungbote/buyerdesk-backend/internal/data/repos/deals"
	types "github.com/yungbote/buyerdesk-backend/internal/domain"
	"github.com/yungbote/buyerdesk-backend/internal/http/response"
	"github.com/yungbote/buyerdesk-backend/internal/services"
)

type TaskHandler struct {
	tasks services.TaskService
}

func NewTaskHandler(tasks services.TaskService) *TaskHandler {
	return &TaskHandler{tasks: tasks}
}

// POST /api/tasks
func (h *TaskHandler) CreateTask(c *gin.Context) {
	var in types.Task
	if !bindJSON(c, &in) {
		return
	}
	t, err := h.tasks.Create(dbcOf(c), &in)
	if err != nil {
		response.RespondServiceError(c, "create_task_failed", err)
		return
	}
	response.RespondCreated(c, gin.H{"task": t})
}

// GET /api/tasks?status=&priority=&assignee=&buyer_id=&open=true&sort=due_date|priority|created_at
func (h *TaskHandler) ListTasks(c *gin.Context) {
	buyerID, err := queryUUID(c, "buyer_id")
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_buyer_id", err)
		return
	}
	f := repos.TaskFilter{
		BuyerID:  buyerID,
		Status:   types.TaskStatus(strings.TrimSpace(c.Query("status"))),
		Priority: types.TaskPriority(strings.TrimSpace(c.Query("priority"))),
		Assignee: types.Assignee(strings.TrimSpace(c.Query("assignee"))),
		OpenOnly: c.Query("open") == "true",
		Sort:     deals.TaskSort(strings.TrimSpace(c.Query("sort"))),
		Limit:    queryLimit(c, 200),
	}
	out, err := h.tasks.List(dbcOf(c), f)
	if err != nil {
		response.RespondServiceError(c, "list_tasks_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"tasks": out})
}

// GET /api/tasks/:id
func (h *TaskHandler) GetTask(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	t, err := h.tasks.Get(dbcOf(c), id)
	if err != nil {
		response.RespondServiceError(c, "get_task_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"task": t})
}

// PATCH /api/tasks/:id
func (h *TaskHandler) UpdateTask(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	var patch services.TaskPatch
	if !bindJSON(c, &patch) {
		return
	}
	t, err := h.tasks.Update(dbcOf(c), id, patch)
	if err != nil {
		response.RespondServiceError(c, "update_task_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"task": t})
}

// POST /api/tasks/:id/status
func (h *TaskHandler) SetStatus(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	var req struct {
		Status types.TaskStatus `json:"status"`
	}
	if !bindJSON(c, &req) {
		return
	}
	t, err := h.tasks.SetStatus(dbcOf(c), id, req.Status)
	if err != nil {
		response.RespondServiceError(c, "task_status_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"task": t})
}

// DELETE /api/tasks/:id
func (h *TaskHandler) DeleteTask(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	if err := h.tasks.Delete(dbcOf(c), id); err != nil {
		response.RespondServiceError(c, "delete_task_failed", err)
		return
	}
	c.Status(http.StatusNoContent)
}
