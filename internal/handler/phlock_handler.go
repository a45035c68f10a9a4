package handler

import (
	"net/http"
	"strconv"

	"phlock_server/internal/service"

	"github.com/gin-gonic/gin"
)

type PhlockHandler struct {
	svc *service.PhlockService
}

func NewPhlockHandler() *PhlockHandler {
	return &PhlockHandler{svc: service.NewPhlockService()}
}

type addMemberReq struct {
	MemberID uint64 `json:"member_id" binding:"required"`
	Position int8   `json:"position" binding:"required,min=1,max=5"`
}

type swapReq struct {
	OldMemberID uint64  `json:"old_member_id" binding:"required"`
	NewMemberID *uint64 `json:"new_member_id"` // 不传表示纯移除
}

// AddMember 空槽加人
func (h *PhlockHandler) AddMember(c *gin.Context) {
	var req addMemberReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"msg": "invalid params"})
		return
	}
	uid := userIDFromCtx(c)
	if err := h.svc.AddMember(c.Request.Context(), uid, req.MemberID, req.Position); err != nil {
		c.JSON(http.StatusOK, gin.H{"msg": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"msg": "ok"})
}

// Swap 换人或移除。返回 applied（立即生效）或 scheduled（零点生效）
func (h *PhlockHandler) Swap(c *gin.Context) {
	var req swapReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"msg": "invalid params"})
		return
	}
	uid := userIDFromCtx(c)
	res, err := h.svc.RequestSwap(c.Request.Context(), uid, req.OldMemberID, req.NewMemberID)
	if err != nil {
		c.JSON(http.StatusOK, gin.H{"msg": err.Error()})
		return
	}
	out := gin.H{"outcome": res.Outcome}
	if res.Outcome == service.SwapScheduled {
		out["mutation_id"] = res.MutationID
		out["scheduled_for"] = res.ScheduledFor
	}
	c.JSON(http.StatusOK, out)
}

// CancelMutation 撤回排期中的变更；已被 worker 认领时 cancelled=false
func (h *PhlockHandler) CancelMutation(c *gin.Context) {
	publicID := c.Param("id")
	uid := userIDFromCtx(c)
	ok, err := h.svc.CancelMutation(c.Request.Context(), uid, publicID)
	if err != nil {
		c.JSON(http.StatusOK, gin.H{"msg": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"cancelled": ok})
}

// ListMutations 变更记录
func (h *PhlockHandler) ListMutations(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	uid := userIDFromCtx(c)
	rows, err := h.svc.ListMutations(c.Request.Context(), uid, limit)
	if err != nil {
		c.JSON(http.StatusOK, gin.H{"msg": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"list": rows})
}

// List 当前圈子成员
func (h *PhlockHandler) List(c *gin.Context) {
	uid := userIDFromCtx(c)
	rows, err := h.svc.ListMembers(c.Request.Context(), uid)
	if err != nil {
		c.JSON(http.StatusOK, gin.H{"msg": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"list": rows})
}

// Feed 今天圈子里的歌
func (h *PhlockHandler) Feed(c *gin.Context) {
	uid := userIDFromCtx(c)
	items, err := h.svc.Feed(c.Request.Context(), uid)
	if err != nil {
		c.JSON(http.StatusOK, gin.H{"msg": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"list": items})
}
