package handler

import (
	"net/http"
	"strconv"

	"Talk_Flow/internal/model"
	"Talk_Flow/internal/service"

	"github.com/gin-gonic/gin"
)

type FollowHandler struct {
	svc      *service.FollowService
	profiles service.ProfileSource
}

func NewFollowHandler(svc *service.FollowService, profiles service.ProfileSource) *FollowHandler {
	return &FollowHandler{svc: svc, profiles: profiles}
}

type targetReq struct {
	UserID uint64 `json:"user_id" binding:"required"`
}

// Request asks another user to accept the caller as a follower.
func (h *FollowHandler) Request(c *gin.Context) {
	var req targetReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"msg": "invalid params"})
		return
	}
	if err := h.svc.SendFollowRequest(c.Request.Context(), userIDFromCtx(c), req.UserID); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"msg": "follow request sent"})
}

// Accept approves a pending request from user_id to follow the caller.
func (h *FollowHandler) Accept(c *gin.Context) {
	var req targetReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"msg": "invalid params"})
		return
	}
	if err := h.svc.AcceptFollowRequest(c.Request.Context(), userIDFromCtx(c), req.UserID); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"msg": "accepted"})
}

// Reject drops a pending request from user_id. Safe to repeat.
func (h *FollowHandler) Reject(c *gin.Context) {
	var req targetReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"msg": "invalid params"})
		return
	}
	if err := h.svc.RejectFollowRequest(c.Request.Context(), userIDFromCtx(c), req.UserID); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"msg": "rejected"})
}

// Unfollow stops following user_id. Safe to repeat.
func (h *FollowHandler) Unfollow(c *gin.Context) {
	var req targetReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"msg": "invalid params"})
		return
	}
	if err := h.svc.Unfollow(c.Request.Context(), userIDFromCtx(c), req.UserID); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"msg": "unfollowed"})
}

// RemoveFollower is the other side of Unfollow: the followed user drops
// user_id from their followers. Safe to repeat.
func (h *FollowHandler) RemoveFollower(c *gin.Context) {
	var req targetReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"msg": "invalid params"})
		return
	}
	if err := h.svc.Unfollow(c.Request.Context(), req.UserID, userIDFromCtx(c)); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"msg": "follower removed"})
}

// FollowBack reciprocates an existing follower without the request step.
func (h *FollowHandler) FollowBack(c *gin.Context) {
	var req targetReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"msg": "invalid params"})
		return
	}
	if err := h.svc.FollowBack(c.Request.Context(), userIDFromCtx(c), req.UserID); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"msg": "followed back"})
}

// Relation summarizes how the caller and another user relate.
func (h *FollowHandler) Relation(c *gin.Context) {
	other, _ := strconv.ParseUint(c.Query("user_id"), 10, 64)
	rel, err := h.svc.Relationship(c.Request.Context(), userIDFromCtx(c), other)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, rel)
}

func (h *FollowHandler) ListFollowers(c *gin.Context) {
	cursor, _ := strconv.ParseUint(c.Query("cursor"), 10, 64)
	limit, _ := strconv.Atoi(c.Query("limit"))
	rows, next, err := h.svc.ListFollowers(c.Request.Context(), userIDFromCtx(c), cursor, limit)
	if err != nil {
		fail(c, err)
		return
	}
	list, err := h.edgeProfiles(c, rows, func(r model.Relation) uint64 { return r.RequesterID })
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"list": list, "next_cursor": next})
}

func (h *FollowHandler) ListFollowings(c *gin.Context) {
	cursor, _ := strconv.ParseUint(c.Query("cursor"), 10, 64)
	limit, _ := strconv.Atoi(c.Query("limit"))
	rows, next, err := h.svc.ListFollowings(c.Request.Context(), userIDFromCtx(c), cursor, limit)
	if err != nil {
		fail(c, err)
		return
	}
	list, err := h.edgeProfiles(c, rows, func(r model.Relation) uint64 { return r.TargetID })
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"list": list, "next_cursor": next})
}

// edgeProfiles maps one side of a page of graph edges to profiles, keeping
// the page's order. Users deleted since the edge was written are skipped.
func (h *FollowHandler) edgeProfiles(c *gin.Context, rows []model.Relation, pick func(model.Relation) uint64) ([]model.Profile, error) {
	ids := make([]uint64, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, pick(r))
	}
	users, err := h.profiles.FindMany(c.Request.Context(), ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[uint64]model.Profile, len(users))
	for i := range users {
		byID[users[i].ID] = users[i].Profile()
	}
	out := make([]model.Profile, 0, len(rows))
	for _, r := range rows {
		if p, ok := byID[pick(r)]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}
