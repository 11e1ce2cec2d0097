package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/esl365/aijox.com-sub004/internal/api/middleware"
	"github.com/esl365/aijox.com-sub004/internal/dto"
	"github.com/esl365/aijox.com-sub004/internal/onboarding"
	"github.com/esl365/aijox.com-sub004/internal/service"
)

// ProfileHandler 角色资料设置处理器
type ProfileHandler struct {
	onboardingSvc service.OnboardingService
	sessions      service.SessionService
}

// NewProfileHandler 创建 ProfileHandler
func NewProfileHandler(onboardingSvc service.OnboardingService, sessions service.SessionService) *ProfileHandler {
	return &ProfileHandler{onboardingSvc: onboardingSvc, sessions: sessions}
}

// CompleteTeacher 提交教师资料
// POST /api/v1/profile/teacher
func (h *ProfileHandler) CompleteTeacher(c *gin.Context) {
	var req dto.TeacherProfileRequest
	h.complete(c, &req, func(ctx context.Context, sess onboarding.Session) (string, error) {
		return h.onboardingSvc.CompleteTeacherProfile(ctx, sess, &req, h.sessions.Invalidate)
	})
}

// CompleteRecruiter 提交招聘方资料
// POST /api/v1/profile/recruiter
func (h *ProfileHandler) CompleteRecruiter(c *gin.Context) {
	var req dto.RecruiterProfileRequest
	h.complete(c, &req, func(ctx context.Context, sess onboarding.Session) (string, error) {
		return h.onboardingSvc.CompleteRecruiterProfile(ctx, sess, &req, h.sessions.Invalidate)
	})
}

func (h *ProfileHandler) complete(c *gin.Context, req interface{}, submit func(context.Context, onboarding.Session) (string, error)) {
	sess, err := middleware.SessionFrom(c)
	if errors.Is(err, onboarding.ErrStoreUnavailable) {
		c.JSON(http.StatusServiceUnavailable, dto.ProfileSetupResult{Error: "Failed to save profile, please try again"})
		return
	}
	if !sess.Authenticated {
		c.JSON(http.StatusUnauthorized, dto.ProfileSetupResult{Error: "Please log in to continue"})
		return
	}
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ProfileSetupResult{Error: "Please check the highlighted fields"})
		return
	}

	redirectURL, err := submit(c.Request.Context(), sess)
	if err != nil {
		status, msg := profileError(err)
		c.JSON(status, dto.ProfileSetupResult{Error: msg})
		return
	}

	c.JSON(http.StatusOK, dto.ProfileSetupResult{Success: true, RedirectURL: redirectURL})
}

func profileError(err error) (int, string) {
	switch {
	case errors.Is(err, onboarding.ErrUnauthenticated):
		return http.StatusUnauthorized, "Please log in to continue"
	case errors.Is(err, onboarding.ErrRoleMismatch):
		return http.StatusForbidden, "This profile does not match your role"
	case errors.Is(err, onboarding.ErrProfileExists):
		return http.StatusConflict, "Profile already completed"
	default:
		return http.StatusServiceUnavailable, "Failed to save profile, please try again"
	}
}
