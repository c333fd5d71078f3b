package admin

import (
	"strconv"

	"github.com/nexpag/nexpag/internal/http/response"
	"github.com/nexpag/nexpag/internal/repository"

	"github.com/gin-gonic/gin"
)

// RoleRequest names a role to create.
type RoleRequest struct {
	Role string `json:"role" binding:"required"`
}

// RolePolicyRequest grants or revokes one rule on a role.
type RolePolicyRequest struct {
	Object string `json:"object" binding:"required"`
	Action string `json:"action" binding:"required"`
}

// OperatorRolesRequest replaces an operator's role assignments.
type OperatorRolesRequest struct {
	Roles []string `json:"roles"`
}

// GetRoles lists every known role.
func (h *Handler) GetRoles(c *gin.Context) {
	roles, err := h.AuthzService.ListRoles()
	if err != nil {
		respondError(c, response.CodeInternal, "role fetch failed", err)
		return
	}
	response.Success(c, roles)
}

// CreateRole creates an empty role.
func (h *Handler) CreateRole(c *gin.Context) {
	var req RoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "bad request", err)
		return
	}

	role, err := h.AuthzService.EnsureRole(req.Role)
	if err != nil {
		respondError(c, response.CodeBadRequest, "role create failed", err)
		return
	}

	requestLog(c).Infow("role_created", "role", role)
	response.Success(c, gin.H{"role": role})
}

// GetRolePolicies returns a role's rules.
func (h *Handler) GetRolePolicies(c *gin.Context) {
	policies, err := h.AuthzService.GetRolePolicies(c.Param("role"))
	if err != nil {
		respondError(c, response.CodeBadRequest, "policy fetch failed", err)
		return
	}
	response.Success(c, policies)
}

// GrantRolePolicy adds one rule to a role.
func (h *Handler) GrantRolePolicy(c *gin.Context) {
	var req RolePolicyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "bad request", err)
		return
	}

	if err := h.AuthzService.GrantRolePolicy(c.Param("role"), req.Object, req.Action); err != nil {
		respondError(c, response.CodeBadRequest, "policy grant failed", err)
		return
	}

	requestLog(c).Infow("role_policy_granted",
		"role", c.Param("role"),
		"object", req.Object,
		"action", req.Action,
	)
	response.Success(c, nil)
}

// RevokeRolePolicy removes one rule from a role.
func (h *Handler) RevokeRolePolicy(c *gin.Context) {
	var req RolePolicyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "bad request", err)
		return
	}

	if err := h.AuthzService.RevokeRolePolicy(c.Param("role"), req.Object, req.Action); err != nil {
		respondError(c, response.CodeBadRequest, "policy revoke failed", err)
		return
	}

	requestLog(c).Infow("role_policy_revoked",
		"role", c.Param("role"),
		"object", req.Object,
		"action", req.Action,
	)
	response.Success(c, nil)
}

// GetOperators pages through back-office accounts.
func (h *Handler) GetOperators(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)

	operators, total, err := h.OperatorRepo.List(repository.OperatorListFilter{
		Page:     page,
		PageSize: pageSize,
		Keyword:  c.Query("search"),
	})
	if err != nil {
		respondError(c, response.CodeInternal, "operator fetch failed", err)
		return
	}

	pagination := response.BuildPagination(page, pageSize, total)
	response.SuccessWithPage(c, operators, pagination)
}

// GetOperatorRoles returns an operator's role assignments.
func (h *Handler) GetOperatorRoles(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		respondError(c, response.CodeBadRequest, "invalid operator id", nil)
		return
	}

	roles, err := h.AuthzService.GetOperatorRoles(uint(id))
	if err != nil {
		respondError(c, response.CodeInternal, "role fetch failed", err)
		return
	}
	response.Success(c, roles)
}

// SetOperatorRoles replaces an operator's role assignments.
func (h *Handler) SetOperatorRoles(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		respondError(c, response.CodeBadRequest, "invalid operator id", nil)
		return
	}
	var req OperatorRolesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "bad request", err)
		return
	}

	operator, err := h.OperatorRepo.GetByID(uint(id))
	if err != nil {
		respondError(c, response.CodeInternal, "operator fetch failed", err)
		return
	}
	if operator == nil {
		respondError(c, response.CodeNotFound, "operator not found", nil)
		return
	}

	if err := h.AuthzService.SetOperatorRoles(operator.ID, req.Roles); err != nil {
		respondError(c, response.CodeBadRequest, "role assignment failed", err)
		return
	}

	requestLog(c).Infow("operator_roles_set", "operator_id", operator.ID, "roles", req.Roles)
	response.Success(c, nil)
}
