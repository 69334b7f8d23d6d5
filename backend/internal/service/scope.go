package service

import (
	"github.com/Ivin-Mathew/admissioninsider-lead-genaration/backend/config"
	"github.com/Ivin-Mathew/admissioninsider-lead-genaration/backend/internal/model"
	"github.com/Ivin-Mathew/admissioninsider-lead-genaration/backend/internal/repository"
)

// visibilityFilter 按角色生成可见范围过滤条件
//
//	admin     全部
//	counselor 仅分配给自己的申请
//	agent     agent_scope=own 时仅自己录入的申请，=all 时全部
func visibilityFilter(actor model.Actor, agentScope string) (repository.ApplicationFilter, error) {
	switch actor.Role {
	case model.RoleAdmin:
		return repository.ApplicationFilter{}, nil
	case model.RoleCounselor:
		return repository.ApplicationFilter{CounselorID: actor.ID}, nil
	case model.RoleAgent:
		if agentScope == config.AgentScopeAll {
			return repository.ApplicationFilter{}, nil
		}
		return repository.ApplicationFilter{AgentID: actor.ID}, nil
	}
	return repository.ApplicationFilter{}, ErrRoleNotPermitted
}

// canSee 单条记录是否在可见范围内，规则与 visibilityFilter 一致
func canSee(actor model.Actor, agentScope string, app *model.Application) bool {
	switch actor.Role {
	case model.RoleAdmin:
		return true
	case model.RoleCounselor:
		return app.CounselorID != nil && *app.CounselorID == actor.ID
	case model.RoleAgent:
		if agentScope == config.AgentScopeAll {
			return true
		}
		return app.AgentID != nil && *app.AgentID == actor.ID
	}
	return false
}
