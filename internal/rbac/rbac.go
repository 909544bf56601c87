package rbac

type Role string
type Action string

const (
	RoleViewer      Role = "viewer"
	RoleRespondent  Role = "respondent"
	RoleFacilitator Role = "facilitator"
	RoleAdmin       Role = "admin"
)

const (
	ActionRead        Action = "read"
	ActionRespond     Action = "respond"
	ActionConsolidate Action = "consolidate"
	ActionAdmin       Action = "admin"
)

func Can(role Role, action Action) bool {
	switch role {
	case RoleAdmin:
		return true
	case RoleFacilitator:
		return action == ActionRead || action == ActionRespond || action == ActionConsolidate
	case RoleRespondent:
		return action == ActionRead || action == ActionRespond
	case RoleViewer:
		return action == ActionRead
	default:
		return false
	}
}

func Normalize(role string) Role {
	switch Role(role) {
	case RoleViewer, RoleRespondent, RoleFacilitator, RoleAdmin:
		return Role(role)
	default:
		return RoleViewer
	}
}
