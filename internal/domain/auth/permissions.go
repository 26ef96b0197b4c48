package auth

const (
	RoleViewer     = "viewer"
	RoleRulesAdmin = "rules_admin"
)

const (
	PermSalaryCalculate = "salary.calculate"
	PermRulesRead       = "rules.read"
	PermRulesReload     = "rules.reload"
)

var RolePermissions = map[string][]string{
	RoleViewer: {
		PermSalaryCalculate,
		PermRulesRead,
	},
	RoleRulesAdmin: {
		PermSalaryCalculate,
		PermRulesRead,
		PermRulesReload,
	},
}

func HasPermission(role, permission string) bool {
	for _, perm := range RolePermissions[role] {
		if perm == permission {
			return true
		}
	}
	return false
}
