package models

// Role keys form a closed set with a static precedence order. Approver slots
// compare role keys exactly; precedence is only used for listings and checks
// that are not slot-gated.
const (
	RoleRequestor         = "requestor"
	RoleSupervisor        = "supervisor"
	RoleProcessEngineer   = "process_engineer"
	RoleSafetyOfficer     = "safety_officer"
	RoleAreaManager       = "area_manager"
	RoleDepartmentManager = "department_manager"
	RoleAVP               = "avp"
	RoleAdmin             = "admin"
)

var rolePriority = map[string]int{
	RoleRequestor:         10,
	RoleSupervisor:        40,
	RoleProcessEngineer:   50,
	RoleSafetyOfficer:     50,
	RoleAreaManager:       60,
	RoleDepartmentManager: 70,
	RoleAVP:               90,
	RoleAdmin:             100,
}

// KnownRole reports whether key is part of the closed role set.
func KnownRole(key string) bool {
	_, ok := rolePriority[key]
	return ok
}

// RolePriority returns the precedence of a role key, 0 for unknown keys.
func RolePriority(key string) int {
	return rolePriority[key]
}
