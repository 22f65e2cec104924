package rbac

const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

const (
	ResourceLeave        = "leave"
	ResourceBalance      = "balance"
	ResourceUser         = "user"
	ResourceNotification = "notification"
)

const (
	ActionRead     = "read"
	ActionReadAll  = "read_all"
	ActionCreate   = "create"
	ActionUpdate   = "update"
	ActionDelete   = "delete"
	ActionValidate = "validate"
	ActionExport   = "export"
	ActionManage   = "manage"
)

const modelText = `[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act

[role_definition]
g = _, _

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = g(r.sub, p.sub) && r.obj == p.obj && r.act == p.act
`

// Route middleware checks the token role against the user rows. The leave
// service checks read_all, validate, manage and export against the role
// stored in the user directory.
var defaultPolicies = [][]string{
	{RoleUser, ResourceLeave, ActionRead},
	{RoleUser, ResourceLeave, ActionCreate},
	{RoleUser, ResourceLeave, ActionUpdate},
	{RoleUser, ResourceLeave, ActionDelete},
	{RoleUser, ResourceBalance, ActionRead},
	{RoleUser, ResourceNotification, ActionRead},
	{RoleUser, ResourceNotification, ActionUpdate},

	{RoleAdmin, ResourceLeave, ActionReadAll},
	{RoleAdmin, ResourceLeave, ActionValidate},
	{RoleAdmin, ResourceLeave, ActionExport},
	{RoleAdmin, ResourceLeave, ActionManage},
	{RoleAdmin, ResourceBalance, ActionReadAll},
	{RoleAdmin, ResourceUser, ActionRead},
	{RoleAdmin, ResourceUser, ActionManage},
}

// admin inherits every user permission.
var defaultGroupings = [][]string{
	{RoleAdmin, RoleUser},
}
