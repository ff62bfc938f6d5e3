package auth

const (
	PermEventCreate  = "event.create"
	PermEventUpdate  = "event.update"
	PermEventDelete  = "event.delete"
	PermVenueManage  = "venue.manage"
	PermGenreManage  = "genre.manage"
	PermMemberManage = "member.manage"
	PermRoleManage   = "role.manage"
)

var BuiltinPermissions = []Permission{
	{Key: PermEventCreate, Description: "Create events"},
	{Key: PermEventUpdate, Description: "Update events"},
	{Key: PermEventDelete, Description: "Delete events"},
	{Key: PermVenueManage, Description: "Manage venues"},
	{Key: PermGenreManage, Description: "Manage genres"},
	{Key: PermMemberManage, Description: "Manage members and their roles"},
	{Key: PermRoleManage, Description: "Manage roles and their permissions"},
}

var builtinRoles = map[string]string{
	"user":             "Registered member",
	"event-management": "Event planning staff",
	"admin":            "Full administrative access",
}

var builtinRolePermissions = map[string][]string{
	"user": nil,
	"event-management": {
		PermEventCreate,
		PermEventUpdate,
		PermEventDelete,
		PermVenueManage,
		PermGenreManage,
	},
	"admin": {
		PermEventCreate,
		PermEventUpdate,
		PermEventDelete,
		PermVenueManage,
		PermGenreManage,
		PermMemberManage,
		PermRoleManage,
	},
}
