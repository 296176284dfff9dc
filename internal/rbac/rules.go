package rbac

const (
	PermBankAny  = "bank:any"
	PermQuizAny  = "quiz:any"
	PermFileAny  = "file:any"
	PermUserList = "users:list"
	PermUserAdm  = "users:set_active"
)

// Default policy. Regular users only ever touch what they own.
var RolePermissions = map[string][]string{
	"user": {
		"bank:own",
		"quiz:own",
		"file:own",
		"user:change_password",
	},
	"admin": {
		"*",
	},
}
