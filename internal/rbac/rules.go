package rbac

// Default policy for the registrar API. Expand as needed.
var RolePermissions = map[string][]string{
	"student": {
		"scale:view",
		"result:view-own",
		"transcript:view-own",
		"user:change_password",
	},
	"faculty": {
		"scale:view",
		"marks:enter",
		"marks:edit",
		"marks:bulk",
		"marks:lock",
		"grades:calculate",
		"results:gpa",
		"result:view-all",
		"transcript:view-all",
		"user:change_password",
	},
	"admin": {
		"*", // everything
	},
}
