package auth

// Role names stored on admin accounts.
const (
	RoleSuperadmin       = "superadmin"
	RoleStudentRegistrar = "student_registrar"
	RoleFineManager      = "fine_manager"
	RoleReceiptManager   = "receipt_manager"
)

// Roles lists every known role.
var Roles = []string{RoleSuperadmin, RoleStudentRegistrar, RoleFineManager, RoleReceiptManager}

// Resource is a protected area of the portal.
type Resource string

// Resources gated by the policy table.
const (
	Students   Resource = "students"
	Courses    Resource = "courses"
	Sections   Resource = "sections"
	Events     Resource = "events"
	Attendance Resource = "attendance"
	Fines      Resource = "fines"
	Receipts   Resource = "receipts"
	AdminUsers Resource = "admin_users"
	Dashboard  Resource = "dashboard"
)

// Access is read or write.
type Access int

const (
	Read Access = iota + 1
	Write
)

// Op is one permission check: an access level on a resource.
type Op struct {
	Resource Resource
	Access   Access
}

// R and W build read and write ops.
func R(res Resource) Op { return Op{res, Read} }
func W(res Resource) Op { return Op{res, Write} }

// policy maps each non-superadmin role to the highest access it has per
// resource. Write implies read.
var policy = map[string]map[Resource]Access{
	RoleStudentRegistrar: {
		Students: Write, Courses: Write, Sections: Write, Events: Write,
		Attendance: Write, Dashboard: Read,
	},
	RoleFineManager: {
		Students: Read, Courses: Read, Sections: Read, Events: Read,
		Attendance: Read, Fines: Write, Receipts: Read, Dashboard: Read,
	},
	RoleReceiptManager: {
		Students: Read, Courses: Read, Sections: Read, Events: Read,
		Attendance: Read, Fines: Read, Receipts: Write, Dashboard: Read,
	},
}

// Allowed reports whether role may perform op.
func Allowed(role string, op Op) bool {
	if role == RoleSuperadmin {
		return true
	}
	granted, ok := policy[role][op.Resource]
	return ok && granted >= op.Access
}

// ValidRole reports whether role is known.
func ValidRole(role string) bool {
	for _, r := range Roles {
		if r == role {
			return true
		}
	}
	return false
}
