package guard

// Default portal paths. All guard redirects are defined here to ensure
// consistency and prevent typos.
const (
	RouteLogin = "/login"

	RouteStudentHome = "/student/courses"
	RouteTeacherHome = "/teacher/courses"
	RouteAdminHome   = "/admin/dashboard"
)
