package auth

// Authorize checks id against the roles a route requires. An empty set admits
// any authenticated caller and administrators pass every check.
func Authorize(required []Role, id Identity) error {
	if len(required) == 0 || id.Role == RoleAdministrator {
		return nil
	}
	for _, r := range required {
		if id.Role == r {
			return nil
		}
	}
	return ErrForbidden
}
