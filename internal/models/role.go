package models

// Role identifies which address field a location belongs to.
type Role string

const (
	RoleCenter Role = "center"
	RoleHome   Role = "home"
	RoleWork   Role = "work"
)

// Label is the marker tooltip of the role.
func (r Role) Label() string {
	switch r {
	case RoleCenter:
		return "Center"
	case RoleHome:
		return "Home"
	case RoleWork:
		return "Work"
	default:
		return string(r)
	}
}

// MarkerColor is the icon color of the role marker.
func (r Role) MarkerColor() string {
	switch r {
	case RoleCenter:
		return "blue"
	case RoleHome:
		return "green"
	case RoleWork:
		return "yellow"
	default:
		return "gray"
	}
}
