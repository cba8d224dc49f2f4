package models

import "fmt"

// Role describes what a camera looks at in the store.
type Role string

const (
	RoleEntrance Role = "entrance"
	RoleSection  Role = "section"
	RoleCashier  Role = "cashier"
)

// IsValid checks if the role is one of the known roles.
func (r Role) IsValid() bool {
	switch r {
	case RoleEntrance, RoleSection, RoleCashier:
		return true
	default:
		return false
	}
}

// ParseRole converts a string into a Role.
func ParseRole(s string) (Role, error) {
	r := Role(s)
	if !r.IsValid() {
		return "", fmt.Errorf("unknown role %q", s)
	}
	return r, nil
}

// SourceKind tells whether a source is a live device or a file that loops.
type SourceKind string

const (
	KindWebcam SourceKind = "webcam"
	KindVideo  SourceKind = "video"
)

// ParseSourceKind converts a string into a SourceKind.
func ParseSourceKind(s string) (SourceKind, error) {
	switch k := SourceKind(s); k {
	case KindWebcam, KindVideo:
		return k, nil
	default:
		return "", fmt.Errorf("unknown source kind %q", s)
	}
}

// SourceSpec is a source registration request.
type SourceSpec struct {
	Origin string     `json:"origin"` // camera index or file path
	Kind   SourceKind `json:"kind"`
	Name   string     `json:"name"`
	Role   Role       `json:"role"`
}

// SourceInfo is the read-only view of a registered source.
type SourceInfo struct {
	Name       string     `json:"name"`
	Origin     string     `json:"origin"`
	Kind       SourceKind `json:"kind"`
	Role       Role       `json:"role"`
	Width      int        `json:"width"`
	Height     int        `json:"height"`
	Processing bool       `json:"processing"`
	Frames     int64      `json:"frames"`
	People     int        `json:"people"`
}
