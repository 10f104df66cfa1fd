package models

import "time"

// MaxInterests bounds the number of interests a user may select.
const MaxInterests = 6

// Role is the registrant's declared account category.
type Role string

const (
	RoleStudent Role = "Student"
	RoleFaculty Role = "Faculty"
)

// Affiliation binds a role to its single role-specific attribute: a program for
// students, a department for faculty. The zero value has no role.
type Affiliation struct {
	role  Role
	value string
}

func NewStudent(program string) Affiliation {
	return Affiliation{role: RoleStudent, value: program}
}

func NewFaculty(department string) Affiliation {
	return Affiliation{role: RoleFaculty, value: department}
}

// AffiliationFromFields rebuilds an affiliation from its persisted columns. The
// role wins when present; older records that lack it are inferred from whichever
// of program or department is set.
func AffiliationFromFields(role Role, program, department string) (Affiliation, bool) {
	switch {
	case role == RoleStudent && program != "":
		return NewStudent(program), true
	case role == RoleFaculty && department != "":
		return NewFaculty(department), true
	case role == "" && program != "" && department == "":
		return NewStudent(program), true
	case role == "" && department != "" && program == "":
		return NewFaculty(department), true
	}
	return Affiliation{}, false
}

func (a Affiliation) Role() Role { return a.role }

// Program returns the study program, or "" for faculty.
func (a Affiliation) Program() string {
	if a.role == RoleStudent {
		return a.value
	}
	return ""
}

// Department returns the faculty department, or "" for students.
func (a Affiliation) Department() string {
	if a.role == RoleFaculty {
		return a.value
	}
	return ""
}

// User represents a registered account.
type User struct {
	ID           string
	Username     string
	PasswordHash string
	FirstName    string
	LastName     string
	Email        string
	IDNumber     string
	Birthday     string
	Affiliation  Affiliation
	Interests    []string
	MBTIType     string

	// Profile attributes served by GET /profile. Nothing in the registration
	// or update flows writes them; they are only carried through when a stored
	// document already has them.
	Fullname *string
	Bio      *string
	Address  *string
	Pronouns *string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Sanitize returns a copy of the user without sensitive fields populated.
func (u User) Sanitize() User {
	u.PasswordHash = ""
	return u
}

// Clone returns a deep copy safe to hand across goroutines.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	c := *u
	if u.Interests != nil {
		c.Interests = append([]string(nil), u.Interests...)
	}
	c.Fullname = cloneString(u.Fullname)
	c.Bio = cloneString(u.Bio)
	c.Address = cloneString(u.Address)
	c.Pronouns = cloneString(u.Pronouns)
	return &c
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
